package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/janm2001/cryptofeed/internal/auth"
	"github.com/janm2001/cryptofeed/internal/model"
)

// PriceSource answers on-demand price requests. Implementations degrade to
// cached data instead of failing.
type PriceSource interface {
	FetchTop(ctx context.Context, n int, currency string) []model.PriceSnapshot
	FetchByIDs(ctx context.Context, ids []string, currency string) []model.PriceSnapshot
}

// Config holds stream server configuration.
type Config struct {
	ListenAddr   string        // TCP listen address (e.g., ":7300")
	WriteTimeout time.Duration // Per-message write deadline
	MaxLineBytes int           // Max size of one framed message
	DefaultTopN  int           // PriceRequest without ids fetches this many
	Currency     string        // Default quote currency
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":7300",
		WriteTimeout: 5 * time.Second,
		MaxLineBytes: 64 * 1024,
		DefaultTopN:  10,
		Currency:     "usd",
	}
}

// Server accepts stream connections and runs the per-session protocol.
type Server struct {
	cfg      Config
	registry *Registry
	prices   PriceSource
	auth     auth.Authenticator
	logger   *slog.Logger

	listener net.Listener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a stream server. The registry's lifecycle is owned by
// the server: Start starts it, Stop stops it.
func NewServer(cfg Config, registry *Registry, prices PriceSource, authenticator auth.Authenticator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		prices:   prices,
		auth:     authenticator,
		logger:   logger,
	}
}

// Registry exposes the session registry for broadcast fan-out.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.registry.Start(s.ctx); err != nil {
		return fmt.Errorf("start session registry: %w", err)
	}

	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("stream server started",
		"addr", ln.Addr().String(),
		"default_top_n", s.cfg.DefaultTopN,
	)
	return nil
}

// Stop closes the listener, force-closes every session, and waits for the
// handler goroutines to drain.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping stream server")

	if s.cancel != nil {
		s.cancel()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}

	// Closing sessions unblocks handler read loops.
	if err := s.registry.Stop(ctx); err != nil {
		s.logger.Warn("session registry stop", "error", err)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("stream server stopped")
	case <-ctx.Done():
		s.logger.Warn("stream server stop timed out")
	}
	return nil
}

// Addr returns the bound listen address, for tests that listen on ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// acceptLoop accepts connections until the listener closes.
func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		sess := newSession(conn, s.cfg.WriteTimeout, s.cfg.MaxLineBytes)
		s.registry.Emit(Event{Kind: EventConnected, Session: sess})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleSession(sess)
		}()
	}
}

// handleSession runs one session's read loop. Inbound messages are handled
// in receipt order; replies go out in that same order. Any read or write
// error ends the session.
func (s *Server) handleSession(sess *Session) {
	defer s.registry.Emit(Event{Kind: EventDisconnected, Session: sess})

	sc := sess.scanner()
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		if err := s.handleMessage(sess, line); err != nil {
			s.logger.Warn("session write failed",
				"session_id", sess.ID,
				"error", err,
			)
			return
		}
	}

	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Debug("session read ended",
			"session_id", sess.ID,
			"error", err,
		)
	}
}

// handleMessage decodes one framed message and dispatches on its type.
// Protocol errors are answered with an error Ack and keep the connection
// open; only a failed reply write is returned as an error.
func (s *Server) handleMessage(sess *Session, line []byte) error {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return sess.send(NewErrorAck("", "malformed message"))
	}

	s.registry.Emit(Event{Kind: EventMessage, Session: sess, MessageType: env.MessageType})

	switch env.MessageType {
	case TypeAuth:
		return s.handleAuth(sess, env)

	case TypePriceRequest:
		return s.handlePriceRequest(sess, env)

	case TypeSubscribe:
		sess.subscribe(env.Channels)
		return sess.send(NewAck(env.CorrelationId))

	case TypeUnsubscribe:
		sess.unsubscribe(env.Channels)
		return sess.send(NewAck(env.CorrelationId))

	case TypeHeartbeat:
		return sess.send(Heartbeat{MessageType: TypeHeartbeat})

	default:
		return sess.send(NewErrorAck(env.CorrelationId, "unknown message type: "+env.MessageType))
	}
}

// handleAuth validates the token. An invalid token keeps the session in
// Connected; the client may retry on the same connection.
func (s *Server) handleAuth(sess *Session, env Envelope) error {
	identity, ok := s.auth.Validate(env.Token)
	if !ok {
		return sess.send(NewErrorAck(env.CorrelationId, "invalid token"))
	}

	sess.setAuthenticated(identity)
	s.registry.Emit(Event{Kind: EventAuthenticated, Session: sess})
	return sess.send(NewAck(env.CorrelationId))
}

// handlePriceRequest answers with current prices, by ids when given, else
// the default top-N.
func (s *Server) handlePriceRequest(sess *Session, env Envelope) error {
	currency := env.Currency
	if currency == "" {
		currency = s.cfg.Currency
	}

	var snapshots []model.PriceSnapshot
	if len(env.CoinIds) > 0 {
		snapshots = s.prices.FetchByIDs(s.ctx, env.CoinIds, currency)
	} else {
		snapshots = s.prices.FetchTop(s.ctx, s.cfg.DefaultTopN, currency)
	}

	return sess.send(NewPriceResponse(snapshots, env.CorrelationId))
}

package datagram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/janm2001/cryptofeed/internal/model"
)

// Config holds datagram server configuration.
type Config struct {
	ListenAddr    string        // UDP listen address (e.g., ":7301")
	SubscriberTTL time.Duration // Evict after no heartbeat for this long (0 = never)
	SweepInterval time.Duration // How often to scan for stale subscribers
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:    ":7301",
		SubscriberTTL: 90 * time.Second,
		SweepInterval: 30 * time.Second,
	}
}

// Server runs the UDP control loop and broadcast sends.
type Server struct {
	cfg      Config
	registry *Registry
	logger   *slog.Logger

	conn *net.UDPConn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer creates a datagram server over the given registry.
func NewServer(cfg Config, registry *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

// Registry exposes the subscriber registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start binds the UDP socket and begins the receive loop.
func (s *Server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	addr, err := net.ResolveUDPAddr("udp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.cfg.ListenAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen udp %s: %w", s.cfg.ListenAddr, err)
	}
	s.conn = conn

	s.wg.Add(1)
	go s.receiveLoop()

	if s.cfg.SubscriberTTL > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}

	s.logger.Info("datagram server started",
		"addr", conn.LocalAddr().String(),
		"subscriber_ttl", s.cfg.SubscriberTTL,
	)
	return nil
}

// Stop closes the socket and waits for the loops to drain.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping datagram server")

	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("datagram server stopped")
	case <-ctx.Done():
		s.logger.Warn("datagram server stop timed out")
	}
	return nil
}

// Addr returns the bound local address, for tests that listen on ":0".
func (s *Server) Addr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// BroadcastOne sends one snapshot to every currently registered endpoint,
// fire-and-forget. A failed send is logged and skipped; it neither evicts
// the subscriber nor aborts the remaining sends.
func (s *Server) BroadcastOne(snapshot model.PriceSnapshot) {
	endpoints := s.registry.Endpoints()
	if len(endpoints) == 0 {
		return
	}

	data, err := json.Marshal(NewPriceUpdate(snapshot))
	if err != nil {
		s.logger.Error("marshal price update", "error", err)
		return
	}

	for _, ep := range endpoints {
		if _, err := s.conn.WriteToUDPAddrPort(data, ep); err != nil {
			s.logger.Warn("datagram send failed",
				"endpoint", ep.String(),
				"coin", snapshot.CoinID,
				"error", err,
			)
		}
	}
}

// receiveLoop handles inbound control packets until the socket closes.
func (s *Server) receiveLoop() {
	defer s.wg.Done()

	buf := make([]byte, 2048)
	for {
		n, ep, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("datagram read failed", "error", err)
			continue
		}

		s.handlePacket(buf[:n], ep)
	}
}

// handlePacket dispatches one control packet. Dispatch is synchronous; the
// loop never blocks on delivery completion.
func (s *Server) handlePacket(data []byte, ep netip.AddrPort) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logger.Debug("malformed datagram", "endpoint", ep.String(), "error", err)
		return
	}

	now := time.Now()
	switch env.MessageType {
	case TypeSubscribe:
		s.registry.Subscribe(ep, now)
		s.sendAck(ep, true)
		s.logger.Info("datagram subscriber added", "endpoint", ep.String())

	case TypeUnsubscribe:
		s.registry.Unsubscribe(ep)
		s.sendAck(ep, true)
		s.logger.Info("datagram subscriber removed", "endpoint", ep.String())

	case TypeHeartbeat:
		known := s.registry.Heartbeat(ep, now)
		s.sendAck(ep, known)

	default:
		s.logger.Debug("unknown datagram type",
			"endpoint", ep.String(),
			"type", env.MessageType,
		)
		s.sendAck(ep, false)
	}
}

// sendAck replies to a control packet; failures are logged and ignored.
func (s *Server) sendAck(ep netip.AddrPort, success bool) {
	data, err := json.Marshal(Ack{MessageType: TypeAck, Success: success})
	if err != nil {
		return
	}
	if _, err := s.conn.WriteToUDPAddrPort(data, ep); err != nil {
		s.logger.Debug("ack send failed", "endpoint", ep.String(), "error", err)
	}
}

// sweepLoop periodically evicts subscribers whose heartbeats went stale.
func (s *Server) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			evicted := s.registry.Sweep(s.cfg.SubscriberTTL, time.Now())
			for _, ep := range evicted {
				s.logger.Info("datagram subscriber evicted",
					"endpoint", ep.String(),
					"ttl", s.cfg.SubscriberTTL,
				)
			}
		}
	}
}

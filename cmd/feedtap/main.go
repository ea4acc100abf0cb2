// feedtap connects to a feedd stream endpoint and prints parsed messages
// to the console. Stdin lines are treated as commands:
//
//	auth <token>
//	prices [coin-id ...]
//	sub <channel ...>
//	unsub <channel ...>
//	ping
//	raw <json>
//
// Usage: go run ./cmd/feedtap --addr localhost:7300 --token dev-token
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/janm2001/cryptofeed/internal/stream"
)

func main() {
	addr := flag.String("addr", "localhost:7300", "stream endpoint address")
	token := flag.String("token", "", "auth token to send on connect")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial %s: %v\n", *addr, err)
		os.Exit(1)
	}
	defer conn.Close()
	fmt.Printf("connected to %s\n", *addr)

	if *token != "" {
		sendJSON(conn, stream.Envelope{MessageType: stream.TypeAuth, Token: *token})
	}

	go printMessages(ctx, conn, *verbose, cancel)
	go readCommands(ctx, conn)

	<-ctx.Done()
	fmt.Println("bye")
}

// printMessages reads newline-delimited JSON from the server and prints
// a short summary per message kind.
func printMessages(ctx context.Context, conn net.Conn, verbose bool, cancel context.CancelFunc) {
	defer cancel()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 4096), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if verbose {
			var pretty json.RawMessage = line
			data, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Printf("%s\n", data)
			continue
		}

		var env stream.Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			fmt.Printf("[RAW] %s\n", line)
			continue
		}

		switch env.MessageType {
		case stream.TypeAck:
			var ack stream.Ack
			json.Unmarshal(line, &ack)
			if ack.Success {
				fmt.Printf("[ACK] ok\n")
			} else {
				fmt.Printf("[ACK] error: %s\n", ack.Error)
			}
		case stream.TypePriceResponse:
			var resp stream.PriceResponse
			json.Unmarshal(line, &resp)
			for _, p := range resp.Prices {
				fmt.Printf("[PRICE] %-12s %12.4f  24h %+6.2f%%\n", p.CoinId, p.CurrentPrice, p.PriceChangePct24h)
			}
		case stream.TypeHeartbeat:
			fmt.Printf("[HEARTBEAT]\n")
		default:
			fmt.Printf("[%s] %s\n", env.MessageType, line)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "read: %v\n", err)
	}
	fmt.Println("server closed connection")
}

// readCommands turns stdin lines into protocol messages.
func readCommands(ctx context.Context, conn net.Conn) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "auth":
			if len(fields) != 2 {
				fmt.Println("usage: auth <token>")
				continue
			}
			sendJSON(conn, stream.Envelope{MessageType: stream.TypeAuth, Token: fields[1]})
		case "prices":
			sendJSON(conn, stream.Envelope{MessageType: stream.TypePriceRequest, CoinIds: fields[1:]})
		case "sub":
			sendJSON(conn, stream.Envelope{MessageType: stream.TypeSubscribe, Channels: fields[1:]})
		case "unsub":
			sendJSON(conn, stream.Envelope{MessageType: stream.TypeUnsubscribe, Channels: fields[1:]})
		case "ping":
			sendJSON(conn, stream.Envelope{MessageType: stream.TypeHeartbeat})
		case "raw":
			writeLine(conn, []byte(strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "raw"))))
		default:
			fmt.Printf("unknown command %q (auth, prices, sub, unsub, ping, raw)\n", fields[0])
		}
	}
}

func sendJSON(conn net.Conn, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		return
	}
	writeLine(conn, data)
}

func writeLine(conn net.Conn, data []byte) {
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := conn.Write(append(data, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
	}
}

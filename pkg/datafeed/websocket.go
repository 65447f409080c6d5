package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultStreamURL  = "wss://stream.databroker.in/quotes"
	pingInterval      = 25 * time.Second
	reconnectBase     = 1 * time.Second
	reconnectMax      = 30 * time.Second
	writeWaitDeadline = 5 * time.Second
)

// Quote is one last-traded-price update from the stream.
type Quote struct {
	Symbol string    `json:"symbol"`
	LTP    float64   `json:"ltp"`
	TS     time.Time `json:"ts"`
}

// QuoteStream maintains a websocket subscription for live prices.
// It reconnects with exponential backoff and re-subscribes after a drop.
type QuoteStream struct {
	URL        string
	APIKey     string
	ClientCode string
	FeedToken  string

	// OnQuote is invoked from the read loop for every price update.
	OnQuote func(Quote)
	// OnReconnect is invoked after a successful reconnect, before
	// re-subscription. Optional.
	OnReconnect func()

	mu      sync.Mutex
	conn    *websocket.Conn
	symbols []string
}

// NewQuoteStream creates a stream client authorized with a feed token
// obtained from Client.Login.
func NewQuoteStream(apiKey, clientCode, feedToken string) *QuoteStream {
	return &QuoteStream{
		URL:        defaultStreamURL,
		APIKey:     apiKey,
		ClientCode: clientCode,
		FeedToken:  feedToken,
	}
}

// Subscribe records the symbols of interest and, if connected, sends the
// subscription frame. Symbols persist across reconnects.
func (q *QuoteStream) Subscribe(symbols []string) error {
	q.mu.Lock()
	q.symbols = append([]string(nil), symbols...)
	conn := q.conn
	q.mu.Unlock()

	if conn == nil {
		return nil
	}
	return q.sendSubscribe(conn)
}

// Run connects and consumes the stream until ctx is cancelled. Transient
// failures trigger reconnects; only context cancellation returns.
func (q *QuoteStream) Run(ctx context.Context) error {
	backoff := reconnectBase
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := q.dial(ctx)
		if err != nil {
			log.Printf("[stream] connect failed: %v, retrying in %v", err, backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}
		backoff = reconnectBase

		q.mu.Lock()
		q.conn = conn
		q.mu.Unlock()

		if q.OnReconnect != nil {
			q.OnReconnect()
		}
		if err := q.sendSubscribe(conn); err != nil {
			log.Printf("[stream] subscribe failed: %v", err)
			conn.Close()
			continue
		}

		q.readLoop(ctx, conn)

		q.mu.Lock()
		q.conn = nil
		q.mu.Unlock()
		conn.Close()
	}
}

// Close tears down the current connection, if any. Run will attempt to
// reconnect unless its context is cancelled.
func (q *QuoteStream) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.conn != nil {
		q.conn.Close()
		q.conn = nil
	}
}

func (q *QuoteStream) dial(ctx context.Context) (*websocket.Conn, error) {
	header := map[string][]string{
		"Authorization": {"Bearer " + q.FeedToken},
		"x-api-key":     {q.APIKey},
		"x-client-code": {q.ClientCode},
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, q.URL, header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", q.URL, err)
	}
	return conn, nil
}

func (q *QuoteStream) sendSubscribe(conn *websocket.Conn) error {
	q.mu.Lock()
	symbols := append([]string(nil), q.symbols...)
	q.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}

	msg := map[string]any{
		"action":  "subscribe",
		"mode":    "ltp",
		"symbols": symbols,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWaitDeadline))
	if err := conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	log.Printf("[stream] subscribed to %d symbols", len(symbols))
	return nil
}

func (q *QuoteStream) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)

	// Ping keepalive; the server drops idle connections.
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWaitDeadline))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("[stream] read error: %v, reconnecting", err)
			}
			return
		}
		var quote Quote
		if err := json.Unmarshal(data, &quote); err != nil {
			continue
		}
		if quote.Symbol == "" {
			continue
		}
		if q.OnQuote != nil {
			q.OnQuote(quote)
		}
	}
}

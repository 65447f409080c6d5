// Package datafeed is the broker-backed market data client: a REST candle
// API behind a TOTP login, plus a websocket stream for live last-traded
// prices. It implements the scanner's Provider contract so the orchestrator
// never sees broker specifics.
package datafeed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"fib-scannerv1/internal/model"
)

const (
	defaultRootURL = "https://apiconnect.databroker.in"
	defaultTimeout = 7 * time.Second
)

var routes = map[string]string{
	"api.login":   "/rest/auth/user/v1/loginByPassword",
	"api.logout":  "/rest/secure/user/v1/logout",
	"api.candles": "/rest/secure/historical/v1/getCandleData",
}

// Config configures the data feed client.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string // base32 secret; the client generates codes itself

	RootURL string        // default: defaultRootURL
	Timeout time.Duration // default: 7s
}

// Client is a session-holding HTTP client for the candle API.
// Safe for concurrent use — scan workers share one logged-in client.
type Client struct {
	cfg        Config
	rootURL    string
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
	feedToken   string
}

// NewClient creates a Client; call Login before fetching data.
func NewClient(cfg Config) *Client {
	root := cfg.RootURL
	if root == "" {
		root = defaultRootURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:        cfg,
		rootURL:    root,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FeedToken returns the websocket feed token from the current session.
func (c *Client) FeedToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feedToken
}

type apiResponse struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Login opens a session using the configured credentials, generating the
// current TOTP code from the shared secret.
func (c *Client) Login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("datafeed: generate totp: %w", err)
	}

	payload := map[string]string{
		"clientcode": c.cfg.ClientCode,
		"password":   c.cfg.Password,
		"totp":       code,
	}
	var session struct {
		JWTToken  string `json:"jwtToken"`
		FeedToken string `json:"feedToken"`
	}
	if err := c.post(ctx, routes["api.login"], payload, &session); err != nil {
		return fmt.Errorf("datafeed: login: %w", err)
	}

	c.mu.Lock()
	c.accessToken = session.JWTToken
	c.feedToken = session.FeedToken
	c.mu.Unlock()
	return nil
}

// CandleRequest asks for historical bars over an explicit time range.
type CandleRequest struct {
	Exchange string
	Symbol   string
	Interval string
	From     time.Time
	To       time.Time
}

// Candles fetches historical bars for the request, chronologically
// ascending.
func (c *Client) Candles(ctx context.Context, req CandleRequest) (model.Series, error) {
	payload := map[string]string{
		"exchange":    req.Exchange,
		"symboltoken": req.Symbol,
		"interval":    req.Interval,
		"fromdate":    req.From.Format("2006-01-02 15:04"),
		"todate":      req.To.Format("2006-01-02 15:04"),
	}

	// Rows come back as [timestamp, open, high, low, close, volume].
	var rows [][]json.RawMessage
	if err := c.post(ctx, routes["api.candles"], payload, &rows); err != nil {
		return nil, fmt.Errorf("datafeed: candles %s/%s: %w", req.Exchange, req.Symbol, err)
	}

	series := make(model.Series, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var tsStr string
		if err := json.Unmarshal(row[0], &tsStr); err != nil {
			continue
		}
		ts, err := time.Parse(time.RFC3339, tsStr)
		if err != nil {
			continue
		}
		vals := make([]float64, 5)
		ok := true
		for i := 0; i < 5; i++ {
			if err := json.Unmarshal(row[i+1], &vals[i]); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		series = append(series, model.Bar{
			TS: ts, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4],
		})
	}
	return series, nil
}

// intervalSpans maps scanner interval names to bar durations for range
// computation.
var intervalSpans = map[string]time.Duration{
	"1min":   time.Minute,
	"5min":   5 * time.Minute,
	"15min":  15 * time.Minute,
	"30min":  30 * time.Minute,
	"hourly": time.Hour,
	"4h":     4 * time.Hour,
	"daily":  24 * time.Hour,
	"weekly": 7 * 24 * time.Hour,
}

// GetData implements the scanner's Provider contract: it converts a bar
// count into an explicit time range, fetches, and returns at most nBars of
// the most recent history.
func (c *Client) GetData(ctx context.Context, symbol, exchange, interval string, nBars int) (model.Series, error) {
	span, ok := intervalSpans[interval]
	if !ok {
		return nil, fmt.Errorf("datafeed: unknown interval %q", interval)
	}

	to := time.Now()
	// Over-fetch by 40% to cover weekends and holidays in the range.
	from := to.Add(-time.Duration(float64(nBars)*1.4) * span)
	series, err := c.Candles(ctx, CandleRequest{
		Exchange: exchange, Symbol: symbol, Interval: interval, From: from, To: to,
	})
	if err != nil {
		return nil, err
	}
	if len(series) > nBars {
		series = series[len(series)-nBars:]
	}
	return series, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rootURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-PrivateKey", c.cfg.APIKey)
	c.mu.RLock()
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var envelope apiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if !envelope.Status {
		return fmt.Errorf("api error: %s", envelope.Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (" + strconv.Itoa(len(s)) + " bytes)"
}

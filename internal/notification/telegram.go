package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"fib-scannerv1/internal/model"
)

// TelegramNotifier sends alerts and scan reports via the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	client   *http.Client
}

// NewTelegramNotifier creates a Telegram notifier.
// botToken: Bot API token from @BotFather
// chatID: Target chat/group/channel ID
func NewTelegramNotifier(botToken, chatID string) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	emoji := "ℹ️"
	switch alert.Level {
	case AlertWarning:
		emoji = "⚠️"
	case AlertCritical:
		emoji = "🚨"
	}

	text := fmt.Sprintf("%s *%s*\n\n%s", emoji, escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))
	if err := t.sendMessage(ctx, text); err != nil {
		return err
	}
	log.Printf("[telegram] sent alert: %s", alert.Title)
	return nil
}

// topSignals is how many buy and sell entries a scan report lists.
const topSignals = 5

// SendScanReport formats and delivers a batch-scan summary: counts plus
// the strongest buy and sell signals with their guidance levels.
func (t *TelegramNotifier) SendScanReport(ctx context.Context, interval string, totalSymbols int, results []*model.ScanResult) error {
	var buys, sells []*model.ScanResult
	for _, r := range results {
		switch r.Guidance.Action {
		case model.ActionBuy:
			buys = append(buys, r)
		case model.ActionSell:
			sells = append(sells, r)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s*\n\n", escapeMarkdown(fmt.Sprintf("Cycle Scan — %s", interval)))
	fmt.Fprintf(&b, "%s\n", escapeMarkdown(fmt.Sprintf(
		"Scanned %d symbols: %d signals (%d buy / %d sell)",
		totalSymbols, len(results), len(buys), len(sells))))

	writeSection := func(title string, list []*model.ScanResult) {
		if len(list) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n*%s*\n", escapeMarkdown(title))
		for i, r := range list {
			if i >= topSignals {
				break
			}
			line := fmt.Sprintf("%d. %s: %s (%.2f)", i+1, r.Symbol, r.Signal, r.CombinedStrength)
			if r.Guidance.HasLevels {
				line += fmt.Sprintf(" stop %.2f / target %.2f", r.Guidance.StopLoss, r.Guidance.Target)
			}
			fmt.Fprintf(&b, "%s\n", escapeMarkdown(line))
		}
	}
	writeSection("Top Buy Signals", buys)
	writeSection("Top Sell Signals", sells)

	if err := t.sendMessage(ctx, b.String()); err != nil {
		return err
	}
	log.Printf("[telegram] sent scan report: %d results on %s", len(results), interval)
	return nil
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	body, _ := json.Marshal(map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "MarkdownV2",
	})

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// escapeMarkdown escapes special characters for Telegram MarkdownV2.
func escapeMarkdown(s string) string {
	specials := []byte{'_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!'}
	var buf bytes.Buffer
	for i := 0; i < len(s); i++ {
		for _, sp := range specials {
			if s[i] == sp {
				buf.WriteByte('\\')
				break
			}
		}
		buf.WriteByte(s[i])
	}
	return buf.String()
}

// Package telegram provides a client for sending notifications via Telegram Bot API.
// It formats lots that need attention into human-readable messages and handles
// delivery with retry logic for reliability.
//
// Messages use MarkdownV2; every piece of dynamic text goes through
// escapeMarkdownV2 before it is embedded.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/flockcast/internal/models"
)

// sender is the part of *tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Send sends a notification listing the given lot alerts
func (c *Client) Send(alerts []models.LotAlert) error {
	return c.send(formatMessage(alerts, time.Now()))
}

// SendError notifies the chat that a watch cycle failed
func (c *Client) SendError(err error) error {
	return c.send(fmt.Sprintf("⚠️ *Watch cycle failed*\n\n%s", escapeMarkdownV2(err.Error())))
}

// SendRecovery notifies the chat that cycles succeed again after failures
func (c *Client) SendRecovery(failedCycles int) error {
	return c.send(fmt.Sprintf("✅ *Watch recovered* after %d failed cycle\\(s\\)", failedCycles))
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

var severityEmoji = map[models.Severity]string{
	models.SeverityCritical:  "🔴",
	models.SeverityImportant: "🟠",
}

// formatMessage formats lot alerts into a Telegram message. Only CRITICAL and
// IMPORTANT recommendations are listed.
func formatMessage(alerts []models.LotAlert, now time.Time) string {
	var b strings.Builder
	b.WriteString("🐔 *Lots needing attention*\n\n")
	fmt.Fprintf(&b, "📅 Generated: %s\n\n", escapeMarkdownV2(now.Format("2006-01-02 15:04")))

	for i, a := range alerts {
		name := a.Lot.Name
		if name == "" {
			name = a.Lot.ID
		}
		fmt.Fprintf(&b, "%d\\. *%s* \\(%s\\)\n", i+1, escapeMarkdownV2(name), escapeMarkdownV2(string(a.Lot.Category)))

		f := a.Forecast
		if f == nil {
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "   📊 Efficiency: *%s* · age %d/%d days\n",
			escapeMarkdownV2(fmt.Sprintf("%.1f", f.ProjectedEfficiency)), f.CurrentAge, f.TargetAge)
		fmt.Fprintf(&b, "   ⚖️ Final weight: %s kg · ROI %s\n",
			escapeMarkdownV2(fmt.Sprintf("%.2f", f.FinalWeight.Value)),
			escapeMarkdownV2(fmt.Sprintf("%.1f%%", f.Profitability.ROIPercent)))

		for _, r := range f.Recommendations {
			emoji, ok := severityEmoji[r.Severity]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "   %s %s: %s\n", emoji, escapeMarkdownV2(r.Message), escapeMarkdownV2(r.Action))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/service"
	"CycleScope/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts composite signal changes to a chat.
type TelegramNotifier struct {
	bot        Sender
	chatID     int64
	maxRetries int
	retryDelay time.Duration
	log        *logger.Logger
}

// Option configures TelegramNotifier.
type Option func(*TelegramNotifier)

// WithRetry sets attempts and the linear backoff base.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(n *TelegramNotifier) {
		if attempts > 0 {
			n.maxRetries = attempts
		}
		if delay > 0 {
			n.retryDelay = delay
		}
	}
}

// NewTelegramNotifier connects to the Bot API with token.
func NewTelegramNotifier(token string, chatID int64, log *logger.Logger, opts ...Option) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewTelegramNotifierWithSender(bot, chatID, log, opts...), nil
}

func NewTelegramNotifierWithSender(bot Sender, chatID int64, log *logger.Logger, opts ...Option) *TelegramNotifier {
	n := &TelegramNotifier{bot: bot, chatID: chatID, maxRetries: 3, retryDelay: time.Second, log: log}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *TelegramNotifier) NotifySignalChange(ctx context.Context, prev, cur models.CompositeScore) error {
	msg := tgbotapi.NewMessage(n.chatID, FormatSignalChange(prev, cur))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		if _, err := n.bot.Send(msg); err == nil {
			n.log.Info("signal change sent",
				logger.String("from", string(prev.Signal)), logger.String("to", string(cur.Signal)))
			return nil
		} else {
			lastErr = err
		}
		if i == n.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.retryDelay * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", n.maxRetries, lastErr)
}

var signalIcon = map[models.CompositeSignal]string{
	models.CompositeStrongBuy:  "🟢🟢",
	models.CompositeBuy:        "🟢",
	models.CompositeNeutral:    "⚪",
	models.CompositeSell:       "🔴",
	models.CompositeStrongSell: "🔴🔴",
}

// FormatSignalChange renders a MarkdownV2 message for a signal transition.
func FormatSignalChange(prev, cur models.CompositeScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Cycle signal changed*\n\n", signalIcon[cur.Signal])
	fmt.Fprintf(&b, "*%s* → *%s*\n",
		escapeMarkdownV2(strings.ToUpper(string(prev.Signal))),
		escapeMarkdownV2(strings.ToUpper(string(cur.Signal))))
	fmt.Fprintf(&b, "Score: `%s` \\(was `%s`\\)\n",
		escapeMarkdownV2(fmt.Sprintf("%.1f", cur.Overall)),
		escapeMarkdownV2(fmt.Sprintf("%.1f", prev.Overall)))
	fmt.Fprintf(&b, "Indicators: %d\n", cur.Included())
	if !cur.LastUpdate.IsZero() {
		fmt.Fprintf(&b, "_%s_", escapeMarkdownV2(cur.LastUpdate.UTC().Format(time.RFC3339)))
	}
	return b.String()
}

func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// LogNotifier only logs signal changes. It is used when Telegram is disabled.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifySignalChange(_ context.Context, prev, cur models.CompositeScore) error {
	n.log.Info("composite signal changed",
		logger.String("from", string(prev.Signal)),
		logger.String("to", string(cur.Signal)),
		logger.Float64("overall", cur.Overall),
	)
	return nil
}

var (
	_ service.Notifier = (*TelegramNotifier)(nil)
	_ service.Notifier = (*LogNotifier)(nil)
)

package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"github.com/Vodeneev/surebet/internal/pkg/models"
)

// Min interval between two messages to the same chat; Telegram answers 429 above ~30/min.
const telegramSendInterval = 2 * time.Second

// chatSender is the part of tgbotapi.BotAPI the notifier uses.
type chatSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier sends one Markdown message per opportunity, best first.
type TelegramNotifier struct {
	bot     chatSender
	chatID  int64
	topN    int
	limiter *rate.Limiter
}

// NewTelegramNotifier connects the bot and checks the token.
func NewTelegramNotifier(token string, chatID int64, interval time.Duration, topN int) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return newTelegramNotifier(bot, chatID, interval, topN), nil
}

func newTelegramNotifier(bot chatSender, chatID int64, interval time.Duration, topN int) *TelegramNotifier {
	if interval <= 0 {
		interval = telegramSendInterval
	}
	return &TelegramNotifier{
		bot:     bot,
		chatID:  chatID,
		topN:    topN,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Name returns the notifier identifier.
func (n *TelegramNotifier) Name() string {
	return "telegram"
}

// Notify sends up to topN opportunities. Individual send failures are logged; the last one is returned.
func (n *TelegramNotifier) Notify(ctx context.Context, opps []models.Opportunity) error {
	if n.topN > 0 && len(opps) > n.topN {
		opps = opps[:n.topN]
	}

	var lastErr error
	sent := 0
	for i := range opps {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("telegram: cancelled after %d messages: %w", sent, err)
		}

		msg := tgbotapi.NewMessage(n.chatID, formatOpportunity(opps[i]))
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := n.bot.Send(msg); err != nil {
			slog.Error("Telegram send: failed", "match", opps[i].Name(), "error", err)
			lastErr = fmt.Errorf("telegram: send %s: %w", opps[i].Name(), err)
			continue
		}
		sent++
		slog.Info("Telegram send: success", "match", opps[i].Name(), "percentage", opps[i].ArbitragePercentage)
	}
	return lastErr
}

func formatOpportunity(o models.Opportunity) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("💰 *Surebet %.2f%%*\n\n", o.ArbitragePercentage))
	builder.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(o.Name())))
	if !o.Start.IsZero() {
		builder.WriteString(fmt.Sprintf("🕐 Kick-off: %s\n", o.Start.Format("2006-01-02 15:04 MST")))
	}
	builder.WriteString("\n")
	for _, outcome := range models.MatchResultOutcomes {
		pick := o.BestOdds[outcome]
		builder.WriteString(fmt.Sprintf("%s: %.2f @ %s → stake %.2f\n",
			outcome, pick.Odds, escapeMarkdown(pick.Bookmaker), o.StakeDistribution[outcome]))
	}
	builder.WriteString(fmt.Sprintf("\n📈 Profit: %.2f on %.2f (inverse %.4f)\n", o.Profit, o.TotalStake, o.TotalInverse))
	return builder.String()
}

// escapeMarkdown escapes the characters legacy Markdown treats as markup.
func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"`", "\\`",
	)
	return replacer.Replace(text)
}

package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/store"
)

// Router wires Telegram updates to handlers.
type Router struct {
	bot  *tgbotapi.BotAPI
	log  *zap.Logger
	repo store.Repo
}

// NewRouter creates a new Telegram router.
func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, repo store.Repo) *Router {
	return &Router{bot: bot, log: log, repo: repo}
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	// Text commands
	if upd.Message != nil {
		chatID := upd.Message.Chat.ID
		text := strings.TrimSpace(upd.Message.Text)

		switch {
		case strings.HasPrefix(text, "/start"):
			r.handleStart(ctx, chatID)
		case strings.HasPrefix(text, "/freegame"):
			r.handleFreeGame(ctx, chatID)
		case strings.HasPrefix(text, "/subscribe"):
			r.handleSubscribe(ctx, chatID)
		case strings.HasPrefix(text, "/unsubscribe"):
			r.handleUnsubscribe(ctx, chatID)
		default:
			// Not a known command — ignore silently.
		}
		return
	}

	// Inline queries: the ad-hoc equivalent of /freegame.
	if upd.InlineQuery != nil {
		r.handleInlineQuery(ctx, upd.InlineQuery)
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy notify.Sender.
func (r *Router) SendMessage(chatID int64, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
)

func (r *Router) sendText(chatID int64, text string) {
	if err := r.SendMessage(chatID, text); err != nil {
		r.log.Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) handleStart(_ context.Context, chatID int64) {
	r.sendText(chatID, startText)
}

// handleFreeGame answers with the last stored offer. A storage error
// degrades to the same "no information" reply as an empty history; the
// next scrape cycle repairs the store.
func (r *Router) handleFreeGame(ctx context.Context, chatID int64) {
	offer, err := r.repo.LastOffer(ctx)
	if err != nil {
		r.log.Error("last offer lookup failed", zap.Error(err))
		r.sendText(chatID, noInfoText)
		return
	}
	if offer == nil {
		r.sendText(chatID, noInfoText)
		return
	}
	r.sendText(chatID, formatOffer(*offer))
}

func (r *Router) handleSubscribe(ctx context.Context, chatID int64) {
	if err := r.repo.AddSubscriber(ctx, chatID); err != nil {
		r.log.Error("subscribe failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.sendText(chatID, subscribeFailText)
		return
	}
	r.sendText(chatID, subscribedText)
}

func (r *Router) handleUnsubscribe(ctx context.Context, chatID int64) {
	if err := r.repo.RemoveSubscriber(ctx, chatID); err != nil {
		r.log.Error("unsubscribe failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.sendText(chatID, unsubscribeFailText)
		return
	}
	r.sendText(chatID, unsubscribedText)
}

// handleInlineQuery answers any inline query with a single article holding
// the current offer, so the bot can be asked from any chat.
func (r *Router) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	title := inlineNoInfoTitle
	body := noInfoText

	offer, err := r.repo.LastOffer(ctx)
	if err != nil {
		r.log.Error("last offer lookup failed", zap.Error(err))
	} else if offer != nil {
		title = offer.Title
		body = formatOffer(*offer)
	}

	article := tgbotapi.NewInlineQueryResultArticle("freegame", title, body)
	article.Description = inlineDescription

	if _, err := r.bot.Request(tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       []interface{}{article},
		CacheTime:     60,
	}); err != nil {
		r.log.Warn("answer inline query failed", zap.Error(err))
	}
}

// formatOffer renders an offer for on-demand queries. The expiry is shown
// in UTC so the same offer always renders the same way.
func formatOffer(offer domain.Offer) string {
	return fmt.Sprintf(currentGameFmt,
		offer.Title, offer.FreeUntil.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))
}

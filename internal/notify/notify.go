// Package notify fans a new-offer announcement out to every subscriber.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
	"github.com/ZoomL-Olymp/EGSListener/internal/metrics"
	"github.com/ZoomL-Olymp/EGSListener/internal/store"
)

// Sender is the minimal interface needed to deliver a text message.
// telegram.Router implements it.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Notifier delivers new-offer announcements. Delivery is best effort:
// a failed send is logged and lost for that cycle, never retried and
// never allowed to block the remaining recipients.
type Notifier struct {
	repo   store.Repo
	sender Sender
	log    *zap.Logger
	mets   *metrics.Set
}

// New creates a Notifier. mets may be nil in tests.
func New(repo store.Repo, sender Sender, log *zap.Logger, mets *metrics.Set) *Notifier {
	return &Notifier{repo: repo, sender: sender, log: log, mets: mets}
}

// Message renders the announcement text for an offer. The expiry is
// rendered in UTC so the same offer always produces the same bytes.
func Message(offer domain.Offer) string {
	return fmt.Sprintf("New free game!\n%s\nFree until: %s",
		offer.Title, offer.FreeUntil.UTC().Format("Mon, 02 Jan 2006 15:04 MST"))
}

// Announce sends the offer to every subscriber. A storage failure while
// loading the subscriber set degrades to zero recipients; per-recipient
// send failures are logged and skipped. Announce always runs to
// completion.
func (n *Notifier) Announce(ctx context.Context, offer domain.Offer) {
	ids, err := n.repo.ListSubscribers(ctx)
	if err != nil {
		n.log.Error("list subscribers failed, skipping notification", zap.Error(err))
		return
	}

	text := Message(offer)
	var delivered int
	for _, chatID := range ids {
		if err := n.sender.SendMessage(chatID, text); err != nil {
			n.log.Warn("delivery failed",
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			if n.mets != nil {
				n.mets.NotificationFailures.Inc()
			}
			continue
		}
		delivered++
		if n.mets != nil {
			n.mets.NotificationsSent.Inc()
		}
	}

	n.log.Info("announcement completed",
		zap.String("title", offer.Title),
		zap.Int("subscribers", len(ids)),
		zap.Int("delivered", delivered))
}

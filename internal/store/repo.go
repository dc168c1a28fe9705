package store

import (
	"context"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
)

// Repo defines storage operations for offer history and the subscriber set.
// Errors are returned as-is; callers log them and treat the operation as not
// having happened rather than crashing.
type Repo interface {
	// AppendOffer inserts a new history record. History is append-only and
	// titles legitimately repeat over time, so there is no uniqueness rule.
	AppendOffer(ctx context.Context, offer domain.Offer) error
	// LastOffer returns the most recently appended record, or (nil, nil)
	// when history is empty.
	LastOffer(ctx context.Context) (*domain.Offer, error)

	// AddSubscriber and RemoveSubscriber are idempotent: an already-present
	// or already-absent chat id is a no-op success.
	AddSubscriber(ctx context.Context, chatID int64) error
	RemoveSubscriber(ctx context.Context, chatID int64) error
	ListSubscribers(ctx context.Context) ([]int64, error)

	Close() error
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/ZoomL-Olymp/EGSListener/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single connection: SQLite is a single-writer engine, and one
	// connection also serializes the control loop against the command
	// handlers without extra locking.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// AppendOffer inserts one history row. The expiry is stored as RFC 3339
// UTC text so the row parses back to the exact instant that was observed.
func (r *SQLiteRepo) AppendOffer(ctx context.Context, offer domain.Offer) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO free_games (title, free_until) VALUES (?, ?)`,
		offer.Title, domain.FormatTimestamp(offer.FreeUntil),
	)
	return err
}

// LastOffer returns the most recently appended offer, or (nil, nil) when
// the history is empty. A stored expiry that no longer parses is data
// corruption and is reported as an error, not as an offer.
func (r *SQLiteRepo) LastOffer(ctx context.Context) (*domain.Offer, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT title, free_until FROM free_games ORDER BY id DESC LIMIT 1`)

	var title, freeUntil string
	if err := row.Scan(&title, &freeUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	ts, err := domain.ParseTimestamp(freeUntil)
	if err != nil {
		return nil, fmt.Errorf("corrupt free_until %q: %w", freeUntil, err)
	}
	return &domain.Offer{Title: title, FreeUntil: ts}, nil
}

// AddSubscriber registers a chat id. Re-subscribing is a no-op success.
func (r *SQLiteRepo) AddSubscriber(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO subscribers (chat_id) VALUES (?)`, chatID)
	return err
}

// RemoveSubscriber deletes a chat id. An absent id is a no-op success.
func (r *SQLiteRepo) RemoveSubscriber(ctx context.Context, chatID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM subscribers WHERE chat_id = ?`, chatID)
	return err
}

// ListSubscribers returns every registered chat id.
func (r *SQLiteRepo) ListSubscribers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT chat_id FROM subscribers`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

package history

import (
	"context"
	"strings"
	"time"
)

// Interaction records one processed utterance for the seller analytics
// surface. Writes are best-effort and never fail the pipeline.
type Interaction struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Language   string    `json:"language"`
	Transcript string    `json:"transcript"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Response   string    `json:"response"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store persists and retrieves voice interaction history.
type Store interface {
	Save(ctx context.Context, rec Interaction) error
	RecentForUser(ctx context.Context, userID string, limit int) ([]Interaction, error)
	Close() error
}

// NewStore creates a postgres-backed store when configured, otherwise in-memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewPostgresStore(ctx, databaseURL)
}

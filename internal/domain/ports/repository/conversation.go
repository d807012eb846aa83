package repository

import (
	"context"

	"rental-booking-bot/internal/domain/model"
)

// ConversationRepository persists conversation documents keyed by channel id.
type ConversationRepository interface {
	// Find returns domain.ErrNotFound when no document exists.
	Find(ctx context.Context, channelID string) (*model.Conversation, error)
	// FindOrCreate upserts with set-if-absent semantics: a duplicate-key
	// race resolves to the already-stored document. The bool reports
	// whether the conversation was freshly created.
	FindOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error)
	// Save overwrites the document, bumping its version. Callers hold the
	// per-conversation lock, so writes do not race.
	Save(ctx context.Context, conv *model.Conversation) error
	Delete(ctx context.Context, channelID string) error
	// All enumerates every stored conversation, for periodic sweeps.
	All(ctx context.Context) ([]*model.Conversation, error)
}

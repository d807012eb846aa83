package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/repository"

	"github.com/go-redis/redis/v8"
)

var _ repository.ConversationRepository = (*ConversationRepo)(nil)

// ConversationRepo stores conversation documents as JSON values keyed by
// channel id. Documents never expire; a customer can return months later.
type ConversationRepo struct {
	client *redClient
}

func NewConversationRepo(client *redClient) *ConversationRepo {
	return &ConversationRepo{client: client}
}

func (r *ConversationRepo) key(channelID string) string {
	return fmt.Sprintf("conv:%s", channelID)
}

func (r *ConversationRepo) Find(ctx context.Context, channelID string) (*model.Conversation, error) {
	data, err := r.client.Get(ctx, r.key(channelID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindOrCreate inserts with SetNX so a duplicate-delivery race resolves to
// "found existing": the loser of the race reads back the winner's document.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	data, err := json.Marshal(conv)
	if err != nil {
		return nil, false, err
	}
	ok, err := r.client.SetNX(ctx, r.key(conv.ChannelID), data, 0)
	if err != nil {
		return nil, false, err
	}
	if ok {
		return conv, true, nil
	}
	existing, err := r.Find(ctx, conv.ChannelID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *ConversationRepo) Save(ctx context.Context, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(conv.ChannelID), data, 0)
}

func (r *ConversationRepo) Delete(ctx context.Context, channelID string) error {
	return r.client.Del(ctx, r.key(channelID))
}

// All walks the conversation keyspace with SCAN. Documents that fail to
// decode are skipped rather than failing the whole sweep.
func (r *ConversationRepo) All(ctx context.Context) ([]*model.Conversation, error) {
	var (
		convs  []*model.Conversation
		cursor uint64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, "conv:*", 100)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			data, err := r.client.Get(ctx, key)
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return nil, err
			}
			var conv model.Conversation
			if err := json.Unmarshal([]byte(data), &conv); err != nil {
				continue
			}
			convs = append(convs, &conv)
		}
		cursor = next
		if cursor == 0 {
			return convs, nil
		}
	}
}

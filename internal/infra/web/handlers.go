package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/infra/logging"
)

// webhookEvent is the gateway's inbound payload shape.
type webhookEvent struct {
	ChannelID  string `json:"channelId"`
	SenderName string `json:"senderDisplayName"`
	Body       string `json:"bodyText"`
	Type       string `json:"messageType"`
}

// webhookHandler accepts one inbound chat event and hands it to the
// dispatcher asynchronously; the gateway only needs a fast acknowledgement.
func (s *Server) webhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev webhookEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(ev.ChannelID) == "" {
			http.Error(w, "channelId is required", http.StatusBadRequest)
			return
		}

		msg := adapter.InboundMessage{
			ChannelID:  ev.ChannelID,
			SenderName: ev.SenderName,
			Body:       ev.Body,
			Type:       ev.Type,
		}
		// The request context dies with the response; dispatching gets its
		// own deadline inside the pool. The trace id survives into the
		// dispatcher's log lines.
		traceID := uuid.NewString()
		err := s.pool.Submit(func(poolCtx context.Context) error {
			ctx, cancel := context.WithTimeout(poolCtx, 2*time.Minute)
			defer cancel()
			ctx = logging.WithTraceID(ctx, traceID)
			s.dispatcher.Handle(ctx, msg)
			return nil
		})
		if err != nil {
			s.log.Warn().Err(err).Str("trace_id", traceID).Str("channel_id", ev.ChannelID).Msg("webhook dropped")
			http.Error(w, "Busy", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func (s *Server) conversationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channelID := chi.URLParam(r, "channel")

		conv, err := s.convs.Find(r.Context(), channelID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Conversation not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to load conversation", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(conv); err != nil {
			s.log.Error().Err(err).Msg("conversation encode failed")
		}
	}
}

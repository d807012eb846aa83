//go:build !integration

package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rental-booking-bot/internal/domain"
	"rental-booking-bot/internal/domain/model"
	"rental-booking-bot/internal/domain/ports/adapter"
	"rental-booking-bot/internal/infra/worker"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// recordingDispatcher captures Handle invocations.
type recordingDispatcher struct {
	mu   sync.Mutex
	got  []adapter.InboundMessage
	done chan struct{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{done: make(chan struct{}, 16)}
}

func (d *recordingDispatcher) Handle(ctx context.Context, msg adapter.InboundMessage) {
	d.mu.Lock()
	d.got = append(d.got, msg)
	d.mu.Unlock()
	d.done <- struct{}{}
}

func (d *recordingDispatcher) messages() []adapter.InboundMessage {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]adapter.InboundMessage(nil), d.got...)
}

// stubConvRepo serves a single conversation.
type stubConvRepo struct {
	conv *model.Conversation
}

func (s *stubConvRepo) Find(ctx context.Context, channelID string) (*model.Conversation, error) {
	if s.conv == nil || s.conv.ChannelID != channelID {
		return nil, domain.ErrNotFound
	}
	return s.conv, nil
}

func (s *stubConvRepo) FindOrCreate(ctx context.Context, conv *model.Conversation) (*model.Conversation, bool, error) {
	return nil, false, domain.ErrNotFound
}

func (s *stubConvRepo) Save(ctx context.Context, conv *model.Conversation) error { return nil }

func (s *stubConvRepo) Delete(ctx context.Context, channelID string) error { return nil }

func (s *stubConvRepo) All(ctx context.Context) ([]*model.Conversation, error) { return nil, nil }

type serverFixture struct {
	dispatcher *recordingDispatcher
	pool       *worker.Pool
	router     http.Handler
}

func newServerFixture(t *testing.T, conv *model.Conversation, apiKey string) *serverFixture {
	t.Helper()

	dispatcher := newRecordingDispatcher()
	pool := worker.NewPool(2, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})

	srv := NewServer(dispatcher, pool, &stubConvRepo{conv: conv}, apiKey, testLogger())
	return &serverFixture{dispatcher: dispatcher, pool: pool, router: srv.Router()}
}

func TestWebhookHandler(t *testing.T) {
	t.Run("accepts and dispatches an event", func(t *testing.T) {
		f := newServerFixture(t, nil, "")
		body := `{"channelId": "77011234567@c.us", "senderDisplayName": "Aman", "bodyText": "привет", "messageType": "chat"}`

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(body)))

		if rec.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rec.Code)
		}
		select {
		case <-f.dispatcher.done:
		case <-time.After(time.Second):
			t.Fatal("dispatcher never received the event")
		}
		got := f.dispatcher.messages()
		if len(got) != 1 || got[0].ChannelID != "77011234567@c.us" || got[0].Body != "привет" {
			t.Fatalf("unexpected dispatch %+v", got)
		}
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		f := newServerFixture(t, nil, "")

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader("{not json")))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects a missing channel id", func(t *testing.T) {
		f := newServerFixture(t, nil, "")

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(`{"bodyText": "x"}`)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("answers busy when the queue is saturated", func(t *testing.T) {
		dispatcher := newRecordingDispatcher()
		// A pool that is never started: nothing drains the queue.
		pool := worker.NewPool(1, testLogger())
		srv := NewServer(dispatcher, pool, &stubConvRepo{}, "", testLogger())
		router := srv.Router()

		body := `{"channelId": "77011234567@c.us", "messageType": "chat"}`
		var last int
		// Buffer is workers*4; one extra submission must be dropped.
		for i := 0; i < 5; i++ {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/message", strings.NewReader(body)))
			last = rec.Code
		}
		if last != http.StatusServiceUnavailable {
			t.Fatalf("expected 503 on saturation, got %d", last)
		}
	})
}

func TestConversationAPI(t *testing.T) {
	conv := model.NewConversation("77011234567@c.us", "Aman")

	t.Run("requires a configured key", func(t *testing.T) {
		f := newServerFixture(t, conv, "")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/77011234567@c.us", nil)
		req.Header.Set("Authorization", "Bearer anything")
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("rejects a missing header", func(t *testing.T) {
		f := newServerFixture(t, conv, "key")

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/conversations/77011234567@c.us", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects a malformed header", func(t *testing.T) {
		f := newServerFixture(t, conv, "key")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/77011234567@c.us", nil)
		req.Header.Set("Authorization", "Token key")
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		f := newServerFixture(t, conv, "key")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/77011234567@c.us", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("serves the conversation", func(t *testing.T) {
		f := newServerFixture(t, conv, "key")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/77011234567@c.us", nil)
		req.Header.Set("Authorization", "Bearer key")
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "77011234567@c.us") {
			t.Fatalf("expected conversation payload, got %s", rec.Body.String())
		}
	})

	t.Run("unknown conversation is 404", func(t *testing.T) {
		f := newServerFixture(t, conv, "key")

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/70000000000@c.us", nil)
		req.Header.Set("Authorization", "Bearer key")
		f.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

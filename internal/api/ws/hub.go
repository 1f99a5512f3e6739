package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/server/middleware"
	redisstore "github.com/gosuda/gofer/internal/store/redis"
)

// Subscriber is the read side of the event broker.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// TaskReader resolves a task for the caller, applying visibility rules.
type TaskReader interface {
	GetTask(ctx context.Context, id domain.Identity, taskID uuid.UUID) (*domain.Task, error)
}

// Hub streams task events from the broker to WebSocket clients.
type Hub struct {
	subscriber Subscriber
	tasks      TaskReader
	origins    []string
}

// NewHub creates a WebSocket hub. origins are host patterns allowed to open
// cross-origin connections; nil allows same-origin only.
func NewHub(subscriber Subscriber, tasks TaskReader, origins []string) *Hub {
	return &Hub{subscriber: subscriber, tasks: tasks, origins: origins}
}

// ServeTask streams events of one task. Only its owner and assignee may
// subscribe.
func (h *Hub) ServeTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	task, err := h.tasks.GetTask(r.Context(), id, taskID)
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "task not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("task_id", taskID.String()).Msg("ws: load task")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !task.IsParticipant(id.UserID) {
		http.Error(w, "not a participant of this task", http.StatusForbidden)
		return
	}

	h.stream(w, r, redisstore.TaskChannel(taskID))
}

// ServeFeed streams events of newly posted and changing approved tasks.
func (h *Hub) ServeFeed(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, redisstore.FeedChannel)
}

// ServeMe streams events of every task the caller owns or runs.
func (h *Hub) ServeMe(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if !id.Authenticated() {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	h.stream(w, r, redisstore.UserChannel(id.UserID))
}

func (h *Hub) stream(w http.ResponseWriter, r *http.Request, channel string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		log.Error().Err(err).Msg("websocket accept")
		return
	}
	defer conn.CloseNow()

	// Clients only listen; CloseRead handles pings and cancels ctx once the
	// peer goes away.
	ctx := conn.CloseRead(r.Context())

	messages, cleanup, err := h.subscriber.Subscribe(ctx, channel)
	if err != nil {
		log.Error().Err(err).Str("channel", channel).Msg("websocket subscribe")
		_ = conn.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "connection closed")
			return
		case msg, ok := <-messages:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "channel closed")
				return
			}
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				log.Debug().Err(err).Str("channel", channel).Msg("websocket write")
				return
			}
		}
	}
}

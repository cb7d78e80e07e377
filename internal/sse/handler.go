package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"coa-registry/internal/auth"
	"coa-registry/internal/logger"
	"coa-registry/internal/models"
	"coa-registry/internal/utils"
)

// Handler serves the staff review feed as Server-Sent Events
type Handler struct {
	Logger *logger.Logger
	Feed   *ReviewFeed
}

func NewHandler(log *logger.Logger, feed *ReviewFeed) *Handler {
	return &Handler{Logger: log, Feed: feed}
}

// HandleFeed streams workflow events. ?event_id= narrows the stream to one event.
func (h *Handler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	actor := auth.ActorFrom(r.Context())
	if err := auth.EnsureStaff(actor); err != nil {
		utils.WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	h.setupSSEHeaders(w)

	ctx := r.Context()
	eventID := r.URL.Query().Get("event_id")

	var eventChan chan models.WorkflowEvent
	if eventID != "" {
		eventChan = h.Feed.SubscribeToEvent(ctx, eventID)
	} else {
		eventChan = h.Feed.SubscribeStaff(ctx)
	}

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"event_id\":%q}\n\n", eventID)
	flusher.Flush()

	h.Logger.Info("SSE", fmt.Sprintf("Reviewer %s connected to feed (event=%q)", actor.UserID, eventID))

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}

			jsonData, err := json.Marshal(event)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize workflow event: %v", err))
				continue
			}

			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, jsonData)
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Reviewer %s disconnected from feed", actor.UserID))
			return
		}
	}
}

func (h *Handler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}

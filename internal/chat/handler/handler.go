package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dbtcheck/internal/chat"
	"dbtcheck/pkg/platform/httputil"
	"dbtcheck/pkg/requestcontext"
)

// Service defines the chat operation the handler needs.
type Service interface {
	Send(ctx context.Context, req chat.Request) (*chat.Reply, error)
}

// Handler exposes the chat proxy.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts chat endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/chat", h.HandleSend)
}

// HandleSend handles POST /chat. Upstream failures are answered with 200 and
// ok=false so the client can render the notice as a bot message.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SendRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reply, err := h.service.Send(ctx, chat.Request{
		ConversationID: req.ConversationID,
		Profile:        req.profile,
		Message:        req.Message,
		History:        req.History,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "chat send rejected",
			"request_id", requestID,
			"conversation_id", req.ConversationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, SendResponse{
		Reply:    reply.Text,
		OK:       reply.OK,
		Profile:  req.profile.Name,
		Category: string(reply.Category),
	})
}

package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/text/language"

	"dbtcheck/internal/check"
	"dbtcheck/internal/platform/i18n"
	"dbtcheck/internal/receipt"
	"dbtcheck/internal/status"
	dErrors "dbtcheck/pkg/domain-errors"
	"dbtcheck/pkg/platform/httputil"
	"dbtcheck/pkg/requestcontext"
)

// Service defines the check operations the handler needs.
type Service interface {
	Start(ctx context.Context, raw string, lang language.Tag) (*check.StartResult, error)
	VerifyOTP(ctx context.Context, id uuid.UUID, code string) (*check.Check, error)
	Get(ctx context.Context, id uuid.UUID) (*check.Check, error)
	Receipt(ctx context.Context, id uuid.UUID) (*check.Check, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// Handler wires check endpoints to the check service.
type Handler struct {
	service   Service
	catalog   *i18n.Catalog
	logger    *slog.Logger
	inBandOTP bool
}

// New constructs a check handler. inBandOTP returns the issued code in the
// start response; there is no other delivery channel.
func New(service Service, catalog *i18n.Catalog, logger *slog.Logger, inBandOTP bool) *Handler {
	return &Handler{
		service:   service,
		catalog:   catalog,
		logger:    logger,
		inBandOTP: inBandOTP,
	}
}

// Register mounts check endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/checks", h.HandleStart)
	r.Get("/checks/{id}", h.HandleGet)
	r.Delete("/checks/{id}", h.HandleDiscard)
	r.Post("/checks/{id}/otp", h.HandleVerifyOTP)
	r.Get("/checks/{id}/receipt", h.HandleReceipt)
	r.Get("/checks/{id}/receipt/print", h.HandlePrintReceipt)
	r.Get("/references", h.HandleReferences)
}

// HandleStart handles POST /checks.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StartRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	printer := h.printer(ctx)
	result, err := h.service.Start(ctx, req.AadhaarNumber, printer.Tag())
	if err != nil {
		h.logger.WarnContext(ctx, "check start rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := FromCheck(result.Check, printer, printer.Tag().String())
	if h.inBandOTP {
		resp.DemoOTP = result.Code
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

// HandleVerifyOTP handles POST /checks/{id}/otp.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, ok := h.checkID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyOTPRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	c, err := h.service.VerifyOTP(ctx, id, req.OTP)
	if err != nil {
		h.logger.WarnContext(ctx, "otp verification failed",
			"request_id", requestID,
			"check_id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	printer := h.printer(ctx)
	resp := FromCheck(c, printer, printer.Tag().String())
	resp.OTPMessage = printer.T("otp_verified")
	httputil.WriteJSON(w, http.StatusAccepted, resp)
}

// HandleGet handles GET /checks/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.checkID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	printer := h.printer(ctx)
	httputil.WriteJSON(w, http.StatusOK, FromCheck(c, printer, printer.Tag().String()))
}

// HandleReceipt handles GET /checks/{id}/receipt.
func (h *Handler) HandleReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.checkID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Receipt(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ReceiptResponse{CheckID: c.ID.String(), Receipt: *c.Receipt})
}

// HandlePrintReceipt handles GET /checks/{id}/receipt/print.
func (h *Handler) HandlePrintReceipt(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	id, ok := h.checkID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Receipt(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	printer := h.printer(ctx)
	var buf bytes.Buffer
	if err := receipt.Render(&buf, *c.Receipt, printer.Tag().String(), printer); err != nil {
		h.logger.ErrorContext(ctx, "receipt render failed",
			"request_id", requestID,
			"check_id", id,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render receipt"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// HandleDiscard handles DELETE /checks/{id}.
func (h *Handler) HandleDiscard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.checkID(w, r)
	if !ok {
		return
	}
	if err := h.service.Discard(ctx, id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReferences handles GET /references.
func (h *Handler) HandleReferences(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, FromReferences(status.References(), h.printer(r.Context())))
}

func (h *Handler) checkID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid check id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) printer(ctx context.Context) *i18n.Printer {
	return h.catalog.Printer(requestcontext.Language(ctx))
}

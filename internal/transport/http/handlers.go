// Package httptransport is the thin HTTP layer over the verification and
// checkout services. Handlers delegate to services and never embed business
// logic so transport concerns stay isolated.
package httptransport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"botica/internal/pos/checkout"
	"botica/internal/pos/discount"
	"botica/internal/platform/middleware"
	"botica/internal/pos/models"
	"botica/internal/verify"
	dErrors "botica/pkg/domain-errors"
	"botica/pkg/platform/httputil"
)

// VerificationFactory creates one orchestrator per verification attempt.
type VerificationFactory func() (*verify.Orchestrator, error)

// Handler wires POS endpoints to the core services.
type Handler struct {
	checkout        *checkout.Service
	newVerification VerificationFactory
	logger          *slog.Logger

	// one active verification per terminal, so cancel and retry can find it
	mu     sync.Mutex
	active map[string]*verify.Orchestrator
}

// NewHandler constructs the HTTP handler.
func NewHandler(checkoutSvc *checkout.Service, factory VerificationFactory, logger *slog.Logger) *Handler {
	return &Handler{
		checkout:        checkoutSvc,
		newVerification: factory,
		logger:          logger,
		active:          make(map[string]*verify.Orchestrator),
	}
}

// HandleStartVerification handles POST /verification/start. It streams
// verification states as server-sent events until a terminal phase or
// cancellation.
func (h *Handler) HandleStartVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	terminalID := middleware.TerminalID(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	orch, err := h.newVerification()
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create verification", "terminal_id", terminalID, "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create verification"))
		return
	}

	if prev := h.swapActive(terminalID, orch); prev != nil {
		// A terminal starts at most one verification; the stale one goes away.
		prev.Cancel()
	}
	defer func() {
		h.clearActive(terminalID, orch)
		orch.Cancel()
	}()

	states, err := orch.Start(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	h.logger.InfoContext(ctx, "verification started", "terminal_id", terminalID)

	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-states:
			if !ok {
				return
			}
			h.writeEvent(w, flusher, state)
			if state.Phase == verify.PhaseSuccess {
				return
			}
		}
	}
}

// HandleRetryVerification handles POST /verification/retry.
func (h *Handler) HandleRetryVerification(w http.ResponseWriter, r *http.Request) {
	terminalID := middleware.TerminalID(r.Context())

	orch := h.getActive(terminalID)
	if orch == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no active verification for this terminal"))
		return
	}
	if err := orch.Retry(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleCancelVerification handles POST /verification/cancel.
func (h *Handler) HandleCancelVerification(w http.ResponseWriter, r *http.Request) {
	terminalID := middleware.TerminalID(r.Context())

	if orch := h.getActive(terminalID); orch != nil {
		orch.Cancel()
		h.clearActive(terminalID, orch)
	}
	// Cancelling an already-finished verification is fine.
	w.WriteHeader(http.StatusNoContent)
}

// HandleQuoteDiscount handles POST /discount/quote.
func (h *Handler) HandleQuoteDiscount(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[QuoteRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, discount.Compute(req.BaseAmount, req.Verified))
}

// CheckoutResponse is the checkout result on the wire.
type CheckoutResponse struct {
	Order         *models.Order           `json:"order"`
	StockWarnings []checkout.StockWarning `json:"stockWarnings,omitempty"`
}

// HandleCheckout handles POST /checkout.
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.Decode[CheckoutRequest](w, r, h.logger)
	if !ok {
		return
	}

	lines, err := req.ParsedLines()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	seniorID, err := req.ParsedSeniorID()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.checkout.Checkout(ctx, lines, seniorID, req.Note)
	if err != nil {
		h.logger.ErrorContext(ctx, "checkout failed",
			"terminal_id", middleware.TerminalID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, CheckoutResponse{
		Order:         res.Order,
		StockWarnings: res.StockWarnings,
	})
}

// stateEvent is one SSE payload.
type stateEvent struct {
	Phase  string       `json:"phase"`
	Senior *seniorEvent `json:"senior,omitempty"`
	Reason string       `json:"reason,omitempty"`
}

type seniorEvent struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}

func (h *Handler) writeEvent(w http.ResponseWriter, flusher http.Flusher, state verify.State) {
	ev := stateEvent{Phase: string(state.Phase), Reason: state.Reason}
	if state.Senior != nil {
		ev.Senior = &seniorEvent{
			ID:       state.Senior.ID.String(),
			FullName: state.Senior.FullName(),
		}
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to marshal verification state", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

func (h *Handler) swapActive(terminalID string, orch *verify.Orchestrator) *verify.Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.active[terminalID]
	h.active[terminalID] = orch
	return prev
}

func (h *Handler) getActive(terminalID string) *verify.Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active[terminalID]
}

func (h *Handler) clearActive(terminalID string, orch *verify.Orchestrator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.active[terminalID] == orch {
		delete(h.active, terminalID)
	}
}

package handler

import (
	"net/http"

	"botadmin/internal/webhook"
)

// WebhookHandler exposes the fix-webhook trigger.
type WebhookHandler struct {
	reconciler *webhook.Reconciler
	logger     Logger
}

func NewWebhookHandler(reconciler *webhook.Reconciler, log Logger) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, logger: log}
}

// Fix runs check-then-repair. Drift and failed repairs come back as a
// normal response with success=false; only an unreachable platform is an
// error status.
func (h *WebhookHandler) Fix(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconciler.FixWebhook(r.Context())
	if err != nil {
		h.logger.Error("Webhook check failed", map[string]interface{}{"error": err.Error()})
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

package handler

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"botadmin/internal/ledger"
	"botadmin/internal/webhook"
)

// HealthCheck reports liveness.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "bot-admin",
	})
}

// ReadyCheck reports readiness: database reachable plus the last observed
// webhook state.
func ReadyCheck(db *sqlx.DB, reconciler *webhook.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]interface{}{}
		status := http.StatusOK

		if err := db.PingContext(r.Context()); err != nil {
			checks["database"] = "error: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
		checks["webhook_state"] = reconciler.State()

		respondJSON(w, status, map[string]interface{}{
			"status": http.StatusText(status),
			"checks": checks,
		})
	}
}

// StatsHandler returns dashboard totals.
type StatsHandler struct {
	ledger   *ledger.Service
	deposits DepositStore
	logger   Logger
}

func NewStatsHandler(ledgerSvc *ledger.Service, deposits DepositStore, log Logger) *StatsHandler {
	return &StatsHandler{ledger: ledgerSvc, deposits: deposits, logger: log}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, totalUsers, err := h.ledger.ListUsers(r.Context(), 1, 0, "")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	pending, err := h.deposits.CountPending(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total_users":      totalUsers,
		"pending_deposits": pending,
	})
}

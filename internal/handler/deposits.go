package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/internal/ledger"
	"botadmin/internal/middleware"
)

// RejectionNotifier tells a user their deposit claim was declined.
type RejectionNotifier interface {
	NotifyDepositRejected(ctx context.Context, telegramID int64, amount decimal.Decimal) error
}

// DepositStore is the persistence contract for deposit review. Reopen
// rolls an approval back to PENDING when its ledger credit failed, so an
// approved deposit can never be stranded uncredited.
type DepositStore interface {
	List(ctx context.Context, status string, limit, offset int) ([]*domain.Deposit, error)
	SetStatus(ctx context.Context, id int64, status domain.DepositStatus) (*domain.Deposit, error)
	Reopen(ctx context.Context, id int64) error
	CountPending(ctx context.Context) (int, error)
}

// DepositsHandler manages deposit review. Approval credits the user's
// balance through the ledger so the balance invariant keeps holding.
type DepositsHandler struct {
	store    DepositStore
	ledger   *ledger.Service
	notifier RejectionNotifier
	logger   Logger
}

func NewDepositsHandler(store DepositStore, ledgerSvc *ledger.Service, notifier RejectionNotifier, log Logger) *DepositsHandler {
	return &DepositsHandler{store: store, ledger: ledgerSvc, notifier: notifier, logger: log}
}

func (h *DepositsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	deposits, err := h.store.List(r.Context(), r.URL.Query().Get("status"), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list deposits", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to fetch deposits")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"deposits": deposits,
		"count":    len(deposits),
	})
}

type reviewDepositRequest struct {
	Status domain.DepositStatus `json:"status"`
}

// Review approves or rejects a pending deposit. The status transition is
// single-shot, so a deposit can never be credited twice.
func (h *DepositsHandler) Review(w http.ResponseWriter, r *http.Request) {
	depositID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid deposit ID")
		return
	}

	var req reviewDepositRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		if err == io.EOF {
			respondError(w, http.StatusBadRequest, "Request body is required")
			return
		}
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status != domain.DepositApproved && req.Status != domain.DepositRejected {
		respondError(w, http.StatusBadRequest, "status must be APPROVED or REJECTED")
		return
	}

	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	deposit, err := h.store.SetStatus(r.Context(), depositID, req.Status)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	if req.Status == domain.DepositApproved {
		if _, err := h.ledger.CreditDeposit(r.Context(), deposit.UserID, deposit.Amount, actor); err != nil {
			// Roll the approval back so the deposit stays reviewable; an
			// APPROVED row with no matching ledger credit would be stuck.
			if reopenErr := h.store.Reopen(r.Context(), deposit.ID); reopenErr != nil {
				h.logger.Error("Deposit approved but credit failed and rollback failed", map[string]interface{}{
					"deposit_id": deposit.ID,
					"user_id":    deposit.UserID,
					"error":      err.Error(),
					"rollback":   reopenErr.Error(),
				})
			} else {
				h.logger.Warn("Deposit credit failed, returned to pending", map[string]interface{}{
					"deposit_id": deposit.ID,
					"user_id":    deposit.UserID,
					"error":      err.Error(),
				})
			}
			respondError(w, statusFor(err), err.Error())
			return
		}
	} else if h.notifier != nil {
		if user, uerr := h.ledger.GetUser(r.Context(), deposit.UserID); uerr == nil {
			if nerr := h.notifier.NotifyDepositRejected(r.Context(), user.TelegramID, deposit.Amount); nerr != nil {
				h.logger.Warn("Failed to notify rejection", map[string]interface{}{
					"deposit_id": deposit.ID,
					"error":      nerr.Error(),
				})
			}
		}
	}

	respondJSON(w, http.StatusOK, deposit)
}

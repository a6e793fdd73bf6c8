package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"botadmin/internal/ledger"
	"botadmin/internal/middleware"
	"botadmin/pkg/validator"
)

// UsersHandler manages user listing and balance adjustments.
type UsersHandler struct {
	service   *ledger.Service
	validator *validator.Validator
	logger    Logger
}

func NewUsersHandler(service *ledger.Service, val *validator.Validator, log Logger) *UsersHandler {
	return &UsersHandler{service: service, validator: val, logger: log}
}

// List returns users with their current balances.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
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
	search := r.URL.Query().Get("search")

	users, total, err := h.service.ListUsers(r.Context(), limit, offset, search)
	if err != nil {
		h.logger.Error("Failed to list users", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

// Get returns one user with their recent adjustment history.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	records, err := h.service.ListAdjustments(r.Context(), userID, 50, 0)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"adjustments": records,
	})
}

// AdjustBalance applies an admin credit or debit. Not idempotent on the
// wire: the route sits behind the Idempotency-Key middleware and clients
// must never auto-retry.
func (h *UsersHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	var req ledger.AdjustBalanceRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
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

	if err := h.validator.Validate(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	req.UserID = userID
	req.Actor = actor

	result, err := h.service.AdjustBalance(r.Context(), &req)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

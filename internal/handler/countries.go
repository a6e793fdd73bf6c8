package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/internal/repository/postgres"
	"botadmin/pkg/validator"
)

// CountriesHandler manages the sellable price list.
type CountriesHandler struct {
	store     *postgres.CountryStore
	validator *validator.Validator
	logger    Logger
}

func NewCountriesHandler(store *postgres.CountryStore, val *validator.Validator, log Logger) *CountriesHandler {
	return &CountriesHandler{store: store, validator: val, logger: log}
}

func (h *CountriesHandler) List(w http.ResponseWriter, r *http.Request) {
	countries, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("Failed to list countries", map[string]interface{}{"error": err.Error()})
		respondError(w, http.StatusInternalServerError, "Failed to fetch countries")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"countries": countries,
		"count":     len(countries),
	})
}

type createCountryRequest struct {
	Name  string          `json:"name" validate:"required,min=2,max=64"`
	Emoji string          `json:"emoji" validate:"required"`
	Price decimal.Decimal `json:"price" validate:"required,gt=0"`
}

func (h *CountriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCountryRequest
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

	country := &domain.Country{
		Name:  req.Name,
		Emoji: req.Emoji,
		Price: req.Price.Round(2),
	}
	if err := h.store.Create(r.Context(), country); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, country)
}

func (h *CountriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid country ID")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Country deleted"})
}

package handler

import (
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"botadmin/internal/fileupload"
	"botadmin/internal/settings"
	"botadmin/pkg/errors"
)

// SettingsHandler manages payment settings reads and edits.
type SettingsHandler struct {
	service *settings.Service
	uploads *fileupload.Service
	logger  Logger
}

func NewSettingsHandler(service *settings.Service, uploads *fileupload.Service, log Logger) *SettingsHandler {
	return &SettingsHandler{service: service, uploads: uploads, logger: log}
}

// Get returns the current payment settings including the revision the
// client must echo back on update.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	current, err := h.service.Get(r.Context())
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, current)
}

// Update applies a multipart settings edit: text fields plus an optional
// QR image. Absent fields keep their stored values. The base_revision
// field carries the revision the client read; a stale one is rejected so
// a slow image upload can never clobber a faster text edit.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	baseRevision, err := strconv.ParseInt(r.FormValue("base_revision"), 10, 64)
	if err != nil || baseRevision <= 0 {
		respondError(w, http.StatusBadRequest, "base_revision is required")
		return
	}

	req := &settings.UpdateRequest{
		BaseRevision: baseRevision,
		UPIID:        formField(r, "upi_id"),
		ChannelLink:  formField(r, "channel_link"),
		OwnerHandle:  formField(r, "owner_handle"),
	}

	if ref, handled := h.resolveQRImage(w, r); handled {
		return
	} else if ref != nil {
		req.QRImage = ref
	}

	updated, err := h.service.Update(r.Context(), req)
	if err != nil {
		var vErr *settings.ValidationError
		if stderrors.As(err, &vErr) {
			respondJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  vErr.Error(),
				"errors": vErr.Fields,
			})
			return
		}
		respondError(w, statusFor(err), err.Error())
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// resolveQRImage stores an uploaded image or generates one from the UPI id
// when requested. The bool result reports that an error response was
// already written.
func (h *SettingsHandler) resolveQRImage(w http.ResponseWriter, r *http.Request) (*string, bool) {
	file, header, err := r.FormFile("qr_image")
	if err == nil {
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			respondError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return nil, true
		}
		ref, saveErr := h.uploads.SaveQRImage(data, header.Header.Get("Content-Type"))
		if saveErr != nil {
			respondError(w, statusFor(saveErr), saveErr.Error())
			return nil, true
		}
		return &ref, false
	}
	if err != http.ErrMissingFile {
		respondError(w, http.StatusBadRequest, "Invalid file upload")
		return nil, true
	}

	if r.FormValue("generate_qr") == "true" {
		upiID := r.FormValue("upi_id")
		if upiID == "" {
			respondError(w, http.StatusBadRequest, errors.ErrInvalidUPI.Error())
			return nil, true
		}
		ref, genErr := h.uploads.GenerateUPIQR(upiID)
		if genErr != nil {
			respondError(w, http.StatusInternalServerError, genErr.Error())
			return nil, true
		}
		return &ref, false
	}

	return nil, false
}

// formField distinguishes "absent" from "present but empty" so partial
// updates can clear a field explicitly.
func formField(r *http.Request, key string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botadmin/internal/domain"
	"botadmin/internal/fileupload"
	"botadmin/internal/settings"
	"botadmin/pkg/logger"
	"botadmin/pkg/validator"
)

func newSettingsRouter(t *testing.T) *mux.Router {
	t.Helper()

	store := settings.NewMemoryStore()
	svc := settings.NewService(store, validator.New(), logger.NewNop())
	uploads, err := fileupload.NewService(t.TempDir(), 1<<20, logger.NewNop())
	require.NoError(t, err)
	h := NewSettingsHandler(svc, uploads, logger.NewNop())

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/admin/settings", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/admin/settings", h.Update).Methods(http.MethodPost)
	return r
}

func multipartRequest(t *testing.T, fields map[string]string, fileField, fileName, fileType string, fileData []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		header.Set("Content-Type", fileType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/settings", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestSettingsGet_ReturnsRevision(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp domain.PaymentSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Revision)
}

func TestSettingsUpdate_TextFields(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"upi_id":        "merchant@upi",
		"channel_link":  "https://t.me/supportchannel",
		"owner_handle":  "support_admin",
	}, "", "", "", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.PaymentSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "merchant@upi", resp.UPIID)
	assert.Equal(t, int64(2), resp.Revision)
	require.NotNil(t, resp.OwnerHandle)
	assert.Equal(t, "@support_admin", *resp.OwnerHandle)
}

func TestSettingsUpdate_MissingBaseRevision(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"upi_id": "merchant@upi",
	}, "", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsUpdate_StaleRevisionConflicts(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"upi_id":        "first@upi",
	}, "", "", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"upi_id":        "second@upi",
	}, "", "", "", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSettingsUpdate_PlaceholderRejectedWithFieldErrors(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"channel_link":  "https://t.me/YourChannel",
	}, "", "", "", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Error  string            `json:"error"`
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Errors, "channel_link")
}

func TestSettingsUpdate_OmittedFieldKeptEmptyFieldCleared(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"upi_id":        "merchant@upi",
		"channel_link":  "https://t.me/supportchannel",
	}, "", "", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// upi_id omitted entirely: keeps its value. channel_link sent empty:
	// cleared.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "2",
		"channel_link":  "",
	}, "", "", "", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.PaymentSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "merchant@upi", resp.UPIID)
	assert.Nil(t, resp.ChannelLink)
}

func TestSettingsUpdate_UploadedQRImage(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"upi_id":        "merchant@upi",
	}, "qr_image", "qr.png", "image/png", []byte("\x89PNG\r\n\x1a\nfake")))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.PaymentSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.QRImage)
	assert.Contains(t, *resp.QRImage, "payment_qr_")
}

func TestSettingsUpdate_RejectsWrongImageType(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
	}, "qr_image", "qr.gif", "image/gif", []byte("GIF89a")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsUpdate_GeneratedQR(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"upi_id":        "merchant@upi",
		"generate_qr":   "true",
	}, "", "", "", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp domain.PaymentSettings
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.QRImage)
	assert.Contains(t, *resp.QRImage, ".png")
}

func TestSettingsUpdate_GenerateQRWithoutUPI(t *testing.T) {
	router := newSettingsRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, multipartRequest(t, map[string]string{
		"base_revision": "1",
		"generate_qr":   "true",
	}, "", "", "", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

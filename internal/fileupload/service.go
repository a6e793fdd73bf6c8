// Package fileupload stores payment QR images on local disk and can
// generate one from a UPI id when the operator has no image to upload.
package fileupload

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"botadmin/pkg/errors"
	"botadmin/pkg/logger"
)

var allowedContentTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

type Service struct {
	dir     string
	maxSize int64
	logger  logger.Logger
}

func NewService(dir string, maxSize int64, log logger.Logger) (*Service, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create upload directory")
	}
	return &Service{dir: dir, maxSize: maxSize, logger: log}, nil
}

// SaveQRImage validates and stores an uploaded QR image, returning the
// relative reference the settings record keeps.
func (s *Service) SaveQRImage(data []byte, contentType string) (string, error) {
	if int64(len(data)) > s.maxSize {
		return "", errors.ErrFileTooLarge
	}
	ext, ok := allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", errors.ErrFileTypeNotAllowed
	}

	name := fmt.Sprintf("payment_qr_%s%s", uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to store qr image")
	}

	s.logger.Info("QR image stored", map[string]interface{}{
		"file": name,
		"size": len(data),
	})
	return name, nil
}

// GenerateUPIQR renders a scannable QR for the given UPI id and stores it
// like an uploaded image.
func (s *Service) GenerateUPIQR(upiID string) (string, error) {
	uri := "upi://pay?pa=" + url.QueryEscape(upiID)
	png, err := qrcode.Encode(uri, qrcode.Medium, 512)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode qr")
	}

	name := fmt.Sprintf("payment_qr_%s.png", uuid.NewString())
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", errors.Wrap(err, "failed to store generated qr")
	}
	return name, nil
}

// Dir returns the storage directory so the router can serve it statically.
func (s *Service) Dir() string {
	return s.dir
}

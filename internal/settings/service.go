// Package settings manages the payment configuration record. All field
// validation lives here so no caller can bypass it, and writes go through
// a revision compare-and-swap so a slow edit can never clobber a fast one.
package settings

import (
	"context"
	"regexp"
	"strings"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
	"botadmin/pkg/logger"
	"botadmin/pkg/validator"
)

// Store is the persistence contract for the singleton settings row.
type Store interface {
	Get(ctx context.Context) (*domain.PaymentSettings, error)
	CompareAndSwap(ctx context.Context, baseRevision int64, settings *domain.PaymentSettings) (*domain.PaymentSettings, error)
}

type Service struct {
	store     Store
	validator *validator.Validator
	logger    logger.Logger
}

func NewService(store Store, val *validator.Validator, log logger.Logger) *Service {
	return &Service{store: store, validator: val, logger: log}
}

// UpdateRequest carries a partial settings edit. Nil means keep the current
// value; an empty string clears a nullable field.
type UpdateRequest struct {
	BaseRevision int64
	UPIID        *string
	QRImage      *string
	ChannelLink  *string
	OwnerHandle  *string
}

type fieldRules struct {
	UPIID       string `validate:"omitempty,vpa"`
	ChannelLink string `validate:"omitempty,tme_link"`
}

// Values the shipped product template contains; accepting them would point
// every customer's support button at someone else's channel.
var placeholderPattern = regexp.MustCompile(`(?i)(yourchannel|yourusername|akhilportal)`)

var handlePattern = regexp.MustCompile(`^@[A-Za-z0-9_]{4,32}$`)

func (s *Service) Get(ctx context.Context) (*domain.PaymentSettings, error) {
	return s.store.Get(ctx)
}

// Update merges the request into the current record, validates the result
// and writes it with compare-and-swap on the caller's base revision. A
// stale base revision yields ErrStaleRevision and the caller must re-read.
func (s *Service) Update(ctx context.Context, req *UpdateRequest) (*domain.PaymentSettings, error) {
	if req.BaseRevision <= 0 {
		return nil, errors.Wrap(errors.ErrStaleRevision, "base_revision is required")
	}

	current, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}

	desired := *current
	if req.UPIID != nil {
		desired.UPIID = strings.TrimSpace(*req.UPIID)
	}
	if req.QRImage != nil {
		desired.QRImage = normalizeOptional(*req.QRImage)
	}
	if req.ChannelLink != nil {
		desired.ChannelLink = normalizeOptional(*req.ChannelLink)
	}
	if req.OwnerHandle != nil {
		desired.OwnerHandle = normalizeHandle(*req.OwnerHandle)
	}

	if err := s.validate(&desired); err != nil {
		return nil, err
	}

	updated, err := s.store.CompareAndSwap(ctx, req.BaseRevision, &desired)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment settings updated", map[string]interface{}{
		"revision": updated.Revision,
	})
	return updated, nil
}

// ValidateFields returns per-field error messages without writing anything.
func (s *Service) ValidateFields(settings *domain.PaymentSettings) map[string]string {
	errs := make(map[string]string)

	rules := fieldRules{UPIID: settings.UPIID}
	if settings.ChannelLink != nil {
		rules.ChannelLink = *settings.ChannelLink
	}
	if structured := s.validator.ValidateStructured(&rules); structured != nil {
		for field, msg := range structured {
			switch field {
			case "UPIID":
				errs["upi_id"] = msg
			case "ChannelLink":
				errs["channel_link"] = msg
			}
		}
	}

	if settings.ChannelLink != nil && placeholderPattern.MatchString(*settings.ChannelLink) {
		errs["channel_link"] = errors.ErrPlaceholderValue.Error()
	}
	if settings.OwnerHandle != nil {
		if placeholderPattern.MatchString(*settings.OwnerHandle) {
			errs["owner_handle"] = errors.ErrPlaceholderValue.Error()
		} else if !handlePattern.MatchString(*settings.OwnerHandle) {
			errs["owner_handle"] = errors.ErrInvalidHandle.Error()
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (s *Service) validate(settings *domain.PaymentSettings) error {
	errs := s.ValidateFields(settings)
	if errs == nil {
		return nil
	}
	var parts []string
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	return &ValidationError{Fields: errs, msg: strings.Join(parts, "; ")}
}

// ValidationError carries per-field messages so the façade can surface the
// full list to the operator.
type ValidationError struct {
	Fields map[string]string
	msg    string
}

func (e *ValidationError) Error() string {
	return "settings validation failed: " + e.msg
}

func normalizeOptional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func normalizeHandle(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if !strings.HasPrefix(value, "@") {
		value = "@" + value
	}
	return &value
}

// Package ledger implements the balance adjustment service: every change
// to a user's balance goes through here and lands in the append-only
// adjustment log, serialized per user.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
	"botadmin/pkg/logger"
)

type Service struct {
	store         Store
	notifier      Notifier
	allowNegative bool
	logger        logger.Logger
}

// Notifier delivers best-effort balance change notices to the user on the
// bot platform. A nil notifier disables notification.
type Notifier interface {
	NotifyBalanceChange(ctx context.Context, telegramID int64, delta, newBalance decimal.Decimal, reason domain.AdjustmentReason) error
}

func NewService(store Store, notifier Notifier, allowNegative bool, log logger.Logger) *Service {
	return &Service{
		store:         store,
		notifier:      notifier,
		allowNegative: allowNegative,
		logger:        log,
	}
}

type AdjustBalanceRequest struct {
	UserID int64                   `json:"-"`
	Amount decimal.Decimal         `json:"amount" validate:"required"`
	Reason domain.AdjustmentReason `json:"reason" validate:"required"`
	Actor  string                  `json:"-"`
}

type AdjustBalanceResult struct {
	Record     *domain.AdjustmentRecord `json:"record"`
	NewBalance decimal.Decimal          `json:"new_balance"`
}

// AdjustBalance validates the request, derives the signed delta from the
// reason tag and applies it atomically. Concurrent adjustments on the same
// user are serialized by the store; unrelated users do not contend.
func (s *Service) AdjustBalance(ctx context.Context, req *AdjustBalanceRequest) (*AdjustBalanceResult, error) {
	if req.Actor == "" {
		return nil, errors.ErrActorUnauthorized
	}
	if !req.Amount.IsPositive() || !req.Amount.Equal(req.Amount.Round(2)) {
		return nil, errors.ErrInvalidAmount
	}

	var delta decimal.Decimal
	switch req.Reason {
	case domain.ReasonAdminAdd:
		delta = req.Amount
	case domain.ReasonAdminDeduct:
		delta = req.Amount.Neg()
	default:
		return nil, errors.ErrInvalidReason
	}

	record, err := s.store.ApplyAdjustment(ctx, req.UserID, delta, req.Reason, req.Actor, !s.allowNegative)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Balance adjusted", map[string]interface{}{
		"user_id":       req.UserID,
		"delta":         delta.String(),
		"reason":        req.Reason,
		"actor":         req.Actor,
		"balance_after": record.BalanceAfter.String(),
	})

	s.notify(ctx, req.UserID, record)

	return &AdjustBalanceResult{Record: record, NewBalance: record.BalanceAfter}, nil
}

// CreditDeposit records an approved deposit as a ledger credit. Used by the
// deposit review flow so that the balance invariant keeps holding.
func (s *Service) CreditDeposit(ctx context.Context, userID int64, amount decimal.Decimal, actor string) (*AdjustBalanceResult, error) {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return nil, errors.ErrInvalidAmount
	}

	record, err := s.store.ApplyAdjustment(ctx, userID, amount, domain.ReasonDepositApproved, actor, false)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, userID, record)

	return &AdjustBalanceResult{Record: record, NewBalance: record.BalanceAfter}, nil
}

func (s *Service) notify(ctx context.Context, userID int64, record *domain.AdjustmentRecord) {
	if s.notifier == nil {
		return
	}
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return
	}
	if err := s.notifier.NotifyBalanceChange(ctx, user.TelegramID, record.Delta, record.BalanceAfter, record.Reason); err != nil {
		// Notification is best effort and must never fail the adjustment.
		s.logger.Warn("Failed to notify user of balance change", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func (s *Service) GetBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	return s.store.FindUserByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error) {
	return s.store.ListUsers(ctx, limit, offset, search)
}

func (s *Service) ListAdjustments(ctx context.Context, userID int64, limit, offset int) ([]*domain.AdjustmentRecord, error) {
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListAdjustments(ctx, userID, limit, offset)
}

// Store is the persistence contract for users, balances and the
// adjustment log. ApplyAdjustment must insert the record and update the
// cached balance scalar as one atomic unit; a reader must never observe
// one without the other.
type Store interface {
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
	FindUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	ListUsers(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error)
	ApplyAdjustment(ctx context.Context, userID int64, delta decimal.Decimal, reason domain.AdjustmentReason, actor string, enforceFloor bool) (*domain.AdjustmentRecord, error)
	ListAdjustments(ctx context.Context, userID int64, limit, offset int) ([]*domain.AdjustmentRecord, error)
}

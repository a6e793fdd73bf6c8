// Package domain defines the core types shared across services.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentReason tags a balance-affecting event in the ledger.
type AdjustmentReason string

const (
	ReasonAdminAdd        AdjustmentReason = "admin_add"
	ReasonAdminDeduct     AdjustmentReason = "admin_deduct"
	ReasonDepositApproved AdjustmentReason = "deposit_approved"
	ReasonPurchase        AdjustmentReason = "purchase"
	ReasonRefund          AdjustmentReason = "refund"
)

// DepositStatus represents deposit review lifecycle states.
type DepositStatus string

const (
	DepositPending  DepositStatus = "PENDING"
	DepositApproved DepositStatus = "APPROVED"
	DepositRejected DepositStatus = "REJECTED"
)

// User is a bot customer. Created on first contact from the Telegram
// platform, never deleted (adjustment records reference it forever).
type User struct {
	ID         int64           `db:"id" json:"id"`
	TelegramID int64           `db:"telegram_id" json:"telegram_id"`
	Username   *string         `db:"username" json:"username,omitempty"`
	FullName   *string         `db:"full_name" json:"full_name,omitempty"`
	Balance    decimal.Decimal `db:"balance" json:"balance"`
	IsAdmin    bool            `db:"is_admin" json:"is_admin"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AdjustmentRecord is one committed entry of the append-only balance log.
// The stored user balance is always the sum of these deltas in id order;
// BalanceAfter is denormalized for audit readability only.
type AdjustmentRecord struct {
	ID           int64            `db:"id" json:"id"`
	UserID       int64            `db:"user_id" json:"user_id"`
	Delta        decimal.Decimal  `db:"delta" json:"delta"`
	Reason       AdjustmentReason `db:"reason" json:"reason"`
	Actor        string           `db:"actor" json:"actor"`
	BalanceAfter decimal.Decimal  `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// PaymentSettings is the singleton payment configuration row. Revision
// is bumped on every successful write and drives compare-and-swap updates.
type PaymentSettings struct {
	ID          int64     `db:"id" json:"-"`
	UPIID       string    `db:"upi_id" json:"upi_id"`
	QRImage     *string   `db:"qr_image" json:"qr_image,omitempty"`
	ChannelLink *string   `db:"channel_link" json:"channel_link,omitempty"`
	OwnerHandle *string   `db:"owner_handle" json:"owner_handle,omitempty"`
	Revision    int64     `db:"revision" json:"revision"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Country is one sellable item of the price list.
type Country struct {
	ID    int64           `db:"id" json:"id"`
	Name  string          `db:"name" json:"name"`
	Emoji string          `db:"emoji" json:"emoji"`
	Price decimal.Decimal `db:"price" json:"price"`
}

// Deposit is a user-submitted payment claim pending admin review.
// Approval credits the user's balance through the ledger.
type Deposit struct {
	ID             int64           `db:"id" json:"id"`
	UserID         int64           `db:"user_id" json:"user_id"`
	Amount         decimal.Decimal `db:"amount" json:"amount"`
	UPIRefID       string          `db:"upi_ref_id" json:"upi_ref_id"`
	ScreenshotPath *string         `db:"screenshot_path" json:"screenshot_path,omitempty"`
	Status         DepositStatus   `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

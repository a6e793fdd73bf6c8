// Package telegram wraps the bot platform API used by the reconciler and
// the balance-change notifier.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/internal/webhook"
	"botadmin/pkg/errors"
	"botadmin/pkg/logger"
)

// Client implements webhook.PlatformClient and the ledger notifier on top
// of the Bot API. Every call is bounded by the HTTP client timeout.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger logger.Logger
}

func NewClient(token string, timeout time.Duration, log logger.Logger) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "failed to authenticate bot")
	}
	log.Info("Telegram bot authenticated", map[string]interface{}{
		"username": bot.Self.UserName,
	})
	return &Client{bot: bot, logger: log}, nil
}

func (c *Client) GetWebhookInfo(ctx context.Context) (*webhook.RegistrationInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := c.bot.GetWebhookInfo()
	if err != nil {
		return nil, err
	}
	return &webhook.RegistrationInfo{
		URL:                info.URL,
		PendingUpdateCount: info.PendingUpdateCount,
		LastErrorMessage:   info.LastErrorMessage,
	}, nil
}

func (c *Client) SetWebhook(ctx context.Context, url string, dropPending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return errors.Wrap(err, "invalid webhook url")
	}
	cfg.DropPendingUpdates = dropPending
	cfg.AllowedUpdates = []string{"message", "callback_query"}
	_, err = c.bot.Request(cfg)
	return err
}

func (c *Client) DeleteWebhook(ctx context.Context, dropPending bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: dropPending})
	return err
}

// NotifyBalanceChange tells the user their balance moved. Wording follows
// what the bot already sends for deposit approvals.
func (c *Client) NotifyBalanceChange(ctx context.Context, telegramID int64, delta, newBalance decimal.Decimal, reason domain.AdjustmentReason) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var text string
	switch reason {
	case domain.ReasonAdminAdd:
		text = fmt.Sprintf(
			"✅ <b>Balance Credited</b>\n\n💰 Amount: ₹%s\n💵 New Balance: ₹%s\n\n<i>Balance added by admin</i>",
			delta.Abs().StringFixed(2), newBalance.StringFixed(2),
		)
	case domain.ReasonAdminDeduct:
		text = fmt.Sprintf(
			"⚠️ <b>Balance Debited</b>\n\n💰 Amount: ₹%s\n💵 New Balance: ₹%s\n\n<i>Balance deducted by admin</i>",
			delta.Abs().StringFixed(2), newBalance.StringFixed(2),
		)
	case domain.ReasonDepositApproved:
		text = fmt.Sprintf(
			"✅ Your deposit of ₹%s has been approved! Your new balance is ₹%s.",
			delta.Abs().StringFixed(2), newBalance.StringFixed(2),
		)
	default:
		text = fmt.Sprintf(
			"💳 <b>Balance Updated</b>\n\n💰 Change: ₹%s\n💵 New Balance: ₹%s",
			delta.StringFixed(2), newBalance.StringFixed(2),
		)
	}

	msg := tgbotapi.NewMessage(telegramID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.bot.Send(msg)
	return err
}

// NotifyDepositRejected tells the user their deposit claim was declined.
func (c *Client) NotifyDepositRejected(ctx context.Context, telegramID int64, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text := fmt.Sprintf(
		"❌ Your deposit of ₹%s was rejected.\n\nPlease contact the owner if you think this is a mistake.",
		amount.StringFixed(2),
	)
	msg := tgbotapi.NewMessage(telegramID, text)
	_, err := c.bot.Send(msg)
	return err
}

// Package webhook keeps the Telegram webhook registration in agreement
// with the locally desired URL and repairs drift on demand.
package webhook

import (
	"context"
	"fmt"
	"sync/atomic"

	"botadmin/pkg/errors"
	"botadmin/pkg/logger"
)

// State is the reconciler's view of the external registration.
type State string

const (
	StateUnknown State = "unknown"
	StateSynced  State = "synced"
	StateDrifted State = "drifted"
)

// RegistrationInfo is the platform's reported webhook registration.
type RegistrationInfo struct {
	URL                string `json:"url"`
	PendingUpdateCount int    `json:"pending_update_count"`
	LastErrorMessage   string `json:"last_error_message,omitempty"`
}

// PlatformClient talks to the bot platform. All calls must be bounded by
// a timeout; the reconciler never retries on its own.
type PlatformClient interface {
	GetWebhookInfo(ctx context.Context) (*RegistrationInfo, error)
	SetWebhook(ctx context.Context, url string, dropPending bool) error
	DeleteWebhook(ctx context.Context, dropPending bool) error
}

// Reconciler owns no persistent state; the desired URL is derived from
// configuration at construction and the last observed state is a hint only.
type Reconciler struct {
	client     PlatformClient
	desiredURL string
	state      atomic.Value
	logger     logger.Logger
}

func NewReconciler(client PlatformClient, desiredURL string, log logger.Logger) *Reconciler {
	r := &Reconciler{
		client:     client,
		desiredURL: desiredURL,
		logger:     log,
	}
	r.state.Store(StateUnknown)
	return r
}

// State returns the last observed state.
func (r *Reconciler) State() State {
	return r.state.Load().(State)
}

// DesiredURL returns the registration URL the reconciler converges to.
func (r *Reconciler) DesiredURL() string {
	return r.desiredURL
}

// Check compares the platform's registration against the desired URL.
// A platform failure counts as drift with a distinct unreachable error.
func (r *Reconciler) Check(ctx context.Context) (*RegistrationInfo, error) {
	info, err := r.client.GetWebhookInfo(ctx)
	if err != nil {
		r.state.Store(StateDrifted)
		return nil, errors.Wrap(errors.ErrPlatformUnreachable, err.Error())
	}
	if info.URL == r.desiredURL {
		r.state.Store(StateSynced)
	} else {
		r.state.Store(StateDrifted)
	}
	return info, nil
}

// FixResult reports the outcome of a check-then-repair run.
type FixResult struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	Registration *RegistrationInfo `json:"registration,omitempty"`
}

// FixWebhook runs check-then-repair-if-needed in one call. Ordinary drift
// and failed repairs are reported in the result, never as an error; only a
// platform failure that prevents even checking returns an error. The
// operation converges regardless of how many callers race it: a second
// repair's read-back simply re-confirms the first's write.
func (r *Reconciler) FixWebhook(ctx context.Context) (*FixResult, error) {
	info, err := r.Check(ctx)
	if err != nil {
		return nil, err
	}

	if r.State() == StateSynced {
		return &FixResult{
			Success:      true,
			Message:      "webhook registration is in sync",
			Registration: info,
		}, nil
	}

	r.logger.Warn("Webhook drift detected", map[string]interface{}{
		"actual":  info.URL,
		"desired": r.desiredURL,
	})

	// Clearing the registration first also drops any backlog of stale
	// updates accumulated while the webhook pointed at a dead URL.
	if err := r.client.DeleteWebhook(ctx, true); err != nil {
		r.state.Store(StateDrifted)
		return &FixResult{
			Success: false,
			Message: fmt.Sprintf("failed to clear old registration: %v", err),
		}, nil
	}

	if err := r.client.SetWebhook(ctx, r.desiredURL, true); err != nil {
		r.state.Store(StateDrifted)
		return &FixResult{
			Success: false,
			Message: fmt.Sprintf("failed to register webhook: %v", err),
		}, nil
	}

	// Read back: the repair only counts once the platform reports the
	// desired URL itself.
	confirmed, err := r.client.GetWebhookInfo(ctx)
	if err != nil {
		r.state.Store(StateDrifted)
		return &FixResult{
			Success: false,
			Message: fmt.Sprintf("registration written but read-back failed: %v", err),
		}, nil
	}
	if confirmed.URL != r.desiredURL {
		r.state.Store(StateDrifted)
		return &FixResult{
			Success:      false,
			Message:      fmt.Sprintf("registration read-back still reports %q", confirmed.URL),
			Registration: confirmed,
		}, nil
	}

	r.state.Store(StateSynced)
	r.logger.Info("Webhook repaired", map[string]interface{}{
		"url": r.desiredURL,
	})
	return &FixResult{
		Success:      true,
		Message:      "webhook registration repaired",
		Registration: confirmed,
	}, nil
}

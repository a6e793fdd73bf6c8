package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Serialization mirrors the production store: a per-user mutex guards the
// balance scalar and its log entries so readers see a log entry and the
// balance that includes it together or not at all; the store-wide mutex
// only guards the user map. Sequence ids come from an atomic counter.
type MemoryStore struct {
	mu    sync.Mutex
	users map[int64]*userState
	seq   atomic.Int64

	recMu   sync.Mutex
	records map[int64][]*domain.AdjustmentRecord
}

type userState struct {
	mu   sync.Mutex
	user domain.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[int64]*userState),
		records: make(map[int64][]*domain.AdjustmentRecord),
	}
}

// PutUser seeds a user. Test helper.
func (s *MemoryStore) PutUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.users[u.ID] = &userState{user: u}
}

func (s *MemoryStore) lookup(id int64) (*userState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.users[id]
	return state, ok
}

func (s *MemoryStore) snapshot() []*userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	states := make([]*userState, 0, len(s.users))
	for _, state := range s.users {
		states = append(states, state)
	}
	return states
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	state, ok := s.lookup(id)
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	u := state.user
	return &u, nil
}

func (s *MemoryStore) FindUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	for _, state := range s.snapshot() {
		state.mu.Lock()
		u := state.user
		state.mu.Unlock()
		if u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *MemoryStore) ListUsers(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error) {
	var all []*domain.User
	for _, state := range s.snapshot() {
		state.mu.Lock()
		u := state.user
		state.mu.Unlock()
		if search != "" && !matchesSearch(&u, search) {
			continue
		}
		c := u
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func matchesSearch(u *domain.User, search string) bool {
	search = strings.ToLower(search)
	if u.Username != nil && strings.Contains(strings.ToLower(*u.Username), search) {
		return true
	}
	if u.FullName != nil && strings.Contains(strings.ToLower(*u.FullName), search) {
		return true
	}
	return false
}

func (s *MemoryStore) ApplyAdjustment(ctx context.Context, userID int64, delta decimal.Decimal, reason domain.AdjustmentReason, actor string, enforceFloor bool) (*domain.AdjustmentRecord, error) {
	if delta.IsZero() || !delta.Equal(delta.Round(2)) {
		return nil, errors.ErrInvalidAmount
	}

	state, ok := s.lookup(userID)
	if !ok {
		return nil, errors.ErrUserNotFound
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	newBalance := state.user.Balance.Add(delta)
	if enforceFloor && newBalance.IsNegative() {
		return nil, errors.ErrInsufficientBalance
	}

	record := &domain.AdjustmentRecord{
		ID:           s.seq.Add(1),
		UserID:       userID,
		Delta:        delta,
		Reason:       reason,
		Actor:        actor,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}

	state.user.Balance = newBalance

	s.recMu.Lock()
	s.records[userID] = append(s.records[userID], record)
	s.recMu.Unlock()

	r := *record
	return &r, nil
}

func (s *MemoryStore) ListAdjustments(ctx context.Context, userID int64, limit, offset int) ([]*domain.AdjustmentRecord, error) {
	// Take the per-user lock before the record lock, same order as
	// ApplyAdjustment, so a listed record always implies the balance
	// that includes it is already visible.
	if state, ok := s.lookup(userID); ok {
		state.mu.Lock()
		defer state.mu.Unlock()
	}

	s.recMu.Lock()
	defer s.recMu.Unlock()

	all := s.records[userID]
	// Newest first, matching the production query.
	out := make([]*domain.AdjustmentRecord, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		r := *all[i]
		out = append(out, &r)
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

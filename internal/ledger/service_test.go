package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"botadmin/internal/domain"
	"botadmin/pkg/errors"
	"botadmin/pkg/logger"
)

// --- Mocks ---

type MockStore struct {
	mock.Mock
}

func (m *MockStore) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockStore) FindUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	args := m.Called(ctx, telegramID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockStore) ListUsers(ctx context.Context, limit, offset int, search string) ([]*domain.User, int, error) {
	args := m.Called(ctx, limit, offset, search)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.User), args.Int(1), args.Error(2)
}

func (m *MockStore) ApplyAdjustment(ctx context.Context, userID int64, delta decimal.Decimal, reason domain.AdjustmentReason, actor string, enforceFloor bool) (*domain.AdjustmentRecord, error) {
	args := m.Called(ctx, userID, delta, reason, actor, enforceFloor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdjustmentRecord), args.Error(1)
}

func (m *MockStore) ListAdjustments(ctx context.Context, userID int64, limit, offset int) ([]*domain.AdjustmentRecord, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AdjustmentRecord), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyBalanceChange(ctx context.Context, telegramID int64, delta, newBalance decimal.Decimal, reason domain.AdjustmentReason) error {
	args := m.Called(ctx, telegramID, delta, newBalance, reason)
	return args.Error(0)
}

// --- Tests ---

func TestAdjustBalance_AddDerivesPositiveDelta(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, true, logger.NewNop())

	record := &domain.AdjustmentRecord{
		ID:           1,
		UserID:       7,
		Delta:        decimal.NewFromFloat(50.00),
		Reason:       domain.ReasonAdminAdd,
		Actor:        "admin",
		BalanceAfter: decimal.NewFromFloat(150.00),
	}
	store.On("ApplyAdjustment", mock.Anything, int64(7),
		decimal.NewFromFloat(50.00), domain.ReasonAdminAdd, "admin", false).
		Return(record, nil)

	result, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 7,
		Amount: decimal.NewFromFloat(50.00),
		Reason: domain.ReasonAdminAdd,
		Actor:  "admin",
	})

	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromFloat(150.00)))
	assert.True(t, result.Record.Delta.Equal(decimal.NewFromFloat(50.00)))
	store.AssertExpectations(t)
}

func TestAdjustBalance_DeductDerivesNegativeDelta(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, true, logger.NewNop())

	record := &domain.AdjustmentRecord{
		ID:           2,
		UserID:       7,
		Delta:        decimal.NewFromFloat(-30.00),
		Reason:       domain.ReasonAdminDeduct,
		Actor:        "admin",
		BalanceAfter: decimal.NewFromFloat(120.00),
	}
	store.On("ApplyAdjustment", mock.Anything, int64(7),
		decimal.NewFromFloat(-30.00), domain.ReasonAdminDeduct, "admin", false).
		Return(record, nil)

	result, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 7,
		Amount: decimal.NewFromFloat(30.00),
		Reason: domain.ReasonAdminDeduct,
		Actor:  "admin",
	})

	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromFloat(120.00)))
	store.AssertExpectations(t)
}

func TestAdjustBalance_RejectsInvalidAmounts(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, true, logger.NewNop())

	cases := []decimal.Decimal{
		decimal.Zero,
		decimal.NewFromFloat(-5),
		decimal.NewFromFloat(1.001),
	}
	for _, amount := range cases {
		_, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
			UserID: 7,
			Amount: amount,
			Reason: domain.ReasonAdminAdd,
			Actor:  "admin",
		})
		assert.ErrorIs(t, err, errors.ErrInvalidAmount, "amount %s", amount)
	}
	// Log and balance untouched: the store was never reached.
	store.AssertNotCalled(t, "ApplyAdjustment",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjustBalance_RejectsUnknownReason(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, true, logger.NewNop())

	_, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 7,
		Amount: decimal.NewFromFloat(10),
		Reason: "bonus",
		Actor:  "admin",
	})
	assert.ErrorIs(t, err, errors.ErrInvalidReason)
}

func TestAdjustBalance_RejectsMissingActor(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, true, logger.NewNop())

	_, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 7,
		Amount: decimal.NewFromFloat(10),
		Reason: domain.ReasonAdminAdd,
	})
	assert.ErrorIs(t, err, errors.ErrActorUnauthorized)
}

func TestAdjustBalance_FloorFlagReachesStore(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, false, logger.NewNop())

	store.On("ApplyAdjustment", mock.Anything, int64(7),
		decimal.NewFromFloat(-10.00), domain.ReasonAdminDeduct, "admin", true).
		Return(nil, errors.ErrInsufficientBalance)

	_, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 7,
		Amount: decimal.NewFromFloat(10.00),
		Reason: domain.ReasonAdminDeduct,
		Actor:  "admin",
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)
	store.AssertExpectations(t)
}

func TestAdjustBalance_NotifierFailureDoesNotFailAdjustment(t *testing.T) {
	store := new(MockStore)
	notifier := new(MockNotifier)
	svc := NewService(store, notifier, true, logger.NewNop())

	record := &domain.AdjustmentRecord{
		ID:           3,
		UserID:       7,
		Delta:        decimal.NewFromFloat(5.00),
		Reason:       domain.ReasonAdminAdd,
		Actor:        "admin",
		BalanceAfter: decimal.NewFromFloat(5.00),
	}
	store.On("ApplyAdjustment", mock.Anything, int64(7),
		decimal.NewFromFloat(5.00), domain.ReasonAdminAdd, "admin", false).
		Return(record, nil)
	store.On("FindUserByID", mock.Anything, int64(7)).
		Return(&domain.User{ID: 7, TelegramID: 999}, nil)
	notifier.On("NotifyBalanceChange", mock.Anything, int64(999),
		mock.Anything, mock.Anything, domain.ReasonAdminAdd).
		Return(assert.AnError)

	result, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 7,
		Amount: decimal.NewFromFloat(5.00),
		Reason: domain.ReasonAdminAdd,
		Actor:  "admin",
	})

	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromFloat(5.00)))
	notifier.AssertExpectations(t)
}

func TestAdjustBalance_UnknownUser(t *testing.T) {
	store := new(MockStore)
	svc := NewService(store, nil, true, logger.NewNop())

	store.On("ApplyAdjustment", mock.Anything, int64(42),
		mock.Anything, domain.ReasonAdminAdd, "admin", false).
		Return(nil, errors.ErrUserNotFound)

	_, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 42,
		Amount: decimal.NewFromFloat(1.00),
		Reason: domain.ReasonAdminAdd,
		Actor:  "admin",
	})
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
}

// --- Memory store semantics ---

func seedUser(store *MemoryStore, id int64, balance decimal.Decimal) {
	username := "user"
	store.PutUser(&domain.User{
		ID:         id,
		TelegramID: id * 1000,
		Username:   &username,
		Balance:    balance,
	})
}

func TestMemoryStore_BalanceEqualsSumOfDeltas(t *testing.T) {
	store := NewMemoryStore()
	seedUser(store, 1, decimal.NewFromFloat(100.00))
	svc := NewService(store, nil, true, logger.NewNop())
	ctx := context.Background()

	_, err := svc.AdjustBalance(ctx, &AdjustBalanceRequest{
		UserID: 1, Amount: decimal.NewFromFloat(50.00), Reason: domain.ReasonAdminAdd, Actor: "admin",
	})
	require.NoError(t, err)
	_, err = svc.AdjustBalance(ctx, &AdjustBalanceRequest{
		UserID: 1, Amount: decimal.NewFromFloat(30.00), Reason: domain.ReasonAdminDeduct, Actor: "admin",
	})
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromFloat(120.00)))

	records, err := store.ListAdjustments(ctx, 1, 100, 0)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Seeded opening balance plus the committed deltas reproduce the
	// stored scalar exactly.
	sum := decimal.NewFromFloat(100.00)
	for _, r := range records {
		sum = sum.Add(r.Delta)
	}
	assert.True(t, balance.Equal(sum))
}

func TestMemoryStore_ConcurrentAdjustmentsAllApplyExactlyOnce(t *testing.T) {
	store := NewMemoryStore()
	seedUser(store, 1, decimal.Zero)
	svc := NewService(store, nil, true, logger.NewNop())
	ctx := context.Background()

	const adds = 50
	const deducts = 25

	var wg sync.WaitGroup
	wg.Add(adds + deducts)
	for i := 0; i < adds; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.AdjustBalance(ctx, &AdjustBalanceRequest{
				UserID: 1, Amount: decimal.NewFromFloat(1.00), Reason: domain.ReasonAdminAdd, Actor: "admin",
			})
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < deducts; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.AdjustBalance(ctx, &AdjustBalanceRequest{
				UserID: 1, Amount: decimal.NewFromFloat(0.50), Reason: domain.ReasonAdminDeduct, Actor: "admin",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// 50 * 1.00 - 25 * 0.50
	want := decimal.NewFromFloat(37.50)
	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, balance.Equal(want), "got %s", balance)

	records, err := store.ListAdjustments(ctx, 1, 1000, 0)
	require.NoError(t, err)
	require.Len(t, records, adds+deducts)

	sum := decimal.Zero
	seen := make(map[int64]bool)
	for _, r := range records {
		sum = sum.Add(r.Delta)
		assert.False(t, seen[r.ID], "duplicate record id %d", r.ID)
		seen[r.ID] = true
	}
	assert.True(t, sum.Equal(want))
}

func TestMemoryStore_ListedRecordsNeverOutrunBalance(t *testing.T) {
	store := NewMemoryStore()
	seedUser(store, 1, decimal.Zero)
	ctx := context.Background()

	const writes = 200
	delta := decimal.NewFromFloat(1.00)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < writes; i++ {
			_, err := store.ApplyAdjustment(ctx, 1, delta, domain.ReasonAdminAdd, "admin", false)
			assert.NoError(t, err)
		}
	}()

	// A listed record must imply its delta is already in the balance, so
	// the sum of whatever a reader lists can never exceed the balance it
	// reads afterwards.
	for {
		records, err := store.ListAdjustments(ctx, 1, writes, 0)
		require.NoError(t, err)
		sum := decimal.Zero
		for _, r := range records {
			sum = sum.Add(r.Delta)
		}
		user, err := store.FindUserByID(ctx, 1)
		require.NoError(t, err)
		require.True(t, sum.LessThanOrEqual(user.Balance),
			"listed %s but balance is %s", sum, user.Balance)

		select {
		case <-done:
			records, err := store.ListAdjustments(ctx, 1, writes, 0)
			require.NoError(t, err)
			require.Len(t, records, writes)
			return
		default:
		}
	}
}

func TestMemoryStore_FloorEnforcement(t *testing.T) {
	store := NewMemoryStore()
	seedUser(store, 1, decimal.NewFromFloat(10.00))
	svc := NewService(store, nil, false, logger.NewNop())
	ctx := context.Background()

	_, err := svc.AdjustBalance(ctx, &AdjustBalanceRequest{
		UserID: 1, Amount: decimal.NewFromFloat(10.01), Reason: domain.ReasonAdminDeduct, Actor: "admin",
	})
	assert.ErrorIs(t, err, errors.ErrInsufficientBalance)

	// Failed attempt left both the balance and the log untouched.
	balance, err := svc.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromFloat(10.00)))
	records, err := store.ListAdjustments(ctx, 1, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestMemoryStore_NegativeBalanceAllowedByDefault(t *testing.T) {
	store := NewMemoryStore()
	seedUser(store, 1, decimal.NewFromFloat(5.00))
	svc := NewService(store, nil, true, logger.NewNop())

	result, err := svc.AdjustBalance(context.Background(), &AdjustBalanceRequest{
		UserID: 1, Amount: decimal.NewFromFloat(8.00), Reason: domain.ReasonAdminDeduct, Actor: "admin",
	})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromFloat(-3.00)))
}

func TestCreditDeposit_AppendsToLog(t *testing.T) {
	store := NewMemoryStore()
	seedUser(store, 1, decimal.Zero)
	svc := NewService(store, nil, true, logger.NewNop())

	result, err := svc.CreditDeposit(context.Background(), 1, decimal.NewFromFloat(200.00), "admin")
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(decimal.NewFromFloat(200.00)))
	assert.Equal(t, domain.ReasonDepositApproved, result.Record.Reason)
}

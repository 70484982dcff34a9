package dynamiccode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-auth-otp/internal/domain"
	"github.com/go-auth-otp/internal/infrastructure/hasher"
	"github.com/go-auth-otp/internal/infrastructure/memstore"
	"github.com/go-auth-otp/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store   *Store
	backend *memstore.DynamicCodeRepo
	hasher  *hasher.Bcrypt
	clock   *clock.Fake
}

func newFixture() *fixture {
	clk := clock.NewFake(epoch)
	backend := memstore.NewDynamicCodeRepo(clk)
	h := hasher.NewBcrypt(bcrypt.MinCost)
	return &fixture{store: NewStore(backend, h, clk), backend: backend, hasher: h, clock: clk}
}

func (f *fixture) storeCode(t *testing.T, owner, code string, ttl time.Duration) {
	t.Helper()
	hash, err := f.hasher.Hash(code)
	require.NoError(t, err)
	require.NoError(t, f.store.Store(context.Background(), owner, hash, ttl))
}

func TestVerify_MatchConsumes(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "482913", 5*time.Minute)

	ok, err := f.store.Verify(context.Background(), "u-1", "482913")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.Verify(context.Background(), "u-1", "482913")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_MismatchRetainsRecord(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "482913", 5*time.Minute)

	ok, err := f.store.Verify(context.Background(), "u-1", "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err := f.store.Pending(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, pending)

	ok, err = f.store.Verify(context.Background(), "u-1", "482913")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_SupersededCodeFails(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "111111", 5*time.Minute)
	f.storeCode(t, "u-1", "222222", 5*time.Minute)

	ok, err := f.store.Verify(context.Background(), "u-1", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.Verify(context.Background(), "u-1", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerify_ExpiredFailsAndIsRemoved(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "482913", 5*time.Minute)

	f.clock.Advance(5*time.Minute + time.Second)
	ok, err := f.store.Verify(context.Background(), "u-1", "482913")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, f.backend.Len())
}

func TestVerify_NoRecord(t *testing.T) {
	f := newFixture()
	ok, err := f.store.Verify(context.Background(), "nobody", "482913")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_CancelledContextKeepsRecord(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "482913", 5*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err := f.store.Verify(ctx, "u-1", "482913")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, f.backend.Len())
}

func TestVerify_ConcurrentSingleUse(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "482913", 5*time.Minute)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := f.store.Verify(context.Background(), "u-1", "482913")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestPending_Expired(t *testing.T) {
	f := newFixture()
	f.storeCode(t, "u-1", "482913", time.Minute)

	pending, err := f.store.Pending(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, pending)

	f.clock.Advance(time.Minute)
	pending, err = f.store.Pending(context.Background(), "u-1")
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestStore_RejectsNonPositiveTTL(t *testing.T) {
	f := newFixture()
	err := f.store.Store(context.Background(), "u-1", "hash", 0)
	assert.ErrorContains(t, err, "ttl must be positive")
	assert.NotErrorIs(t, err, domain.ErrBadRequest)
	assert.Equal(t, 0, f.backend.Len())
}

func TestGenerateCode(t *testing.T) {
	f := newFixture()
	code, err := f.store.GenerateCode()
	require.NoError(t, err)
	assert.Regexp(t, `^[1-9]\d{5}$`, code)
}

// --- backend faults ---

type mockBackend struct{ mock.Mock }

func (m *mockBackend) Put(ctx context.Context, c *domain.DynamicCode, ttl time.Duration) error {
	return m.Called(ctx, c, ttl).Error(0)
}

func (m *mockBackend) Get(ctx context.Context, ownerID string) (*domain.DynamicCode, error) {
	args := m.Called(ctx, ownerID)
	c, _ := args.Get(0).(*domain.DynamicCode)
	return c, args.Error(1)
}

func (m *mockBackend) DeleteIf(ctx context.Context, ownerID, hashedCode string) (bool, error) {
	args := m.Called(ctx, ownerID, hashedCode)
	return args.Bool(0), args.Error(1)
}

type mockComparer struct{ mock.Mock }

func (m *mockComparer) Compare(hash, plain string) (bool, error) {
	args := m.Called(hash, plain)
	return args.Bool(0), args.Error(1)
}

func TestVerify_BackendFaultIsError(t *testing.T) {
	b := new(mockBackend)
	s := NewStore(b, new(mockComparer), clock.NewFake(epoch))
	b.On("Get", mock.Anything, "u-1").Return(nil, errors.New("connection refused"))

	ok, err := s.Verify(context.Background(), "u-1", "482913")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestVerify_HasherFaultIsError(t *testing.T) {
	b := new(mockBackend)
	cmp := new(mockComparer)
	s := NewStore(b, cmp, clock.NewFake(epoch))
	b.On("Get", mock.Anything, "u-1").Return(&domain.DynamicCode{OwnerID: "u-1", HashedCode: "bad", ExpiresAt: epoch.Add(time.Minute)}, nil)
	cmp.On("Compare", "bad", "482913").Return(false, errors.New("malformed hash"))

	ok, err := s.Verify(context.Background(), "u-1", "482913")
	assert.Error(t, err)
	assert.False(t, ok)
	b.AssertNotCalled(t, "DeleteIf", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_LostDeleteRaceIsFalse(t *testing.T) {
	b := new(mockBackend)
	cmp := new(mockComparer)
	s := NewStore(b, cmp, clock.NewFake(epoch))
	b.On("Get", mock.Anything, "u-1").Return(&domain.DynamicCode{OwnerID: "u-1", HashedCode: "h", ExpiresAt: epoch.Add(time.Minute)}, nil)
	cmp.On("Compare", "h", "482913").Return(true, nil)
	b.On("DeleteIf", mock.Anything, "u-1", "h").Return(false, nil)

	ok, err := s.Verify(context.Background(), "u-1", "482913")
	require.NoError(t, err)
	assert.False(t, ok)
}

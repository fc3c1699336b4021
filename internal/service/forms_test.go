package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DukeRupert/authflow/internal/domain"
	"github.com/DukeRupert/authflow/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingFormLocks struct {
	released int
}

func (f *failingFormLocks) AcquireForm(ctx context.Context, sessionID, form string) error {
	return errors.New("connection refused")
}

func (f *failingFormLocks) ReleaseForm(ctx context.Context, sessionID, form string) error {
	f.released++
	return nil
}

func TestFormGuard_OneSubmitPerSessionAndForm(t *testing.T) {
	ctx := context.Background()
	guard := NewFormGuard(store.NewMemoryStore(), newTestLogger())

	release, err := guard.Acquire(ctx, "sid", FormRegister)
	require.NoError(t, err)

	_, err = guard.Acquire(ctx, "sid", FormRegister)
	assert.ErrorIs(t, err, ErrInFlight)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))

	// A different form or session is not blocked.
	releaseLogin, err := guard.Acquire(ctx, "sid", FormLogin)
	require.NoError(t, err)
	releaseLogin()
	releaseOther, err := guard.Acquire(ctx, "other", FormRegister)
	require.NoError(t, err)
	releaseOther()

	release()
	release, err = guard.Acquire(ctx, "sid", FormRegister)
	require.NoError(t, err)
	release()
}

func TestFormGuard_ReleaseSurvivesCanceledRequest(t *testing.T) {
	locks := store.NewMemoryStore()
	guard := NewFormGuard(locks, newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	release, err := guard.Acquire(ctx, "sid", FormLogin)
	require.NoError(t, err)
	cancel()
	release()

	assert.NoError(t, locks.AcquireForm(context.Background(), "sid", FormLogin))
}

func TestFormGuard_StoreFailureIsInternal(t *testing.T) {
	locks := &failingFormLocks{}
	guard := NewFormGuard(locks, newTestLogger())

	release, err := guard.Acquire(context.Background(), "sid", FormLogin)
	assert.Nil(t, release)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.NotErrorIs(t, err, ErrInFlight)
	assert.Zero(t, locks.released)
}

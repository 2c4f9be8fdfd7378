package stepper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyStepper fails every call with failure until remaining hits zero.
type flakyStepper struct {
	remaining int
	failure   error
	calls     int
}

func (f *flakyStepper) attempt() error {
	f.calls++
	if f.remaining > 0 {
		f.remaining--
		return f.failure
	}
	return nil
}

func (f *flakyStepper) Begin(ctx context.Context, platform string, answers []map[string]any) (string, error) {
	if err := f.attempt(); err != nil {
		return "", err
	}
	return "h-1", nil
}

func (f *flakyStepper) Delete(ctx context.Context, handle string) error {
	return f.attempt()
}

func (f *flakyStepper) UpdateOptions(ctx context.Context, handle string, options []map[string]any) error {
	return f.attempt()
}

func (f *flakyStepper) SupportsOptions(ctx context.Context, handle string) (bool, error) {
	if err := f.attempt(); err != nil {
		return false, err
	}
	return true, nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxRetries:      5,
	}
}

func TestWithRetry_RecoversFromTransient(t *testing.T) {
	flaky := &flakyStepper{remaining: 2, failure: &TransientError{Err: errors.New("timeout")}}
	s := WithRetry(flaky, fastPolicy())

	handle, err := s.Begin(context.Background(), "broadlink", nil)
	require.NoError(t, err)
	assert.Equal(t, "h-1", handle)
	assert.Equal(t, 3, flaky.calls)
}

func TestWithRetry_GivesUpAfterMaxRetries(t *testing.T) {
	flaky := &flakyStepper{remaining: 100, failure: &TransientError{Err: errors.New("timeout")}}
	s := WithRetry(flaky, fastPolicy())

	err := s.Delete(context.Background(), "h-1")
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 6, flaky.calls, "initial attempt plus five retries")
}

func TestWithRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", NewValidationError("broadlink", 0, "host", errors.New("required"))},
		{"not found", &NotFoundError{Handle: "h-1"}},
		{"conflict", &ConflictError{Platform: "broadlink"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flaky := &flakyStepper{remaining: 100, failure: tt.err}
			s := WithRetry(flaky, fastPolicy())

			err := s.UpdateOptions(context.Background(), "h-1", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, flaky.calls)
		})
	}
}

func TestWithRetry_StopsOnContextCancel(t *testing.T) {
	flaky := &flakyStepper{remaining: 100, failure: &TransientError{Err: errors.New("timeout")}}
	s := WithRetry(flaky, RetryPolicy{
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxRetries:      100,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.SupportsOptions(ctx, "h-1")
	require.Error(t, err)
	assert.Less(t, flaky.calls, 5)
}

package migrate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/docmodel/storage"
	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	transient := errors.New("store busy")

	tests := []struct {
		name     string
		attempts int
		failures int
		err      error
		wantErr  error
		wantRuns int
	}{
		{name: "first try", attempts: 3, wantRuns: 1},
		{name: "eventual success", attempts: 5, failures: 2, err: transient, wantRuns: 3},
		{name: "attempts exhausted", attempts: 3, failures: 10, err: transient, wantErr: transient, wantRuns: 3},
		{name: "permanent error is not retried", attempts: 5, failures: 10, err: fmt.Errorf("update: %w", storage.ErrCannotModifyID), wantErr: storage.ErrCannotModifyID, wantRuns: 1},
		{name: "no attempts", attempts: 0, wantErr: ErrInvalidAttempts, wantRuns: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs := 0
			b := Backoff{Attempts: tt.attempts, Delay: time.Millisecond}
			err := b.Do(context.Background(), func(context.Context) error {
				runs++
				if runs <= tt.failures {
					return tt.err
				}
				return nil
			})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRuns, runs)
		})
	}
}

func TestBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runs := 0
	err := Backoff{Attempts: 10, Delay: time.Millisecond}.Do(ctx, func(context.Context) error {
		runs++
		if runs == 2 {
			cancel()
		}
		return errors.New("store busy")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, runs)
}

func TestBackoff_MaxDelay(t *testing.T) {
	start := time.Now()
	runs := 0
	err := Backoff{Attempts: 4, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}.Do(context.Background(), func(context.Context) error {
		runs++
		return errors.New("store busy")
	})
	assert.Error(t, err)
	assert.Equal(t, 4, runs)
	assert.Less(t, time.Since(start), time.Second)
}

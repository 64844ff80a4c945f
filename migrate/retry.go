// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package migrate

import (
	"context"
	"errors"
	"time"

	"github.com/poiesic/docmodel/storage"
)

// Backoff retries a document write with exponentially growing pauses.
type Backoff struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// Delay is the pause before the second try. It doubles after every
	// further failure, capped at MaxDelay when MaxDelay is positive.
	Delay    time.Duration
	MaxDelay time.Duration
}

// Do calls write until it succeeds, the attempts run out, ctx is done or
// write fails with an error retrying cannot fix. Returns the last error.
func (b Backoff) Do(ctx context.Context, write func(context.Context) error) error {
	if b.Attempts < 1 {
		return ErrInvalidAttempts
	}

	pause := b.Delay
	var err error
	for attempt := range b.Attempts {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = write(ctx); err == nil || permanent(err) {
			return err
		}
		if attempt == b.Attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
		pause *= 2
		if b.MaxDelay > 0 && pause > b.MaxDelay {
			pause = b.MaxDelay
		}
	}
	return err
}

// permanent reports whether err comes from the update itself rather than
// from the store being unavailable.
func permanent(err error) bool {
	for _, target := range []error{
		storage.ErrCannotModifyID,
		storage.ErrConstraintViolated,
		storage.ErrInvalidModifier,
		storage.ErrFieldName,
		storage.ErrInvalidQuery,
		storage.ErrStorageClosed,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

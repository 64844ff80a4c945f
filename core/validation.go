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

package core

import (
	"fmt"
)

// ValidateAttrs validates a document against attribute declarations.
//
// Validation rules:
//   - Required attributes must be present and non-nil
//   - Present attributes with a Validate func must pass it
//
// All failures are returned, ordered by attribute name, so callers can
// report the first one or all of them.
func ValidateAttrs(attrs Attrs, doc Document) []error {
	var errs []error

	for _, name := range attrs.Names() {
		opts := attrs[name]
		value, present := doc[name]

		if opts.Required && (!present || value == nil) {
			errs = append(errs, fmt.Errorf("%s: %w", name, ErrRequiredAttr))
			continue
		}

		if present && opts.Validate != nil {
			if err := opts.Validate(value); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w: %w", name, ErrInvalidAttr, err))
			}
		}
	}

	return errs
}

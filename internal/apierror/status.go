// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package apierror

import (
	"fmt"
	"net/http"
)

// StatusError is returned when the remote service answers with a non-2xx status.
type StatusError struct {
	Method     string
	Endpoint   string
	StatusCode int
	// Detail is the "detail" field of the error body, if the service sent one.
	Detail string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Endpoint, e.StatusCode)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsNotFoundError reports whether the service answered 404.
func (e *StatusError) IsNotFoundError() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerError reports whether the service answered with a 5xx status.
func (e *StatusError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// RetryError records how many attempts were spent before giving up.
type RetryError struct {
	Err         error
	Attempt     int
	MaxAttempts int
}

// WithRetryInfo annotates err with the attempt counter.
func WithRetryInfo(err error, attempt, maxAttempts int) error {
	if err == nil {
		return nil
	}
	return &RetryError{Err: err, Attempt: attempt, MaxAttempts: maxAttempts}
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("%v (attempt %d/%d)", e.Err, e.Attempt, e.MaxAttempts)
}

func (e *RetryError) Unwrap() error { return e.Err }

// ActionError pairs an error with a hint the CLI prints to the user.
type ActionError struct {
	Err    error
	Action string
}

// WithUserAction attaches a user-facing hint to err.
func WithUserAction(err error, action string) error {
	if err == nil {
		return nil
	}
	return &ActionError{Err: err, Action: action}
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%v. %s", e.Err, e.Action)
}

func (e *ActionError) Unwrap() error { return e.Err }

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

// Package errors defines sentinel errors for consistent error handling across the application.
// These errors map to specific exit codes in the CLI for proper scripting support.
package errors

import "errors"

// Sentinel errors for consistent error handling and exit code mapping
var (
	// ErrUserNotFound indicates the handle lookup failed on the remote service.
	// A failed lookup never clears a previously loaded session.
	// Maps to exit code 2.
	ErrUserNotFound = errors.New("user not found")

	// ErrBookmarkNotFound indicates a bookmark delete referenced an unknown problem.
	// Maps to exit code 2.
	ErrBookmarkNotFound = errors.New("bookmark not found")

	// ErrNetworkFailure indicates a network connection problem or a timeout.
	// Maps to exit code 3.
	ErrNetworkFailure = errors.New("network connection failed")

	// ErrServerError indicates the remote service answered with a failure status.
	// Maps to exit code 3.
	ErrServerError = errors.New("remote service error")

	// ErrInvalidHandle indicates a handle that cannot be sent to the remote service.
	ErrInvalidHandle = errors.New("invalid handle")

	// ErrNoSession indicates no handle has been persisted yet.
	ErrNoSession = errors.New("no saved session")
)

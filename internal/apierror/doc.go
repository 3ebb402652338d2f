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

// Package apierror classifies failures returned by the remote problem service
// so callers can decide between surfacing a message, retrying, or mapping the
// failure to an exit code.
//
// Classification looks at the error chain first (typed *StatusError values and
// net.Error timeouts) and falls back to string inspection for errors produced
// by the HTTP stack that carry no type information.
package apierror

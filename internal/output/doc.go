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

// Package output renders catalog pages, statistics and bookmarks for the
// terminal, and streams the same records as NDJSON for scripting.
//
// Text rendering goes through a Renderer bound to one io.Writer. Colors are
// chosen from the writer's terminal profile, so output redirected to a file
// or pipe is plain text.
//
//	r := output.NewRenderer(os.Stdout)
//	r.Problems(window, solved)
//
// Machine-readable output uses Writer, one JSON object per line:
//
//	w := output.NewWriter(os.Stdout)
//	if err := output.WriteAll(w, window.Items); err != nil {
//	    return err
//	}
package output

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

package output

import "github.com/charmbracelet/lipgloss"

// Rank colors used for problem and user ratings.
var (
	ColorNewbie      = lipgloss.Color("#808080")
	ColorPupil       = lipgloss.Color("#008000")
	ColorSpecialist  = lipgloss.Color("#03A89E")
	ColorExpert      = lipgloss.Color("#0000FF")
	ColorCandidate   = lipgloss.Color("#AA00AA")
	ColorMaster      = lipgloss.Color("#FF8C00")
	ColorGrandmaster = lipgloss.Color("#FF0000")

	ColorAccent  = lipgloss.Color("#2CD7C7")
	ColorSuccess = lipgloss.Color("#2ECC71")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
	ColorMuted   = lipgloss.Color("#5C6B73")
)

// RatingColor returns the rank color for a rating. Zero means unrated.
func RatingColor(rating int) lipgloss.Color {
	switch {
	case rating <= 0:
		return ColorMuted
	case rating < 1200:
		return ColorNewbie
	case rating < 1400:
		return ColorPupil
	case rating < 1600:
		return ColorSpecialist
	case rating < 1900:
		return ColorExpert
	case rating < 2100:
		return ColorCandidate
	case rating < 2400:
		return ColorMaster
	default:
		return ColorGrandmaster
	}
}

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	muted   lipgloss.Style
	bold    lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
	box     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(ColorAccent),
		header:  r.NewStyle().Bold(true).Underline(true),
		muted:   r.NewStyle().Foreground(ColorMuted),
		bold:    r.NewStyle().Bold(true),
		success: r.NewStyle().Foreground(ColorSuccess),
		warning: r.NewStyle().Foreground(ColorWarning),
		failure: r.NewStyle().Foreground(ColorError),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1),
	}
}

package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sreekeshm77/ATS-project/internal/types"
)

const (
	// countUpDuration is the fixed length of the score count-up
	countUpDuration = 1500 * time.Millisecond

	// dialCircumference matches a radius-90 dial; the gauge offset is
	// linear in the eased score against this constant
	dialCircumference = 2 * math.Pi * 90

	// staggerDelay separates consecutive reveals within a list
	staggerDelay = 80 * time.Millisecond

	dialSegments = 20
	barWidth     = 24
)

const (
	emptyListPlaceholder    = "None identified"
	noMissingKeywordsNotice = "Great! No missing keywords identified."
)

// easeOutCubic maps linear progress in [0,1] to eased progress
func easeOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := 1 - t
	return 1 - u*u*u
}

// easedScore samples the count-up: 0 at the start, the final score once
// countUpDuration has passed
func easedScore(final int, elapsed time.Duration) int {
	t := float64(elapsed) / float64(countUpDuration)
	return int(math.Round(easeOutCubic(t) * float64(final)))
}

// dialOffset is the stroke offset for an eased score value
func dialOffset(value float64) float64 {
	return dialCircumference * (1 - value/100)
}

// renderDial draws the circular indicator as a segment gauge; the fill
// fraction derives from the stroke offset against the circumference
func renderDial(value float64, color lipgloss.Color) string {
	fill := 1 - dialOffset(value)/dialCircumference
	filled := int(math.Round(fill * dialSegments))
	if filled < 0 {
		filled = 0
	}
	if filled > dialSegments {
		filled = dialSegments
	}

	gauge := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("●", filled)) +
		mutedStyle.Render(strings.Repeat("○", dialSegments-filled))
	return "(" + gauge + ")"
}

// gradePalette is the two-color gradient pair for a score tier
type gradePalette struct {
	from, to string
}

// gradeColors picks the gradient pair for the overall score tier
func gradeColors(score int) gradePalette {
	switch {
	case score >= 90:
		return gradePalette{"#667eea", "#764ba2"}
	case score >= 80:
		return gradePalette{"#4facfe", "#00f2fe"}
	case score >= 70:
		return gradePalette{"#43e97b", "#38f9d7"}
	case score >= 60:
		return gradePalette{"#84fab0", "#8fd3f4"}
	case score >= 50:
		return gradePalette{"#f6d365", "#fda085"}
	case score >= 40:
		return gradePalette{"#ff9a44", "#fc6076"}
	default:
		return gradePalette{"#ff6b6b", "#ffa500"}
	}
}

// barClass is the qualitative color class for a sub-score bar
func barClass(score int) string {
	switch {
	case score >= 80:
		return "excellent"
	case score >= 60:
		return "good"
	case score >= 40:
		return "average"
	default:
		return "poor"
	}
}

func barColor(class string) lipgloss.Color {
	switch class {
	case "excellent":
		return lipgloss.Color("#4facfe")
	case "good":
		return lipgloss.Color("#43e97b")
	case "average":
		return lipgloss.Color("#f6d365")
	default:
		return lipgloss.Color("#ff6b6b")
	}
}

// renderBar draws one sub-score as a filled bar, width proportional to
// the score, colored by its qualitative class
func renderBar(label string, score int) string {
	score = types.ClampScore(score)
	filledWidth := score * barWidth / 100

	color := barColor(barClass(score))
	bar := lipgloss.NewStyle().Foreground(color).Render(strings.Repeat("█", filledWidth)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filledWidth))

	return fmt.Sprintf("%-12s %s %3d%%", label, bar, score)
}

// renderList draws a section with its first revealed items; an empty
// list shows the placeholder instead of an empty section
func renderList(title string, items []string, revealed int, placeholder string) string {
	lines := []string{sectionStyle.Render(title)}

	if len(items) == 0 {
		lines = append(lines, placeholderStyle.Render("  "+placeholder))
		return strings.Join(lines, "\n")
	}

	if revealed > len(items) {
		revealed = len(items)
	}
	for _, item := range items[:revealed] {
		lines = append(lines, "  • "+item)
	}
	return strings.Join(lines, "\n")
}

// renderChips draws a keyword set as inline chips, revealed one by one
func renderChips(title string, keywords []string, revealed int, style lipgloss.Style, placeholder string) string {
	header := sectionStyle.Render(title)

	if len(keywords) == 0 {
		return header + "\n" + placeholderStyle.Render("  "+placeholder)
	}

	if revealed > len(keywords) {
		revealed = len(keywords)
	}
	chips := make([]string, 0, revealed)
	for _, keyword := range keywords[:revealed] {
		chips = append(chips, style.Render("["+keyword+"]"))
	}
	return header + "\n  " + strings.Join(chips, " ")
}

// gradientText colors s rune-by-rune along the palette's two-color ramp
func gradientText(s string, p gradePalette) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}

	var b strings.Builder
	for i, r := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		color := lipgloss.Color(lerpHex(p.from, p.to, t))
		b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(r)))
	}
	return b.String()
}

// lerpHex linearly interpolates two #rrggbb colors
func lerpHex(from, to string, t float64) string {
	fr, fg, fb := splitHex(from)
	tr, tg, tb := splitHex(to)
	lerp := func(a, b int) int { return a + int(math.Round(t*float64(b-a))) }
	return fmt.Sprintf("#%02x%02x%02x", lerp(fr, tr), lerp(fg, tg), lerp(fb, tb))
}

func splitHex(hex string) (r, g, b int) {
	fmt.Sscanf(strings.TrimPrefix(hex, "#"), "%02x%02x%02x", &r, &g, &b)
	return r, g, b
}

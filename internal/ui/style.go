package ui

import (
	"strings"

	"github.com/fatih/color"
)

// Sprint color functions for building styled strings.
var (
	Bold       = color.New(color.Bold).SprintFunc()
	Dim        = color.New(color.Faint).SprintFunc()
	Cyan       = color.New(color.FgCyan).SprintFunc()
	Green      = color.New(color.FgGreen).SprintFunc()
	Red        = color.New(color.FgRed).SprintFunc()
	Yellow     = color.New(color.FgYellow).SprintFunc()
	BoldGreen  = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed    = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow = color.New(color.Bold, color.FgYellow).SprintFunc()
)

// laneColors gives neighbouring lanes distinct colors.
var laneColors = []func(a ...interface{}) string{
	color.New(color.Bold, color.FgMagenta).SprintFunc(),
	color.New(color.Bold, color.FgCyan).SprintFunc(),
	color.New(color.Bold, color.FgYellow).SprintFunc(),
	color.New(color.Bold, color.FgGreen).SprintFunc(),
	color.New(color.Bold, color.FgHiBlue).SprintFunc(),
	color.New(color.Bold, color.FgHiRed).SprintFunc(),
}

// LanePrefix returns a colored [label] prefix for lane.
func LanePrefix(lane int, label string) string {
	if lane < 0 {
		lane = -lane
	}
	c := laneColors[lane%len(laneColors)]
	return Dim("[") + c(label) + Dim("]")
}

// StateIcon returns a colored icon for a task state.
func StateIcon(state string) string {
	switch state {
	case "completed":
		return Green("✓")
	case "completing":
		return Green("◐")
	case "in_progress":
		return Cyan("●")
	case "workable":
		return Yellow("○")
	default:
		return Dim("◌")
	}
}

// Outcome returns a colored stage outcome.
func Outcome(outcome string) string {
	switch outcome {
	case "cleared":
		return BoldGreen("CLEARED")
	case "time_expired":
		return BoldRed("TIME UP")
	default:
		return BoldYellow(strings.ToUpper(outcome))
	}
}

// Bar draws a width-cell bar with the span [from, to) of total filled.
// Out-of-range values are clamped.
func Bar(from, to, total float64, width int) string {
	if width <= 0 {
		return ""
	}
	if !(total > 0) {
		return strings.Repeat(" ", width)
	}
	cell := func(v float64) int {
		n := int(v / total * float64(width))
		if n < 0 {
			return 0
		}
		if n > width {
			return width
		}
		return n
	}
	a, b := cell(from), cell(to)
	if b <= a && to > from {
		b = a + 1
		if b > width {
			a, b = width-1, width
		}
	}
	return strings.Repeat(" ", a) + strings.Repeat("█", b-a) + strings.Repeat(" ", width-b)
}

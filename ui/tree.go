package ui

import (
	"strings"
	"unicode/utf8"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-devicetest/types"
)

// Tree connectors
const (
	TreeBranch     = "├── "
	TreeLastBranch = "└── "
	TreeContinue   = "│   "
	TreeIndent     = "    "
)

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxVertical    = "│"
	BoxHorizontal  = "─"
	BoxTeeRight    = "├"
	BoxTeeLeft     = "┤"
)

// BuildTreePrefix returns the connector for an entry at depth (0 = top
// level, no prefix). ancestorsLast[i] tells whether the ancestor at depth i+1
// was the last of its siblings, which decides between a vertical line and
// blank indentation.
func BuildTreePrefix(depth int, isLast bool, ancestorsLast []bool) string {
	if depth <= 0 {
		return ""
	}

	var b strings.Builder
	for i := 0; i < depth-1; i++ {
		if i < len(ancestorsLast) && ancestorsLast[i] {
			b.WriteString(TreeIndent)
		} else {
			b.WriteString(TreeContinue)
		}
	}
	if isLast {
		b.WriteString(TreeLastBranch)
	} else {
		b.WriteString(TreeBranch)
	}
	return b.String()
}

// StatusGlyph returns a one-character marker for a status
func StatusGlyph(status types.Status) string {
	switch status {
	case types.StatusPassed:
		return "✓"
	case types.StatusFailed:
		return "✗"
	case types.StatusRunning:
		return "…"
	case types.StatusDisabled:
		return "-"
	default:
		return "·"
	}
}

// StatusEmoji returns the face shown next to a spec in the live view
func StatusEmoji(status types.Status) string {
	switch status {
	case types.StatusRunning:
		return "😮"
	case types.StatusPassed:
		return "😄"
	case types.StatusFailed:
		return "😞"
	default:
		return ""
	}
}

// StatusColor returns the display color for a status
func StatusColor(status types.Status) text.Colors {
	switch status {
	case types.StatusPassed:
		return text.Colors{text.FgGreen}
	case types.StatusFailed:
		return text.Colors{text.FgRed}
	case types.StatusRunning:
		return text.Colors{text.FgYellow}
	default:
		return text.Colors{text.FgHiBlack}
	}
}

// BuildBoxHeader creates a box top with a title line. width grows to fit the
// title.
func BuildBoxHeader(title string, width int) string {
	titleLen := utf8.RuneCountInString(title)
	if width < titleLen+4 {
		width = titleLen + 4
	}
	inner := strings.Repeat(BoxHorizontal, width-2)
	return BoxTopLeft + inner + BoxTopRight + "\n" +
		BoxVertical + " " + title + strings.Repeat(" ", width-3-titleLen) + BoxVertical + "\n" +
		BoxTeeRight + inner + BoxTeeLeft + "\n"
}

// BuildBoxLine creates a content line of the given width, truncating content
// that does not fit.
func BuildBoxLine(content string, width int) string {
	maxLen := width - 4
	if utf8.RuneCountInString(content) > maxLen {
		runes := []rune(content)
		content = string(runes[:max(maxLen-3, 0)]) + "..."
	}
	padding := maxLen - utf8.RuneCountInString(content)
	return BoxVertical + " " + content + strings.Repeat(" ", max(padding, 0)+1) + BoxVertical + "\n"
}

// BuildBoxFooter creates a box bottom of the given width
func BuildBoxFooter(width int) string {
	return BoxBottomLeft + strings.Repeat(BoxHorizontal, max(width-2, 0)) + BoxBottomRight + "\n"
}

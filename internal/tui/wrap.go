package tui

import (
	"github.com/mattn/go-runewidth"
)

const ellipsis = "…"

// truncate cuts s to at most width terminal cells. Chinese glosses take two
// cells per rune, so byte or rune counts would overflow the card.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, ellipsis)
}

func runeWidth(s string) int {
	return runewidth.StringWidth(s)
}

package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

const (
	boxTopLeft     = "╒"
	boxBottomLeft  = "└"
	boxTopRight    = "╕"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"
)

const (
	AlignLeft = iota
	AlignCenter
	AlignRight

	bannerPadding   = 2
	dividerPadding  = 2
	truncateReserve = 1
	halfDivisor     = 2
)

// EnvNoBanner disables boxes when set to a true value.
const EnvNoBanner = "UOW_NO_BANNER"

// DefaultWidth is the banner width used by uowctl.
const DefaultWidth = 80

func suppressBanner() bool {
	v, err := strconv.ParseBool(os.Getenv(EnvNoBanner))

	return err == nil && v
}

// Divider returns a horizontal rule of the given width.
func Divider(width int) string {
	return fmt.Sprintf("%s%s%s\n", dividerLeft, strings.Repeat(dividerMiddle, width-dividerPadding), dividerRight)
}

// Banner draws s in a box of the given width. Lines too long for the box
// are truncated.
func Banner(s string, width int, alignment int) string {
	if suppressBanner() {
		return s + "\n"
	}

	if width <= bannerPadding {
		return ""
	}

	inner := width - bannerPadding
	parts := []string{boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight}

	for _, l := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		line, ok := pad(l, inner, alignment)
		if !ok {
			return ""
		}

		parts = append(parts, boxSide+line+boxSide)
	}

	parts = append(parts, boxBottomLeft+strings.Repeat(boxBottom, inner)+boxBottomRight)

	return strings.Join(parts, "\n") + "\n"
}

func pad(text string, width int, alignment int) (string, bool) {
	length := countGraphic(text)
	if length > width {
		text, length = truncateGraphic(text, width-truncateReserve)
		text += ellipsis
		length++
	}

	diff := width - length

	switch alignment {
	case AlignLeft:
		return text + strings.Repeat(" ", diff), true
	case AlignRight:
		return strings.Repeat(" ", diff) + text, true
	case AlignCenter:
		left := diff / halfDivisor

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", diff-left), true
	default:
		return "", false
	}
}

func countGraphic(s string) int {
	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}
	}

	return count
}

func truncateGraphic(s string, n int) (string, int) {
	var out strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		out.WriteRune(r)
	}

	return out.String(), count
}

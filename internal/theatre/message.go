package theatre

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/theatre-core/internal/device"
)

// osdWidth is the number of characters on one on-screen display line.
const osdWidth = 30

// clearMenuCommand dismisses the video processor menu so messages are visible.
const clearMenuCommand = "!"

// center pads s with spaces to width, centring it. Longer text is cut.
// Empty text stays empty so an absent line adds no blank row.
func center(s string, width int) string {
	if s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	spaces := width - len(r)
	left := spaces / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", spaces-left)
}

// showCentered clears the menu then shows each line centred on its own row.
func showCentered(ctx context.Context, vp device.VideoProcessor, d time.Duration, lines ...string) error {
	if err := vp.Send(ctx, clearMenuCommand); err != nil {
		return err
	}
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(center(l, osdWidth))
	}
	return vp.ShowMessage(ctx, b.String(), d)
}

// groupThousands formats n with comma separators: 12345 -> "12,345".
func groupThousands(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

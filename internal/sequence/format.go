package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// Format describes how an allocated value is rendered for humans.
type Format struct {
	Prefix string
	Width  int
}

// TicketFormat is the display format used for ticket numbers (TKT-000042).
var TicketFormat = Format{Prefix: "TKT", Width: 6}

// Display renders v with this format.
func (f Format) Display(v int64) string { return FormatDisplayID(v, f.Prefix, f.Width) }

// Parse is the inverse of Display.
func (f Format) Parse(s string) (int64, error) { return ParseDisplayID(s, f.Prefix) }

// FormatDisplayID zero-pads value to width digits and prepends prefix + "-".
// width is a minimum: values with more digits are never truncated.
func FormatDisplayID(value int64, prefix string, width int) string {
	if width < 0 {
		width = 0
	}
	return fmt.Sprintf("%s-%0*d", prefix, width, value)
}

// ParseDisplayID extracts the numeric value from a display ID produced by
// FormatDisplayID with the same prefix.
func ParseDisplayID(display, prefix string) (int64, error) {
	digits, ok := strings.CutPrefix(display, prefix+"-")
	if !ok || digits == "" {
		return 0, fmt.Errorf("display id %q: missing %q prefix", display, prefix+"-")
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, fmt.Errorf("display id %q: non-digit suffix", display)
		}
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("display id %q: %w", display, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("display id %q: value must be positive", display)
	}
	return v, nil
}

package ui

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/dustin/go-humanize"
)

const createdLayout = "January 2, 2006 at 3:04 PM"

// filesLabel renders a file count with the right plural.
func filesLabel(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}

// sizeLabel renders a byte count, or a dash when the store reported none.
func sizeLabel(size *int64) string {
	if size == nil || *size < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(*size))
}

// archiveLinks returns the archived page and screenshot URLs for id under the
// static host. Both are empty when static is blank or unparsable.
func archiveLinks(static, id string) (view, screenshot string) {
	static = strings.TrimSpace(static)
	if static == "" || id == "" {
		return "", ""
	}
	view, err := url.JoinPath(static, "view", id)
	if err != nil {
		return "", ""
	}
	screenshot, err = url.JoinPath(static, "ext", id, "screenshot.png")
	if err != nil {
		return "", ""
	}
	return view, screenshot
}

func createdLabel(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Local().Format(createdLayout)
}

// relativeLabel renders how long ago t was, for list rows.
func relativeLabel(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}

func helpLine(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

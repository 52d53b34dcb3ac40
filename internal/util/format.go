package util

import (
	"fmt"
	"time"
)

// FormatDuration formats a duration as m:ss, switching to h:mm:ss once the
// hour mark is crossed so long-form tracks (audiobooks, DJ sets, full-album
// FLAC rips) don't wrap into an unreadable three-digit minute count.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatBytesPerSecond renders a transfer/throughput rate for diagnostics
// (decode pump stall logs, remote-adapter debug output) using binary units.
func FormatBytesPerSecond(bps float64) string {
	const unit = 1024.0
	if bps < unit {
		return fmt.Sprintf("%.0f B/s", bps)
	}
	div, exp := unit, 0
	for n := bps / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB/s", bps/div, "KMGTPE"[exp])
}

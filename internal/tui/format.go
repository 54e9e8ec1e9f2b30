package tui

import (
	"fmt"
	"time"
)

// FormatSize renders a byte count in a compact human form
func FormatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%dB", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
	}
}

// FormatRelativeTime renders a millisecond timestamp as relative time
// (e.g., "5m ago", "2h ago")
func FormatRelativeTime(timestampMs int64) string {
	diffSecs := (time.Now().UnixMilli() - timestampMs) / 1000
	switch {
	case diffSecs < 0:
		return "just now"
	case diffSecs < 60:
		return fmt.Sprintf("%ds ago", diffSecs)
	case diffSecs < 3600:
		return fmt.Sprintf("%dm ago", diffSecs/60)
	case diffSecs < 86400:
		return fmt.Sprintf("%dh ago", diffSecs/3600)
	default:
		return fmt.Sprintf("%dd ago", diffSecs/86400)
	}
}

package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatRecords renders a full+partial record pair the way dd does.
func FormatRecords(full, partial int64) string {
	return fmt.Sprintf("%d+%d", full, partial)
}

// FormatSize renders a byte count in SI and IEC units, "5.1 kB, 5.0 KiB".
func FormatSize(b int64) string {
	if b < 0 {
		b = 0
	}
	return humanize.Bytes(uint64(b)) + ", " + humanize.IBytes(uint64(b))
}

// FormatRate renders a bytes-per-second rate in SI units.
func FormatRate(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return "0 B/s"
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// FormatSeconds renders elapsed time with six significant digits.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'g', 6, 64) + " s"
}

// FormatWholeSeconds renders elapsed time truncated to whole seconds, as
// used by the progress line.
func FormatWholeSeconds(d time.Duration) string {
	return strconv.FormatInt(int64(d/time.Second), 10) + " s"
}

// FormatDuration formats elapsed time concisely.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

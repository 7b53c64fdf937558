package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/bamsammich/ddx/internal/stats"
)

// Report builds the record and transfer statistics dd prints at exit and
// on a status request:
//
//	10+0 records in
//	10+0 records out
//	5120 bytes (5.1 kB, 5.0 KiB) copied, 0.000913 s, 5.6 MB/s
//
// The transfer line is omitted when xfer is false.
func Report(snap stats.Snapshot, xfer bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s records in\n", FormatRecords(snap.RecordsInFull, snap.RecordsInPartial))
	fmt.Fprintf(&b, "%s records out\n", FormatRecords(snap.RecordsOutFull, snap.RecordsOutPartial))
	if snap.Truncated > 0 {
		noun := "records"
		if snap.Truncated == 1 {
			noun = "record"
		}
		fmt.Fprintf(&b, "%d truncated %s\n", snap.Truncated, noun)
	}
	if xfer {
		b.WriteString(TransferLine(snap, FormatSeconds))
		b.WriteByte('\n')
	}
	return b.String()
}

// TransferLine renders the bytes copied, elapsed time and throughput.
// Counts below one kilobyte have no unit breakdown.
func TransferLine(snap stats.Snapshot, elapsed func(time.Duration) string) string {
	var amount string
	switch {
	case snap.BytesOut == 1:
		amount = "1 byte"
	case snap.BytesOut < 1000:
		amount = fmt.Sprintf("%d bytes", snap.BytesOut)
	default:
		amount = fmt.Sprintf("%d bytes (%s)", snap.BytesOut, FormatSize(snap.BytesOut))
	}
	return fmt.Sprintf("%s copied, %s, %s", amount, elapsed(snap.Elapsed), FormatRate(snap.Rate()))
}

package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/ddx/internal/stats"
)

func TestReport(t *testing.T) {
	snap := stats.Snapshot{
		RecordsInFull:  10,
		RecordsOutFull: 10,
		BytesOut:       5120,
		Elapsed:        time.Second,
	}
	want := "10+0 records in\n" +
		"10+0 records out\n" +
		"5120 bytes (5.1 kB, 5.0 KiB) copied, 1 s, 5.1 kB/s\n"
	assert.Equal(t, want, Report(snap, true))
}

func TestReportNoXfer(t *testing.T) {
	snap := stats.Snapshot{RecordsInFull: 1, RecordsInPartial: 1, RecordsOutFull: 2, BytesOut: 1000}
	assert.Equal(t, "1+1 records in\n2+0 records out\n", Report(snap, false))
}

func TestReportTruncated(t *testing.T) {
	one := Report(stats.Snapshot{Truncated: 1}, false)
	assert.Contains(t, one, "1 truncated record\n")

	many := Report(stats.Snapshot{Truncated: 3}, false)
	assert.Contains(t, many, "3 truncated records\n")
}

func TestTransferLine(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 bytes copied, 2 s, 0 B/s"},
		{"single", 1, "1 byte copied, 2 s, 0 B/s"},
		{"small", 999, "999 bytes copied, 2 s, 499 B/s"},
		{"units", 2000, "2000 bytes (2.0 kB, 2.0 KiB) copied, 2 s, 1.0 kB/s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := stats.Snapshot{BytesOut: tt.bytes, Elapsed: 2 * time.Second}
			assert.Equal(t, tt.want, TransferLine(snap, FormatWholeSeconds))
		})
	}
}

package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ddx/internal/stats"
)

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{want: "CopyStarted", typ: CopyStarted},
		{want: "StatusRequested", typ: StatusRequested},
		{want: "PartialRead", typ: PartialRead},
		{want: "ReadErrorSkipped", typ: ReadErrorSkipped},
		{want: "RecordsTruncated", typ: RecordsTruncated},
		{want: "SkipShortfall", typ: SkipShortfall},
		{want: "CopyFinished", typ: CopyFinished},
		{want: "CopyAborted", typ: CopyAborted},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.String())
		})
	}
}

func TestTypeStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Type(999).String())
	assert.Equal(t, "Unknown", Type(0).String())
}

func TestEventZeroValue(t *testing.T) {
	var e Event
	assert.Equal(t, Type(0), e.Type)
	assert.True(t, e.Timestamp.IsZero())
	assert.Empty(t, e.Path)
	assert.Zero(t, e.Offset)
	assert.Zero(t, e.Count)
	assert.Equal(t, stats.Snapshot{}, e.Stats)
	require.NoError(t, e.Error)
}

func TestEventFields(t *testing.T) {
	now := time.Now()
	e := Event{
		Type:      SkipShortfall,
		Timestamp: now,
		Path:      "disk.img",
		Count:     3,
	}
	assert.Equal(t, SkipShortfall, e.Type)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, "disk.img", e.Path)
	assert.Equal(t, int64(3), e.Count)
}

package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()
	const goroutines = 100
	const opsPerGoroutine = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			for range opsPerGoroutine {
				c.AddRecordsInFull(1)
				c.AddRecordsInPartial(1)
				c.AddRecordsOutFull(1)
				c.AddRecordsOutPartial(1)
				c.AddTruncated(1)
				c.AddBytesIn(512)
				c.AddBytesOut(256)
				c.AddExtraReads(1)
				c.AddReadErrors(1)
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	expected := int64(goroutines * opsPerGoroutine)
	assert.Equal(t, expected, s.RecordsInFull)
	assert.Equal(t, expected, s.RecordsInPartial)
	assert.Equal(t, expected, s.RecordsOutFull)
	assert.Equal(t, expected, s.RecordsOutPartial)
	assert.Equal(t, expected, s.Truncated)
	assert.Equal(t, expected*512, s.BytesIn)
	assert.Equal(t, expected*256, s.BytesOut)
	assert.Equal(t, expected, s.ExtraReads)
	assert.Equal(t, expected, s.ReadErrors)
}

func TestSnapshotString(t *testing.T) {
	s := Snapshot{
		RecordsInFull:     10,
		RecordsInPartial:  1,
		RecordsOutFull:    9,
		RecordsOutPartial: 2,
		Truncated:         3,
		BytesOut:          4096,
	}
	assert.Equal(t, "in=10+1 out=9+2 truncated=3 bytes=4096", s.String())
}

func TestSnapshotRate(t *testing.T) {
	s := Snapshot{BytesOut: 2048, Elapsed: 2 * time.Second}
	assert.InDelta(t, 1024, s.Rate(), 0.001)
	assert.Zero(t, Snapshot{BytesOut: 10}.Rate())
}

func TestRecordsIn(t *testing.T) {
	c := NewCollector()
	c.AddRecordsInFull(4)
	c.AddRecordsInPartial(1)
	full, partial := c.RecordsIn()
	assert.Equal(t, int64(4), full)
	assert.Equal(t, int64(1), partial)
}

func TestRollingSpeed(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.RollingSpeed(5))

	c.AddBytesOut(100)
	c.Tick()
	c.AddBytesOut(300)
	c.Tick()

	assert.InDelta(t, 300, c.RollingSpeed(1), 0.001)
	assert.InDelta(t, 200, c.RollingSpeed(2), 0.001)
	assert.InDelta(t, 200, c.RollingSpeed(10), 0.001)
}

func TestNewCollector(t *testing.T) {
	c := NewCollector()
	assert.False(t, c.startTime.IsZero())
	assert.InDelta(t, 0, c.Elapsed().Seconds(), 1)
}

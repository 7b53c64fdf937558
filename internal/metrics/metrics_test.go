package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ddx/internal/stats"
)

func sampleCollector() *stats.Collector {
	c := stats.NewCollector()
	c.AddRecordsInFull(3)
	c.AddRecordsInPartial(1)
	c.AddRecordsOutFull(2)
	c.AddRecordsOutPartial(2)
	c.AddTruncated(5)
	c.AddBytesIn(4000)
	c.AddBytesOut(4096)
	c.AddReadErrors(1)
	return c
}

func TestRegistryGathersCopyStats(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(sampleCollector())
	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, lp := range m.GetLabel() {
				name += "/" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				values[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				values[name] = m.GetGauge().GetValue()
			}
		}
	}

	assert.InDelta(t, 3, values["ddx_records_in_total/full"], 0)
	assert.InDelta(t, 1, values["ddx_records_in_total/partial"], 0)
	assert.InDelta(t, 2, values["ddx_records_out_total/full"], 0)
	assert.InDelta(t, 2, values["ddx_records_out_total/partial"], 0)
	assert.InDelta(t, 5, values["ddx_truncated_records_total"], 0)
	assert.InDelta(t, 4000, values["ddx_bytes_in_total"], 0)
	assert.InDelta(t, 4096, values["ddx_bytes_out_total"], 0)
	assert.InDelta(t, 0, values["ddx_extra_reads_total"], 0)
	assert.InDelta(t, 1, values["ddx_read_errors_total"], 0)
	assert.Contains(t, values, "ddx_elapsed_seconds")
	assert.Contains(t, values, "ddx_throughput_bytes_per_second")
	assert.Contains(t, values, "ddx_recent_throughput_bytes_per_second")
}

type snapshotOnly struct{ s stats.Snapshot }

func (r snapshotOnly) Snapshot() stats.Snapshot { return r.s }

func TestCollectorWithoutSampling(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(snapshotOnly{s: stats.Snapshot{BytesOut: 10}})
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		assert.NotEqual(t, "ddx_recent_throughput_bytes_per_second", mf.GetName())
	}
}

func TestSampleTicks(t *testing.T) {
	t.Parallel()

	c := stats.NewCollector()
	c.AddBytesOut(500)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Sample(ctx, c, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return c.RollingSpeed(recentWindow) > 0 }, 5*time.Second, time.Millisecond)
	cancel()
	<-done
}

func TestHandlerServesMetrics(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(Handler(NewRegistry(sampleCollector())))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `ddx_records_in_total{kind="full"} 3`)
	assert.Contains(t, string(body), "ddx_bytes_out_total 4096")
}

func TestHandlerDisabled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(Handler(nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServerServeAndShutdown(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(ln.Addr().String(), NewRegistry(stats.NewCollector()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	require.NoError(t, s.Stop(context.Background()))
}

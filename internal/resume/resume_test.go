package resume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/ddx/internal/conv"
	"github.com/bamsammich/ddx/internal/engine"
)

func baseConfig(t *testing.T) *engine.Config {
	t.Helper()
	dir := t.TempDir()
	return &engine.Config{
		Input:  filepath.Join(dir, "in"),
		Output: filepath.Join(dir, "out"),
		IBS:    4096,
		OBS:    4096,
		Count:  -1,
	}
}

func TestEligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(c *engine.Config)
		ok     bool
	}{
		{"plain copy", func(*engine.Config) {}, true},
		{"charset conversion", func(c *engine.Config) { c.Conv = conv.UCase | conv.NoTrunc }, true},
		{"stdin", func(c *engine.Config) { c.Input = "" }, false},
		{"stdout", func(c *engine.Config) { c.Output = "" }, false},
		{"reblocking", func(c *engine.Config) { c.OBS = 512 }, false},
		{"sync", func(c *engine.Config) { c.Conv = conv.Sync }, false},
		{"unblock", func(c *engine.Config) { c.Conv, c.CBS = conv.Unblock, 80 }, false},
		{"append", func(c *engine.Config) { c.Append = true }, false},
		{"count bytes", func(c *engine.Config) { c.CountBytes, c.Count = true, 10 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := baseConfig(t)
			tt.mutate(cfg)
			err := Eligible(cfg)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrNotResumable)
			}
		})
	}
}

func TestStore_OpenClose(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	s, err := Open(t.TempDir(), cfg)
	require.NoError(t, err)

	assert.FileExists(t, s.Path())
	assert.Zero(t, s.Records())
	require.NoError(t, s.Close())
}

func TestStore_RejectsIneligible(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(t)
	cfg.OBS = 512
	_, err := Open(t.TempDir(), cfg)
	assert.ErrorIs(t, err, ErrNotResumable)
}

func TestStore_Resume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t)

	// First session saves progress.
	s, err := Open(dir, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Save(3))
	require.NoError(t, s.Save(7))
	require.NoError(t, s.Close())

	// Second session starts from the saved count and adds to it.
	s, err = Open(dir, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.Records())
	require.NoError(t, s.Save(2))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	s, err = Open(dir, cfg)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, int64(9), s.Records())
}

func TestStore_SaveAfterClose(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir(), baseConfig(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Error(t, s.Save(1))
}

func TestStore_Apply(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t)
	cfg.Count = 10
	cfg.Skip = engine.Offset{Records: 1}

	s, err := Open(dir, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Save(4))
	require.NoError(t, s.Close())

	s, err = Open(dir, cfg)
	require.NoError(t, err)
	defer s.Close()

	resumed := *cfg
	s.Apply(&resumed)
	assert.Equal(t, engine.Offset{Records: 1, Bytes: 4 * 4096}, resumed.Skip)
	assert.Equal(t, engine.Offset{Bytes: 4 * 4096}, resumed.Seek)
	assert.Equal(t, int64(6), resumed.Count)
	assert.True(t, resumed.Conv.Has(conv.NoTrunc))

	// A fresh store leaves the config alone.
	fresh, err := Open(t.TempDir(), cfg)
	require.NoError(t, err)
	defer fresh.Close()
	untouched := *cfg
	fresh.Apply(&untouched)
	assert.Equal(t, *cfg, untouched)
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	s, err := Open(t.TempDir(), baseConfig(t))
	require.NoError(t, err)
	require.NoError(t, s.Save(1))
	require.NoError(t, s.Close())

	require.NoError(t, s.Remove())
	_, err = os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestJobIDDeterminism(t *testing.T) {
	t.Parallel()

	a := &engine.Config{Input: "/src/a", Output: "/dst/b", IBS: 512, OBS: 512}
	b := *a
	c := *a
	c.Output = "/dst/c"
	d := *a
	d.IBS, d.OBS = 1024, 1024

	assert.Equal(t, JobID(a), JobID(&b), "same parameters should produce same job ID")
	assert.NotEqual(t, JobID(a), JobID(&c))
	assert.NotEqual(t, JobID(a), JobID(&d))
	assert.Len(t, JobID(a), 16)
}

func TestStore_EngineRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := baseConfig(t)
	data := make([]byte, 8*4096)
	for i := range data {
		data[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(cfg.Input, data, 0o644))

	s, err := Open(dir, cfg)
	require.NoError(t, err)
	run := *cfg
	run.Count = 3
	run.Checkpoint = s
	d := engine.Run(t.Context(), run)
	require.NoError(t, d.Err)
	require.NoError(t, s.Close())

	s, err = Open(dir, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.Records())
	resumed := *cfg
	s.Apply(&resumed)
	resumed.Checkpoint = s
	d = engine.Run(t.Context(), resumed)
	require.NoError(t, d.Err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Remove())

	got, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, int64(5), d.Stats.RecordsInFull)
}

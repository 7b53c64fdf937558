package ui

import (
	"io"

	"github.com/bamsammich/ddx/internal/engine"
	"github.com/bamsammich/ddx/internal/stats"
)

// Presenter consumes engine events and displays transfer statistics.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final statistics report.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	ErrWriter io.Writer
	Stats     stats.ReadTicker
	Level     engine.StatusLevel
	IsTTY     bool
	// Width is the terminal width used to clear the progress line.
	Width int
}

// NewPresenter creates the presenter for the configured status level.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	plain := &plainPresenter{
		w:     cfg.ErrWriter,
		stats: cfg.Stats,
		xfer:  cfg.Level != engine.StatusNoXfer,
	}
	switch cfg.Level {
	case engine.StatusNone:
		return &quietPresenter{}
	case engine.StatusProgress:
		width := cfg.Width
		if width <= 0 {
			width = 80
		}
		return &progressPresenter{plainPresenter: plain, isTTY: cfg.IsTTY, width: width}
	default:
		return plain
	}
}

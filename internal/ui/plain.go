package ui

import (
	"fmt"
	"io"

	"github.com/bamsammich/ddx/internal/stats"
)

// plainPresenter prints the statistics report on status requests, after
// each skipped read error, and at exit.
type plainPresenter struct {
	w     io.Writer
	stats stats.Reader
	xfer  bool

	final    *stats.Snapshot
	reported int
}

func (p *plainPresenter) Run(events <-chan Event) error {
	for ev := range events {
		p.handleEvent(ev)
	}
	return nil
}

func (p *plainPresenter) handleEvent(ev Event) {
	switch ev.Type {
	case StatusRequested, ReadErrorSkipped:
		p.report(ev.Stats)
	case CopyFinished, CopyAborted:
		snap := ev.Stats
		p.final = &snap
	}
}

func (p *plainPresenter) report(snap stats.Snapshot) {
	fmt.Fprint(p.w, Report(snap, p.xfer))
	p.reported++
}

func (p *plainPresenter) snapshot() stats.Snapshot {
	if p.final != nil {
		return *p.final
	}
	return p.stats.Snapshot()
}

func (p *plainPresenter) Summary() string {
	return Report(p.snapshot(), p.xfer)
}

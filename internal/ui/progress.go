package ui

import (
	"fmt"
	"strings"
	"time"
)

// progressPresenter adds a once-per-second transfer line to the plain
// presenter, for status=progress. On a terminal the line is rewritten in
// place; otherwise each update is its own line.
type progressPresenter struct {
	*plainPresenter
	isTTY bool
	width int

	// lineLen is the length of the progress line currently on screen.
	lineLen int
}

func (p *progressPresenter) Run(events <-chan Event) error {
	return p.run(events, time.Second)
}

func (p *progressPresenter) run(events <-chan Event, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type == StatusRequested || ev.Type == ReadErrorSkipped {
				p.endLine()
			}
			p.handleEvent(ev)
		case <-ticker.C:
			p.tick()
		}
	}
}

func (p *progressPresenter) tick() {
	if t, ok := p.stats.(interface{ Tick() }); ok {
		t.Tick()
	}
	line := TransferLine(p.stats.Snapshot(), FormatWholeSeconds)
	if !p.isTTY {
		fmt.Fprintln(p.w, line)
		return
	}
	if len(line) > p.width {
		line = line[:p.width]
	}
	pad := max(p.lineLen-len(line), 0)
	fmt.Fprintf(p.w, "\r%s%s", line, strings.Repeat(" ", pad))
	p.lineLen = len(line)
}

// endLine moves past an in-place progress line before other output.
func (p *progressPresenter) endLine() {
	if p.lineLen > 0 {
		fmt.Fprintln(p.w)
		p.lineLen = 0
	}
}

func (p *progressPresenter) Summary() string {
	s := p.plainPresenter.Summary()
	if p.lineLen > 0 {
		p.lineLen = 0
		return "\n" + s
	}
	return s
}

package ui

// quietPresenter consumes events but produces no output, for status=none.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan Event) error {
	//nolint:revive // empty-block: intentionally draining event channel
	for range events {
	}
	return nil
}

func (p *quietPresenter) Summary() string {
	return ""
}

package tui

import "nounfill-go/internal/catalog"

// navigator is the title list of the navigation panel: the two cascading
// filters, the visible records and a scrolling cursor.
type navigator struct {
	index   *catalog.Index
	filter  catalog.Filter
	visible []catalog.Record

	cursor         int
	viewportStart  int
	viewportHeight int
}

func newNavigator(height int) navigator {
	return navigator{viewportHeight: height}
}

// load binds the navigator to a freshly fetched catalog and selects the
// initial filter.
func (n *navigator) load(ix *catalog.Index) {
	n.index = ix
	n.apply(ix.InitialFilter())
}

func (n *navigator) apply(f catalog.Filter) {
	if n.index == nil {
		return
	}
	n.filter = f
	n.visible = n.index.Filtered(f)
	n.cursor = 0
	n.viewportStart = 0
	n.updateViewport()
}

func (n *navigator) stepGroup(delta int) {
	if n.index == nil {
		return
	}
	n.apply(n.index.StepGroup(n.filter, delta))
}

func (n *navigator) stepTest(delta int) {
	if n.index == nil {
		return
	}
	n.apply(n.index.StepTest(n.filter, delta))
}

func (n *navigator) move(delta int) {
	if len(n.visible) == 0 {
		return
	}
	n.cursor = min(max(n.cursor+delta, 0), len(n.visible)-1)
	n.updateViewport()
}

func (n *navigator) selected() (catalog.Record, bool) {
	if n.cursor < 0 || n.cursor >= len(n.visible) {
		return catalog.Record{}, false
	}
	return n.visible[n.cursor], true
}

func (n *navigator) setHeight(h int) {
	n.viewportHeight = max(h, 1)
	n.updateViewport()
}

func (n *navigator) updateViewport() {
	if len(n.visible) == 0 {
		n.viewportStart = 0
		return
	}

	// If cursor is above the viewport, move viewport up
	if n.cursor < n.viewportStart {
		n.viewportStart = n.cursor
	}

	// If cursor is below the viewport, move viewport down
	if n.cursor >= n.viewportStart+n.viewportHeight {
		n.viewportStart = n.cursor - n.viewportHeight + 1
	}
}

// window returns the bounds of the visible slice of the list.
func (n *navigator) window() (start, end int) {
	start = n.viewportStart
	end = min(start+n.viewportHeight, len(n.visible))
	return start, end
}

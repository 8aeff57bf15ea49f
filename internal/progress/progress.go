// Package progress keeps the session's completion counts. Nothing here is
// persisted; the tracker lives as long as the process.
package progress

// DefaultMasteryThreshold is the completion count at which a title is mastered.
const DefaultMasteryThreshold = 2

// Tracker maps titles to completion counts. Counts never decrease.
// It is owned by the UI event loop and is not safe for concurrent use.
type Tracker struct {
	threshold int
	counts    map[string]int
	listened  map[string]struct{}
}

func New(threshold int) *Tracker {
	if threshold <= 0 {
		threshold = DefaultMasteryThreshold
	}
	return &Tracker{
		threshold: threshold,
		counts:    make(map[string]int),
		listened:  make(map[string]struct{}),
	}
}

// Complete records one correct submission and returns the new count.
func (t *Tracker) Complete(title string) int {
	t.counts[title]++
	return t.counts[title]
}

func (t *Tracker) Count(title string) int {
	return t.counts[title]
}

// Mastered reports whether title has been completed at least threshold times.
func (t *Tracker) Mastered(title string) bool {
	return t.counts[title] >= t.threshold
}

func (t *Tracker) Threshold() int {
	return t.threshold
}

// MarkListened records that title has been loaded at least once.
func (t *Tracker) MarkListened(title string) {
	if title == "" {
		return
	}
	t.listened[title] = struct{}{}
}

func (t *Tracker) Listened(title string) bool {
	_, ok := t.listened[title]
	return ok
}

// MasteredCount returns how many of the given titles are mastered.
func (t *Tracker) MasteredCount(titles []string) int {
	n := 0
	for _, title := range titles {
		if t.Mastered(title) {
			n++
		}
	}
	return n
}

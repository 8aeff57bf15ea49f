package tui

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nounfill-go/internal/catalog"
	"nounfill-go/internal/journal"
	"nounfill-go/internal/playback"
	"nounfill-go/internal/session"
)

type fakeBackend struct {
	mu         sync.Mutex
	index      *catalog.Index
	catalogErr error
	loads      []string
	sentErr    error
	checks     int
	checkErr   error
	correct    []string
}

func (f *fakeBackend) Catalog(context.Context) (*catalog.Index, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.index, nil
}

func (f *fakeBackend) Sentence(_ context.Context, title string) (session.Sentence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads = append(f.loads, title)
	if f.sentErr != nil {
		return session.Sentence{}, f.sentErr
	}
	return session.Sentence{Title: title, Text: "The cat sat on the mat by the tree.", NounCount: len(f.correct)}, nil
}

func (f *fakeBackend) Check(_ context.Context, _ string, answers []string) (session.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return session.Verdict{}, f.checkErr
	}
	ok := len(answers) == len(f.correct)
	for i := range answers {
		ok = ok && i < len(f.correct) && strings.EqualFold(strings.TrimSpace(answers[i]), f.correct[i])
	}
	return session.Verdict{IsCorrect: ok, CorrectNouns: f.correct}, nil
}

type fakeAudio struct{}

func (fakeAudio) Path(_ context.Context, title string) (string, error) {
	return "/tmp/" + title + ".mp3", nil
}

type fakePlayer struct {
	mu     sync.Mutex
	speeds []playback.Speed
}

func (p *fakePlayer) Play(_ context.Context, _ string, speed playback.Speed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.speeds = append(p.speeds, speed)
	return nil
}

func testIndex() *catalog.Index {
	return catalog.NewIndex(
		[]catalog.Record{
			{Title: "c18t1s1", Cambridge: "C18", Test: "Test1"},
			{Title: "c18t2s1", Cambridge: "C18", Test: "Test2"},
			{Title: "c19t1s1", Cambridge: "C19", Test: "Test1"},
		},
		[]string{"C18", "C19"},
		map[string][]string{"C18": {"Test1", "Test2"}, "C19": {"Test1"}},
	)
}

func newTestModel(t *testing.T, b *fakeBackend) (*Model, *fakePlayer) {
	t.Helper()
	j, err := journal.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	p := &fakePlayer{}
	m := New(context.Background(), Options{
		Backend:      b,
		Audio:        fakeAudio{},
		Player:       p,
		Journal:      j,
		AdvanceDelay: time.Millisecond,
		ReplayDelay:  time.Millisecond,
		Rand:         rand.New(rand.NewSource(1)),
	})
	return m, p
}

// collect runs cmd and flattens batches. Commands that block longer than a
// short timeout, like cursor blinks, are dropped.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, collect(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

func step(m *Model, msg tea.Msg) []tea.Msg {
	_, cmd := m.Update(msg)
	return collect(cmd)
}

func find[T tea.Msg](msgs []tea.Msg) (T, bool) {
	for _, msg := range msgs {
		if v, ok := msg.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func mustFind[T tea.Msg](t *testing.T, msgs []tea.Msg) T {
	t.Helper()
	v, ok := find[T](msgs)
	if !ok {
		t.Fatalf("no %T among %d messages", v, len(msgs))
	}
	return v
}

// start delivers the catalog and the first sentence and returns the
// messages produced by the load.
func start(t *testing.T, m *Model) []tea.Msg {
	t.Helper()
	msgs := step(m, catalogLoadedMsg{index: testIndex()})
	return step(m, mustFind[sentenceLoadedMsg](t, msgs))
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func key(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}

func TestModel_StartupLoadsRandomSentence(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat", "mat", "tree"}}
	m, p := newTestModel(t, b)

	msgs := start(t, m)
	if m.session.Phase() != session.PhaseReady {
		t.Fatalf("phase = %v", m.session.Phase())
	}
	if len(m.inputs) != 3 || !m.inputs[0].Focused() {
		t.Errorf("inputs = %d, first focused = %v", len(m.inputs), len(m.inputs) > 0 && m.inputs[0].Focused())
	}
	if m.nav.filter != (catalog.Filter{Group: "C18", Test: "Test1"}) {
		t.Errorf("filter = %+v", m.nav.filter)
	}

	ready := mustFind[audioReadyMsg](t, msgs)
	if ready.gen != m.session.Generation() {
		t.Errorf("ready gen = %d, want %d", ready.gen, m.session.Generation())
	}
	ended := mustFind[playbackEndedMsg](t, step(m, ready))
	if len(p.speeds) != 1 || p.speeds[0] != playback.SpeedNormal {
		t.Errorf("speeds = %v", p.speeds)
	}
	// Not looping: a natural end does nothing.
	if msgs := step(m, ended); len(msgs) != 0 {
		t.Errorf("unexpected messages after end: %v", msgs)
	}
	if m.playback.Plays() != 0 {
		t.Errorf("plays = %d", m.playback.Plays())
	}
}

func TestModel_BlankSubmitNeverCallsBackend(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat", "mat"}}
	m, _ := newTestModel(t, b)
	start(t, m)

	typeText(m, "cat")
	if msgs := step(m, key(tea.KeyEnter)); len(msgs) != 0 {
		t.Errorf("enter with a blank slot produced %v", msgs)
	}
	if b.checks != 0 {
		t.Errorf("checks = %d", b.checks)
	}
	if msg, _ := m.session.Message(); msg != session.MsgBlank {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(m.View(), session.MsgBlank) {
		t.Error("view does not show the blank message")
	}
}

func TestModel_TypingFillsSlots(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat", "mat", "tree"}}
	m, _ := newTestModel(t, b)
	start(t, m)

	typeText(m, "cat")
	m.Update(key(tea.KeyTab))
	typeText(m, "mat")
	m.Update(key(tea.KeyTab))
	typeText(m, "tree")
	m.Update(key(tea.KeyTab))
	if m.slot != 0 {
		t.Errorf("tab from the last slot should wrap, slot = %d", m.slot)
	}
	m.Update(key(tea.KeyShiftTab))
	if m.slot != 2 {
		t.Errorf("shift+tab should wrap back, slot = %d", m.slot)
	}

	if got := m.session.Active().Answers; !reflect.DeepEqual(got, []string{"cat", "mat", "tree"}) {
		t.Errorf("answers = %v", got)
	}
}

func fill(m *Model, words ...string) {
	for i, w := range words {
		m.focusSlot(i)
		m.inputs[i].SetValue(w)
		m.session.SetAnswer(i, w)
	}
}

func TestModel_CorrectAnswerAdvances(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat", "mat"}}
	m, _ := newTestModel(t, b)
	start(t, m)
	first := m.session.Title()

	fill(m, "Cat ", "mat")
	verdict := mustFind[verdictMsg](t, step(m, key(tea.KeyEnter)))
	if m.session.Phase() != session.PhaseSubmitting {
		t.Fatalf("phase = %v", m.session.Phase())
	}

	msgs := step(m, verdict)
	if m.session.Phase() != session.PhaseAdvancing {
		t.Fatalf("phase = %v", m.session.Phase())
	}
	if m.progress.Count(first) != 1 {
		t.Errorf("count = %d", m.progress.Count(first))
	}
	stats := mustFind[statsReloadedMsg](t, msgs)
	step(m, stats)
	if m.summary.Attempts != 1 || m.summary.Correct != 1 || m.summary.Solved != 1 {
		t.Errorf("summary = %+v", m.summary)
	}

	adv := mustFind[advanceMsg](t, msgs)
	loaded := mustFind[sentenceLoadedMsg](t, step(m, adv))
	if loaded.ticket.Selector != session.SelectRandom {
		t.Errorf("selector = %v", loaded.ticket.Selector)
	}
	step(m, loaded)
	if m.session.Phase() != session.PhaseReady {
		t.Errorf("phase = %v", m.session.Phase())
	}
}

func TestModel_ExhaustionLocksInput(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat", "tree", "book"}}
	m, _ := newTestModel(t, b)
	start(t, m)

	fill(m, "Cat", "dog", "Book")
	for i := 1; i <= 5; i++ {
		verdict := mustFind[verdictMsg](t, step(m, key(tea.KeyEnter)))
		step(m, verdict)
		a := m.session.Active()
		if a.ErrorCount != i {
			t.Fatalf("errors = %d, want %d", a.ErrorCount, i)
		}
		if i == 1 {
			if msg, _ := m.session.Message(); msg != "Incorrect. You have 4 attempts remaining." {
				t.Errorf("message = %q", msg)
			}
			if !reflect.DeepEqual(a.InputStatus, []bool{true, false, true}) {
				t.Errorf("status = %v", a.InputStatus)
			}
		}
		if a.Revealed != (i >= 3) {
			t.Errorf("after %d errors revealed = %v", i, a.Revealed)
		}
	}

	if m.session.Phase() != session.PhaseLocked {
		t.Fatalf("phase = %v", m.session.Phase())
	}
	if msgs := step(m, key(tea.KeyEnter)); len(msgs) != 0 {
		t.Errorf("sixth submit produced %v", msgs)
	}
	if b.checks != 5 {
		t.Errorf("checks = %d", b.checks)
	}
	typeText(m, "x")
	if got := m.session.Active().Answers[0]; got != "Cat" {
		t.Errorf("locked slot changed to %q", got)
	}
	if view := m.View(); !strings.Contains(view, "Correct nouns: cat, tree, book") {
		t.Error("view does not list the correct nouns")
	}
}

func TestModel_CheckFailureKeepsState(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}, checkErr: errors.New("boom")}
	m, _ := newTestModel(t, b)
	start(t, m)

	fill(m, "dog")
	step(m, mustFind[verdictMsg](t, step(m, key(tea.KeyEnter))))
	if m.session.Phase() != session.PhaseReady || m.session.Active().ErrorCount != 0 {
		t.Errorf("phase = %v errors = %d", m.session.Phase(), m.session.Active().ErrorCount)
	}
	if msg, _ := m.session.Message(); msg != session.MsgCheckFailed {
		t.Errorf("message = %q", msg)
	}
}

func TestModel_StaleSentenceIsDiscarded(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, _ := newTestModel(t, b)
	start(t, m)

	m.Update(key(tea.KeyEsc))
	m.Update(key(tea.KeyRight)) // C19
	older := mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyEnter)))
	m.Update(key(tea.KeyLeft)) // C18
	newer := mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyEnter)))

	step(m, newer)
	if msgs := step(m, older); len(msgs) != 0 {
		t.Errorf("stale load produced %v", msgs)
	}
	if got := m.session.Title(); got != "c18t1s1" {
		t.Errorf("title = %q, want c18t1s1", got)
	}
	if older.sentence.Title != "c19t1s1" {
		t.Errorf("older title = %q", older.sentence.Title)
	}
}

func TestModel_StaleAudioIsIgnored(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, p := newTestModel(t, b)
	ready := mustFind[audioReadyMsg](t, start(t, m))

	step(m, mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyCtrlN))))
	if msgs := step(m, ready); len(msgs) != 0 {
		t.Errorf("stale audio produced %v", msgs)
	}
	if len(p.speeds) != 0 {
		t.Errorf("stale audio was played: %v", p.speeds)
	}
}

func TestModel_LoopSlowdownAndReveal(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, p := newTestModel(t, b)
	ready := mustFind[audioReadyMsg](t, start(t, m))

	m.Update(key(tea.KeyCtrlL))
	ended := mustFind[playbackEndedMsg](t, step(m, ready))
	for i := 1; i <= 12; i++ {
		replay := mustFind[replayMsg](t, step(m, ended))
		if m.playback.Plays() != i {
			t.Fatalf("plays = %d, want %d", m.playback.Plays(), i)
		}
		if got := m.session.Active().Revealed; got != (i >= 12) {
			t.Fatalf("after %d plays revealed = %v", i, got)
		}
		ended = mustFind[playbackEndedMsg](t, step(m, replay))
	}

	if len(p.speeds) != 13 {
		t.Fatalf("plays started = %d", len(p.speeds))
	}
	want := playback.SpeedNormal
	for i, s := range p.speeds {
		if i == 6 {
			want = playback.SpeedSlow
		}
		if s != want {
			t.Errorf("play %d speed = %v, want %v", i, s, want)
		}
	}

	m.Update(key(tea.KeyCtrlL))
	if msgs := step(m, ended); len(msgs) != 0 {
		t.Errorf("end with loop off produced %v", msgs)
	}
}

func TestModel_ManualReplaySupersedesRunningClip(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, p := newTestModel(t, b)
	ready := mustFind[audioReadyMsg](t, start(t, m))

	m.Update(key(tea.KeyCtrlL))
	first := mustFind[playbackEndedMsg](t, step(m, ready))
	m.Update(key(tea.KeyCtrlT)) // restarts the running clip at 1.2x
	second := mustFind[playbackEndedMsg](t, step(m, key(tea.KeyCtrlR)))

	if msgs := step(m, first); len(msgs) != 0 {
		t.Errorf("superseded end produced %v", msgs)
	}
	if m.playback.Plays() != 0 {
		t.Errorf("plays = %d", m.playback.Plays())
	}
	step(m, second)
	if m.playback.Plays() != 1 {
		t.Errorf("plays = %d", m.playback.Plays())
	}
	if got := p.speeds[len(p.speeds)-1]; got != playback.SpeedFast {
		t.Errorf("speed = %v", got)
	}
}

func TestModel_NavigationFilters(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, _ := newTestModel(t, b)
	start(t, m)

	m.Update(key(tea.KeyEsc))
	if m.focus != focusNav {
		t.Fatal("esc should focus the panel")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	if m.nav.filter != (catalog.Filter{Group: "C18", Test: "Test2"}) {
		t.Errorf("filter = %+v", m.nav.filter)
	}
	m.Update(key(tea.KeyRight))
	if m.nav.filter != (catalog.Filter{Group: "C19", Test: "Test1"}) {
		t.Errorf("group change should reset the test, filter = %+v", m.nav.filter)
	}
	m.Update(key(tea.KeyRight))
	if m.nav.filter.Group != "C18" {
		t.Errorf("group should wrap, filter = %+v", m.nav.filter)
	}

	loaded := mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyEnter)))
	if loaded.ticket.Selector != session.SelectTitle || loaded.ticket.Title != "c18t1s1" {
		t.Errorf("ticket = %+v", loaded.ticket)
	}
	step(m, loaded)
	if m.focus != focusAnswers {
		t.Error("a load should focus the answers")
	}
}

func TestModel_JumpToMasteredTitle(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, _ := newTestModel(t, b)
	start(t, m)
	m.progress.Complete("c18t1s1")
	m.progress.Complete("c18t1s1")

	m.Update(key(tea.KeyEsc))
	step(m, mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyEnter))))
	if m.session.Title() != "c18t1s1" {
		t.Errorf("title = %q", m.session.Title())
	}
}

func TestModel_AllComplete(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, _ := newTestModel(t, b)
	start(t, m)
	for _, title := range testIndex().Titles() {
		m.progress.Complete(title)
		m.progress.Complete(title)
	}

	if msgs := step(m, key(tea.KeyCtrlN)); len(msgs) != 0 {
		t.Errorf("ctrl+n with everything mastered produced %v", msgs)
	}
	if m.session.Phase() != session.PhaseFinished {
		t.Errorf("phase = %v", m.session.Phase())
	}
	if !strings.Contains(m.View(), session.MsgAllComplete) {
		t.Error("view does not show the completion message")
	}
}

func TestModel_CatalogFailureAndRetry(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}, catalogErr: errors.New("down")}
	m, _ := newTestModel(t, b)

	m.Update(catalogLoadedMsg{err: b.catalogErr})
	if !strings.Contains(m.View(), msgCatalogFailed) {
		t.Errorf("view = %q", m.View())
	}

	b.catalogErr = nil
	b.index = testIndex()
	loaded := mustFind[catalogLoadedMsg](t, step(m, key(tea.KeyCtrlN)))
	mustFind[sentenceLoadedMsg](t, step(m, loaded))
	if m.catalog == nil {
		t.Error("catalog not installed after retry")
	}
}

func TestModel_LoadFailureKeepsSentence(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, _ := newTestModel(t, b)
	start(t, m)
	title := m.session.Title()
	fill(m, "dog")

	b.sentErr = errors.New("down")
	step(m, mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyCtrlN))))
	if m.session.Title() != title || m.session.Phase() != session.PhaseReady {
		t.Errorf("title = %q phase = %v", m.session.Title(), m.session.Phase())
	}
	if got := m.session.Active().Answers; !reflect.DeepEqual(got, []string{"dog"}) {
		t.Errorf("answers = %v", got)
	}
	if msg, _ := m.session.Message(); msg != session.MsgFetchFailed {
		t.Errorf("message = %q", msg)
	}
}

func TestModel_LoadFailureDuringCheckAllowsResubmit(t *testing.T) {
	b := &fakeBackend{correct: []string{"cat"}}
	m, _ := newTestModel(t, b)
	start(t, m)
	title := m.session.Title()
	fill(m, "dog")

	pending := mustFind[verdictMsg](t, step(m, key(tea.KeyEnter)))
	b.sentErr = errors.New("down")
	step(m, mustFind[sentenceLoadedMsg](t, step(m, key(tea.KeyCtrlN))))
	step(m, pending)

	if m.session.Title() != title || m.session.Phase() != session.PhaseReady {
		t.Fatalf("title = %q phase = %v", m.session.Title(), m.session.Phase())
	}
	if a := m.session.Active(); a.ErrorCount != 0 {
		t.Errorf("stale verdict counted: errors = %d", a.ErrorCount)
	}
	verdict := mustFind[verdictMsg](t, step(m, key(tea.KeyEnter)))
	step(m, verdict)
	if got := m.session.Active().ErrorCount; got != 1 {
		t.Errorf("errors after resubmit = %d, want 1", got)
	}
}

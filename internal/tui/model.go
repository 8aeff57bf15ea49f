// Package tui is the interactive session: a bubbletea program that owns the
// session controller, the playback coordinator and the navigation panel.
// Update is the only place where any of that state changes; every backend
// call and every clip runs as a tea.Cmd whose result comes back as a message.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"nounfill-go/internal/catalog"
	"nounfill-go/internal/journal"
	"nounfill-go/internal/playback"
	"nounfill-go/internal/progress"
	"nounfill-go/internal/session"
)

// Backend is the part of the API client the session needs.
type Backend interface {
	Catalog(ctx context.Context) (*catalog.Index, error)
	Sentence(ctx context.Context, title string) (session.Sentence, error)
	Check(ctx context.Context, sentence string, answers []string) (session.Verdict, error)
}

// AudioSource resolves a title to a local, fully downloaded clip.
type AudioSource interface {
	Path(ctx context.Context, title string) (string, error)
}

type Journal interface {
	RecordAttempt(ctx context.Context, a journal.Attempt) error
	RecordResult(ctx context.Context, r journal.Result) error
	Stats(ctx context.Context) (map[string]journal.TitleStat, error)
	Summary(ctx context.Context) (journal.Summary, error)
}

// Options wires the model. Backend is required; a nil Audio, Player or
// Journal disables that concern.
type Options struct {
	Backend Backend
	Audio   AudioSource
	Player  playback.Player
	Journal Journal
	Log     logrus.FieldLogger

	Session          session.Rules
	Playback         playback.Rules
	MasteryThreshold int
	AdvanceDelay     time.Duration
	ReplayDelay      time.Duration
	Rand             *rand.Rand
}

type focusArea int

const (
	focusAnswers focusArea = iota
	focusNav
)

const navHeight = 15

type Model struct {
	ctx  context.Context
	opts Options
	log  logrus.FieldLogger

	session  *session.Controller
	playback *playback.Coordinator
	progress *progress.Tracker

	catalog    *catalog.Index
	catalogErr error
	nav        navigator

	inputs  []textinput.Model
	slot    int
	focus   focusArea
	spinner spinner.Model

	stats     map[string]journal.TitleStat
	summary   journal.Summary
	startedAt time.Time

	audioPath  string
	playID     int
	playing    bool
	cancelPlay context.CancelFunc

	width int
}

func New(ctx context.Context, opts Options) *Model {
	if opts.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		opts.Log = l
	}
	if opts.Player == nil {
		opts.Player = playback.Disabled{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Session.MaxAttempts <= 0 {
		opts.Session = session.DefaultRules()
	}
	if opts.Playback.SlowdownAfter <= 0 && opts.Playback.RevealAfter <= 0 {
		opts.Playback = playback.DefaultRules()
	}
	if opts.AdvanceDelay <= 0 {
		opts.AdvanceDelay = 1500 * time.Millisecond
	}
	if opts.ReplayDelay <= 0 {
		opts.ReplayDelay = 200 * time.Millisecond
	}

	tracker := progress.New(opts.MasteryThreshold)
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleCursor

	return &Model{
		ctx:      ctx,
		opts:     opts,
		log:      opts.Log,
		session:  session.NewController(opts.Session, tracker, opts.Rand),
		playback: playback.NewCoordinator(opts.Playback),
		progress: tracker,
		nav:      newNavigator(navHeight),
		spinner:  sp,
		stats:    map[string]journal.TitleStat{},
		width:    100,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, loadCatalogCmd(m.ctx, m.opts.Backend))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.nav.setHeight(msg.Height - 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case catalogLoadedMsg:
		return m, m.onCatalog(msg)

	case sentenceLoadedMsg:
		return m, m.onSentence(msg)

	case verdictMsg:
		return m, m.onVerdict(msg)

	case advanceMsg:
		if !m.session.Advance(msg.gen) {
			return m, nil
		}
		return m, m.nextRandom()

	case audioReadyMsg:
		if msg.gen != m.session.Generation() {
			return m, nil
		}
		if msg.err != nil {
			m.log.WithError(msg.err).WithField("title", m.session.Title()).Debug("audio not available")
			return m, nil
		}
		m.audioPath = msg.path
		return m, m.play()

	case playbackEndedMsg:
		return m, m.onPlaybackEnded(msg)

	case replayMsg:
		if msg.playID != m.playID || m.playing || !m.playback.Looping() {
			return m, nil
		}
		return m, m.play()

	case statsReloadedMsg:
		if msg.err != nil {
			m.log.WithError(msg.err).Warn("journal update failed")
		}
		if msg.stats != nil {
			m.stats = msg.stats
			m.summary = msg.summary
		}
		return m, nil

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m *Model) onCatalog(msg catalogLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.catalogErr = msg.err
		m.log.WithError(msg.err).Warn("catalog load failed")
		return nil
	}
	m.catalogErr = nil
	m.catalog = msg.index
	m.nav.load(msg.index)
	return m.nextRandom()
}

// nextRandom loads a random unfinished title. Without a catalog it retries
// the catalog instead.
func (m *Model) nextRandom() tea.Cmd {
	if m.catalog == nil {
		m.catalogErr = nil
		return loadCatalogCmd(m.ctx, m.opts.Backend)
	}
	t, err := m.session.BeginRandom(m.catalog.Records)
	if errors.Is(err, session.ErrAllComplete) {
		m.stopPlayback()
		m.log.WithField("titles", m.catalog.Len()).Info("all sentences completed")
		return nil
	}
	return loadSentenceCmd(m.ctx, m.opts.Backend, t)
}

func (m *Model) jump(title string) tea.Cmd {
	t := m.session.BeginTitle(title)
	return loadSentenceCmd(m.ctx, m.opts.Backend, t)
}

func (m *Model) onSentence(msg sentenceLoadedMsg) tea.Cmd {
	entry := m.log.WithFields(logrus.Fields{"title": msg.ticket.Title, "gen": msg.ticket.Gen})
	if msg.err != nil {
		if m.session.Fail(msg.ticket) {
			entry.WithError(msg.err).Warn("sentence load failed")
		}
		return nil
	}
	if !m.session.Complete(msg.ticket, msg.sentence) {
		entry.Debug("discarding stale sentence")
		return nil
	}

	title := m.session.Title()
	m.stopPlayback()
	m.playback.Reset(title)
	m.audioPath = ""
	m.startedAt = time.Now()

	focus := m.resetInputs(m.session.Active().NounCount)
	m.focus = focusAnswers
	entry.WithField("nouns", len(m.inputs)).Debug("sentence loaded")

	if m.opts.Audio == nil {
		return focus
	}
	return tea.Batch(focus, fetchAudioCmd(m.ctx, m.opts.Audio, m.session.Generation(), title))
}

func (m *Model) resetInputs(n int) tea.Cmd {
	m.inputs = make([]textinput.Model, n)
	for i := range m.inputs {
		ti := textinput.New()
		ti.Placeholder = fmt.Sprintf("noun %d", i+1)
		ti.Prompt = ""
		ti.CharLimit = 40
		ti.Width = 14
		m.inputs[i] = ti
	}
	m.slot = 0
	if n == 0 {
		return nil
	}
	return m.inputs[0].Focus()
}

func (m *Model) submit() tea.Cmd {
	sub, err := m.session.PrepareSubmit()
	if err != nil {
		if !errors.Is(err, session.ErrBlankAnswer) {
			m.log.WithError(err).WithField("phase", m.session.Phase()).Debug("submit ignored")
		}
		return nil
	}
	return checkCmd(m.ctx, m.opts.Backend, sub)
}

func (m *Model) onVerdict(msg verdictMsg) tea.Cmd {
	entry := m.log.WithField("title", msg.sub.Title)
	if msg.err != nil {
		if m.session.FailSubmit(msg.sub) {
			entry.WithError(msg.err).Warn("answer check failed")
		}
		return nil
	}

	outcome := m.session.ApplyVerdict(msg.sub, msg.verdict)
	if outcome == session.OutcomeStale {
		entry.Debug("discarding stale verdict")
		return nil
	}
	a := m.session.Active()
	entry.WithFields(logrus.Fields{
		"correct": msg.verdict.IsCorrect,
		"errors":  a.ErrorCount,
	}).Info("answers checked")

	attempt := journal.Attempt{
		Title:      a.Title,
		Answers:    msg.sub.Answers,
		Correct:    msg.verdict.IsCorrect,
		ErrorCount: a.ErrorCount,
	}
	var result *journal.Result
	switch outcome {
	case session.OutcomeCorrect:
		result = &journal.Result{Title: a.Title, Successful: true, Attempts: a.ErrorCount + 1, Duration: time.Since(m.startedAt)}
	case session.OutcomeExhausted:
		result = &journal.Result{Title: a.Title, Successful: false, Attempts: a.ErrorCount, Duration: time.Since(m.startedAt)}
	}

	var cmds []tea.Cmd
	if m.opts.Journal != nil {
		cmds = append(cmds, recordCmd(m.ctx, m.opts.Journal, attempt, result))
	}
	if outcome == session.OutcomeCorrect {
		cmds = append(cmds, advanceCmd(m.opts.AdvanceDelay, msg.sub.Gen))
	}
	return tea.Batch(cmds...)
}

// play starts the current clip from the beginning, stopping any running one.
func (m *Model) play() tea.Cmd {
	if m.audioPath == "" {
		return nil
	}
	m.stopPlayback()
	m.playID++
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelPlay = cancel
	m.playing = true
	return playCmd(ctx, m.opts.Player, m.playID, m.audioPath, m.playback.Speed())
}

// stopPlayback cancels the running clip. Its end message is ignored.
func (m *Model) stopPlayback() {
	if m.cancelPlay != nil {
		m.cancelPlay()
		m.cancelPlay = nil
	}
	m.playing = false
	m.playID++
}

func (m *Model) onPlaybackEnded(msg playbackEndedMsg) tea.Cmd {
	if msg.playID != m.playID {
		return nil
	}
	m.playing = false
	if m.cancelPlay != nil {
		m.cancelPlay()
		m.cancelPlay = nil
	}
	if msg.err != nil {
		if !errors.Is(msg.err, playback.ErrDisabled) && !errors.Is(msg.err, context.Canceled) {
			m.log.WithError(msg.err).WithField("title", m.playback.Title()).Debug("playback failed")
		}
		return nil
	}

	eff := m.playback.Ended()
	if eff.Reveal {
		m.session.Reveal()
	}
	if eff.SpeedChanged {
		m.log.WithField("speed", m.playback.Speed()).Debug("playback slowed down")
	}
	if !eff.Replay {
		return nil
	}
	return replayCmd(m.opts.ReplayDelay, m.playID)
}

func (m *Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.stopPlayback()
		return m, tea.Quit
	case tea.KeyEsc:
		return m, m.toggleFocus()
	case tea.KeyCtrlN:
		return m, m.nextRandom()
	case tea.KeyCtrlR:
		return m, m.play()
	case tea.KeyCtrlL:
		m.playback.ToggleLoop()
		return m, nil
	case tea.KeyCtrlT:
		m.playback.CycleSpeed()
		if m.playing {
			return m, m.play()
		}
		return m, nil
	}

	if m.focus == focusNav {
		return m, m.onNavKey(msg)
	}
	return m, m.onAnswerKey(msg)
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusAnswers {
		m.focus = focusNav
		if m.slot < len(m.inputs) {
			m.inputs[m.slot].Blur()
		}
		return nil
	}
	m.focus = focusAnswers
	return m.focusSlot(m.slot)
}

func (m *Model) onNavKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyUp:
		m.nav.move(-1)
	case tea.KeyDown:
		m.nav.move(1)
	case tea.KeyLeft:
		m.nav.stepGroup(-1)
	case tea.KeyRight:
		m.nav.stepGroup(1)
	case tea.KeyEnter:
		if r, ok := m.nav.selected(); ok {
			return m.jump(r.Title)
		}
	case tea.KeyRunes:
		switch string(msg.Runes) {
		case "k":
			m.nav.move(-1)
		case "j":
			m.nav.move(1)
		case "[":
			m.nav.stepTest(-1)
		case "]":
			m.nav.stepTest(1)
		}
	}
	return nil
}

func (m *Model) onAnswerKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		return m.submit()
	case tea.KeyTab, tea.KeyDown:
		return m.focusSlot(m.slot + 1)
	case tea.KeyShiftTab, tea.KeyUp:
		return m.focusSlot(m.slot - 1)
	}

	switch m.session.Phase() {
	case session.PhaseIdle, session.PhaseLoading, session.PhaseLocked:
		return nil
	}
	if m.slot >= len(m.inputs) {
		return nil
	}
	var cmd tea.Cmd
	m.inputs[m.slot], cmd = m.inputs[m.slot].Update(msg)
	m.session.SetAnswer(m.slot, m.inputs[m.slot].Value())
	return cmd
}

// focusSlot moves the cursor to answer slot i, wrapping around.
func (m *Model) focusSlot(i int) tea.Cmd {
	n := len(m.inputs)
	if n == 0 {
		return nil
	}
	i = ((i % n) + n) % n
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.slot = i
	return m.inputs[i].Focus()
}

// Summary returns the journal totals as last reloaded.
func (m *Model) Summary() journal.Summary {
	return m.summary
}

// Mastered returns how many catalog titles reached the mastery threshold.
func (m *Model) Mastered() (mastered, total int) {
	if m.catalog == nil {
		return 0, 0
	}
	return m.progress.MasteredCount(m.catalog.Titles()), m.catalog.Len()
}

package tui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"nounfill-go/internal/catalog"
	"nounfill-go/internal/journal"
	"nounfill-go/internal/playback"
	"nounfill-go/internal/session"
)

type catalogLoadedMsg struct {
	index *catalog.Index
	err   error
}

type sentenceLoadedMsg struct {
	ticket   session.Ticket
	sentence session.Sentence
	err      error
}

type verdictMsg struct {
	sub     session.Submission
	verdict session.Verdict
	err     error
}

type advanceMsg struct {
	gen uint64
}

// audioReadyMsg is the ready signal of a title's clip.
type audioReadyMsg struct {
	gen  uint64
	path string
	err  error
}

type playbackEndedMsg struct {
	playID int
	err    error
}

type replayMsg struct {
	playID int
}

type statsReloadedMsg struct {
	stats   map[string]journal.TitleStat
	summary journal.Summary
	err     error
}

func loadCatalogCmd(ctx context.Context, b Backend) tea.Cmd {
	return func() tea.Msg {
		ix, err := b.Catalog(ctx)
		return catalogLoadedMsg{index: ix, err: err}
	}
}

func loadSentenceCmd(ctx context.Context, b Backend, t session.Ticket) tea.Cmd {
	return func() tea.Msg {
		s, err := b.Sentence(ctx, t.Title)
		return sentenceLoadedMsg{ticket: t, sentence: s, err: err}
	}
}

func checkCmd(ctx context.Context, b Backend, sub session.Submission) tea.Cmd {
	return func() tea.Msg {
		v, err := b.Check(ctx, sub.Sentence, sub.Answers)
		return verdictMsg{sub: sub, verdict: v, err: err}
	}
}

func advanceCmd(d time.Duration, gen uint64) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return advanceMsg{gen: gen}
	})
}

func fetchAudioCmd(ctx context.Context, a AudioSource, gen uint64, title string) tea.Cmd {
	return func() tea.Msg {
		path, err := a.Path(ctx, title)
		return audioReadyMsg{gen: gen, path: path, err: err}
	}
}

func playCmd(ctx context.Context, p playback.Player, id int, path string, speed playback.Speed) tea.Cmd {
	return func() tea.Msg {
		err := p.Play(ctx, path, speed)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		return playbackEndedMsg{playID: id, err: err}
	}
}

func replayCmd(d time.Duration, id int) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return replayMsg{playID: id}
	})
}

// recordCmd writes the attempt, and the result when the sentence is over,
// then reloads the stats so the panel reflects the write.
func recordCmd(ctx context.Context, j Journal, a journal.Attempt, r *journal.Result) tea.Cmd {
	return func() tea.Msg {
		var errs []error
		if err := j.RecordAttempt(ctx, a); err != nil {
			errs = append(errs, err)
		}
		if r != nil {
			if err := j.RecordResult(ctx, *r); err != nil {
				errs = append(errs, err)
			}
		}
		msg := reloadStats(ctx, j)
		msg.err = errors.Join(append(errs, msg.err)...)
		return msg
	}
}

func reloadStats(ctx context.Context, j Journal) statsReloadedMsg {
	stats, err := j.Stats(ctx)
	if err != nil {
		return statsReloadedMsg{err: err}
	}
	summary, err := j.Summary(ctx)
	if err != nil {
		return statsReloadedMsg{err: err}
	}
	return statsReloadedMsg{stats: stats, summary: summary}
}

// Package session implements the active-sentence state machine: selecting
// and loading a sentence, validating and submitting answers, counting
// attempts and recording completions.
//
// The controller performs no I/O. Loads and submissions are split into a
// Begin/Prepare step that returns a ticket and an Apply/Fail step that takes
// the ticket back, so responses from superseded loads can be discarded by
// generation.
package session

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"strings"

	"github.com/samber/lo"

	"nounfill-go/internal/catalog"
	"nounfill-go/internal/progress"
)

var (
	ErrBlankAnswer = errors.New("answer slot is blank")
	ErrLocked      = errors.New("maximum attempts reached")
	ErrBusy        = errors.New("session is not ready for submission")
	ErrAllComplete = errors.New("all sentences are completed")
)

const (
	MsgBlank         = "Please fill in all blanks before submitting."
	MsgCorrect       = "Correct! Moving to next sentence..."
	MsgExhausted     = "Maximum attempts reached. Here are the correct answers."
	MsgCheckFailed   = "Error checking answers. Please try again."
	MsgFetchFailed   = "Error fetching sentence. Please try again."
	MsgJumpFailed    = "Error loading sentence."
	MsgAllComplete   = "Congratulations, all sentences are completed!"
	msgIncorrectTmpl = "Incorrect. You have %d attempts remaining."
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseSubmitting
	PhaseAdvancing
	PhaseLocked
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseSubmitting:
		return "submitting"
	case PhaseAdvancing:
		return "advancing"
	case PhaseLocked:
		return "locked"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Selector says how a load picked its title.
type Selector int

const (
	SelectRandom Selector = iota // random unfinished title
	SelectTitle                  // explicit jump, ignores completion
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

// Sentence is what the backend returns for a title.
type Sentence struct {
	Title     string
	Text      string
	NounCount int
}

// Verdict is the backend's answer check.
type Verdict struct {
	IsCorrect    bool
	CorrectNouns []string
}

// Ticket identifies one load. Only the ticket of the latest load is honoured.
type Ticket struct {
	Gen      uint64
	Title    string
	Selector Selector
}

// Submission is a snapshot of the answers sent to the checker.
type Submission struct {
	Gen      uint64
	Title    string
	Sentence string
	Answers  []string
}

type Outcome int

const (
	OutcomeStale Outcome = iota
	OutcomeCorrect
	OutcomeIncorrect
	OutcomeExhausted
)

// Rules are the attempt thresholds and the slot matching policy.
type Rules struct {
	MaxAttempts int
	RevealAfter int
	Policy      MatchPolicy
}

func DefaultRules() Rules {
	return Rules{MaxAttempts: 5, RevealAfter: 3, Policy: MatchSet}
}

// Active is the state of the loaded sentence. It is replaced wholesale on
// every load.
type Active struct {
	Title        string
	Text         string
	NounCount    int
	Answers      []string
	InputStatus  []bool // empty until the first check, then NounCount long
	ErrorCount   int
	Revealed     bool
	ShowCorrect  bool
	CorrectNouns []string
}

// Controller owns the active sentence. It is driven from a single event
// loop and is not safe for concurrent use.
type Controller struct {
	rules    Rules
	progress *progress.Tracker
	rng      *rand.Rand

	phase     Phase
	prevPhase Phase
	gen       uint64
	active    Active

	message      string
	severity     Severity
	emptyWarning bool
}

func NewController(rules Rules, tracker *progress.Tracker, rng *rand.Rand) *Controller {
	if rules.Policy == "" {
		rules.Policy = MatchSet
	}
	return &Controller{
		rules:    rules,
		progress: tracker,
		rng:      rng,
		phase:    PhaseIdle,
	}
}

// Unfinished filters records down to titles that are not mastered yet.
func (c *Controller) Unfinished(records []catalog.Record) []catalog.Record {
	return lo.Filter(records, func(r catalog.Record, _ int) bool {
		return !c.progress.Mastered(r.Title)
	})
}

// BeginRandom picks a random unfinished title and starts loading it. When
// every title is mastered the controller enters PhaseFinished and returns
// ErrAllComplete.
func (c *Controller) BeginRandom(records []catalog.Record) (Ticket, error) {
	unfinished := c.Unfinished(records)
	if len(unfinished) == 0 {
		c.phase = PhaseFinished
		c.setMessage(MsgAllComplete, SeverityInfo)
		return Ticket{}, ErrAllComplete
	}
	pick := unfinished[c.rng.Intn(len(unfinished))]
	return c.begin(pick.Title, SelectRandom), nil
}

// BeginTitle starts loading an explicit title regardless of its completion.
func (c *Controller) BeginTitle(title string) Ticket {
	return c.begin(title, SelectTitle)
}

func (c *Controller) begin(title string, sel Selector) Ticket {
	switch c.phase {
	case PhaseLoading:
	case PhaseSubmitting:
		// The pending verdict carries the old generation and will be dropped.
		c.prevPhase = PhaseReady
	default:
		c.prevPhase = c.phase
	}
	c.gen++
	c.phase = PhaseLoading
	return Ticket{Gen: c.gen, Title: title, Selector: sel}
}

// Complete installs a loaded sentence. It returns false when the ticket has
// been superseded by a newer load.
func (c *Controller) Complete(t Ticket, s Sentence) bool {
	if t.Gen != c.gen || c.phase != PhaseLoading {
		return false
	}
	title := s.Title
	if title == "" {
		title = t.Title
	}
	n := max(s.NounCount, 0)
	c.active = Active{
		Title:     title,
		Text:      s.Text,
		NounCount: n,
		Answers:   make([]string, n),
	}
	c.phase = PhaseReady
	c.emptyWarning = false
	c.setMessage("", SeverityInfo)
	c.progress.MarkListened(title)
	return true
}

// Fail reports a failed load. The previously active sentence stays as it was.
func (c *Controller) Fail(t Ticket) bool {
	if t.Gen != c.gen || c.phase != PhaseLoading {
		return false
	}
	c.phase = c.prevPhase
	if t.Selector == SelectTitle {
		c.setMessage(MsgJumpFailed, SeverityError)
	} else {
		c.setMessage(MsgFetchFailed, SeverityError)
	}
	return true
}

// SetAnswer updates one answer slot. Locked or unloaded sentences ignore it.
func (c *Controller) SetAnswer(i int, value string) bool {
	switch c.phase {
	case PhaseIdle, PhaseLoading, PhaseLocked:
		return false
	}
	if i < 0 || i >= len(c.active.Answers) {
		return false
	}
	c.active.Answers[i] = value
	return true
}

// PrepareSubmit validates the answers and moves to PhaseSubmitting. A blank
// slot sets the validation message and returns ErrBlankAnswer without
// producing a submission.
func (c *Controller) PrepareSubmit() (Submission, error) {
	switch c.phase {
	case PhaseReady:
	case PhaseLocked:
		return Submission{}, ErrLocked
	default:
		return Submission{}, ErrBusy
	}

	if slices.ContainsFunc(c.active.Answers, func(a string) bool { return strings.TrimSpace(a) == "" }) {
		c.emptyWarning = true
		c.setMessage(MsgBlank, SeverityError)
		return Submission{}, ErrBlankAnswer
	}
	c.emptyWarning = false
	c.phase = PhaseSubmitting
	return Submission{
		Gen:      c.gen,
		Title:    c.active.Title,
		Sentence: c.active.Text,
		Answers:  slices.Clone(c.active.Answers),
	}, nil
}

// ApplyVerdict applies the checker's response to the submission it answers.
func (c *Controller) ApplyVerdict(sub Submission, v Verdict) Outcome {
	if sub.Gen != c.gen || c.phase != PhaseSubmitting {
		return OutcomeStale
	}
	c.active.InputStatus = c.rules.Policy.Mark(sub.Answers, v.CorrectNouns)

	if v.IsCorrect {
		c.progress.Complete(c.active.Title)
		c.phase = PhaseAdvancing
		c.setMessage(MsgCorrect, SeveritySuccess)
		return OutcomeCorrect
	}

	c.active.ErrorCount++
	if c.active.ErrorCount >= c.rules.RevealAfter {
		c.active.Revealed = true
	}
	if c.active.ErrorCount >= c.rules.MaxAttempts {
		c.active.ShowCorrect = true
		c.active.CorrectNouns = slices.Clone(v.CorrectNouns)
		c.phase = PhaseLocked
		c.setMessage(MsgExhausted, SeverityInfo)
		return OutcomeExhausted
	}
	c.phase = PhaseReady
	c.setMessage(fmt.Sprintf(msgIncorrectTmpl, c.rules.MaxAttempts-c.active.ErrorCount), SeverityInfo)
	return OutcomeIncorrect
}

// FailSubmit reports a transport failure. Nothing but the message changes.
func (c *Controller) FailSubmit(sub Submission) bool {
	if sub.Gen != c.gen || c.phase != PhaseSubmitting {
		return false
	}
	c.phase = PhaseReady
	c.setMessage(MsgCheckFailed, SeverityError)
	return true
}

// Advance reports whether the delayed move to the next sentence scheduled
// for generation gen is still wanted.
func (c *Controller) Advance(gen uint64) bool {
	return gen == c.gen && c.phase == PhaseAdvancing
}

// Reveal forces the sentence text to be shown until the next load.
func (c *Controller) Reveal() {
	if c.active.Title == "" {
		return
	}
	c.active.Revealed = true
}

func (c *Controller) setMessage(msg string, sev Severity) {
	c.message = msg
	c.severity = sev
}

func (c *Controller) Phase() Phase       { return c.phase }
func (c *Controller) Generation() uint64 { return c.gen }
func (c *Controller) Rules() Rules       { return c.rules }
func (c *Controller) EmptyWarning() bool { return c.emptyWarning }
func (c *Controller) Title() string      { return c.active.Title }
func (c *Controller) Loaded() bool       { return c.active.Title != "" }
func (c *Controller) Message() (string, Severity) {
	return c.message, c.severity
}

// Active returns a copy of the loaded sentence state.
func (c *Controller) Active() Active {
	a := c.active
	a.Answers = slices.Clone(a.Answers)
	a.InputStatus = slices.Clone(a.InputStatus)
	a.CorrectNouns = slices.Clone(a.CorrectNouns)
	return a
}

// Remaining returns how many incorrect submissions are left before the lock.
func (c *Controller) Remaining() int {
	return max(c.rules.MaxAttempts-c.active.ErrorCount, 0)
}

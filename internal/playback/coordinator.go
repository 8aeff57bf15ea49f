// Package playback drives the audio of the active sentence: loop, speed and
// the auto-replay counter, plus fetching the clip and handing it to a player.
package playback

import "fmt"

// Speed is a playback rate. Only the three listed rates exist.
type Speed float64

const (
	SpeedSlow   Speed = 0.8
	SpeedNormal Speed = 1.0
	SpeedFast   Speed = 1.2
)

var Speeds = []Speed{SpeedSlow, SpeedNormal, SpeedFast}

func (s Speed) String() string {
	return fmt.Sprintf("%.1fx", float64(s))
}

// Next returns the following rate, wrapping from fast back to slow.
func (s Speed) Next() Speed {
	for i, sp := range Speeds {
		if sp == s {
			return Speeds[(i+1)%len(Speeds)]
		}
	}
	return SpeedNormal
}

func (s Speed) Valid() bool {
	for _, sp := range Speeds {
		if sp == s {
			return true
		}
	}
	return false
}

// Rules are the auto-play thresholds.
type Rules struct {
	SlowdownAfter int // plays after which speed drops to SpeedSlow once
	RevealAfter   int // plays after which the sentence text is revealed
}

func DefaultRules() Rules {
	return Rules{SlowdownAfter: 6, RevealAfter: 12}
}

// Effect tells the caller what to do after a clip ended on its own.
type Effect struct {
	Replay       bool
	SpeedChanged bool
	Reveal       bool
}

// Coordinator holds PlaybackState. The loop flag survives title changes;
// the play counter and speed are reset by Reset.
type Coordinator struct {
	rules   Rules
	title   string
	looping bool
	speed   Speed
	plays   int
}

func NewCoordinator(rules Rules) *Coordinator {
	return &Coordinator{rules: rules, speed: SpeedNormal}
}

// Reset binds the coordinator to a newly loaded title.
func (c *Coordinator) Reset(title string) {
	c.title = title
	c.plays = 0
	c.speed = SpeedNormal
}

func (c *Coordinator) ToggleLoop() bool {
	c.looping = !c.looping
	return c.looping
}

// SetSpeed changes the rate and reports whether it changed.
func (c *Coordinator) SetSpeed(s Speed) bool {
	if !s.Valid() || s == c.speed {
		return false
	}
	c.speed = s
	return true
}

func (c *Coordinator) CycleSpeed() Speed {
	c.speed = c.speed.Next()
	return c.speed
}

// Ended handles a natural end of the clip. Without looping nothing happens.
// With looping the counter advances, the clip is replayed, and the counter
// thresholds fire exactly when they are reached.
func (c *Coordinator) Ended() Effect {
	if !c.looping {
		return Effect{}
	}
	c.plays++
	eff := Effect{Replay: true}
	if c.plays == c.rules.SlowdownAfter {
		eff.SpeedChanged = c.speed != SpeedSlow
		c.speed = SpeedSlow
	}
	if c.plays == c.rules.RevealAfter {
		eff.Reveal = true
	}
	return eff
}

func (c *Coordinator) Title() string { return c.title }
func (c *Coordinator) Looping() bool { return c.looping }
func (c *Coordinator) Speed() Speed  { return c.speed }
func (c *Coordinator) Plays() int    { return c.plays }

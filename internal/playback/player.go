package playback

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ErrDisabled is returned by the Disabled player.
var ErrDisabled = errors.New("playback disabled")

// Player plays one clip to the end. Play returns nil on a natural end and
// the context error when it was stopped.
type Player interface {
	Play(ctx context.Context, path string, speed Speed) error
}

// CommandPlayer runs an external player (mpv, ffplay, ...) for each clip.
// The argument template may contain {file} and {speed}.
type CommandPlayer struct {
	name string
	args []string
}

func NewCommandPlayer(name string, args []string) *CommandPlayer {
	return &CommandPlayer{name: name, args: args}
}

// Args expands the argument template for one clip.
func (p *CommandPlayer) Args(path string, speed Speed) []string {
	rate := strconv.FormatFloat(float64(speed), 'f', 1, 64)
	r := strings.NewReplacer("{file}", path, "{speed}", rate)
	out := make([]string, 0, len(p.args)+1)
	hasFile := false
	for _, a := range p.args {
		if strings.Contains(a, "{file}") {
			hasFile = true
		}
		out = append(out, r.Replace(a))
	}
	if !hasFile {
		out = append(out, path)
	}
	return out
}

func (p *CommandPlayer) Play(ctx context.Context, path string, speed Speed) error {
	cmd := exec.CommandContext(ctx, p.name, p.Args(path, speed)...)
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("run %s: %w", p.name, err)
	}
	return nil
}

// Disabled never plays anything.
type Disabled struct{}

func (Disabled) Play(context.Context, string, Speed) error {
	return ErrDisabled
}

// Package player plays synthesized audio streams
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// DefaultCommand plays stdin without a window and exits at the end of the stream
const DefaultCommand = "ffplay -nodisp -autoexit -loglevel quiet -i -"

// Command pipes audio into an external player process. The process is
// killed when the context is cancelled.
type Command struct {
	Name string
	Args []string
}

// NewCommand parses a command line such as DefaultCommand
func NewCommand(line string) (*Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, errors.New("empty player command")
	}
	if _, err := exec.LookPath(fields[0]); err != nil {
		return nil, fmt.Errorf("player %s not found: %w", fields[0], err)
	}
	return &Command{Name: fields[0], Args: fields[1:]}, nil
}

// Play runs the command with audio on stdin
func (c *Command) Play(ctx context.Context, audio io.Reader) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Stdin = audio

	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c.Name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Discard drains the stream without producing sound
type Discard struct{}

// Play reads audio to the end
func (Discard) Play(ctx context.Context, audio io.Reader) error {
	_, err := io.Copy(io.Discard, readerWithContext{ctx: ctx, r: audio})
	return err
}

type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(b []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(b)
}

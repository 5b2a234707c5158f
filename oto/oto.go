package oto

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Context is the sound card output. oto allows a single context per
// process.
type Context struct {
	ctx        *oto.Context
	sampleRate int
}

// Player streams a reader of interleaved float32 little-endian stereo frames,
// such as an engine, to the sound card.
type Player struct {
	player *oto.Player
}

// NewContext opens the sound card with a buffer of the given number of
// frames and waits until it is ready.
func NewContext(sampleRate, bufferFrames int) (*Context, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	if bufferFrames > 0 {
		op.BufferSize = time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate)
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate}, nil
}

func (c *Context) SampleRate() int { return c.sampleRate }

// Play starts pulling from r. r is read from the oto goroutine.
func (c *Context) Play(r io.Reader) *Player {
	p := &Player{player: c.ctx.NewPlayer(r)}
	p.player.Play()
	return p
}

// Suspend pauses every player of the context.
func (c *Context) Suspend() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (c *Context) Resume() error {
	if err := c.ctx.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	return nil
}

// Err reports the error that stopped the player, if any.
func (p *Player) Err() error {
	return p.player.Err()
}

func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

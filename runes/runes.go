/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package runes generates the falling-rune backdrop shown behind the
// assignment dialog. The engine does not draw pixels itself: every frame is
// a list of glyph placements handed to a Surface, which may be a browser
// canvas on the other end of a socket or a recorder in tests.
package runes

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/oracle/rng"
)

const (
	// FontSize is both the column width and the row height, in CSS pixels.
	FontSize = 16

	// SpeedFactor throttles drawing to every Nth scheduled frame.
	SpeedFactor = 3

	// Fade is the opacity of the overlay painted before each drawn frame.
	Fade = 0.12

	// MaxColumns bounds the columns kept for one surface, whatever size it
	// reports.
	MaxColumns = 1024

	resetChance = 0.975
)

// Alphabet holds the glyphs columns are drawn from.
var Alphabet = []rune("ᚠᚡᚢᚣᚤᚥᚦᚧᚨᚩᚪᚫᚬᚭᚮᚯᚰᚱᚲᚳᚴᚵᚶᚷᚸᚹᚺᚻᚼᚽᚾᚿᛀᛁᛂᛃᛄᛅᛆᛇᛈᛉᛊᛋᛌᛍᛎ")

type Glyph struct {
	Rune string  `json:"r"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Frame is one drawn step: an overlay of opacity Fade followed by Glyphs.
type Frame struct {
	Fade   float64 `json:"fade"`
	Glyphs []Glyph `json:"glyphs"`
}

// Surface receives frames. Size reports the container size in CSS pixels and
// the device pixel ratio.
type Surface interface {
	Size() (width, height, dpr float64)
	Draw(Frame) error
	Clear() error
}

// Ticker returns a channel of frame ticks and a function that stops it.
type Ticker func(time.Duration) (<-chan time.Time, func())

func timeTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)

	return t.C, t.Stop
}

type Option func(*Engine)

// WithInterval sets the time between scheduled frames. The default is 60 Hz.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

func WithTicker(t Ticker) Option {
	return func(e *Engine) {
		if t != nil {
			e.ticker = t
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine is either stopped or running a single frame loop.
type Engine struct {
	mu sync.Mutex

	surface  Surface
	rng      *rng.RNG
	interval time.Duration
	ticker   Ticker
	logger   *zap.Logger

	columns []int
	height  float64
	counter int

	cancel context.CancelFunc
	done   chan struct{}
	loops  int
}

func New(surface Surface, r *rng.RNG, opts ...Option) *Engine {
	e := &Engine{
		surface:  surface,
		rng:      r,
		interval: time.Second / 60,
		ticker:   timeTicker,
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start measures the surface and resets every column. If no loop is running
// yet, one is started; calling Start on a running engine only re-measures.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.measureLocked()

	if e.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	tick, stopTick := e.ticker(e.interval)

	e.cancel = cancel
	e.done = done
	e.loops++

	go e.loop(ctx, cancel, done, tick, stopTick)
}

func (e *Engine) measureLocked() {
	w, h, _ := e.surface.Size()

	var cols int
	switch {
	case !(w > 0):
		cols = 0
	case w >= MaxColumns*FontSize:
		cols = MaxColumns
	default:
		cols = int(math.Ceil(w / FontSize))
	}

	if math.IsNaN(h) || h < 0 {
		h = 0
	}

	e.columns = make([]int, cols)
	e.height = h
}

func (e *Engine) loop(ctx context.Context, cancel context.CancelFunc, done chan struct{}, tick <-chan time.Time, stopTick func()) {
	defer close(done)
	defer stopTick()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			if _, err := e.Step(); err != nil {
				e.logger.Warn("runes: stopping animation", zap.Error(err))

				e.mu.Lock()
				if e.done == done {
					e.cancel = nil
					e.done = nil
				}
				e.mu.Unlock()

				cancel()

				return
			}
		}
	}
}

// Step advances the frame-skip counter and, on every SpeedFactor-th call,
// draws one glyph per column. It reports whether a frame was drawn.
func (e *Engine) Step() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.counter = (e.counter + 1) % SpeedFactor
	if e.counter != 0 {
		return false, nil
	}

	frame := Frame{
		Fade:   Fade,
		Glyphs: make([]Glyph, len(e.columns)),
	}

	for i, offset := range e.columns {
		y := float64(offset+1) * FontSize

		frame.Glyphs[i] = Glyph{
			Rune: string(Alphabet[e.rng.Intn(len(Alphabet))]),
			X:    float64(i * FontSize),
			Y:    y,
		}

		if y > e.height && e.rng.Float64() > resetChance {
			e.columns[i] = 0
		} else {
			e.columns[i]++
		}
	}

	return true, e.surface.Draw(frame)
}

// Stop cancels the frame loop, waits for it to return, and clears the
// surface. Stopping a stopped engine does nothing.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.cancel == nil {
		e.mu.Unlock()

		return nil
	}

	cancel, done := e.cancel, e.done
	e.cancel = nil
	e.done = nil
	e.mu.Unlock()

	cancel()
	<-done

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return nil
	}

	return e.surface.Clear()
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.cancel != nil
}

// Columns returns a copy of the per-column offsets.
func (e *Engine) Columns() []int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]int(nil), e.columns...)
}

// Loops reports how many frame loops have been started over the engine's
// lifetime.
func (e *Engine) Loops() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loops
}

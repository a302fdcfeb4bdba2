// Package reps turns per-frame pose evidence into repetition counts.
package reps

import (
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/utils"
)

//State is where in the up/down cycle the tracked limb currently is
type State int

const (
	StateReady State = iota
	StateUp
	StateDown
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	default:
		return "ready"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

//Position is the evidence a single frame gives about the limb
type Position int

const (
	PositionUnknown Position = iota
	PositionBetween
	PositionUp
	PositionDown
)

func (p Position) String() string {
	switch p {
	case PositionBetween:
		return "between"
	case PositionUp:
		return "up"
	case PositionDown:
		return "down"
	default:
		return "unknown"
	}
}

//Counter is the ready/up/down state machine. A rep is counted on every
//up->down transition. With assist enabled, a rep is also counted after
//IdleWindow without any transition, at most once per window.
//
//Counter is not safe for concurrent use; the tracking loop owns it.
type Counter struct {
	state        State
	count        int
	assisted     int
	lastMovement time.Time

	assist     bool
	idleWindow time.Duration
}

//NewCounter returns a counter in the ready state. idleWindow <= 0 falls back to utils.IdleWindow
func NewCounter(assist bool, idleWindow time.Duration, now time.Time) *Counter {
	if idleWindow <= 0 {
		idleWindow = utils.IdleWindow
	}

	return &Counter{
		state:        StateReady,
		lastMovement: now,
		assist:       assist,
		idleWindow:   idleWindow,
	}
}

//Observe feeds the evidence of one frame. It returns true when a rep was counted
func (c *Counter) Observe(pos Position, now time.Time) bool {
	switch {
	case pos == PositionUp && (c.state == StateReady || c.state == StateDown):
		c.state = StateUp
		c.lastMovement = now
	case pos == PositionDown && c.state == StateUp:
		c.state = StateDown
		c.count++
		c.lastMovement = now
		return true
	}

	return false
}

//Tick runs the idle fallback. It returns true when an assisted rep was counted
func (c *Counter) Tick(now time.Time) bool {
	if !c.assist {
		return false
	}

	if now.Sub(c.lastMovement) <= c.idleWindow {
		return false
	}

	c.count++
	c.assisted++
	c.lastMovement = now

	return true
}

//Reset puts the counter back to ready with a zero count
func (c *Counter) Reset(now time.Time) {
	c.state = StateReady
	c.count = 0
	c.assisted = 0
	c.lastMovement = now
}

func (c *Counter) State() State {
	return c.state
}

//Count returns all the counted reps, assisted ones included
func (c *Counter) Count() int {
	return c.count
}

func (c *Counter) Assisted() int {
	return c.assisted
}

func (c *Counter) LastMovement() time.Time {
	return c.lastMovement
}

func (c *Counter) AssistMode() bool {
	return c.assist
}

// Package combat implements the two-player turn-based duel rules layered on top of rooms.
package combat

import (
	"errors"
	"fmt"
)

// Protocol lines sent by the combat variant.
const (
	YourTurn = "Your turn"
	NextTurn = "next turn"
)

// Phase is the lifecycle state of a combat room.
//
//	Empty → WaitingForSecondPlayer → InProgress → Finished
//
// No transition leaves Finished.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseWaitingForSecondPlayer
	PhaseInProgress
	PhaseFinished
)

// String returns a human-readable phase label.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseWaitingForSecondPlayer:
		return "waiting for second player"
	case PhaseInProgress:
		return "in progress"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// PhaseOf derives the phase of a two-player room from its occupancy and whether
// a loss has been recorded.
//
// Postcondition: finished always yields PhaseFinished.
func PhaseOf(peers int, finished bool) Phase {
	switch {
	case finished:
		return PhaseFinished
	case peers <= 0:
		return PhaseEmpty
	case peers == 1:
		return PhaseWaitingForSecondPlayer
	default:
		return PhaseInProgress
	}
}

// Combatant holds one duelist's mutable stats.
type Combatant struct {
	HP      int
	Defense int
}

// Damage returns the hit point loss from an attack of raw strength against defense.
//
// Postcondition: Returns max(0, raw-defense).
func Damage(raw, defense int) int {
	if d := raw - defense; d > 0 {
		return d
	}
	return 0
}

// TakeHit applies an attack of raw strength to c, reduced by c's own defense.
//
// Postcondition: HP decreases by exactly the returned amount, which is >= 0.
func (c *Combatant) TakeHit(raw int) int {
	dealt := Damage(raw, c.Defense)
	c.HP -= dealt
	return dealt
}

// Defeated reports whether c has run out of hit points.
func (c *Combatant) Defeated() bool {
	return c.HP <= 0
}

// LossMessage is the terminal line announced when name is defeated.
func LossMessage(name string) string {
	return fmt.Sprintf("%s has lost!", name)
}

// ErrTurnViolation matches every rejected out-of-turn or out-of-phase attack.
var ErrTurnViolation = errors.New("turn violation")

// TurnViolationError explains why an attack was rejected.
type TurnViolationError struct {
	Reason string
}

// Error implements error.
func (e *TurnViolationError) Error() string {
	return "turn violation: " + e.Reason
}

// Is lets errors.Is(err, ErrTurnViolation) match.
func (e *TurnViolationError) Is(target error) bool {
	return target == ErrTurnViolation
}

// NotYourTurn builds the violation for an attack by someone other than holder.
func NotYourTurn(holder string) error {
	if holder == "" {
		return &TurnViolationError{Reason: "it is not your turn"}
	}
	return &TurnViolationError{Reason: fmt.Sprintf("it is %s's turn", holder)}
}

// WrongPhase builds the violation for an attack outside PhaseInProgress.
func WrongPhase(p Phase) error {
	switch p {
	case PhaseFinished:
		return &TurnViolationError{Reason: "the match is over"}
	case PhaseWaitingForSecondPlayer:
		return &TurnViolationError{Reason: "waiting for an opponent"}
	default:
		return &TurnViolationError{Reason: fmt.Sprintf("the match is %s", p)}
	}
}

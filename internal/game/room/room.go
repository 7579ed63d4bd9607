// Package room provides the shared room registry: capacity-bounded named rooms,
// best-effort broadcast, and the turn and attack rules of the combat variant.
package room

import (
	"fmt"
	"sync"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Mode selects the protocol a room speaks.
type Mode string

const (
	ModeChat   Mode = "chat"
	ModeCombat Mode = "combat"
)

// Rules are the limits fixed when a room is created.
type Rules struct {
	Mode            Mode
	Capacity        int
	StartingHP      int
	StartingDefense int
}

// JoinedMessage announces name's arrival in roomName.
func JoinedMessage(name, roomName string) string {
	return fmt.Sprintf("%s has joined the room %s", name, roomName)
}

// LeftMessage announces name's departure from roomName.
func LeftMessage(name, roomName string) string {
	return fmt.Sprintf("%s has left the room %s", name, roomName)
}

// Player is one handshaken peer inside a room.
type Player struct {
	ID     session.PlayerID
	Name   string
	Outbox *session.Outbox
	Stats  combat.Combatant
}

// Room is the state of one named room. Every field is guarded by mu.
//
// Invariant: len(order) == len(peers) <= rules.Capacity.
// Invariant: turn is empty or names a member of peers.
type Room struct {
	name  string
	rules Rules

	mu       sync.Mutex
	order    []session.PlayerID // join order; drives turn rotation
	peers    map[session.PlayerID]*Player
	turn     session.PlayerID
	finished bool
	rounds   int
}

func newRoom(name string, rules Rules) *Room {
	return &Room{
		name:  name,
		rules: rules,
		peers: make(map[session.PlayerID]*Player),
	}
}

// The helpers below require rm.mu to be held.

func (rm *Room) indexOf(id session.PlayerID) int {
	for i, pid := range rm.order {
		if pid == id {
			return i
		}
	}
	return -1
}

func (rm *Room) add(p *Player) {
	rm.order = append(rm.order, p.ID)
	rm.peers[p.ID] = p
}

// remove drops id from the room and hands the turn to the next remaining peer
// in join order, or clears it when nobody is left.
func (rm *Room) remove(id session.PlayerID) *Player {
	idx := rm.indexOf(id)
	if idx < 0 {
		return nil
	}
	p := rm.peers[id]
	delete(rm.peers, id)
	rm.order = append(rm.order[:idx], rm.order[idx+1:]...)

	if rm.turn == id {
		if rm.finished || len(rm.order) == 0 {
			rm.turn = ""
		} else {
			rm.turn = rm.order[idx%len(rm.order)]
		}
	}
	return p
}

func (rm *Room) phase() combat.Phase {
	return combat.PhaseOf(len(rm.order), rm.finished)
}

// opponentOf returns the first other peer in join order.
func (rm *Room) opponentOf(id session.PlayerID) *Player {
	for _, pid := range rm.order {
		if pid != id {
			return rm.peers[pid]
		}
	}
	return nil
}

func (rm *Room) holderName() string {
	if p, ok := rm.peers[rm.turn]; ok {
		return p.Name
	}
	return ""
}

// broadcastLocked pushes msg to every peer except exclude. Closed outboxes are
// skipped silently.
func (rm *Room) broadcastLocked(exclude session.PlayerID, msg string) int {
	delivered := 0
	for _, id := range rm.order {
		if id == exclude {
			continue
		}
		if err := rm.peers[id].Outbox.Push(msg); err == nil {
			delivered++
		}
	}
	return delivered
}

// PlayerSnapshot is a read-only copy of one peer.
type PlayerSnapshot struct {
	ID      session.PlayerID
	Name    string
	HP      int
	Defense int
	HasTurn bool
}

// Snapshot is a read-only copy of a room. Phase and Turn are only meaningful for
// combat rooms.
type Snapshot struct {
	Name     string
	Mode     Mode
	Capacity int
	Phase    combat.Phase
	Turn     session.PlayerID
	Rounds   int
	Players  []PlayerSnapshot
}

func (rm *Room) snapshotLocked() Snapshot {
	s := Snapshot{
		Name:     rm.name,
		Mode:     rm.rules.Mode,
		Capacity: rm.rules.Capacity,
		Phase:    rm.phase(),
		Turn:     rm.turn,
		Rounds:   rm.rounds,
		Players:  make([]PlayerSnapshot, 0, len(rm.order)),
	}
	for _, id := range rm.order {
		p := rm.peers[id]
		s.Players = append(s.Players, PlayerSnapshot{
			ID:      p.ID,
			Name:    p.Name,
			HP:      p.Stats.HP,
			Defense: p.Stats.Defense,
			HasTurn: id == rm.turn,
		})
	}
	return s
}

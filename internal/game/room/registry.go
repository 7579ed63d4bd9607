package room

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/config"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Join rejection reasons.
var (
	ErrRoomFull  = errors.New("room is full")
	ErrMatchOver = errors.New("match is over")
)

// JoinStatus is the outcome of a Join.
type JoinStatus int

const (
	Joined JoinStatus = iota
	RejectedRoomFull
	RejectedMatchOver
)

// String returns a human-readable status label.
func (s JoinStatus) String() string {
	switch s {
	case Joined:
		return "joined"
	case RejectedRoomFull:
		return "room full"
	case RejectedMatchOver:
		return "match over"
	default:
		return "unknown"
	}
}

// JoinResult describes the outcome of a Join. PlayerID and Outbox are only set
// when Status is Joined.
type JoinResult struct {
	Status   JoinStatus
	PlayerID session.PlayerID
	Outbox   *session.Outbox
	Rules    Rules
}

// Err returns the sentinel matching a rejected join, or nil.
func (j JoinResult) Err() error {
	switch j.Status {
	case RejectedRoomFull:
		return ErrRoomFull
	case RejectedMatchOver:
		return ErrMatchOver
	default:
		return nil
	}
}

// AttackResult reports an accepted attack.
type AttackResult struct {
	Attacker   string
	Defender   string
	Damage     int
	DefenderHP int
	Round      int
	// Loss is the terminal announcement when the defender was defeated.
	Loss string
}

// Finished reports whether the attack ended the match.
func (a AttackResult) Finished() bool {
	return a.Loss != ""
}

// MatchResult is the record of a finished duel.
type MatchResult struct {
	Room       string
	Winner     string
	Loser      string
	WinnerHP   int
	LoserHP    int
	Rounds     int
	FinishedAt time.Time
}

// MatchRecorder persists finished matches.
type MatchRecorder interface {
	RecordMatch(ctx context.Context, m MatchResult) error
}

// Option configures a Registry.
type Option func(*Registry)

// WithPresets installs per-room rule overrides keyed by room name.
func WithPresets(presets map[string]Rules) Option {
	return func(r *Registry) {
		for name, rules := range presets {
			r.presets[name] = rules
		}
	}
}

// WithRecorder installs a recorder that is told about every finished match.
func WithRecorder(rec MatchRecorder) Option {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// RulesFromConfig builds the default room rules from the server configuration.
func RulesFromConfig(cfg config.Config) Rules {
	return Rules{
		Mode:            Mode(cfg.Server.Mode),
		Capacity:        cfg.Room.EffectiveCapacity(cfg.Server.Mode),
		StartingHP:      cfg.Room.StartingHP,
		StartingDefense: cfg.Room.StartingDefense,
	}
}

// Registry is the process-wide map from room name to room state.
//
// Lock order is registry then room. The registry lock guards only the map and is
// held across a room lock solely by Join and Leave, which create and collect
// rooms. Every other operation locks only the room it addresses.
type Registry struct {
	defaults Rules
	presets  map[string]Rules
	recorder MatchRecorder
	logger   *zap.Logger

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry whose new rooms use defaults unless a
// preset names them.
//
// Precondition: logger must be non-nil.
func NewRegistry(defaults Rules, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		defaults: defaults,
		presets:  make(map[string]Rules),
		logger:   logger,
		rooms:    make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) rulesFor(roomName string) Rules {
	if rules, ok := r.presets[roomName]; ok {
		return rules
	}
	return r.defaults
}

func (r *Registry) lookup(roomName string) *Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[roomName]
}

// Join admits a new player named name to roomName, creating the room if needed.
//
// Postcondition: On Joined the player is the newest peer with a fresh outbox.
// In a combat room the first joiner receives the turn when the second arrives.
func (r *Registry) Join(roomName, name string) JoinResult {
	r.mu.Lock()
	rm, ok := r.rooms[roomName]
	if !ok {
		rm = newRoom(roomName, r.rulesFor(roomName))
		r.rooms[roomName] = rm
		r.logger.Info("room created",
			zap.String("room", roomName),
			zap.String("mode", string(rm.rules.Mode)),
			zap.Int("capacity", rm.rules.Capacity),
		)
	}
	rm.mu.Lock()
	r.mu.Unlock()
	defer rm.mu.Unlock()

	if rm.finished {
		return JoinResult{Status: RejectedMatchOver, Rules: rm.rules}
	}
	if len(rm.order) >= rm.rules.Capacity {
		return JoinResult{Status: RejectedRoomFull, Rules: rm.rules}
	}

	id := session.NewPlayerID()
	p := &Player{
		ID:     id,
		Name:   name,
		Outbox: session.NewOutbox(id),
		Stats: combat.Combatant{
			HP:      rm.rules.StartingHP,
			Defense: rm.rules.StartingDefense,
		},
	}
	rm.add(p)
	if rm.rules.Mode == ModeCombat && len(rm.order) == 2 {
		rm.turn = rm.order[0]
	}

	r.logger.Info("player joined",
		zap.String("room", roomName),
		zap.String("player", name),
		zap.Stringer("id", id),
		zap.Int("peers", len(rm.order)),
	)
	return JoinResult{Status: Joined, PlayerID: id, Outbox: p.Outbox, Rules: rm.rules}
}

// Leave removes id from roomName, closes its outbox, and collects the room once
// it is empty. It reports whether the player was present.
func (r *Registry) Leave(roomName string, id session.PlayerID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomName]
	if !ok {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p := rm.remove(id)
	if p == nil {
		return false
	}
	p.Outbox.Close()
	r.logger.Info("player left",
		zap.String("room", roomName),
		zap.String("player", p.Name),
		zap.Stringer("id", id),
		zap.Int("peers", len(rm.order)),
	)

	if len(rm.order) == 0 {
		delete(r.rooms, roomName)
		r.logger.Info("room collected", zap.String("room", roomName))
	}
	return true
}

// Broadcast delivers msg to every peer of roomName except exclude and returns
// the number of outboxes that accepted it. Pass an empty exclude to reach all.
func (r *Registry) Broadcast(roomName string, exclude session.PlayerID, msg string) int {
	rm := r.lookup(roomName)
	if rm == nil {
		return 0
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.broadcastLocked(exclude, msg)
}

// NotifyTurn sends the turn prompt to the current turn holder of roomName. It
// reports whether anyone holds the turn.
func (r *Registry) NotifyTurn(roomName string) bool {
	rm := r.lookup(roomName)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()

	p, ok := rm.peers[rm.turn]
	if !ok {
		return false
	}
	return p.Outbox.Push(combat.YourTurn) == nil
}

// NextTurn advances the turn of roomName to the next peer in join order,
// wrapping around, and returns the new holder.
//
// Postcondition: Returns false, leaving state untouched, for a missing, empty,
// or finished room.
func (r *Registry) NextTurn(roomName string) (session.PlayerID, bool) {
	rm := r.lookup(roomName)
	if rm == nil {
		return "", false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.advanceTurn()
}

func (rm *Room) advanceTurn() (session.PlayerID, bool) {
	if rm.finished || len(rm.order) == 0 {
		return "", false
	}
	idx := rm.indexOf(rm.turn)
	rm.turn = rm.order[(idx+1)%len(rm.order)]
	return rm.turn, true
}

// ApplyAttack resolves an attack of raw strength by attacker against the other
// combatant of roomName. The turn is left with the attacker; callers rotate it
// with NextTurn. When the defender is defeated the loss is delivered to every
// peer, all outboxes are closed, and the match is handed to the recorder.
//
// Postcondition: Returns an error matching combat.ErrTurnViolation, with no state
// change, unless roomName is a combat room in progress and attacker holds the turn.
func (r *Registry) ApplyAttack(ctx context.Context, roomName string, attacker session.PlayerID, raw int) (AttackResult, error) {
	rm := r.lookup(roomName)
	if rm == nil {
		return AttackResult{}, combat.WrongPhase(combat.PhaseEmpty)
	}

	res, match, err := rm.resolveAttack(attacker, raw)
	if err != nil {
		return AttackResult{}, err
	}

	r.logger.Debug("attack resolved",
		zap.String("room", roomName),
		zap.String("attacker", res.Attacker),
		zap.String("defender", res.Defender),
		zap.Int("damage", res.Damage),
		zap.Int("defender_hp", res.DefenderHP),
	)
	if match != nil {
		r.logger.Info("match finished",
			zap.String("room", roomName),
			zap.String("winner", match.Winner),
			zap.String("loser", match.Loser),
			zap.Int("rounds", match.Rounds),
		)
		r.record(ctx, *match)
	}
	return res, nil
}

func (rm *Room) resolveAttack(attacker session.PlayerID, raw int) (AttackResult, *MatchResult, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.rules.Mode != ModeCombat {
		return AttackResult{}, nil, &combat.TurnViolationError{Reason: "attacks are only allowed in combat rooms"}
	}
	if phase := rm.phase(); phase != combat.PhaseInProgress {
		return AttackResult{}, nil, combat.WrongPhase(phase)
	}
	atk, ok := rm.peers[attacker]
	if !ok || rm.turn != attacker {
		return AttackResult{}, nil, combat.NotYourTurn(rm.holderName())
	}
	def := rm.opponentOf(attacker)

	dealt := def.Stats.TakeHit(raw)
	rm.rounds++
	res := AttackResult{
		Attacker:   atk.Name,
		Defender:   def.Name,
		Damage:     dealt,
		DefenderHP: def.Stats.HP,
		Round:      rm.rounds,
	}

	if !def.Stats.Defeated() {
		return res, nil, nil
	}

	rm.finished = true
	rm.turn = ""
	res.Loss = combat.LossMessage(def.Name)
	for _, id := range rm.order {
		p := rm.peers[id]
		_ = p.Outbox.Push(res.Loss)
		p.Outbox.Close()
	}
	return res, &MatchResult{
		Room:       rm.name,
		Winner:     atk.Name,
		Loser:      def.Name,
		WinnerHP:   atk.Stats.HP,
		LoserHP:    def.Stats.HP,
		Rounds:     rm.rounds,
		FinishedAt: time.Now().UTC(),
	}, nil
}

func (r *Registry) record(ctx context.Context, m MatchResult) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.RecordMatch(ctx, m); err != nil {
		r.logger.Warn("recording match result",
			zap.String("room", m.Room),
			zap.Error(err),
		)
	}
}

// CloseRoom closes every outbox in roomName so its connection actors terminate.
// Peers are removed as their actors call Leave. It reports whether the room existed.
func (r *Registry) CloseRoom(roomName string) bool {
	rm := r.lookup(roomName)
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for _, id := range rm.order {
		rm.peers[id].Outbox.Close()
	}
	r.logger.Info("room closed", zap.String("room", roomName), zap.Int("peers", len(rm.order)))
	return true
}

// Snapshot returns a copy of roomName's state.
func (r *Registry) Snapshot(roomName string) (Snapshot, bool) {
	rm := r.lookup(roomName)
	if rm == nil {
		return Snapshot{}, false
	}
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.snapshotLocked(), true
}

// Snapshots returns a copy of every live room ordered by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(rooms))
	for _, rm := range rooms {
		rm.mu.Lock()
		out = append(out, rm.snapshotLocked())
		rm.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

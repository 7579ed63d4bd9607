package room_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/room"
	"github.com/cory-johannsen/arena/internal/game/session"
)

var (
	combatRules = room.Rules{Mode: room.ModeCombat, Capacity: 2, StartingHP: 10, StartingDefense: 10}
	chatRules   = room.Rules{Mode: room.ModeChat, Capacity: 3, StartingHP: 10, StartingDefense: 10}
)

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	matches []room.MatchResult
}

func (f *fakeRecorder) RecordMatch(_ context.Context, m room.MatchResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches = append(f.matches, m)
	return f.err
}

func (f *fakeRecorder) recorded() []room.MatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]room.MatchResult(nil), f.matches...)
}

func mustJoin(t testing.TB, reg *room.Registry, roomName, name string) room.JoinResult {
	t.Helper()
	res := reg.Join(roomName, name)
	require.Equal(t, room.Joined, res.Status, "join %s/%s", roomName, name)
	require.NotEmpty(t, res.PlayerID)
	require.NotNil(t, res.Outbox)
	return res
}

func drained(o *session.Outbox) []string {
	msgs, _ := o.Drain()
	return msgs
}

func hpOf(t *testing.T, reg *room.Registry, roomName, name string) int {
	t.Helper()
	snap, ok := reg.Snapshot(roomName)
	require.True(t, ok)
	for _, p := range snap.Players {
		if p.Name == name {
			return p.HP
		}
	}
	t.Fatalf("player %s not in room %s", name, roomName)
	return 0
}

func TestRegistry_Join_CreatesRoom(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	alice := mustJoin(t, reg, "arena", "Alice")

	assert.Equal(t, 1, reg.Len())
	assert.Equal(t, combatRules, alice.Rules)
	snap, ok := reg.Snapshot("arena")
	require.True(t, ok)
	assert.Equal(t, combat.PhaseWaitingForSecondPlayer, snap.Phase)
	assert.Empty(t, snap.Turn)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "Alice", snap.Players[0].Name)
	assert.Equal(t, 10, snap.Players[0].HP)
	assert.Equal(t, 10, snap.Players[0].Defense)
}

func TestRegistry_Join_SecondPlayerGivesFirstTheTurn(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	alice := mustJoin(t, reg, "arena", "Alice")
	mustJoin(t, reg, "arena", "Bob")

	snap, _ := reg.Snapshot("arena")
	assert.Equal(t, combat.PhaseInProgress, snap.Phase)
	assert.Equal(t, alice.PlayerID, snap.Turn)
	assert.True(t, snap.Players[0].HasTurn)
	assert.False(t, snap.Players[1].HasTurn)
}

func TestRegistry_Join_DuplicateNamesGetDistinctIDs(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	a := mustJoin(t, reg, "lobby", "Sam")
	b := mustJoin(t, reg, "lobby", "Sam")
	assert.NotEqual(t, a.PlayerID, b.PlayerID)
}

func TestRegistry_Join_RoomFull(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	mustJoin(t, reg, "arena", "Alice")
	mustJoin(t, reg, "arena", "Bob")

	res := reg.Join("arena", "Carol")
	assert.Equal(t, room.RejectedRoomFull, res.Status)
	assert.ErrorIs(t, res.Err(), room.ErrRoomFull)
	assert.Empty(t, res.PlayerID)
	assert.Nil(t, res.Outbox)

	snap, _ := reg.Snapshot("arena")
	assert.Len(t, snap.Players, 2)
}

func TestRegistry_Join_ChatCapacity(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	for _, name := range []string{"a", "b", "c"} {
		mustJoin(t, reg, "lobby", name)
	}
	assert.Equal(t, room.RejectedRoomFull, reg.Join("lobby", "d").Status)

	// A different room is unaffected.
	mustJoin(t, reg, "other", "d")
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_Join_UsesPreset(t *testing.T) {
	big := chatRules
	big.Capacity = 5
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t), room.WithPresets(map[string]room.Rules{"hall": big}))

	for i := 0; i < 5; i++ {
		mustJoin(t, reg, "hall", fmt.Sprintf("p%d", i))
	}
	assert.Equal(t, room.RejectedRoomFull, reg.Join("hall", "p5").Status)

	res := mustJoin(t, reg, "closet", "x")
	assert.Equal(t, 3, res.Rules.Capacity)
}

func TestRegistry_Leave(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	a := mustJoin(t, reg, "lobby", "a")
	b := mustJoin(t, reg, "lobby", "b")

	assert.True(t, reg.Leave("lobby", a.PlayerID))
	assert.True(t, a.Outbox.IsClosed())
	assert.False(t, reg.Leave("lobby", a.PlayerID), "second leave is a no-op")
	assert.False(t, reg.Leave("nowhere", a.PlayerID))

	snap, ok := reg.Snapshot("lobby")
	require.True(t, ok)
	require.Len(t, snap.Players, 1)
	assert.Equal(t, "b", snap.Players[0].Name)

	assert.True(t, reg.Leave("lobby", b.PlayerID))
	assert.Equal(t, 0, reg.Len(), "empty room is collected")
	_, ok = reg.Snapshot("lobby")
	assert.False(t, ok)
}

func TestRegistry_Leave_TurnHolderPassesTurn(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	alice := mustJoin(t, reg, "arena", "Alice")
	bob := mustJoin(t, reg, "arena", "Bob")

	require.True(t, reg.Leave("arena", alice.PlayerID))
	snap, _ := reg.Snapshot("arena")
	assert.Equal(t, combat.PhaseWaitingForSecondPlayer, snap.Phase)
	assert.Equal(t, bob.PlayerID, snap.Turn)

	_, err := reg.ApplyAttack(context.Background(), "arena", bob.PlayerID, 50)
	assert.ErrorIs(t, err, combat.ErrTurnViolation, "no attacks while waiting")

	mustJoin(t, reg, "arena", "Carol")
	snap, _ = reg.Snapshot("arena")
	assert.Equal(t, combat.PhaseInProgress, snap.Phase)
	assert.Equal(t, bob.PlayerID, snap.Turn)
}

func TestRegistry_Broadcast_ExcludesSender(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	a := mustJoin(t, reg, "lobby", "a")
	b := mustJoin(t, reg, "lobby", "b")
	c := mustJoin(t, reg, "lobby", "c")

	assert.Equal(t, 2, reg.Broadcast("lobby", a.PlayerID, "a: hi"))
	assert.Empty(t, drained(a.Outbox))
	assert.Equal(t, []string{"a: hi"}, drained(b.Outbox))
	assert.Equal(t, []string{"a: hi"}, drained(c.Outbox))

	assert.Equal(t, 3, reg.Broadcast("lobby", "", "all"))
	assert.Equal(t, 0, reg.Broadcast("nowhere", "", "lost"))
}

func TestRegistry_Broadcast_SkipsClosedOutbox(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	a := mustJoin(t, reg, "lobby", "a")
	b := mustJoin(t, reg, "lobby", "b")
	c := mustJoin(t, reg, "lobby", "c")

	b.Outbox.Close()
	assert.Equal(t, 1, reg.Broadcast("lobby", a.PlayerID, "x"))
	assert.Equal(t, []string{"x"}, drained(c.Outbox))
}

func TestRegistry_NextTurn_RotatesInJoinOrder(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	alice := mustJoin(t, reg, "arena", "Alice")
	bob := mustJoin(t, reg, "arena", "Bob")

	next, ok := reg.NextTurn("arena")
	require.True(t, ok)
	assert.Equal(t, bob.PlayerID, next)
	next, ok = reg.NextTurn("arena")
	require.True(t, ok)
	assert.Equal(t, alice.PlayerID, next)

	_, ok = reg.NextTurn("nowhere")
	assert.False(t, ok)
}

func TestRegistry_NextTurn_InitializesToFirstPeer(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	a := mustJoin(t, reg, "lobby", "a")
	b := mustJoin(t, reg, "lobby", "b")
	c := mustJoin(t, reg, "lobby", "c")

	var got []session.PlayerID
	for i := 0; i < 4; i++ {
		id, ok := reg.NextTurn("lobby")
		require.True(t, ok)
		got = append(got, id)
	}
	assert.Equal(t, []session.PlayerID{a.PlayerID, b.PlayerID, c.PlayerID, a.PlayerID}, got)
}

func TestRegistry_NotifyTurn(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	alice := mustJoin(t, reg, "arena", "Alice")
	assert.False(t, reg.NotifyTurn("arena"), "nobody holds the turn yet")

	bob := mustJoin(t, reg, "arena", "Bob")
	assert.True(t, reg.NotifyTurn("arena"))
	assert.Equal(t, []string{combat.YourTurn}, drained(alice.Outbox))
	assert.Empty(t, drained(bob.Outbox))
	assert.False(t, reg.NotifyTurn("nowhere"))
}

func TestRegistry_ApplyAttack_FullMatch(t *testing.T) {
	rec := &fakeRecorder{}
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t), room.WithRecorder(rec))
	ctx := context.Background()
	alice := mustJoin(t, reg, "arena", "Alice")
	bob := mustJoin(t, reg, "arena", "Bob")

	res, err := reg.ApplyAttack(ctx, "arena", alice.PlayerID, 15)
	require.NoError(t, err)
	assert.Equal(t, room.AttackResult{Attacker: "Alice", Defender: "Bob", Damage: 5, DefenderHP: 5, Round: 1}, res)
	assert.False(t, res.Finished())
	assert.Equal(t, 10, hpOf(t, reg, "arena", "Alice"), "attacker is never damaged")

	_, err = reg.ApplyAttack(ctx, "arena", bob.PlayerID, 12)
	assert.ErrorIs(t, err, combat.ErrTurnViolation, "turn stays with the attacker until rotated")

	_, ok := reg.NextTurn("arena")
	require.True(t, ok)
	res, err = reg.ApplyAttack(ctx, "arena", bob.PlayerID, 12)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Damage)
	assert.Equal(t, 8, res.DefenderHP)

	_, ok = reg.NextTurn("arena")
	require.True(t, ok)
	res, err = reg.ApplyAttack(ctx, "arena", alice.PlayerID, 20)
	require.NoError(t, err)
	assert.True(t, res.Finished())
	assert.Equal(t, "Bob has lost!", res.Loss)
	assert.Equal(t, -5, res.DefenderHP)

	for _, ob := range []*session.Outbox{alice.Outbox, bob.Outbox} {
		msgs, closed := ob.Drain()
		assert.True(t, closed)
		assert.Equal(t, []string{"Bob has lost!"}, msgs)
	}

	snap, _ := reg.Snapshot("arena")
	assert.Equal(t, combat.PhaseFinished, snap.Phase)
	assert.Empty(t, snap.Turn)
	assert.Equal(t, 3, snap.Rounds)

	_, err = reg.ApplyAttack(ctx, "arena", alice.PlayerID, 20)
	assert.ErrorIs(t, err, combat.ErrTurnViolation)
	_, err = reg.ApplyAttack(ctx, "arena", bob.PlayerID, 20)
	assert.ErrorIs(t, err, combat.ErrTurnViolation)
	_, ok = reg.NextTurn("arena")
	assert.False(t, ok, "no transitions out of Finished")

	late := reg.Join("arena", "Carol")
	assert.Equal(t, room.RejectedMatchOver, late.Status)
	assert.ErrorIs(t, late.Err(), room.ErrMatchOver)

	matches := rec.recorded()
	require.Len(t, matches, 1)
	assert.Equal(t, "arena", matches[0].Room)
	assert.Equal(t, "Alice", matches[0].Winner)
	assert.Equal(t, "Bob", matches[0].Loser)
	assert.Equal(t, 8, matches[0].WinnerHP)
	assert.Equal(t, -5, matches[0].LoserHP)
	assert.Equal(t, 3, matches[0].Rounds)
	assert.False(t, matches[0].FinishedAt.IsZero())

	// Both actors leave; the room is collected and the name is reusable.
	reg.Leave("arena", alice.PlayerID)
	reg.Leave("arena", bob.PlayerID)
	assert.Equal(t, 0, reg.Len())
	mustJoin(t, reg, "arena", "Carol")
}

func TestRegistry_ApplyAttack_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing room", func(t *testing.T) {
		reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
		_, err := reg.ApplyAttack(ctx, "nowhere", session.NewPlayerID(), 10)
		assert.ErrorIs(t, err, combat.ErrTurnViolation)
	})

	t.Run("waiting for opponent", func(t *testing.T) {
		reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
		alice := mustJoin(t, reg, "arena", "Alice")
		_, err := reg.ApplyAttack(ctx, "arena", alice.PlayerID, 50)
		require.ErrorIs(t, err, combat.ErrTurnViolation)
		assert.Contains(t, err.Error(), "waiting for an opponent")
		assert.Equal(t, 10, hpOf(t, reg, "arena", "Alice"))
	})

	t.Run("not the turn holder", func(t *testing.T) {
		reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
		mustJoin(t, reg, "arena", "Alice")
		bob := mustJoin(t, reg, "arena", "Bob")
		before, _ := reg.Snapshot("arena")

		_, err := reg.ApplyAttack(ctx, "arena", bob.PlayerID, 50)
		require.ErrorIs(t, err, combat.ErrTurnViolation)
		assert.Contains(t, err.Error(), "it is Alice's turn")

		after, _ := reg.Snapshot("arena")
		assert.Equal(t, before, after, "rejected attacks never mutate the room")
	})

	t.Run("stranger", func(t *testing.T) {
		reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
		mustJoin(t, reg, "arena", "Alice")
		mustJoin(t, reg, "arena", "Bob")
		_, err := reg.ApplyAttack(ctx, "arena", session.NewPlayerID(), 50)
		assert.ErrorIs(t, err, combat.ErrTurnViolation)
	})

	t.Run("chat room", func(t *testing.T) {
		reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
		a := mustJoin(t, reg, "lobby", "a")
		mustJoin(t, reg, "lobby", "b")
		_, ok := reg.NextTurn("lobby")
		require.True(t, ok)
		_, err := reg.ApplyAttack(ctx, "lobby", a.PlayerID, 50)
		require.ErrorIs(t, err, combat.ErrTurnViolation)
		assert.Contains(t, err.Error(), "combat rooms")
	})
}

func TestRegistry_ApplyAttack_WeakHitDealsNoDamage(t *testing.T) {
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t))
	alice := mustJoin(t, reg, "arena", "Alice")
	mustJoin(t, reg, "arena", "Bob")

	res, err := reg.ApplyAttack(context.Background(), "arena", alice.PlayerID, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Damage)
	assert.Equal(t, 10, res.DefenderHP)
}

func TestRegistry_ApplyAttack_RecorderFailureIsNotFatal(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("database unavailable")}
	reg := room.NewRegistry(combatRules, zaptest.NewLogger(t), room.WithRecorder(rec))
	alice := mustJoin(t, reg, "arena", "Alice")
	mustJoin(t, reg, "arena", "Bob")

	res, err := reg.ApplyAttack(context.Background(), "arena", alice.PlayerID, 100)
	require.NoError(t, err)
	assert.True(t, res.Finished())
	assert.Len(t, rec.recorded(), 1)
}

func TestRegistry_CloseRoom(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	a := mustJoin(t, reg, "lobby", "a")
	b := mustJoin(t, reg, "lobby", "b")

	assert.True(t, reg.CloseRoom("lobby"))
	assert.True(t, a.Outbox.IsClosed())
	assert.True(t, b.Outbox.IsClosed())
	assert.False(t, reg.CloseRoom("nowhere"))

	// Peers stay until their actors leave.
	snap, _ := reg.Snapshot("lobby")
	assert.Len(t, snap.Players, 2)
}

func TestRegistry_Snapshots_SortedByName(t *testing.T) {
	reg := room.NewRegistry(chatRules, zaptest.NewLogger(t))
	for _, name := range []string{"zeta", "alpha", "mid"} {
		mustJoin(t, reg, name, "p")
	}
	snaps := reg.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, "alpha", snaps[0].Name)
	assert.Equal(t, "mid", snaps[1].Name)
	assert.Equal(t, "zeta", snaps[2].Name)
}

func TestRegistry_ConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	reg := room.NewRegistry(combatRules, zap.NewNop())

	var wg sync.WaitGroup
	var mu sync.Mutex
	joined := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if reg.Join("arena", fmt.Sprintf("p%d", i)).Status == room.Joined {
				mu.Lock()
				joined++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 2, joined)
	snap, _ := reg.Snapshot("arena")
	assert.Len(t, snap.Players, 2)
}

func TestRegistry_ConcurrentRoomsAreIndependent(t *testing.T) {
	reg := room.NewRegistry(chatRules, zap.NewNop())

	var wg sync.WaitGroup
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			roomName := fmt.Sprintf("room-%d", r)
			for i := 0; i < 100; i++ {
				res := reg.Join(roomName, "p")
				if res.Status != room.Joined {
					continue
				}
				reg.Broadcast(roomName, res.PlayerID, "hello")
				reg.Leave(roomName, res.PlayerID)
			}
		}(r)
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}

// Property: under any sequence of joins and leaves, no room exceeds capacity
// and the turn is always empty or held by a member.
func TestPropertyRegistry_CapacityAndTurnInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rules := combatRules
		if rapid.Bool().Draw(t, "chat") {
			rules = chatRules
		}
		reg := room.NewRegistry(rules, zap.NewNop())
		rooms := []string{"a", "b"}
		members := map[string][]session.PlayerID{}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			roomName := rapid.SampledFrom(rooms).Draw(t, "room")
			switch op := rapid.IntRange(0, 2).Draw(t, "op"); {
			case op == 0 || len(members[roomName]) == 0:
				res := reg.Join(roomName, "p")
				if res.Status == room.Joined {
					members[roomName] = append(members[roomName], res.PlayerID)
				} else if len(members[roomName]) < rules.Capacity {
					t.Fatalf("join rejected below capacity: %d peers", len(members[roomName]))
				}
			case op == 1:
				idx := rapid.IntRange(0, len(members[roomName])-1).Draw(t, "leaver")
				if !reg.Leave(roomName, members[roomName][idx]) {
					t.Fatalf("leave of a member reported absent")
				}
				members[roomName] = append(members[roomName][:idx], members[roomName][idx+1:]...)
			default:
				reg.NextTurn(roomName)
			}

			for _, name := range rooms {
				snap, ok := reg.Snapshot(name)
				if len(members[name]) == 0 {
					if ok {
						t.Fatalf("room %s should have been collected", name)
					}
					continue
				}
				if len(snap.Players) > rules.Capacity {
					t.Fatalf("room %s has %d players, capacity %d", name, len(snap.Players), rules.Capacity)
				}
				if len(snap.Players) != len(members[name]) {
					t.Fatalf("room %s has %d players, want %d", name, len(snap.Players), len(members[name]))
				}
				if snap.Turn == "" {
					continue
				}
				held := false
				for _, p := range snap.Players {
					held = held || p.ID == snap.Turn
				}
				if !held {
					t.Fatalf("turn holder %s is not a member of %s", snap.Turn, name)
				}
			}
		}
	})
}

// Property: a broadcast reaches every member except the sender exactly once.
func TestPropertyRegistry_BroadcastExcludesSender(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rules := chatRules
		rules.Capacity = 16
		reg := room.NewRegistry(rules, zap.NewNop())
		n := rapid.IntRange(1, 16).Draw(t, "peers")
		var joined []room.JoinResult
		for i := 0; i < n; i++ {
			joined = append(joined, reg.Join("lobby", fmt.Sprintf("p%d", i)))
		}
		sender := rapid.IntRange(0, n-1).Draw(t, "sender")
		msg := rapid.String().Draw(t, "msg")

		if got := reg.Broadcast("lobby", joined[sender].PlayerID, msg); got != n-1 {
			t.Fatalf("delivered to %d, want %d", got, n-1)
		}
		for i, j := range joined {
			msgs := drained(j.Outbox)
			if i == sender && len(msgs) != 0 {
				t.Fatalf("sender received its own broadcast")
			}
			if i != sender && (len(msgs) != 1 || msgs[0] != msg) {
				t.Fatalf("peer %d received %q", i, msgs)
			}
		}
	})
}

// Property: an accepted attack lowers only the defender's HP, by max(0, raw-defense).
func TestPropertyRegistry_AttackDamagesOnlyDefender(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rules := combatRules
		rules.StartingHP = rapid.IntRange(1, 100).Draw(t, "hp")
		rules.StartingDefense = rapid.IntRange(0, 30).Draw(t, "defense")
		reg := room.NewRegistry(rules, zap.NewNop())
		alice := reg.Join("arena", "Alice")
		reg.Join("arena", "Bob")

		raw := rapid.IntRange(-50, 200).Draw(t, "raw")
		res, err := reg.ApplyAttack(context.Background(), "arena", alice.PlayerID, raw)
		if err != nil {
			t.Fatalf("attack by the turn holder rejected: %v", err)
		}
		want := combat.Damage(raw, rules.StartingDefense)
		if res.Damage != want || res.DefenderHP != rules.StartingHP-want {
			t.Fatalf("damage %d hp %d, want damage %d hp %d", res.Damage, res.DefenderHP, want, rules.StartingHP-want)
		}
		if res.Finished() != (rules.StartingHP-want <= 0) {
			t.Fatalf("finished=%v with defender hp %d", res.Finished(), res.DefenderHP)
		}
		if snap, ok := reg.Snapshot("arena"); ok && snap.Players[0].HP != rules.StartingHP {
			t.Fatalf("attacker hp changed to %d", snap.Players[0].HP)
		}
	})
}

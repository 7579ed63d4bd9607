// Package admin exposes operator endpoints over gRPC and HTTP for inspecting
// live rooms, closing them, and reading match history.
package admin

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/cory-johannsen/arena/internal/game/room"
	"github.com/cory-johannsen/arena/internal/storage/postgres"
)

// Rooms is the slice of the registry the admin endpoints need.
type Rooms interface {
	Snapshots() []room.Snapshot
	Snapshot(name string) (room.Snapshot, bool)
	CloseRoom(name string) bool
}

// MatchLister reads stored match results.
type MatchLister interface {
	ListByRoom(ctx context.Context, roomName string, limit int) ([]postgres.MatchRecord, error)
}

// Service implements the RoomAdmin operations against a room registry.
type Service struct {
	rooms   Rooms
	matches MatchLister
	logger  *zap.Logger
}

// NewService creates the admin service. matches may be nil when match history
// is disabled.
//
// Precondition: rooms and logger must be non-nil.
func NewService(rooms Rooms, matches MatchLister, logger *zap.Logger) *Service {
	return &Service{
		rooms:   rooms,
		matches: matches,
		logger:  logger,
	}
}

// ListRooms returns every live room as {"rooms": [...]}.
func (s *Service) ListRooms(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	out, err := RoomsStruct(s.rooms.Snapshots())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encoding rooms: %v", err)
	}
	return out, nil
}

// CloseRoom ends every session in the named room.
//
// Postcondition: Returns NotFound for an unknown room and InvalidArgument for
// an empty name.
func (s *Service) CloseRoom(_ context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	name := in.GetValue()
	if name == "" {
		return nil, status.Error(codes.InvalidArgument, "room name must not be empty")
	}
	if !s.rooms.CloseRoom(name) {
		return nil, status.Errorf(codes.NotFound, "room %q not found", name)
	}
	s.logger.Info("room closed by operator", zap.String("room", name))
	return &emptypb.Empty{}, nil
}

// RoomStruct converts one snapshot into a protobuf Struct-compatible map.
func RoomStruct(s room.Snapshot) map[string]any {
	players := make([]any, 0, len(s.Players))
	for _, p := range s.Players {
		players = append(players, map[string]any{
			"id":       p.ID.String(),
			"name":     p.Name,
			"hp":       p.HP,
			"defense":  p.Defense,
			"has_turn": p.HasTurn,
		})
	}
	out := map[string]any{
		"name":     s.Name,
		"mode":     string(s.Mode),
		"capacity": s.Capacity,
		"players":  players,
	}
	if s.Mode == room.ModeCombat {
		out["phase"] = s.Phase.String()
		out["turn"] = s.Turn.String()
		out["rounds"] = s.Rounds
	}
	return out
}

// RoomsStruct wraps snapshots as {"rooms": [...]}.
func RoomsStruct(snaps []room.Snapshot) (*structpb.Struct, error) {
	rooms := make([]any, 0, len(snaps))
	for _, s := range snaps {
		rooms = append(rooms, RoomStruct(s))
	}
	return structpb.NewStruct(map[string]any{"rooms": rooms})
}

// MatchesStruct wraps match records as {"matches": [...]}.
func MatchesStruct(records []postgres.MatchRecord) (*structpb.Struct, error) {
	matches := make([]any, 0, len(records))
	for _, m := range records {
		matches = append(matches, map[string]any{
			"id":          m.ID,
			"room":        m.Room,
			"winner":      m.Winner,
			"loser":       m.Loser,
			"winner_hp":   m.WinnerHP,
			"loser_hp":    m.LoserHP,
			"rounds":      m.Rounds,
			"finished_at": m.FinishedAt.UTC().Format(time.RFC3339),
		})
	}
	return structpb.NewStruct(map[string]any{"matches": matches})
}

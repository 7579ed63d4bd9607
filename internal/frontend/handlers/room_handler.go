// Package handlers implements the per-connection protocol: the handshake,
// room admission, and the event loop that relays room traffic.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/frontend/tcp"
	"github.com/cory-johannsen/arena/internal/game/combat"
	"github.com/cory-johannsen/arena/internal/game/room"
	"github.com/cory-johannsen/arena/internal/game/session"
)

// Lines sent by the server outside of room traffic.
const (
	PromptRoom      = "Please enter your room name:"
	PromptUsername  = "Please enter your username:"
	NoticeRoomFull  = "No room in lobby"
	NoticeMatchOver = "The match in this room is over"
	NoticeEmptyName = "Room name and username must not be empty"
)

// ErrEmptyName is returned when the handshake yields a blank room or username.
var ErrEmptyName = errors.New("empty room name or username")

// RoomHandler runs one connection actor per client against a shared registry.
type RoomHandler struct {
	registry *room.Registry
	logger   *zap.Logger
}

// NewRoomHandler creates a handler bound to registry.
//
// Precondition: registry and logger must be non-nil.
func NewRoomHandler(registry *room.Registry, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{
		registry: registry,
		logger:   logger,
	}
}

// HandleSession drives a single client from handshake to departure.
//
// Postcondition: The player, if admitted, has left the room. Returns nil on a
// clean end of stream or finished match, or an error describing why the
// connection ended early. A panic is recovered and reported as an error.
func (h *RoomHandler) HandleSession(ctx context.Context, conn *tcp.Conn) (err error) {
	addr := conn.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("connection actor panicked",
				zap.String("remote_addr", addr),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("connection actor panic: %v", r)
		}
	}()

	roomName, username, err := h.handshake(conn)
	if err != nil {
		h.logger.Info("handshake incomplete",
			zap.String("remote_addr", addr),
			zap.Error(err),
		)
		return fmt.Errorf("handshake: %w", err)
	}
	if roomName == "" || username == "" {
		_ = conn.WriteLine(NoticeEmptyName)
		return ErrEmptyName
	}

	joined := h.registry.Join(roomName, username)
	if joined.Status != room.Joined {
		notice := NoticeRoomFull
		if joined.Status == room.RejectedMatchOver {
			notice = NoticeMatchOver
		}
		_ = conn.WriteLine(notice)
		h.logger.Info("join rejected",
			zap.String("remote_addr", addr),
			zap.String("room", roomName),
			zap.String("player", username),
			zap.Stringer("status", joined.Status),
		)
		return joined.Err()
	}

	s := &roomSession{
		registry: h.registry,
		conn:     conn,
		room:     roomName,
		name:     username,
		id:       joined.PlayerID,
		outbox:   joined.Outbox,
		mode:     joined.Rules.Mode,
		logger: h.logger.With(
			zap.String("room", roomName),
			zap.String("player", username),
			zap.Stringer("id", joined.PlayerID),
		),
	}
	defer s.leave()
	return s.run(ctx)
}

// handshake prompts for and reads the room name and username.
func (h *RoomHandler) handshake(conn *tcp.Conn) (string, string, error) {
	if err := conn.WriteLine(PromptRoom); err != nil {
		return "", "", fmt.Errorf("writing room prompt: %w", err)
	}
	roomName, err := conn.ReadLine()
	if err != nil {
		return "", "", fmt.Errorf("reading room name: %w", err)
	}
	if err := conn.WriteLine(PromptUsername); err != nil {
		return "", "", fmt.Errorf("writing username prompt: %w", err)
	}
	username, err := conn.ReadLine()
	if err != nil {
		return "", "", fmt.Errorf("reading username: %w", err)
	}
	return strings.TrimSpace(roomName), strings.TrimSpace(username), nil
}

// roomSession is the admitted half of a connection actor.
type roomSession struct {
	registry *room.Registry
	conn     *tcp.Conn
	room     string
	name     string
	id       session.PlayerID
	outbox   *session.Outbox
	mode     room.Mode
	logger   *zap.Logger
}

type inbound struct {
	line string
	err  error
}

// run announces the player and multiplexes the outbox and the socket until
// end of stream, a closed outbox, or cancellation.
func (s *roomSession) run(ctx context.Context) error {
	s.registry.Broadcast(s.room, s.id, room.JoinedMessage(s.name, s.room))
	if s.mode == room.ModeCombat {
		s.registry.NotifyTurn(s.room)
	}

	lines := make(chan inbound)
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			line, err := s.conn.ReadLine()
			select {
			case lines <- inbound{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.outbox.Ready():
			msgs, closed := s.outbox.Drain()
			if err := s.conn.WriteLines(msgs); err != nil {
				return fmt.Errorf("writing to client: %w", err)
			}
			if closed {
				return nil
			}

		case in := <-lines:
			if in.err != nil {
				if errors.Is(in.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("reading input: %w", in.err)
			}
			if err := s.handleLine(ctx, in.line); err != nil {
				return err
			}
		}
	}
}

func (s *roomSession) handleLine(ctx context.Context, line string) error {
	if s.mode == room.ModeChat {
		s.registry.Broadcast(s.room, s.id, fmt.Sprintf("%s: %s", s.name, line))
		return nil
	}
	if !combat.IsAttackLine(line) {
		s.registry.Broadcast(s.room, s.id, line)
		return nil
	}
	return s.attack(ctx, line)
}

func (s *roomSession) attack(ctx context.Context, line string) error {
	raw, err := combat.ParseAttack(line)
	if err != nil {
		s.logger.Warn("ignoring malformed attack", zap.String("line", line), zap.Error(err))
		return nil
	}

	res, err := s.registry.ApplyAttack(ctx, s.room, s.id, raw)
	if err != nil {
		var tv *combat.TurnViolationError
		if !errors.As(err, &tv) {
			return fmt.Errorf("applying attack: %w", err)
		}
		s.logger.Info("attack rejected", zap.String("reason", tv.Reason))
		if err := s.conn.WriteLine("Cannot attack: " + tv.Reason); err != nil {
			return fmt.Errorf("writing to client: %w", err)
		}
		return nil
	}
	if res.Finished() {
		// The loss line is already queued and the outbox closed; the loop ends
		// once it is drained.
		return nil
	}

	if err := s.conn.WriteLine(fmt.Sprintf("You hit %s for %d damage", res.Defender, res.Damage)); err != nil {
		return fmt.Errorf("writing to client: %w", err)
	}
	s.registry.NextTurn(s.room)
	s.registry.Broadcast(s.room, s.id, combat.NextTurn)
	s.registry.NotifyTurn(s.room)
	return nil
}

// leave removes the player and tells whoever remains.
func (s *roomSession) leave() {
	if s.registry.Leave(s.room, s.id) {
		s.registry.Broadcast(s.room, "", room.LeftMessage(s.name, s.room))
	}
}

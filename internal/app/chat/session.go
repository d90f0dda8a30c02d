/*
Package chat contains the core logic for room-scoped relaying: per-connection sessions,
the broadcast hub that fans envelopes out to room members, and the WebSocket client pumps.

This file defines the Session, the per-connection protocol state machine
(Unjoined -> Joined -> Closed). Each handler returns nil on success or the CustomError
to acknowledge with; errors never reach other connections.
*/
package chat

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"roomchat/internal/app/message"
	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
	"roomchat/internal/pkg/req"
)

// MaxContentBytes is the maximum allowed size (in bytes) of message text.
const MaxContentBytes = 5000

// State is the protocol state of one connection.
type State int

const (
	StateUnjoined State = iota
	StateJoined
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// UserRegistry is the membership store a Session reads and mutates.
type UserRegistry interface {
	AddUser(connID, username, room string) (user.User, *errs.CustomError)
	RemoveUser(connID string) (user.User, bool)
	GetUser(connID string) (user.User, bool)
	GetUsersInRoom(room string) []user.User
}

// ProfanityFilter flags text that must not be relayed.
type ProfanityFilter interface {
	IsProfane(text string) bool
}

// Session handles the events of a single connection.
type Session struct {
	connID string
	users  UserRegistry
	router Broadcaster
	filter ProfanityFilter

	// mu serializes state transitions.
	mu    sync.Mutex
	state State

	logger zerolog.Logger
}

// NewSession constructs a Session for connID in the Unjoined state.
func NewSession(connID string, users UserRegistry, router Broadcaster, filter ProfanityFilter) *Session {
	return &Session{
		connID: connID,
		users:  users,
		router: router,
		filter: filter,
		state:  StateUnjoined,
		logger: logx.Logger().With().
			Str("component", "Session").
			Str("conn_id", connID).
			Logger(),
	}
}

// State returns the current protocol state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Handle decodes the payload for event and dispatches it.
func (s *Session) Handle(event string, payload json.RawMessage) *errs.CustomError {
	switch event {
	case EventJoin:
		var in JoinRequest
		if err := req.DecodePayload(payload, &in); err != nil {
			s.logger.Warn().Str("event", event).Msg("Client sent invalid join payload")
			return err
		}
		return s.Join(in)

	case EventSendMessage:
		var in SendMessageRequest
		if err := req.DecodePayload(payload, &in); err != nil {
			s.logger.Warn().Str("event", event).Msg("Client sent invalid sendMessage payload")
			return err
		}
		return s.SendMessage(in)

	case EventSendLocation:
		if req.IsEmpty(payload) {
			return s.SendLocation(nil)
		}
		var in SendLocationRequest
		if err := req.DecodePayload(payload, &in); err != nil {
			s.logger.Warn().Str("event", event).Msg("Client sent invalid sendLocation payload")
			return err
		}
		return s.SendLocation(&in)

	default:
		s.logger.Warn().Str("event", event).Msg("Client sent unsupported event")
		return errs.NewError(errs.ErrUnsupportedEvent)
	}
}

// Join registers the connection in a room and announces it.
func (s *Session) Join(in JoinRequest) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return errs.NewError(errs.ErrSessionClosed)
	case StateJoined:
		return errs.NewError(errs.ErrAlreadyJoined)
	}

	var (
		u   user.User
		err *errs.CustomError
	)
	s.router.InRoomOrder(in.Room, func() {
		u, err = s.users.AddUser(s.connID, in.Username, in.Room)
		if err != nil {
			return
		}

		s.state = StateJoined
		s.router.Subscribe(s.connID, u.Room)

		s.router.ToConn(s.connID, EventMessage, message.GenerateMessage(message.SystemSender, "Welcome!"))
		s.router.ToRoomExcept(u.Room, s.connID, EventMessage,
			message.GenerateMessage(message.SystemSender, fmt.Sprintf("%s has joined the %s room.", u.Username, u.Room)))
		s.publishRoster(u.Room)
	})

	if err != nil {
		if errs.IsValidation(err) {
			s.logger.Info().Int("code", err.Code).Msg("Join rejected.")
		} else {
			s.logger.Warn().Int("code", err.Code).Msg("Join refused for registered connection.")
		}
		return err
	}

	s.logger.Info().Str("room", u.Room).Str("username", u.Username).Msg("Joined room.")
	return nil
}

// SendMessage relays text to the sender's whole room, sender included.
func (s *Session) SendMessage(in SendMessageRequest) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return errs.NewError(errs.ErrSessionClosed)
	}

	if len(in.Text) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong, MaxContentBytes)
	}

	if s.filter.IsProfane(in.Text) {
		s.logger.Info().Msg("Message rejected by profanity filter.")
		return errs.NewError(errs.ErrProfanityRejected)
	}

	u, ok := s.users.GetUser(s.connID)
	if !ok {
		return errs.NewError(errs.ErrNotJoined)
	}

	s.router.ToRoom(u.Room, EventMessage, message.GenerateMessage(u.Username, in.Text))
	return nil
}

// SendLocation relays a map link to the sender's whole room. A nil request, or one
// missing a coordinate, is rejected as missing location data.
func (s *Session) SendLocation(in *SendLocationRequest) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return errs.NewError(errs.ErrSessionClosed)
	}

	if in == nil || in.Latitude == nil || in.Longitude == nil {
		return errs.NewError(errs.ErrMissingLocationData)
	}

	u, ok := s.users.GetUser(s.connID)
	if !ok {
		return errs.NewError(errs.ErrNotJoined)
	}

	env := message.GenerateLocationMessage(
		u.Username,
		message.LocationURL(*in.Latitude, *in.Longitude),
		message.FromUnixMilli(in.UnixMilli()),
	)
	s.router.ToRoom(u.Room, EventLocationMessage, env)
	return nil
}

// Disconnect removes the connection and tells the remaining members. It is safe to
// call more than once and on a connection that never joined.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	s.state = StateClosed

	current, joined := s.users.GetUser(s.connID)
	if !joined {
		s.router.Unsubscribe(s.connID)
		return
	}

	s.router.InRoomOrder(current.Room, func() {
		s.router.Unsubscribe(s.connID)

		u, ok := s.users.RemoveUser(s.connID)
		if !ok {
			return
		}

		s.router.ToRoom(u.Room, EventMessage,
			message.GenerateMessage(message.SystemSender, fmt.Sprintf("%s has left the %s chat room.", u.Username, u.Room)))
		s.publishRoster(u.Room)

		s.logger.Info().Str("room", u.Room).Str("username", u.Username).Msg("Left room.")
	})
}

// publishRoster sends the current roster of room to all its members.
// Callers hold the room's ordering lock.
func (s *Session) publishRoster(room string) {
	s.router.ToRoom(room, EventRoomData, NewRoomData(room, s.users.GetUsersInRoom(room)))
}

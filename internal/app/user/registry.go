package user

import (
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"roomchat/internal/pkg/errs"
	"roomchat/internal/pkg/logx"
)

// RoomSummary describes one derived room.
type RoomSummary struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// Registry is the in-memory store of joined users, keyed by connection ID.
// Rooms are not stored; they are derived from the Room field of current members.
type Registry struct {
	// users holds current members in insertion order.
	users []User

	// mu guards users. The uniqueness check and the insert in AddUser
	// happen under one write lock.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users:  make([]User, 0),
		logger: logx.Component("Registry"),
	}
}

// AddUser validates and registers a user for connID.
// Username and room are trimmed; both must be non-empty, and the username must not
// already be used (case-insensitively) by a member of the same (case-insensitive) room.
func (r *Registry) AddUser(connID, rawUsername, rawRoom string) (User, *errs.CustomError) {
	username := strings.TrimSpace(rawUsername)
	room := strings.TrimSpace(rawRoom)

	if username == "" || room == "" {
		return User{}, errs.NewError(errs.ErrUserFieldsRequired)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(connID) >= 0 {
		r.logger.Warn().Str("conn_id", connID).Msg("Connection already registered.")
		return User{}, errs.NewError(errs.ErrAlreadyJoined)
	}

	roomKey := RoomKey(room)
	name := nameKey(username)
	for _, existing := range r.users {
		if RoomKey(existing.Room) == roomKey && nameKey(existing.Username) == name {
			r.logger.Info().
				Str("conn_id", connID).
				Str("room", room).
				Msg("Username already in use in room.")
			return User{}, errs.NewError(errs.ErrUsernameTaken)
		}
	}

	u := User{ConnID: connID, Username: username, Room: room}
	r.users = append(r.users, u)

	r.logger.Debug().
		Str("conn_id", connID).
		Str("room", room).
		Int("total_users", len(r.users)).
		Msg("User added.")

	return u, nil
}

// RemoveUser removes and returns the user registered for connID.
// The boolean is false when no user was registered; that is not an error.
func (r *Registry) RemoveUser(connID string) (User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(connID)
	if idx < 0 {
		return User{}, false
	}

	removed := r.users[idx]
	r.users = slices.Delete(r.users, idx, idx+1)

	r.logger.Debug().
		Str("conn_id", connID).
		Str("room", removed.Room).
		Int("total_users", len(r.users)).
		Msg("User removed.")

	return removed, true
}

// GetUser returns the user registered for connID.
func (r *Registry) GetUser(connID string) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(connID)
	if idx < 0 {
		return User{}, false
	}
	return r.users[idx], true
}

// GetUsersInRoom returns the members of room in join order. The result is never nil.
func (r *Registry) GetUsersInRoom(room string) []User {
	key := RoomKey(room)

	r.mu.RLock()
	defer r.mu.RUnlock()

	members := make([]User, 0)
	for _, u := range r.users {
		if RoomKey(u.Room) == key {
			members = append(members, u)
		}
	}
	return members
}

// Count returns the number of joined users across all rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}

// Rooms summarizes the rooms that currently have members, sorted by key.
// A room is named after the label its earliest current member joined with.
func (r *Registry) Rooms() []RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byKey := make(map[string]*RoomSummary)
	keys := make([]string, 0)
	for _, u := range r.users {
		key := RoomKey(u.Room)
		summary, ok := byKey[key]
		if !ok {
			summary = &RoomSummary{Name: u.Room}
			byKey[key] = summary
			keys = append(keys, key)
		}
		summary.Members++
	}

	sort.Strings(keys)

	rooms := make([]RoomSummary, 0, len(keys))
	for _, key := range keys {
		rooms = append(rooms, *byKey[key])
	}
	return rooms
}

// indexOf must be called with mu held.
func (r *Registry) indexOf(connID string) int {
	return slices.IndexFunc(r.users, func(u User) bool {
		return u.ConnID == connID
	})
}

package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomchat/internal/app/user"
	"roomchat/internal/pkg/errs"
)

type stubFilter struct {
	banned string
}

func (f stubFilter) IsProfane(text string) bool {
	return strings.Contains(strings.ToLower(text), f.banned)
}

type fixture struct {
	hub   *Hub
	users *user.Registry
}

func newFixture() *fixture {
	return &fixture{hub: NewHub(), users: user.NewRegistry()}
}

func (f *fixture) connect(id string) (*Session, *mockConn) {
	conn := &mockConn{id: id}
	f.hub.Register(conn)
	return NewSession(id, f.users, f.hub, stubFilter{banned: "darn"}), conn
}

func (f *fixture) joined(t *testing.T, id, username, room string) (*Session, *mockConn) {
	t.Helper()
	s, conn := f.connect(id)
	require.Nil(t, s.Join(JoinRequest{Username: username, Room: room}))
	conn.frames(t)
	return s, conn
}

func TestSession_JoinFirstMember(t *testing.T) {
	f := newFixture()
	alice, aliceConn := f.connect("alice")

	err := alice.Join(JoinRequest{Username: "Alice", Room: "lobby"})
	require.Nil(t, err)
	assert.Equal(t, StateJoined, alice.State())

	frames := aliceConn.frames(t)
	require.Len(t, frames, 2, "welcome and roster only; the joined notice excludes the joiner")

	assert.Equal(t, EventMessage, frames[0].Event)
	welcome := decodeEnvelope(t, frames[0])
	assert.Equal(t, "System", welcome.SenderLabel)
	assert.Equal(t, "Welcome!", welcome.Payload)
	assert.NotZero(t, welcome.Timestamp)

	assert.Equal(t, EventRoomData, frames[1].Event)
	room, names := decodeRoomData(t, frames[1])
	assert.Equal(t, "lobby", room)
	assert.Equal(t, []string{"Alice"}, names)
}

func TestSession_JoinNotifiesOthers(t *testing.T) {
	f := newFixture()
	_, aliceConn := f.joined(t, "alice", "Alice", "lobby")
	_, kitchenConn := f.joined(t, "carol", "Carol", "kitchen")

	bob, bobConn := f.connect("bob")
	require.Nil(t, bob.Join(JoinRequest{Username: " Bob ", Room: "lobby"}))

	aliceFrames := aliceConn.frames(t)
	require.Len(t, aliceFrames, 2)
	notice := decodeEnvelope(t, aliceFrames[0])
	assert.Equal(t, "System", notice.SenderLabel)
	assert.Equal(t, "Bob has joined the lobby room.", notice.Payload)
	_, names := decodeRoomData(t, aliceFrames[1])
	assert.Equal(t, []string{"Alice", "Bob"}, names)

	bobFrames := bobConn.frames(t)
	require.Len(t, bobFrames, 2)
	assert.Equal(t, "Welcome!", decodeEnvelope(t, bobFrames[0]).Payload)
	_, names = decodeRoomData(t, bobFrames[1])
	assert.Equal(t, []string{"Alice", "Bob"}, names)

	assert.Empty(t, kitchenConn.frames(t), "other rooms are not notified")
}

func TestSession_JoinValidationFailure(t *testing.T) {
	tests := []struct {
		name     string
		in       JoinRequest
		wantCode int
	}{
		{name: "case-insensitive collision", in: JoinRequest{Username: "alice", Room: "LOBBY"}, wantCode: errs.ErrUsernameTaken},
		{name: "blank username", in: JoinRequest{Username: "  ", Room: "lobby"}, wantCode: errs.ErrUserFieldsRequired},
		{name: "blank room", in: JoinRequest{Username: "Zed", Room: ""}, wantCode: errs.ErrUserFieldsRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, aliceConn := f.joined(t, "alice", "Alice", "lobby")
			s, conn := f.connect("other")

			err := s.Join(tt.in)

			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.True(t, errs.IsValidation(err))
			assert.Equal(t, StateUnjoined, s.State())
			assert.Empty(t, conn.frames(t))
			assert.Empty(t, aliceConn.frames(t), "failed joins never broadcast")

			require.Nil(t, s.Join(JoinRequest{Username: "Zed", Room: "lobby"}), "session may retry after a failed join")
		})
	}
}

func TestSession_JoinTwice(t *testing.T) {
	f := newFixture()
	alice, aliceConn := f.joined(t, "alice", "Alice", "lobby")

	err := alice.Join(JoinRequest{Username: "Alice2", Room: "kitchen"})

	require.NotNil(t, err)
	assert.Equal(t, errs.ErrAlreadyJoined, err.Code)
	assert.Empty(t, aliceConn.frames(t))
	assert.Len(t, f.users.GetUsersInRoom("lobby"), 1)
	assert.Empty(t, f.users.GetUsersInRoom("kitchen"))
}

func TestSession_SendMessage(t *testing.T) {
	f := newFixture()
	alice, aliceConn := f.joined(t, "alice", "Alice", "lobby")
	_, bobConn := f.joined(t, "bob", "Bob", "lobby")
	aliceConn.frames(t)

	require.Nil(t, alice.SendMessage(SendMessageRequest{Text: "hello"}))

	for name, conn := range map[string]*mockConn{"alice": aliceConn, "bob": bobConn} {
		frames := conn.frames(t)
		require.Len(t, frames, 1, name)
		assert.Equal(t, EventMessage, frames[0].Event)
		env := decodeEnvelope(t, frames[0])
		assert.Equal(t, "Alice", env.SenderLabel, name)
		assert.Equal(t, "hello", env.Payload, name)
	}
}

func TestSession_SendMessageRejected(t *testing.T) {
	tests := []struct {
		name     string
		joined   bool
		text     string
		wantCode int
	}{
		{name: "profanity", joined: true, text: "well DARN it", wantCode: errs.ErrProfanityRejected},
		{name: "profanity checked before membership", joined: false, text: "darn", wantCode: errs.ErrProfanityRejected},
		{name: "not joined", joined: false, text: "hello", wantCode: errs.ErrNotJoined},
		{name: "too long", joined: true, text: strings.Repeat("a", MaxContentBytes+1), wantCode: errs.ErrMessageContentTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, bobConn := f.joined(t, "bob", "Bob", "lobby")

			var s *Session
			var conn *mockConn
			if tt.joined {
				s, conn = f.joined(t, "alice", "Alice", "lobby")
				bobConn.frames(t)
			} else {
				s, conn = f.connect("alice")
			}

			err := s.SendMessage(SendMessageRequest{Text: tt.text})

			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Empty(t, conn.frames(t))
			assert.Empty(t, bobConn.frames(t))
		})
	}
}

func TestSession_TooLongMessageText(t *testing.T) {
	f := newFixture()
	alice, _ := f.joined(t, "alice", "Alice", "lobby")

	err := alice.SendMessage(SendMessageRequest{Text: strings.Repeat("a", MaxContentBytes+1)})

	require.NotNil(t, err)
	assert.Equal(t, "Message is too long (max 5000 bytes).", err.Message)
}

func TestSession_SendLocation(t *testing.T) {
	f := newFixture()
	alice, aliceConn := f.joined(t, "alice", "Alice", "lobby")
	_, bobConn := f.joined(t, "bob", "Bob", "lobby")
	aliceConn.frames(t)

	lat, lng := 48.8584, 2.2945
	err := alice.SendLocation(&SendLocationRequest{Latitude: &lat, Longitude: &lng, Timestamp: 1700000000000})
	require.Nil(t, err)

	for name, conn := range map[string]*mockConn{"alice": aliceConn, "bob": bobConn} {
		frames := conn.frames(t)
		require.Len(t, frames, 1, name)
		assert.Equal(t, EventLocationMessage, frames[0].Event)
		env := decodeEnvelope(t, frames[0])
		assert.Equal(t, "Alice", env.SenderLabel)
		assert.Equal(t, "https://google.com/maps?q=48.8584,2.2945", env.Payload)
		assert.Equal(t, int64(1700000000000), env.Timestamp)
	}
}

func TestSession_SendLocationOutOfRangeTimestamp(t *testing.T) {
	f := newFixture()
	alice, aliceConn := f.joined(t, "alice", "Alice", "lobby")

	lat, lng := 1.0, 2.0
	before := time.Now().UnixMilli()
	require.Nil(t, alice.SendLocation(&SendLocationRequest{Latitude: &lat, Longitude: &lng, Timestamp: 1e300}))
	after := time.Now().UnixMilli()

	frames := aliceConn.frames(t)
	require.Len(t, frames, 1)
	env := decodeEnvelope(t, frames[0])
	assert.GreaterOrEqual(t, env.Timestamp, before, "server time replaces an impossible client clock")
	assert.LessOrEqual(t, env.Timestamp, after)
}

func TestSession_SendLocationRejected(t *testing.T) {
	lat := 1.5

	tests := []struct {
		name     string
		joined   bool
		in       *SendLocationRequest
		wantCode int
	}{
		{name: "absent", joined: true, in: nil, wantCode: errs.ErrMissingLocationData},
		{name: "no coordinates", joined: true, in: &SendLocationRequest{}, wantCode: errs.ErrMissingLocationData},
		{name: "latitude only", joined: true, in: &SendLocationRequest{Latitude: &lat}, wantCode: errs.ErrMissingLocationData},
		{name: "not joined", joined: false, in: &SendLocationRequest{Latitude: &lat, Longitude: &lat}, wantCode: errs.ErrNotJoined},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, bobConn := f.joined(t, "bob", "Bob", "lobby")

			var s *Session
			if tt.joined {
				s, _ = f.joined(t, "alice", "Alice", "lobby")
				bobConn.frames(t)
			} else {
				s, _ = f.connect("alice")
			}

			err := s.SendLocation(tt.in)

			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Empty(t, bobConn.frames(t))
		})
	}
}

func TestSession_DisconnectLastMember(t *testing.T) {
	f := newFixture()
	alice, aliceConn := f.joined(t, "alice", "Alice", "lobby")

	alice.Disconnect()

	assert.Equal(t, StateClosed, alice.State())
	assert.Empty(t, aliceConn.frames(t), "the leaver receives nothing")
	assert.Empty(t, f.users.GetUsersInRoom("lobby"))

	rooms, _ := f.hub.Stats()
	assert.Zero(t, rooms)
}

func TestSession_DisconnectNotifiesRemaining(t *testing.T) {
	f := newFixture()
	alice, _ := f.joined(t, "alice", "Alice", "lobby")
	_, bobConn := f.joined(t, "bob", "Bob", "lobby")

	alice.Disconnect()

	frames := bobConn.frames(t)
	require.Len(t, frames, 2)
	notice := decodeEnvelope(t, frames[0])
	assert.Equal(t, "System", notice.SenderLabel)
	assert.Equal(t, "Alice has left the lobby chat room.", notice.Payload)

	room, names := decodeRoomData(t, frames[1])
	assert.Equal(t, "lobby", room)
	assert.Equal(t, []string{"Bob"}, names)

	alice.Disconnect()
	assert.Empty(t, bobConn.frames(t), "second disconnect is a no-op")
}

func TestSession_DisconnectNeverJoined(t *testing.T) {
	f := newFixture()
	_, bobConn := f.joined(t, "bob", "Bob", "lobby")
	s, conn := f.connect("ghost")

	s.Disconnect()

	assert.Equal(t, StateClosed, s.State())
	assert.Empty(t, conn.frames(t))
	assert.Empty(t, bobConn.frames(t))
}

func TestSession_ClosedRejectsEvents(t *testing.T) {
	f := newFixture()
	s, _ := f.joined(t, "alice", "Alice", "lobby")
	s.Disconnect()

	lat := 1.0
	for name, err := range map[string]*errs.CustomError{
		"join":     s.Join(JoinRequest{Username: "Alice", Room: "lobby"}),
		"message":  s.SendMessage(SendMessageRequest{Text: "hi"}),
		"location": s.SendLocation(&SendLocationRequest{Latitude: &lat, Longitude: &lat}),
	} {
		require.NotNil(t, err, name)
		assert.Equal(t, errs.ErrSessionClosed, err.Code, name)
	}
	assert.Empty(t, f.users.GetUsersInRoom("lobby"))
}

func TestSession_Handle(t *testing.T) {
	tests := []struct {
		name     string
		event    string
		payload  string
		wantCode int
	}{
		{name: "join ok", event: EventJoin, payload: `{"username":"Alice","room":"lobby"}`},
		{name: "join malformed", event: EventJoin, payload: `{"username":`, wantCode: errs.ErrInvalidParams},
		{name: "join missing payload", event: EventJoin, payload: ``, wantCode: errs.ErrInvalidParams},
		{name: "unsupported", event: "typing", payload: `{}`, wantCode: errs.ErrUnsupportedEvent},
		{name: "message before join", event: EventSendMessage, payload: `{"text":"hi"}`, wantCode: errs.ErrNotJoined},
		{name: "bare string message before join", event: EventSendMessage, payload: `"hi"`, wantCode: errs.ErrNotJoined},
		{name: "message wrong type", event: EventSendMessage, payload: `{"text":5}`, wantCode: errs.ErrInvalidParams},
		{name: "location empty object", event: EventSendLocation, payload: `{}`, wantCode: errs.ErrMissingLocationData},
		{name: "location null", event: EventSendLocation, payload: `null`, wantCode: errs.ErrMissingLocationData},
		{name: "location malformed", event: EventSendLocation, payload: `{"latitude":"north"}`, wantCode: errs.ErrInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			s, _ := f.connect("alice")

			err := s.Handle(tt.event, json.RawMessage(tt.payload))

			if tt.wantCode == 0 {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.wantCode, err.Code)
		})
	}
}

func TestSession_HandleFullFlow(t *testing.T) {
	f := newFixture()
	s, conn := f.connect("alice")

	require.Nil(t, s.Handle(EventJoin, json.RawMessage(`{"username":"Alice","room":"lobby"}`)))
	conn.frames(t)

	require.Nil(t, s.Handle(EventSendMessage, json.RawMessage(`"plain string"`)))
	require.Nil(t, s.Handle(EventSendLocation, json.RawMessage(`{"latitude":1.25,"longitude":-2,"timeStamp":1600000000000}`)))

	frames := conn.frames(t)
	require.Len(t, frames, 2)
	assert.Equal(t, "plain string", decodeEnvelope(t, frames[0]).Payload)

	loc := decodeEnvelope(t, frames[1])
	assert.Equal(t, "https://google.com/maps?q=1.25,-2", loc.Payload)
	assert.Equal(t, int64(1600000000000), loc.Timestamp)
}

func TestSendMessageRequest_UnmarshalJSON(t *testing.T) {
	var obj SendMessageRequest
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hello"}`), &obj))
	assert.Equal(t, "hello", obj.Text)

	var str SendMessageRequest
	require.NoError(t, json.Unmarshal([]byte(` "hello" `), &str))
	assert.Equal(t, "hello", str.Text)

	var bad SendMessageRequest
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &bad))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unjoined", StateUnjoined.String())
	assert.Equal(t, "joined", StateJoined.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "State(9)", State(9).String())
}

// slowRosterRegistry stalls after reading a single-member roster, so that a
// second join can run while the first one's roster is still unpublished.
type slowRosterRegistry struct {
	*user.Registry
	delay time.Duration
}

func (r slowRosterRegistry) GetUsersInRoom(room string) []user.User {
	members := r.Registry.GetUsersInRoom(room)
	if len(members) == 1 {
		time.Sleep(r.delay)
	}
	return members
}

// lastRoster returns the usernames of the last roomData frame conn received.
func lastRoster(t *testing.T, conn *mockConn) []string {
	t.Helper()

	var names []string
	for _, f := range conn.frames(t) {
		if f.Event == EventRoomData {
			_, names = decodeRoomData(t, f)
		}
	}
	return names
}

func TestSession_ConcurrentJoinsEndWithFullRoster(t *testing.T) {
	hub := NewHub()
	users := slowRosterRegistry{Registry: user.NewRegistry(), delay: 50 * time.Millisecond}

	aliceConn := &mockConn{id: "a"}
	bobConn := &mockConn{id: "b"}
	hub.Register(aliceConn)
	hub.Register(bobConn)
	alice := NewSession("a", users, hub, stubFilter{banned: "darn"})
	bob := NewSession("b", users, hub, stubFilter{banned: "darn"})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.Nil(t, alice.Join(JoinRequest{Username: "Alice", Room: "lobby"}))
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		assert.Nil(t, bob.Join(JoinRequest{Username: "Bob", Room: "lobby"}))
	}()
	wg.Wait()

	assert.ElementsMatch(t, []string{"Alice", "Bob"}, lastRoster(t, aliceConn))
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, lastRoster(t, bobConn))
}

func TestSession_ConcurrentMembershipChanges(t *testing.T) {
	const n = 16

	f := newFixture()
	sessions := make([]*Session, n)
	conns := make([]*mockConn, n)
	for i := range sessions {
		sessions[i], conns[i] = f.connect(fmt.Sprintf("c%d", i))
	}

	var wg sync.WaitGroup
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.Nil(t, sessions[i].Join(JoinRequest{Username: fmt.Sprintf("user%d", i), Room: "lobby"}))
		}(i)
	}
	wg.Wait()

	for i, conn := range conns {
		assert.Len(t, lastRoster(t, conn), n, "conn %d must end with the full roster", i)
	}

	// The first half leaves concurrently; the rest must end with exactly the stayers.
	for i := 0; i < n/2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i].Disconnect()
		}(i)
	}
	wg.Wait()

	want := make([]string, 0, n/2)
	for i := n / 2; i < n; i++ {
		want = append(want, fmt.Sprintf("user%d", i))
	}
	for i := n / 2; i < n; i++ {
		assert.ElementsMatch(t, want, lastRoster(t, conns[i]), "conn %d", i)
	}
}

package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockConn struct {
	id       string
	received [][]byte
	closed   bool
	sendErr  error
	mu       sync.Mutex
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.received = append(m.received, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// frames decodes everything received so far and clears the buffer.
func (m *mockConn) frames(t *testing.T) []Frame {
	t.Helper()

	m.mu.Lock()
	raw := m.received
	m.received = nil
	m.mu.Unlock()

	out := make([]Frame, 0, len(raw))
	for _, data := range raw {
		var f Frame
		require.NoError(t, json.Unmarshal(data, &f))
		out = append(out, f)
	}
	return out
}

type wireEnvelope struct {
	SenderLabel string `json:"senderLabel"`
	Payload     string `json:"payload"`
	Timestamp   int64  `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, f Frame) wireEnvelope {
	t.Helper()
	var env wireEnvelope
	require.NoError(t, json.Unmarshal(f.Payload, &env))
	return env
}

func decodeRoomData(t *testing.T, f Frame) (string, []string) {
	t.Helper()
	var rd RoomData
	require.NoError(t, json.Unmarshal(f.Payload, &rd))

	names := make([]string, 0, len(rd.Users))
	for _, u := range rd.Users {
		names = append(names, u.Username)
	}
	return rd.Room, names
}

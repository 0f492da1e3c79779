package port

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/stackrun/internal/compose"
)

// listenTCP binds an OS-assigned TCP port for the duration of the test.
func listenTCP(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l.Addr().(*net.TCPAddr).Port
}

// freeTCPPort returns a port that was free a moment ago.
func freeTCPPort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestIsPortAvailable_TCP(t *testing.T) {
	s := NewScanner()

	used := listenTCP(t)
	assert.False(t, s.IsPortAvailable("", used, "tcp"))

	free := freeTCPPort(t)
	assert.True(t, s.IsPortAvailable("", free, "tcp"))
}

func TestIsPortAvailable_UDP(t *testing.T) {
	conn, err := net.ListenPacket("udp", ":0")
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	port := conn.LocalAddr().(*net.UDPAddr).Port
	assert.False(t, NewScanner().IsPortAvailable("", port, "udp"))
}

func TestIsPortAvailable_UnknownProtocol(t *testing.T) {
	assert.False(t, NewScanner().IsPortAvailable("", freeTCPPort(t), "sctp"))
}

func TestConflicts(t *testing.T) {
	used := listenTCP(t)
	free := freeTCPPort(t)

	desc := &compose.Descriptor{Services: map[string]compose.Service{
		"mongo": {Ports: compose.Ports{
			{HostPort: used, ContainerPort: 27017, Protocol: "tcp"},
		}},
		"backend": {Ports: compose.Ports{
			{HostPort: free, ContainerPort: 3000, Protocol: "tcp"},
			// Exposed only; never checked.
			{ContainerPort: 9229, Protocol: "tcp"},
		}},
		"frontend": {Ports: compose.Ports{
			{HostPort: used, ContainerPort: 80, Protocol: "tcp"},
		}},
	}}

	s := NewScanner()

	conflicts := s.Conflicts(desc, nil)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "frontend", conflicts[0].Service)
	assert.Equal(t, "mongo", conflicts[1].Service)
	assert.Equal(t, used, conflicts[1].Mapping.HostPort)

	conflicts = s.Conflicts(desc, map[string]bool{"mongo": true, "frontend": true})
	assert.Empty(t, conflicts)
}

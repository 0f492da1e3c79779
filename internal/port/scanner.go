package port

import (
	"net"
	"sort"
	"strconv"

	"github.com/shinji-kodama/stackrun/internal/compose"
)

// Scanner checks whether ports are available on the host machine.
//
// It asks the operating system's network stack directly by binding the
// port, instead of parsing /proc/net or shelling out to lsof or ss, which
// may need elevated permissions.
//
// Scanner is stateless today. It is a struct so options such as a bind
// timeout can be added without changing callers.
type Scanner struct{}

// NewScanner creates a new Scanner. No configuration is needed yet.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsPortAvailable reports whether port can be bound on hostIP for protocol.
//
// An empty hostIP means all interfaces, which is where Docker publishes
// ports when the compose file gives no host IP. A mapping published on
// 127.0.0.1 is checked on 127.0.0.1 only, so a process bound to another
// interface does not count as a conflict.
//
// Parameters:
//   - hostIP: the interface address, or "" for all interfaces
//   - port: the port number to check (1-65535)
//   - protocol: "tcp" or "udp"
//
// Returns true when the bind succeeds. The socket is released before
// returning.
func (s *Scanner) IsPortAvailable(hostIP string, port int, protocol string) bool {
	// JoinHostPort brackets IPv6 addresses, so "::1" becomes "[::1]:port".
	addr := net.JoinHostPort(hostIP, strconv.Itoa(port))

	switch protocol {
	case "tcp":
		// Listen fails with "address already in use" when another process
		// holds the port.
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		// Only the bind mattered; no connection is ever accepted.
		_ = l.Close()
		return true

	case "udp":
		// UDP is connectionless, so the bind goes through ListenPacket.
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		// An unknown protocol cannot be checked and is reported as taken.
		return false
	}
}

// Conflict is a published port that is already in use on the host.
type Conflict struct {
	// Service is the compose service publishing the port.
	Service string

	// Mapping is the port entry as declared in the compose file.
	Mapping compose.PortMapping
}

// Conflicts checks every fixed host port published by the descriptor's
// services and returns the ones that cannot be bound.
//
// Services listed in skip are not checked, typically because their own
// running containers are the ones holding the ports. Entries without a
// fixed host port (container-only ports and interpolated values compose
// resolves at runtime) are skipped as well.
//
// Results are ordered by service, then host port.
func (s *Scanner) Conflicts(desc *compose.Descriptor, skip map[string]bool) []Conflict {
	var out []Conflict

	// ServiceNames is already sorted, which keeps the scan order stable.
	for _, name := range desc.ServiceNames() {
		if skip[name] {
			continue
		}
		for _, m := range desc.Services[name].Ports {
			// Docker picks an ephemeral host port for these, so they
			// cannot collide.
			if !m.Published() {
				continue
			}
			if !s.IsPortAvailable(m.HostIP, m.HostPort, m.Protocol) {
				out = append(out, Conflict{Service: name, Mapping: m})
			}
		}
	}

	// A service may list its ports in any order; sort them within each
	// service so the report reads top to bottom.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Service != out[j].Service {
			return out[i].Service < out[j].Service
		}
		return out[i].Mapping.HostPort < out[j].Mapping.HostPort
	})
	return out
}

// Package port checks whether the host ports a composition publishes are
// free.
//
// The doctor command uses it to flag published ports that another process
// already holds, which would make "docker compose up" fail halfway through
// starting the stack. Availability is tested by binding the port with
// net.Listen (TCP) or net.ListenPacket (UDP) and releasing it immediately.
package port

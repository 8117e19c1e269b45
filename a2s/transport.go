package a2s

import (
	"fmt"
	"net"
)

// Transport abstracts the raw UDP socket the dispatcher sends and
// receives on, matching spec.md §6's sendTo/onMessage/bind/close
// collaborator shape realized as a Go blocking-read loop (the
// dispatcher supplies its own "onMessage" by calling RecvFrom in a
// loop) instead of a callback registration, which keeps the receive
// path a plain goroutine rather than a second inversion-of-control
// layer.
type Transport interface {
	// Bind opens the local UDP socket.
	Bind() error

	// SendTo writes data to the given IPv4 address and port.
	SendTo(data []byte, addr net.IP, port int) error

	// RecvFrom blocks for the next inbound datagram, returning its
	// payload, source address and port. It has no read timeout: a call
	// returns only when a datagram arrives or the socket is closed, and
	// the dispatcher ends its receive loop by closing the socket.
	RecvFrom(buf []byte) (n int, addr net.IP, port int, err error)

	// Close releases the socket. Safe to call once; the dispatcher
	// guarantees exactly one Close per run.
	Close() error
}

// udpTransport is the default Transport, a thin adapter over a single
// *net.UDPConn, grounded on the teacher's net.ListenPacket("udp4", ...)
// + ReadFrom/WriteTo server loop (internal/server/server.go), adapted
// from a listening server socket to a query-client socket: binding an
// ephemeral local port instead of a configured listen address.
type udpTransport struct {
	conn *net.UDPConn
}

func newUDPTransport() *udpTransport {
	return &udpTransport{}
}

func (t *udpTransport) Bind() error {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBind, err)
	}
	t.conn = conn
	return nil
}

func (t *udpTransport) SendTo(data []byte, addr net.IP, port int) error {
	_, err := t.conn.WriteToUDP(data, &net.UDPAddr{IP: addr, Port: port})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSocket, err)
	}
	return nil
}

func (t *udpTransport) RecvFrom(buf []byte) (int, net.IP, int, error) {
	n, addr, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		return 0, nil, 0, err
	}
	return n, addr.IP, addr.Port, nil
}

func (t *udpTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

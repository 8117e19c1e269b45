package a2s

import "net"

// EndpointConfig is caller-supplied input: a hostname and the UDP port
// to query it on. Resolution (host -> IPv4 address) happens before the
// query starts; see the Resolver interface.
type EndpointConfig struct {
	Host string
	Port int
}

// Endpoint is the finalized, caller-visible result slots for one
// queried server. It is mutated only by the dispatcher's single
// goroutine, per the happens-before argument in the concurrency model;
// callers should treat a value received via the event surface as a
// read-only snapshot.
//
// The fields here are deliberately the "public" half of what the source
// material calls the endpoint: challenge tokens, the ping send
// timestamp, and in-flight reassembly buffers are session-scoped state
// owned by the state machine (see session in statemachine.go), not
// exposed here.
type Endpoint struct {
	Host         string
	ResolvedAddr net.IP
	Port         int

	Info    InfoVariant
	Players []Player
	Rules   []Rule
	PingMs  float64

	// Done is set by the dispatcher the moment this endpoint's session
	// reaches its terminal stage (every slot above populated, ping
	// included). Callers should use this rather than inspecting PingMs
	// for a nonzero value: a genuine round trip measured at 0.0ms on a
	// loopback/same-host query would otherwise read as "not yet done".
	Done bool

	// Err is the first fatal parse/protocol error recorded for this
	// endpoint during the run, if any. A non-nil Err means this
	// endpoint's remaining slots may be incomplete.
	Err error
}

// Complete reports whether this endpoint's session reached its terminal
// stage before the run ended. A caller inspecting endpoints off a Done
// event should check this to tell a fully answered endpoint apart from
// one the overall deadline cut short (see ErrTimeout).
func (e *Endpoint) Complete() bool {
	return e.Done
}

// Key identifies an endpoint by its resolved (address, port) pair, the
// routing key the dispatcher demultiplexes inbound datagrams on.
type Key struct {
	Addr string // net.IP.String() of the resolved address
	Port int
}

func keyFor(addr net.IP, port int) Key {
	return Key{Addr: addr.String(), Port: port}
}

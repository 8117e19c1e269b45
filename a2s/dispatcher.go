package a2s

import (
	"context"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config is the caller-tunable behavior of a Dispatcher run.
type Config struct {
	// TimeoutMs bounds the whole run; it is not an error for it to fire
	// before every endpoint completes (see ErrTimeout).
	TimeoutMs int

	// BufferSize is the per-recv datagram buffer, matching the
	// Ethernet-safe default zenit's A2S config carries rather than the
	// arbitrary 1024/4096 simpler clients hardcode.
	BufferSize int
}

// DefaultConfig returns the spec-mandated defaults: a 2000ms overall
// deadline and a 1400-byte receive buffer.
func DefaultConfig() Config {
	return Config{TimeoutMs: 2000, BufferSize: 1400}
}

func (c Config) withDefaults() Config {
	if c.TimeoutMs <= 0 {
		c.TimeoutMs = DefaultConfig().TimeoutMs
	}
	if c.BufferSize <= 0 {
		c.BufferSize = DefaultConfig().BufferSize
	}
	return c
}

// Dispatcher owns the UDP socket, the endpoint set, the overall timeout
// and the (address, port) -> endpoint routing table described in
// spec.md §4.5. One Dispatcher serves exactly one Run.
type Dispatcher struct {
	log       *zap.SugaredLogger
	resolver  Resolver
	transport Transport
	cfg       Config
}

// NewDispatcher builds a Dispatcher. A nil logger, resolver or transport
// falls back to a no-op logger, DefaultResolver or the default UDP
// transport, respectively.
func NewDispatcher(log *zap.SugaredLogger, resolver Resolver, transport Transport, cfg Config) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if resolver == nil {
		resolver = NewDefaultResolver()
	}
	if transport == nil {
		transport = newUDPTransport()
	}
	return &Dispatcher{log: log, resolver: resolver, transport: transport, cfg: cfg.withDefaults()}
}

type resolveResult struct {
	idx   int
	addrs []net.IP
	err   error
}

type datagram struct {
	addr net.IP
	port int
	data []byte
}

// Run resolves every endpoint's hostname, binds the socket, sends the
// initial A2S_INFO to each, and drives the per-endpoint state machines
// until every endpoint completes or the overall deadline fires. It
// returns immediately with the event surface; the run continues on
// background goroutines and delivers events as they happen, finishing
// with exactly one Done.
func (d *Dispatcher) Run(ctx context.Context, configs []EndpointConfig) (*Events, error) {
	events := newEvents(len(configs))

	if len(configs) == 0 {
		events.Done <- nil
		events.closeAll()
		return events, nil
	}

	if err := d.transport.Bind(); err != nil {
		return nil, err
	}

	endpoints := make([]*Endpoint, len(configs))
	sessions := make([]*session, len(configs))
	for i, c := range configs {
		endpoints[i] = &Endpoint{Host: c.Host, Port: c.Port}
		sessions[i] = newSession(endpoints[i])
	}

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(d.cfg.TimeoutMs)*time.Millisecond)
	group, gctx := errgroup.WithContext(runCtx)

	resolved := make(chan resolveResult, len(configs))
	incoming := make(chan datagram, 64)

	for i, c := range configs {
		i, host := i, c.Host
		group.Go(func() error {
			addrs, err := d.resolver.Resolve(gctx, host)
			select {
			case resolved <- resolveResult{idx: i, addrs: addrs, err: err}:
			case <-gctx.Done():
			}
			return nil // resolution failures are non-fatal; surfaced as events.
		})
	}

	group.Go(func() error { return d.recvLoop(gctx, incoming) })

	loop := &eventLoop{
		log:       d.log,
		transport: d.transport,
		endpoints: endpoints,
		sessions:  sessions,
		byKey:     make(map[Key]int, len(configs)),
		pending:   len(configs),
		events:    events,
		cancel:    cancel,
	}
	group.Go(func() error { return loop.run(gctx, resolved, incoming) })

	go func() {
		err := group.Wait()
		cancel()
		loop.finish(err)
	}()

	return events, nil
}

func (d *Dispatcher) recvLoop(ctx context.Context, out chan<- datagram) error {
	buf := make([]byte, d.cfg.BufferSize)
	for {
		n, addr, port, err := d.transport.RecvFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil // socket closed by the event loop on completion/timeout
			default:
				return fmt.Errorf("%w: %w", ErrSocket, err)
			}
		}
		cp := make([]byte, n)
		copy(cp, buf[:n])
		select {
		case out <- datagram{addr: addr, port: port, data: cp}:
		case <-ctx.Done():
			return nil
		}
	}
}

// eventLoop is the single goroutine that owns the socket and the
// endpoint slice for the lifetime of a Run, realizing the reactor model
// described in spec.md §5: every mutation below happens on this one
// goroutine, in the order its triggering message arrived, so no lock is
// needed between stages.
type eventLoop struct {
	log       *zap.SugaredLogger
	transport Transport
	endpoints []*Endpoint
	sessions  []*session
	byKey     map[Key]int
	pending   int
	events    *Events
	cancel    context.CancelFunc

	finished bool
}

func (l *eventLoop) run(ctx context.Context, resolved <-chan resolveResult, incoming <-chan datagram) error {
	for {
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				// recvLoop stays blocked in RecvFrom until the socket
				// closes, so group.Wait cannot return first; finish the
				// deadline-truncated run from here.
				l.finish(nil)
			}
			return nil
		case r := <-resolved:
			if fatal := l.handleResolved(r); fatal != nil {
				return fatal
			}
			if l.finished {
				return nil
			}
		case dg := <-incoming:
			l.handleDatagram(dg)
			if l.finished {
				return nil
			}
		}
	}
}

func (l *eventLoop) handleResolved(r resolveResult) error {
	if r.err != nil {
		l.log.Debugw("resolve failed", "error", r.err)
		l.events.Error <- r.err
		return nil
	}

	ep := l.endpoints[r.idx]
	ep.ResolvedAddr = r.addrs[0]
	l.byKey[keyFor(ep.ResolvedAddr, ep.Port)] = r.idx

	req := l.sessions[r.idx].start()
	if err := l.transport.SendTo(req, ep.ResolvedAddr, ep.Port); err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrSocket, err)
		l.events.Error <- wrapped
		return wrapped
	}
	return nil
}

func (l *eventLoop) handleDatagram(dg datagram) {
	idx, ok := l.byKey[keyFor(dg.addr, dg.port)]
	if !ok {
		l.events.Error <- ErrUnknownSource
		return
	}

	r := NewReader(dg.data)
	prefix, err := r.ReadI32()
	if err != nil {
		l.events.Error <- ErrBadFraming
		return
	}

	ep := l.endpoints[idx]
	sess := l.sessions[idx]
	now := time.Now()

	var toSend []byte
	var result sessionResult

	switch uint32(prefix) {
	case simplePacketHeader:
		toSend, result, err = sess.HandleDatagram(r.Remaining(), now)
	case splitPacketHeader:
		toSend, result, err = sess.HandleFragment(r.Remaining(), now)
	default:
		l.events.Error <- ErrBadFraming
		return
	}

	if err != nil {
		if ep.Err == nil {
			ep.Err = err
		}
		l.events.Error <- err
		return
	}
	if !result.fired {
		return // fragment folded in, reassembly still in progress
	}

	l.emit(ep, result)

	if result.kind == EventRules {
		// Ping RTT is measured from just before the datagram goes out.
		sess.armPing(now)
	}

	if len(toSend) > 0 {
		if err := l.transport.SendTo(toSend, ep.ResolvedAddr, ep.Port); err != nil {
			wrapped := fmt.Errorf("%w: %w", ErrSocket, err)
			l.events.Error <- wrapped
			l.finishLocked(wrapped)
			return
		}
	}

	if sess.done() {
		ep.Done = true
		l.pending--
		if l.pending <= 0 {
			l.finishLocked(nil)
		}
	}
}

func (l *eventLoop) emit(ep *Endpoint, result sessionResult) {
	switch result.kind {
	case EventInfo:
		l.events.Info <- InfoEvent{Endpoint: ep, Info: ep.Info}
	case EventChallenge:
		l.events.Challenge <- ChallengeEvent{Endpoint: ep, Token: result.token}
	case EventPlayer:
		l.events.Player <- PlayerEvent{Endpoint: ep, Players: ep.Players}
	case EventRules:
		l.events.Rules <- RulesEvent{Endpoint: ep, Rules: ep.Rules}
	case EventPing:
		l.events.Ping <- PingEvent{Endpoint: ep, Ms: ep.PingMs}
	}
}

// finishLocked closes the socket exactly once and delivers Done. It is
// called either from the event-loop goroutine or, once group.Wait has
// returned and the event loop has exited, from Run's waiting goroutine;
// the two never overlap, so no mutex is needed despite the name.
func (l *eventLoop) finishLocked(err error) {
	if l.finished {
		return
	}
	l.finished = true

	_ = l.transport.Close()
	l.cancel()

	if err != nil {
		l.log.Errorw("run ended with fatal error", "error", err)
	}

	snapshot := make([]*Endpoint, len(l.endpoints))
	copy(snapshot, l.endpoints)
	l.events.Done <- snapshot
	l.events.closeAll()
}

// finish is the fallback path: if the run ends because the overall
// context deadline fired (or the group failed) rather than because the
// event loop called finishLocked itself (pending still > 0), this
// surfaces ErrTimeout (deadline only, groupErr nil) so
// callers can distinguish a deadline-truncated run from one where every
// endpoint's state machine reached its terminal stage, then guarantees
// the socket still closes exactly once and Done still fires with
// whatever partial results accumulated.
func (l *eventLoop) finish(groupErr error) {
	if l.finished {
		return
	}
	if groupErr == nil && l.pending > 0 {
		l.events.Error <- ErrTimeout
	}
	l.finishLocked(groupErr)
}

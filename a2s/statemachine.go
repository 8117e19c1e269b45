package a2s

import "time"

// stage is one state of the per-endpoint sequencing state machine:
// AWAIT_INFO -> AWAIT_CHALLENGE_P -> AWAIT_PLAYERS -> AWAIT_CHALLENGE_R
// -> AWAIT_RULES -> AWAIT_PING -> DONE.
type stage int

const (
	stageAwaitInfo stage = iota
	stageAwaitChallengeP
	stageAwaitPlayers
	stageAwaitChallengeR
	stageAwaitRules
	stageAwaitPing
	stageDone
)

// maxChallengeRounds bounds the challenge handshake: a server that keeps
// handing out fresh tokens without ever answering the PLAYER or RULES
// query it gates fails the endpoint rather than looping the run out the
// clock on one misbehaving server. Mirrors the retry bound in
// NoteDevil-valve-a2s's sendRequest.
const maxChallengeRounds = 3

// response type bytes, matching the wire constants named in spec.md §4.4.
const (
	respInfoSource     byte = 0x49
	respInfoGoldSource byte = 0x6D
	respChallenge      byte = 0x41
	respPlayer         byte = 0x44
	respRules          byte = 0x45
	respPing           byte = 0x6A
)

// session is the per-endpoint state-machine instance: the stage cursor
// plus the hidden slots (challenge tokens, ping timestamp, in-flight
// reassembly) that spec.md's DESIGN NOTES say should be promoted out of
// the public Endpoint and into a first-class owner. Only the dispatcher
// goroutine ever touches a session, so no locking is needed.
type session struct {
	endpoint *Endpoint

	stage stage

	hasChallengePlayer    bool
	challengePlayer       int32
	challengeRoundsPlayer int
	hasChallengeRules     bool
	challengeRules        int32
	challengeRoundsRules  int

	pingSentAt time.Time

	reassembly *Reassembly

	appIDKnown    bool
	appID         uint16
	protocolKnown bool
	protocol      byte
}

func newSession(ep *Endpoint) *session {
	return &session{endpoint: ep, stage: stageAwaitInfo}
}

// start returns the initial A2S_INFO datagram that kicks off this
// endpoint's query.
func (s *session) start() []byte {
	return BuildInfoRequest()
}

// sessionResult tags which event the caller should emit after a
// successful HandleDatagram/HandleFragment call. token is populated only
// for EventChallenge. Fired is false only when a fragment was folded in
// but reassembly isn't complete yet — there is nothing to send or emit.
type sessionResult struct {
	fired bool
	kind  EventKind
	token int32
}

// goldSourceFraming reports whether in-flight multi-packet fragments for
// this endpoint should be parsed with the GoldSource nibble-packed
// header instead of the Source header. Per spec.md §4.3, an endpoint
// whose application id isn't known yet defaults to the Source path.
func (s *session) goldSourceFraming() bool {
	return s.appIDKnown && s.appID < 200
}

// HandleFragment folds one multi-packet fragment (the -2 framing prefix
// already stripped by the dispatcher) into this endpoint's reassembly
// context. It returns zero values (no send, no result, no error) while
// assembly is still in progress.
func (s *session) HandleFragment(data []byte, now time.Time) ([]byte, sessionResult, error) {
	if s.reassembly == nil {
		s.reassembly = &Reassembly{}
	}

	legacy := legacyNoPacketSize(s.protocolKnown, s.protocol, s.appID, s.appIDKnown)
	complete, payload, err := s.reassembly.AddFragment(data, s.goldSourceFraming(), legacy)
	if err != nil {
		s.reassembly = nil
		return nil, sessionResult{}, err
	}
	if !complete {
		return nil, sessionResult{}, nil
	}
	s.reassembly = nil
	return s.HandleDatagram(payload, now)
}

// HandleDatagram folds one single-packet response (the -1 framing prefix
// already stripped by the dispatcher) into the state machine, returning
// the next request to send (nil if none), the event the caller should
// emit, and an error if the response was malformed or out of sequence.
func (s *session) HandleDatagram(data []byte, now time.Time) ([]byte, sessionResult, error) {
	r := NewReader(data)
	typeByte, err := r.ReadU8()
	if err != nil {
		return nil, sessionResult{}, err
	}

	switch typeByte {
	case respInfoSource, respInfoGoldSource:
		return s.handleInfo(typeByte, r)
	case respChallenge:
		return s.handleChallenge(typeByte, r)
	case respPlayer:
		return s.handlePlayer(typeByte, r)
	case respRules:
		return s.handleRules(typeByte, r)
	case respPing:
		return s.handlePing(typeByte, now)
	default:
		return nil, sessionResult{}, &ErrUnexpectedResponseType{Actual: typeByte}
	}
}

// expectedResponseFor names the single response type byte this session
// is waiting for at stage, for the out-of-order ProtocolError a handler
// builds when a structurally valid response type arrives at the wrong
// point in the sequence. stageDone expects nothing further, reported as
// 0x00 (not a valid A2S response type byte).
func expectedResponseFor(stage stage) byte {
	switch stage {
	case stageAwaitInfo:
		return respInfoSource
	case stageAwaitChallengeP, stageAwaitChallengeR:
		return respChallenge
	case stageAwaitPlayers:
		return respPlayer
	case stageAwaitRules:
		return respRules
	case stageAwaitPing:
		return respPing
	default:
		return 0
	}
}

func (s *session) handleInfo(typeByte byte, r *Reader) ([]byte, sessionResult, error) {
	if s.stage != stageAwaitInfo {
		return nil, sessionResult{}, &ProtocolError{Expected: expectedResponseFor(s.stage), Actual: typeByte}
	}

	var protocol byte
	if typeByte == respInfoSource {
		info, err := ParseSourceInfo(r.Remaining())
		if err != nil {
			return nil, sessionResult{}, err
		}
		s.endpoint.Info = info
		s.appIDKnown = true
		s.appID = info.AppID
		protocol = info.Protocol
	} else {
		info, err := ParseGoldSourceInfo(r.Remaining())
		if err != nil {
			return nil, sessionResult{}, err
		}
		s.endpoint.Info = info
		s.appIDKnown = true
		s.appID = 0 // GoldSource carries no numeric app id; 0 < 200 keeps framing correct.
		protocol = info.Protocol
	}
	s.protocolKnown = true
	s.protocol = protocol

	s.stage = stageAwaitChallengeP
	return BuildPlayerRequest(noChallenge), sessionResult{fired: true, kind: EventInfo}, nil
}

// handleChallenge accepts a challenge token while an endpoint is either
// still waiting for its first challenge for a stage, or has already
// sent the real query and received another challenge instead of the
// substantive response — a chatty server that keeps handing out fresh
// tokens. Each phase tracks its own round counter so a misbehaving
// server bounded to one stage can't stall the other.
func (s *session) handleChallenge(typeByte byte, r *Reader) ([]byte, sessionResult, error) {
	switch s.stage {
	case stageAwaitChallengeP, stageAwaitPlayers:
		s.challengeRoundsPlayer++
		if s.challengeRoundsPlayer > maxChallengeRounds {
			return nil, sessionResult{}, ErrTooManyRetries
		}

		token, err := r.ReadI32()
		if err != nil {
			return nil, sessionResult{}, err
		}

		s.hasChallengePlayer = true
		s.challengePlayer = token
		s.stage = stageAwaitPlayers
		return BuildPlayerRequest(token), sessionResult{fired: true, kind: EventChallenge, token: token}, nil

	case stageAwaitChallengeR, stageAwaitRules:
		s.challengeRoundsRules++
		if s.challengeRoundsRules > maxChallengeRounds {
			return nil, sessionResult{}, ErrTooManyRetries
		}

		token, err := r.ReadI32()
		if err != nil {
			return nil, sessionResult{}, err
		}

		s.hasChallengeRules = true
		s.challengeRules = token
		s.stage = stageAwaitRules
		return BuildRulesRequest(token), sessionResult{fired: true, kind: EventChallenge, token: token}, nil

	default:
		return nil, sessionResult{}, &ProtocolError{Expected: expectedResponseFor(s.stage), Actual: typeByte}
	}
}

func (s *session) handlePlayer(typeByte byte, r *Reader) ([]byte, sessionResult, error) {
	if s.stage != stageAwaitPlayers {
		return nil, sessionResult{}, &ProtocolError{Expected: expectedResponseFor(s.stage), Actual: typeByte}
	}
	if !s.hasChallengePlayer {
		return nil, sessionResult{}, ErrProtocolOutOfOrder
	}

	ship := s.appIDKnown && s.appID == appIDTheShip
	players, err := ParsePlayers(r.Remaining(), ship)
	if err != nil {
		return nil, sessionResult{}, err
	}
	s.endpoint.Players = players

	s.stage = stageAwaitChallengeR
	return BuildRulesRequest(noChallenge), sessionResult{fired: true, kind: EventPlayer}, nil
}

func (s *session) handleRules(typeByte byte, r *Reader) ([]byte, sessionResult, error) {
	if s.stage != stageAwaitRules {
		return nil, sessionResult{}, &ProtocolError{Expected: expectedResponseFor(s.stage), Actual: typeByte}
	}
	if !s.hasChallengeRules {
		return nil, sessionResult{}, ErrProtocolOutOfOrder
	}

	rules, err := ParseRules(r.Remaining())
	if err != nil {
		return nil, sessionResult{}, err
	}
	s.endpoint.Rules = rules

	s.stage = stageAwaitPing
	return BuildPingRequest(), sessionResult{fired: true, kind: EventRules}, nil
}

func (s *session) handlePing(typeByte byte, now time.Time) ([]byte, sessionResult, error) {
	if s.stage != stageAwaitPing {
		return nil, sessionResult{}, &ProtocolError{Expected: expectedResponseFor(s.stage), Actual: typeByte}
	}

	elapsed := now.Sub(s.pingSentAt)
	s.endpoint.PingMs = float64(elapsed.Nanoseconds()) / 1e6

	s.stage = stageDone
	return nil, sessionResult{fired: true, kind: EventPing}, nil
}

// armPing records the send timestamp for the ping RTT measurement. The
// dispatcher calls this immediately before writing the A2S_PING
// datagram returned by handleRules, matching the "captured immediately
// before the ping send" invariant in spec.md §3.
func (s *session) armPing(now time.Time) {
	s.pingSentAt = now
}

func (s *session) done() bool {
	return s.stage == stageDone
}

package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/remote-relay/internal/domain"
)

var ErrUnknownKind = errors.New("unknown event")

// Kind names an event on the signaling socket.
type Kind string

// Participant -> server.
const (
	KindJoinRoom     Kind = "join-room"
	KindIAmHost      Kind = "i-am-host"
	KindOffer        Kind = "offer"
	KindAnswer       Kind = "answer"
	KindICECandidate Kind = "ice-candidate"
	KindMouseMove    Kind = "mouse-move"
	KindMouseClick   Kind = "mouse-click"
	KindKeyPress     Kind = "key-press"
	KindScroll       Kind = "scroll"
)

// Server -> participant.
const (
	KindConnected        Kind = "connected"
	KindExistingClients  Kind = "existing-clients"
	KindHostReady        Kind = "host-ready"
	KindUserJoined       Kind = "user-joined"
	KindExistingUsers    Kind = "existing-users"
	KindClientJoined     Kind = "client-joined"
	KindRoomSize         Kind = "room-size"
	KindRemoteMouseMove  Kind = "remote-mouse-move"
	KindRemoteMouseClick Kind = "remote-mouse-click"
	KindRemoteKeyPress   Kind = "remote-key-press"
	KindRemoteScroll     Kind = "remote-scroll"
)

// signalingField is the data key carrying the opaque payload of each signaling kind.
var signalingField = map[Kind]string{
	KindOffer:        "offer",
	KindAnswer:       "answer",
	KindICECandidate: "candidate",
}

var remoteInput = map[Kind]Kind{
	KindMouseMove:  KindRemoteMouseMove,
	KindMouseClick: KindRemoteMouseClick,
	KindKeyPress:   KindRemoteKeyPress,
	KindScroll:     KindRemoteScroll,
}

func (k Kind) IsSignaling() bool {
	_, ok := signalingField[k]
	return ok
}

func (k Kind) IsInput() bool {
	_, ok := remoteInput[k]
	return ok
}

// Inbound reports whether participants may send k.
func (k Kind) Inbound() bool {
	return k == KindJoinRoom || k == KindIAmHost || k.IsSignaling() || k.IsInput()
}

// PayloadField is the data key of a signaling kind, empty for anything else.
func (k Kind) PayloadField() string { return signalingField[k] }

// Remote maps an input kind to the event name its recipients see.
func (k Kind) Remote() (Kind, bool) {
	r, ok := remoteInput[k]
	return r, ok
}

// Envelope is the frame layout in both directions. Data is kept raw so the
// relay never interprets payloads it only forwards.
type Envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// DecodeEnvelope parses an inbound frame. Only participant kinds are accepted.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if !env.Event.Inbound() {
		return env, fmt.Errorf("%w: %q", ErrUnknownKind, env.Event)
	}
	return env, nil
}

// Encode builds an outbound frame.
func Encode(kind Kind, data any) (Frame, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	b, err := json.Marshal(Envelope{Event: kind, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return b, nil
}

type roomRef struct {
	RoomID string `json:"roomId"`
}

// DecodeRoomRef reads the roomId field every non-join event carries.
func DecodeRoomRef(data json.RawMessage) (domain.RoomID, error) {
	var ref roomRef
	if err := json.Unmarshal(data, &ref); err != nil {
		return "", fmt.Errorf("decode room ref: %w", err)
	}
	return domain.NewRoomID(ref.RoomID)
}

// DecodeJoinRoom accepts the room either as a bare string or as {"roomId": ...}.
func DecodeJoinRoom(data json.RawMessage) (domain.RoomID, error) {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		return domain.NewRoomID(raw)
	}
	return DecodeRoomRef(data)
}

// DecodeSignal extracts the target room and the opaque offer/answer/candidate
// value from a signaling event. A missing payload field yields nil.
func DecodeSignal(kind Kind, data json.RawMessage) (domain.RoomID, json.RawMessage, error) {
	if !kind.IsSignaling() {
		return "", nil, fmt.Errorf("%w: %q is not signaling", ErrUnknownKind, kind)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	room, err := DecodeRoomRef(data)
	if err != nil {
		return "", nil, err
	}
	return room, fields[kind.PayloadField()], nil
}

// SignalFrame is the relayed form of a signaling event: {<field>: payload, senderId}.
func SignalFrame(kind Kind, payload json.RawMessage, sender domain.ConnectionID) (Frame, error) {
	data := map[string]any{"senderId": sender}
	if payload != nil {
		data[kind.PayloadField()] = payload
	}
	return Encode(kind, data)
}

type Connected struct {
	ID domain.ConnectionID `json:"id"`
}

type UserJoined struct {
	UserID   domain.ConnectionID `json:"userId"`
	RoomSize int                 `json:"roomSize"`
}

type ExistingUsers struct {
	Users    []domain.ConnectionID `json:"users"`
	RoomSize int                   `json:"roomSize"`
	HostID   *domain.ConnectionID  `json:"hostId"`
}

type ClientJoined struct {
	ClientID domain.ConnectionID `json:"clientId"`
}

type ExistingClients struct {
	Clients []domain.ConnectionID `json:"clients"`
}

type HostReady struct {
	HostID domain.ConnectionID `json:"hostId"`
}

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope types reserved by the transport itself.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// Errors
var (
	ErrEmptyFrame  = errors.New("empty frame")
	ErrMissingType = errors.New("envelope missing type")
)

// Envelope is the single wire unit. Every frame, inbound or outbound, is one
// Envelope serialized as a UTF-8 JSON text frame.
type Envelope struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix milliseconds
	ID        string          `json:"id"`
}

// New builds an outbound envelope with a fresh id and the current timestamp.
// The payload is marshaled immediately so encoding errors surface to the
// caller rather than at transmit time.
func New(msgType string, payload interface{}) (*Envelope, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		raw = data
	}

	return &Envelope{
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
		ID:        uuid.NewString(),
	}, nil
}

// Parse decodes a raw frame into an Envelope. A frame that is not valid JSON
// or carries no type is rejected; the caller decides whether to drop it.
func Parse(data []byte) (*Envelope, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFrame
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return nil, ErrMissingType
	}

	return &env, nil
}

// Encode serializes the envelope to its wire form.
func (e *Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// PingPayload is the payload of a "ping" envelope.
type PingPayload struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// PongPayload is the payload of a "pong" envelope. The id echoes the ping
// that prompted it.
type PongPayload struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
}

// DecodePong parses a pong payload.
func DecodePong(raw json.RawMessage) (PongPayload, error) {
	var p PongPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return PongPayload{}, fmt.Errorf("decode pong payload: %w", err)
	}
	return p, nil
}

// SubscribeRequest is the payload of "subscribe"/"unsubscribe" envelopes sent
// to the server to select which feeds it should stream. This is distinct from
// local subscription registration, which only governs dispatch.
type SubscribeRequest struct {
	Channel string `json:"channel"`
	Symbol  string `json:"symbol,omitempty"`
}

// DecodeSubscribeRequest parses a subscribe/unsubscribe payload.
func DecodeSubscribeRequest(raw json.RawMessage) (SubscribeRequest, error) {
	var r SubscribeRequest
	if err := json.Unmarshal(raw, &r); err != nil {
		return SubscribeRequest{}, fmt.Errorf("decode subscribe payload: %w", err)
	}
	if r.Channel == "" {
		return SubscribeRequest{}, errors.New("subscribe payload missing channel")
	}
	return r, nil
}

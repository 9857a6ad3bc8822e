// Package remote carries the window-manager transition protocol over a unix
// socket as newline-delimited JSON.
//
// The engine side is a [Client], which implements seam.RemoteService. The
// window-manager side is a [Server]. Either end may send at any time:
// requests carry a sequence number that the matching response echoes.
package remote

import (
	"encoding/json"
	"fmt"

	"github.com/phanxgames/seam"
)

// MessageType identifies a protocol message.
type MessageType string

const (
	MsgRegister           MessageType = "REGISTER"
	MsgUnregister         MessageType = "UNREGISTER"
	MsgStartActivity      MessageType = "START_ACTIVITY"
	MsgResponse           MessageType = "RESPONSE"
	MsgAnimationStart     MessageType = "ANIMATION_START"
	MsgAnimationCancelled MessageType = "ANIMATION_CANCELLED"
	MsgAnimationFinished  MessageType = "ANIMATION_FINISHED"
	MsgTaskLaunching      MessageType = "TASK_LAUNCHING"
)

const (
	StatusOK    = "OK"
	StatusError = "ERROR"
)

// Envelope is one line on the wire.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Status  string          `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// RegisterPayload is the payload of REGISTER and UNREGISTER.
type RegisterPayload struct {
	Kind seam.TransitionKind `json:"kind"`
}

// StartActivityPayload is the payload of START_ACTIVITY. AdapterID is zero
// when the start has no animation adapter.
type StartActivityPayload struct {
	Request          seam.ActivityRequest `json:"request"`
	AdapterID        uint64               `json:"adapter_id,omitempty"`
	AdapterKind      seam.TransitionKind  `json:"adapter_kind"`
	DurationMS       int64                `json:"duration_ms,omitempty"`
	StatusBarDelayMS int64                `json:"status_bar_delay_ms,omitempty"`
}

// AnimationStartPayload is the payload of ANIMATION_START. Exactly one of
// Kind (registered transition) or AdapterID (activity adapter) addresses
// the runner.
type AnimationStartPayload struct {
	Callback   uint64              `json:"callback"`
	Kind       seam.TransitionKind `json:"kind"`
	AdapterID  uint64              `json:"adapter_id,omitempty"`
	Apps       []seam.WindowTarget `json:"apps"`
	Wallpapers []seam.WindowTarget `json:"wallpapers"`
	NonApps    []seam.WindowTarget `json:"non_apps"`
}

// AnimationCancelledPayload is the payload of ANIMATION_CANCELLED.
type AnimationCancelledPayload struct {
	Kind      seam.TransitionKind `json:"kind"`
	AdapterID uint64              `json:"adapter_id,omitempty"`
}

// AnimationFinishedPayload is the payload of ANIMATION_FINISHED.
type AnimationFinishedPayload struct {
	Callback uint64 `json:"callback"`
}

// TaskLaunchingPayload is the payload of TASK_LAUNCHING.
type TaskLaunchingPayload struct {
	TaskID       int               `json:"task_id"`
	Presentation seam.Presentation `json:"presentation"`
}

// newEnvelope marshals payload into an envelope.
func newEnvelope(typ MessageType, seq uint64, payload interface{}) (Envelope, error) {
	env := Envelope{Type: typ, Seq: seq}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		env.Payload = data
	}
	return env, nil
}

// okResponse answers seq with success.
func okResponse(seq uint64) Envelope {
	return Envelope{Type: MsgResponse, Seq: seq, Status: StatusOK}
}

// errorResponse answers seq with msg.
func errorResponse(seq uint64, msg string) Envelope {
	return Envelope{Type: MsgResponse, Seq: seq, Status: StatusError, Error: msg}
}

// ParseEnvelope decodes one line.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("parse envelope: missing type")
	}
	return &env, nil
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%s: missing payload", e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", e.Type, err)
	}
	return nil
}

package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies outbound websocket payload variants.
type MessageType string

const (
	TypeTranscription MessageType = "transcription"
	TypeResponse      MessageType = "response"
	TypeAudio         MessageType = "audio"
	TypeError         MessageType = "error"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

type Transcription struct {
	Type    MessageType `json:"type"`
	Text    string      `json:"text"`
	IsFinal bool        `json:"isFinal"`
}

type Response struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// Audio carries a base64-encoded MPEG payload.
type Audio struct {
	Type  MessageType `json:"type"`
	Audio string      `json:"audio"`
}

type Error struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

func NewTranscription(text string, isFinal bool) Transcription {
	return Transcription{Type: TypeTranscription, Text: text, IsFinal: isFinal}
}

func NewResponse(text string) Response { return Response{Type: TypeResponse, Text: text} }

func NewAudio(b64 string) Audio { return Audio{Type: TypeAudio, Audio: b64} }

func NewError(msg string) Error { return Error{Type: TypeError, Error: msg} }

// ParseServerMessage decodes an outbound frame back into its typed form.
func ParseServerMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	var target any
	switch env.Type {
	case TypeTranscription:
		target = &Transcription{}
	case TypeResponse:
		target = &Response{}
	case TypeAudio:
		target = &Audio{}
	case TypeError:
		target = &Error{}
	default:
		return nil, ErrUnsupportedType
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	switch m := target.(type) {
	case *Transcription:
		return *m, nil
	case *Response:
		return *m, nil
	case *Audio:
		return *m, nil
	default:
		return *target.(*Error), nil
	}
}

// ID accepts either a JSON string or a JSON number, since clients send both
// for user and agent ids.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*id = ID(n.String())
	return nil
}

type CreateSessionRequest struct {
	UserID  ID     `json:"userId"`
	AgentID ID     `json:"agentId"`
	VoiceID string `json:"voiceId,omitempty"`
}

func (r CreateSessionRequest) Validate() error {
	var missing []string
	if r.UserID == "" {
		missing = append(missing, "userId")
	}
	if r.AgentID == "" {
		missing = append(missing, "agentId")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ParseCreateSessionRequest decodes and validates a session creation body.
func ParseCreateSessionRequest(raw []byte) (CreateSessionRequest, error) {
	var req CreateSessionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return CreateSessionRequest{}, fmt.Errorf("invalid json body: %w", err)
	}
	if err := req.Validate(); err != nil {
		return CreateSessionRequest{}, err
	}
	return req, nil
}

type CreateSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

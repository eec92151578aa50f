package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestOutboundShapes(t *testing.T) {
	cases := []struct {
		msg  any
		want string
	}{
		{NewTranscription("hel", false), `{"type":"transcription","text":"hel","isFinal":false}`},
		{NewResponse("hi"), `{"type":"response","text":"hi"}`},
		{NewAudio("AAEC"), `{"type":"audio","audio":"AAEC"}`},
		{NewError("Session not found"), `{"type":"error","error":"Session not found"}`},
	}
	for _, tc := range cases {
		raw, err := json.Marshal(tc.msg)
		if err != nil {
			t.Fatalf("Marshal(%T) error = %v", tc.msg, err)
		}
		if string(raw) != tc.want {
			t.Fatalf("Marshal(%T) = %s, want %s", tc.msg, raw, tc.want)
		}
	}
}

func TestParseServerMessage(t *testing.T) {
	msg, err := ParseServerMessage([]byte(`{"type":"transcription","text":"hello","isFinal":true}`))
	if err != nil {
		t.Fatalf("ParseServerMessage() error = %v", err)
	}
	tr, ok := msg.(Transcription)
	if !ok {
		t.Fatalf("message type = %T, want Transcription", msg)
	}
	if tr.Text != "hello" || !tr.IsFinal {
		t.Fatalf("unexpected transcription: %+v", tr)
	}

	if _, err := ParseServerMessage([]byte(`{"type":"wat"}`)); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseCreateSessionRequestAcceptsNumericIDs(t *testing.T) {
	req, err := ParseCreateSessionRequest([]byte(`{"userId":42,"agentId":"7","voiceId":"v1"}`))
	if err != nil {
		t.Fatalf("ParseCreateSessionRequest() error = %v", err)
	}
	if req.UserID != "42" || req.AgentID != "7" || req.VoiceID != "v1" {
		t.Fatalf("unexpected request: %+v", req)
	}
}

func TestParseCreateSessionRequestRejects(t *testing.T) {
	for _, raw := range []string{
		`{"userId":"u1"}`,
		`{"agentId":"7"}`,
		`{"userId":"  ","agentId":"7"}`,
		`{"userId":true,"agentId":"7"}`,
		`not json`,
	} {
		if _, err := ParseCreateSessionRequest([]byte(raw)); err == nil {
			t.Fatalf("ParseCreateSessionRequest(%s) expected error", raw)
		}
	}
}

package remote

import (
	"strings"
	"testing"

	"github.com/phanxgames/seam"
)

func TestParseEnvelope(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"REGISTER","seq":4,"payload":{"kind":"unlock"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if env.Type != MsgRegister || env.Seq != 4 {
		t.Errorf("envelope = %+v", env)
	}
	var p RegisterPayload
	if err := env.Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.Kind != seam.TransitionUnlock {
		t.Errorf("kind = %v, want unlock", p.Kind)
	}
}

func TestParseEnvelopeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		want string
	}{
		{name: "not json", line: `REGISTER unlock`, want: "parse envelope"},
		{name: "missing type", line: `{"seq":1}`, want: "missing type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.line))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestDecodeMissingPayload(t *testing.T) {
	env := Envelope{Type: MsgAnimationFinished}
	var p AnimationFinishedPayload
	if err := env.Decode(&p); err == nil {
		t.Error("expected error for missing payload")
	}
}

func TestNewEnvelopeResponses(t *testing.T) {
	env, err := newEnvelope(MsgTaskLaunching, 0, TaskLaunchingPayload{TaskID: 3, Presentation: seam.PresentationSplash})
	if err != nil {
		t.Fatal(err)
	}
	var p TaskLaunchingPayload
	if err := env.Decode(&p); err != nil {
		t.Fatal(err)
	}
	if p.TaskID != 3 || p.Presentation != seam.PresentationSplash {
		t.Errorf("payload = %+v", p)
	}

	if r := okResponse(9); r.Seq != 9 || r.Status != StatusOK {
		t.Errorf("ok = %+v", r)
	}
	if r := errorResponse(9, "nope"); r.Status != StatusError || r.Error != "nope" {
		t.Errorf("error = %+v", r)
	}
}

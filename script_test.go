package seam

import (
	"strings"
	"testing"
)

func TestLoadScriptErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "invalid json", data: `{"steps": [`, want: "parse script"},
		{name: "empty", data: `{"steps": []}`, want: "no steps"},
		{name: "unknown action", data: `{"steps": [{"action": "fly"}]}`, want: `unknown action "fly"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScript([]byte(tt.data))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestScriptRunnerSteps(t *testing.T) {
	r, err := LoadScript([]byte(`{"steps": [
		{"action": "launch", "component": "com.example.maps", "task": 4, "x": 10, "y": 20, "w": 30, "h": 40},
		{"action": "wait", "frames": 2}
	]}`))
	if err != nil {
		t.Fatal(err)
	}
	remote := newFakeRemote()
	e, _ := newTestEngine(t, remote, nil)
	e.SetScript(r)

	e.Update(frame)
	if got := len(r.Launches()); got != 1 {
		t.Fatalf("launches = %d, want 1", got)
	}
	req := r.Launches()[0]
	if req.TaskID != 4 || req.Anchor != (Rect{X: 10, Y: 20, Width: 30, Height: 40}) {
		t.Errorf("request = %+v", req)
	}
	if len(remote.startCalls()) != 1 {
		t.Error("launch step should start an activity")
	}

	for i := 0; i < 2; i++ {
		e.Update(frame)
		if r.Done() {
			t.Fatalf("done after %d wait frames", i+1)
		}
	}
	e.Update(frame)
	if !r.Done() {
		t.Error("runner should be done after the wait")
	}
}

func TestScriptRunnerOverviewSteps(t *testing.T) {
	r, err := LoadScript([]byte(`{"steps": [{"action": "toggle"}, {"action": "ready"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	remote := newFakeRemote()
	overview := &fakeOverview{running: 9}
	e, _ := newTestEngine(t, remote, overview)
	e.SetScript(r)

	e.Update(frame)
	e.Update(frame)
	if !r.Done() {
		t.Error("runner should be done")
	}
	e.Update(frame)
	if len(overview.prepared) != 1 {
		t.Errorf("prepared = %v, want one ready", overview.prepared)
	}
	if calls := remote.startCalls(); len(calls) != 1 || !calls[0].req.Overview {
		t.Errorf("start calls = %+v", calls)
	}
}

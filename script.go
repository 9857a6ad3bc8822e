package seam

import (
	"encoding/json"
	"fmt"
)

// scriptStep is a single action in a script.
type scriptStep struct {
	Action     string  `json:"action"`
	Component  string  `json:"component,omitempty"`
	Task       int     `json:"task,omitempty"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	W          float64 `json:"w,omitempty"`
	H          float64 `json:"h,omitempty"`
	WasVisible bool    `json:"wasVisible,omitempty"`
	Frames     int     `json:"frames,omitempty"`
}

// script is the top-level JSON structure for a script.
type script struct {
	Steps []scriptStep `json:"steps"`
}

// ScriptRunner sequences engine actions across frames: app launches,
// overview commands, activity-ready signals and waits. Attach it with
// Engine.SetScript.
//
// Supported actions: "launch", "toggle", "show", "hide", "ready", "wait".
type ScriptRunner struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool

	launches []*TransitionRequest
}

// LoadScript parses a JSON script.
func LoadScript(jsonData []byte) (*ScriptRunner, error) {
	var s script
	if err := json.Unmarshal(jsonData, &s); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range s.Steps {
		switch st.Action {
		case "launch", "toggle", "show", "hide", "ready", "wait":
		default:
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &ScriptRunner{steps: s.Steps}, nil
}

// Done reports whether every step has run.
func (r *ScriptRunner) Done() bool {
	return r.done
}

// Launches returns the requests created by "launch" steps so far.
func (r *ScriptRunner) Launches() []*TransitionRequest {
	return r.launches
}

// step advances the runner by one frame. Called from Engine.Update.
func (r *ScriptRunner) step(e *Engine) {
	if r.done {
		return
	}
	if r.waitCount > 0 {
		r.waitCount--
		return
	}
	if r.cursor >= len(r.steps) {
		r.done = true
		return
	}

	st := r.steps[r.cursor]
	r.cursor++

	switch st.Action {
	case "launch":
		req := e.LaunchApp(LaunchRequest{
			Component: st.Component,
			TaskID:    st.Task,
			Anchor:    Rect{X: st.X, Y: st.Y, Width: st.W, Height: st.H},
		})
		r.launches = append(r.launches, req)
	case "toggle", "show", "hide", "ready":
		if o := e.Overview(); o != nil {
			switch st.Action {
			case "toggle":
				o.Toggle()
			case "show":
				o.Show()
			case "hide":
				o.Hide()
			case "ready":
				o.OnActivityReady(st.WasVisible)
			}
		}
	case "wait":
		if st.Frames > 0 {
			r.waitCount = st.Frames - 1
		}
	}

	if r.cursor >= len(r.steps) && r.waitCount == 0 {
		r.done = true
	}
}

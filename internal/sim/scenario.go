package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ScenarioScript is a deterministic, script-driven target timeline.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe time.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 30s
//	keyframes:
//	  - t: 0s
//	    distance_cm: 10
//	  - t: 10s
//	    distance_cm: 350
//	  - t: 12s
//	    silent: true
//
// Distance is interpolated linearly between keyframes. A silent keyframe
// means no echo at all until the next keyframe. Keyframes must use
// non-decreasing t values.
type ScenarioScript struct {
	Version   int           `yaml:"version"`
	Duration  time.Duration `yaml:"duration"`
	Keyframes []Keyframe    `yaml:"keyframes"`
}

type Keyframe struct {
	T          time.Duration `yaml:"t"`
	DistanceCm float64       `yaml:"distance_cm"`
	Silent     bool          `yaml:"silent"`
}

// Scenario is the validated, runtime representation.
type Scenario struct {
	script   ScenarioScript
	duration time.Duration
	loop     bool
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// NewScenario validates script. With loop set, elapsed time wraps around the
// scenario duration; otherwise it clamps to the end.
func NewScenario(script ScenarioScript, loop bool) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframes is required")
	}
	for i, kf := range script.Keyframes {
		if kf.T < 0 {
			return nil, fmt.Errorf("keyframes[%d].t must be >= 0", i)
		}
		if i > 0 && kf.T < script.Keyframes[i-1].T {
			return nil, fmt.Errorf("keyframes must be sorted by t (index %d)", i)
		}
		if kf.DistanceCm < 0 {
			return nil, fmt.Errorf("keyframes[%d].distance_cm must be >= 0", i)
		}
	}

	dur := script.Duration
	if dur <= 0 {
		dur = script.Keyframes[len(script.Keyframes)-1].T
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or deriveable from keyframes)")
	}
	return &Scenario{script: script, duration: dur, loop: loop}, nil
}

func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// DistanceAt implements Target.
func (s *Scenario) DistanceAt(elapsed time.Duration) (cm float64, ok bool) {
	if s == nil {
		return 0, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if s.loop {
		elapsed %= s.duration
	} else if elapsed > s.duration {
		elapsed = s.duration
	}

	kf0, kf1, alpha := selectSegment(s.script.Keyframes, elapsed)
	if kf0.Silent {
		return 0, false
	}
	return lerp(kf0.DistanceCm, kf1.DistanceCm, alpha), true
}

func selectSegment(kfs []Keyframe, t time.Duration) (Keyframe, Keyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	// Silent keyframes do not interpolate into the next distance.
	if k1.Silent {
		return k0, k0, 0
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

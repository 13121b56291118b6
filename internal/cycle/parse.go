package cycle

import (
	"encoding/json"
	"fmt"
	"time"
)

// JSON document shapes. All times are milliseconds, matching the control
// UI's cycle editor output.
type cycleDoc struct {
	Name   string     `json:"name"`
	Phases []phaseDoc `json:"phases"`
}

type phaseDoc struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	StartTime     int64          `json:"startTime"`
	Components    []componentDoc `json:"components"`
	SensorTrigger *triggerDoc    `json:"sensorTrigger"`
}

type componentDoc struct {
	ID          string    `json:"id"`
	CompID      string    `json:"compId"`
	Start       int64     `json:"start"`
	Duration    int64     `json:"duration"`
	MotorConfig *motorDoc `json:"motorConfig"`
}

type motorDoc struct {
	RepeatTimes int       `json:"repeatTimes"`
	Pattern     []stepDoc `json:"pattern"`
}

type stepDoc struct {
	StepTime  *int64 `json:"stepTime"`
	PauseTime *int64 `json:"pauseTime"`
	Direction string `json:"direction"`
}

type triggerDoc struct {
	Type         string  `json:"type"`
	Threshold    float64 `json:"threshold"`
	TriggerAbove *bool   `json:"triggerAbove"`
}

// defaultStepTime is applied when a pattern step omits stepTime.
const defaultStepTime = time.Second

// Parse decodes a JSON cycle description into the in-memory model.
//
// Oversized input (too many phases, components or pattern steps) is
// truncated at the capacity limits; each truncation and every dropped
// element is reported in the returned warnings. Parsing fails only when
// the JSON itself is malformed or the phases array is missing/empty.
//
// Parameters:
//   - data: Raw JSON document
//
// Returns:
//   - *Cycle: Parsed cycle (nil on error)
//   - []string: Non-fatal warnings (truncations, dropped triggers)
//   - error: ErrInvalidDocument or ErrNoPhases
func Parse(data []byte) (*Cycle, []string, error) {
	var doc cycleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if len(doc.Phases) == 0 {
		return nil, nil, ErrNoPhases
	}

	var warnings []string
	warnf := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	phases := doc.Phases
	if len(phases) > MaxPhases {
		warnf("cycle has %d phases, truncated to %d", len(phases), MaxPhases)
		phases = phases[:MaxPhases]
	}

	c := &Cycle{
		Name:   doc.Name,
		Phases: make([]Phase, 0, len(phases)),
	}

	for _, pd := range phases {
		p := Phase{
			ID:        pd.ID,
			Name:      pd.Name,
			StartTime: time.Duration(pd.StartTime) * time.Millisecond,
		}
		if p.Name == "" {
			p.Name = p.ID
		}

		comps := pd.Components
		if len(comps) > MaxComponentsPerPhase {
			warnf("phase %q has %d components, truncated to %d", pd.ID, len(comps), MaxComponentsPerPhase)
			comps = comps[:MaxComponentsPerPhase]
		}

		for _, cd := range comps {
			comp := Component{
				ID:       cd.ID,
				Role:     cd.CompID,
				Start:    time.Duration(cd.Start) * time.Millisecond,
				Duration: time.Duration(cd.Duration) * time.Millisecond,
			}
			if cd.MotorConfig != nil {
				comp.Motor = parseMotor(pd.ID, cd.MotorConfig, warnf)
			}
			p.Components = append(p.Components, comp)
		}

		if pd.SensorTrigger != nil {
			p.Trigger = parseTrigger(pd.ID, pd.SensorTrigger, warnf)
		}

		c.Phases = append(c.Phases, p)
	}

	return c, warnings, nil
}

// parseMotor converts a motorConfig block, applying the editor's defaults
// (stepTime 1000ms, pauseTime 0, direction cw, repeatTimes 1).
func parseMotor(phaseID string, md *motorDoc, warnf func(string, ...any)) *MotorConfig {
	mc := &MotorConfig{RepeatTimes: md.RepeatTimes}
	if mc.RepeatTimes < 1 {
		mc.RepeatTimes = 1
	}

	steps := md.Pattern
	if len(steps) > MaxPatternSteps {
		warnf("phase %q motor pattern has %d steps, truncated to %d", phaseID, len(steps), MaxPatternSteps)
		steps = steps[:MaxPatternSteps]
	}

	for _, sd := range steps {
		step := PatternStep{
			StepTime:  defaultStepTime,
			Direction: Clockwise,
		}
		if sd.StepTime != nil {
			step.StepTime = time.Duration(*sd.StepTime) * time.Millisecond
		}
		if sd.PauseTime != nil {
			step.PauseTime = time.Duration(*sd.PauseTime) * time.Millisecond
		}
		switch Direction(sd.Direction) {
		case CounterClockwise:
			step.Direction = CounterClockwise
		case Clockwise, "":
			step.Direction = Clockwise
		default:
			warnf("phase %q: unknown motor direction %q, using cw", phaseID, sd.Direction)
		}
		mc.Pattern = append(mc.Pattern, step)
	}

	return mc
}

// parseTrigger converts a sensorTrigger block. Unknown sensor kinds drop
// the trigger entirely: a trigger that can never be read must not silently
// arm itself.
func parseTrigger(phaseID string, td *triggerDoc, warnf func(string, ...any)) *SensorTrigger {
	st := &SensorTrigger{Threshold: td.Threshold, Above: true}
	if td.TriggerAbove != nil {
		st.Above = *td.TriggerAbove
	}

	switch SensorKind(td.Type) {
	case SensorRPM, "":
		st.Kind = SensorRPM
	case SensorPressure:
		st.Kind = SensorPressure
	default:
		warnf("phase %q: unknown sensor trigger type %q, trigger dropped", phaseID, td.Type)
		return nil
	}

	return st
}

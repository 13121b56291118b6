package cycle

import (
	"fmt"
	"regexp"
)

// slugPattern matches lowercase alphanumeric slugs with hyphens,
// e.g. "cotton-60" or "quick-wash".
var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// maxSlugLength bounds stored slugs.
const maxSlugLength = 64

// ValidateSlug checks a repository slug.
func ValidateSlug(slug string) error {
	if slug == "" || len(slug) > maxSlugLength || !slugPattern.MatchString(slug) {
		return fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}
	return nil
}

// Validate performs structural checks on a parsed cycle.
//
// Parse already normalises defaults and truncates oversized input, so
// Validate only rejects states Parse cannot produce from well-formed JSON
// but that hand-constructed cycles (tests, API callers building the model
// directly) might contain.
//
// Returns:
//   - error: Description of the first problem found, or nil
func (c *Cycle) Validate() error {
	if len(c.Phases) == 0 {
		return ErrNoPhases
	}
	if len(c.Phases) > MaxPhases {
		return fmt.Errorf("cycle: %d phases exceeds maximum %d", len(c.Phases), MaxPhases)
	}

	for pi := range c.Phases {
		p := &c.Phases[pi]
		if len(p.Components) > MaxComponentsPerPhase {
			return fmt.Errorf("cycle: phase %q: %d components exceeds maximum %d", p.ID, len(p.Components), MaxComponentsPerPhase)
		}

		for ci := range p.Components {
			comp := &p.Components[ci]
			if comp.Start < 0 || comp.Duration < 0 {
				return fmt.Errorf("cycle: phase %q component %q: negative time", p.ID, comp.ID)
			}
			if comp.Motor == nil {
				continue
			}
			if comp.Motor.RepeatTimes < 1 {
				return fmt.Errorf("cycle: phase %q component %q: repeat count %d", p.ID, comp.ID, comp.Motor.RepeatTimes)
			}
			if len(comp.Motor.Pattern) > MaxPatternSteps {
				return fmt.Errorf("cycle: phase %q component %q: %d pattern steps exceeds maximum %d", p.ID, comp.ID, len(comp.Motor.Pattern), MaxPatternSteps)
			}
			for _, step := range comp.Motor.Pattern {
				if step.Direction != Clockwise && step.Direction != CounterClockwise {
					return fmt.Errorf("%w: %q", ErrInvalidDirection, step.Direction)
				}
				if step.StepTime < 0 || step.PauseTime < 0 {
					return fmt.Errorf("cycle: phase %q component %q: negative step time", p.ID, comp.ID)
				}
			}
		}

		if p.Trigger != nil {
			if p.Trigger.Kind != SensorRPM && p.Trigger.Kind != SensorPressure {
				return fmt.Errorf("%w: kind %q", ErrInvalidTrigger, p.Trigger.Kind)
			}
		}
	}

	return nil
}

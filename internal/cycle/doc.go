// Package cycle holds the declarative data model for an appliance cycle
// and the pure transformations over it.
//
// A cycle is an ordered list of phases; each phase is an ordered list of
// components (a valve/pump with a start offset and duration, or a motor
// with a repeating step pattern) plus an optional sensor trigger that can
// end the phase early.
//
// The package provides:
//
//   - Types: Cycle, Phase, Component, MotorConfig, PatternStep,
//     SensorTrigger, TimelineEvent
//   - Parse: the JSON cycle description format used by the control UI
//   - Validate: structural validation of a parsed cycle
//   - BuildTimeline: expansion of one phase into absolutely-timed output
//     events (the engine schedules these on timers)
//   - Repository: SQLite store of named cycle documents
//
// Parsing and timeline building degrade rather than fail: oversized input
// is truncated at the capacity limits and unknown component roles are
// skipped, both reported as warnings. Only malformed JSON or a missing
// phases array is an error. A bad upload must never take down a running
// appliance.
package cycle

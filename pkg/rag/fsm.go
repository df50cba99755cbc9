package rag

import "fmt"

// State is a step of one Ask invocation.
type State int

const (
	StateStart State = iota
	StateRetrieve
	StateGenerate
	StateEnd
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateRetrieve:
		return "retrieve"
	case StateGenerate:
		return "generate"
	case StateEnd:
		return "end"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event moves the machine between states.
type Event int

const (
	EventAsked Event = iota
	EventRetrieved
	EventGenerated
	EventErrored
)

func (e Event) String() string {
	switch e {
	case EventAsked:
		return "asked"
	case EventRetrieved:
		return "retrieved"
	case EventGenerated:
		return "generated"
	case EventErrored:
		return "errored"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Effect is the work the driver performs after a transition.
type Effect int

const (
	EffectNone Effect = iota
	EffectRetrieve
	EffectGenerate
	EffectReturn
	EffectFail
)

type transitionKey struct {
	state State
	event Event
}

type transitionTarget struct {
	state  State
	effect Effect
}

var transitions = map[transitionKey]transitionTarget{
	{StateStart, EventAsked}:        {StateRetrieve, EffectRetrieve},
	{StateRetrieve, EventRetrieved}: {StateGenerate, EffectGenerate},
	{StateRetrieve, EventErrored}:   {StateFailed, EffectFail},
	{StateGenerate, EventGenerated}: {StateEnd, EffectReturn},
	{StateGenerate, EventErrored}:   {StateFailed, EffectFail},
}

// Transition returns the next state and the effect to run. End and Failed
// are terminal.
func Transition(state State, event Event) (State, Effect, error) {
	next, ok := transitions[transitionKey{state, event}]
	if !ok {
		return state, EffectNone, &TransitionError{State: state, Event: event}
	}
	return next.state, next.effect, nil
}

package actorutil

import (
	"github.com/asynkron/protoactor-go/actor"
)

// ActorWithStates is a behavior stack whose entries are named, so the current
// state can be reported in health checks.
type ActorWithStates struct {
	Behavior actor.Behavior
	names    []string
}

type ActorState interface {
	Name() string
	Receive(actor.Context)
}

func NewActorWithStates(initial ActorState) *ActorWithStates {
	s := &ActorWithStates{Behavior: actor.NewBehavior()}
	s.Become(initial)
	return s
}

func (s *ActorWithStates) Become(state ActorState) {
	s.Behavior.Become(state.Receive)
	s.names = []string{state.Name()}
}

func (s *ActorWithStates) BecomeStacked(state ActorState) {
	s.Behavior.BecomeStacked(state.Receive)
	s.names = append(s.names, state.Name())
}

func (s *ActorWithStates) UnbecomeStacked() {
	s.Behavior.UnbecomeStacked()
	if len(s.names) > 1 {
		s.names = s.names[:len(s.names)-1]
	}
}

func (s *ActorWithStates) StateName() string {
	if len(s.names) == 0 {
		return ""
	}
	return s.names[len(s.names)-1]
}

func (s *ActorWithStates) Receive(ctx actor.Context) {
	s.Behavior.Receive(ctx)
}

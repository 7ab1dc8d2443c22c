package actorutil

import (
	"github.com/berfenger/yasdi2mqtt/internal/core/domain"

	"github.com/asynkron/protoactor-go/actor"
)

// ReplyTo is the explicit reply address of req when it carries one, the
// sender otherwise. Both may be nil for fire and forget messages.
func ReplyTo(ctx actor.Context, req domain.ActorRequest) *actor.PID {
	if ref := req.ReplyTo(); ref != nil {
		return (*actor.PID)(ref)
	}
	return ctx.Sender()
}

// Reply answers req. Nothing is sent when nobody waits for the answer.
func Reply(ctx actor.Context, req domain.ActorRequest, resp domain.ActorResponse) {
	if to := ReplyTo(ctx, req); to != nil {
		ctx.Send(to, resp)
	}
}

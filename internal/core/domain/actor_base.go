package domain

import (
	"github.com/berfenger/yasdi2mqtt/pkg/yasdi"

	"github.com/asynkron/protoactor-go/actor"
)

type ActorRef actor.PID

// ActorRequestMixIn lets a request name the actor that gets the response,
// for requests relayed on behalf of someone else.
type ActorRequestMixIn struct {
	ReplyToRef *ActorRef
}

type ActorRequest interface {
	ReplyTo() *ActorRef
}

func (r ActorRequestMixIn) ReplyTo() *ActorRef {
	return r.ReplyToRef
}

// ActorResponseMixIn carries the failure of a request. Responses of the yasdi
// actor may still hold partial results next to the error (devices found by an
// incomplete detection).
type ActorResponseMixIn struct {
	ResponseError error
}

func ErrorResponse(err error) ActorResponseMixIn {
	return ActorResponseMixIn{ResponseError: err}
}

func (r ActorResponseMixIn) GetResponseError() error {
	return r.ResponseError
}

func (r ActorResponseMixIn) HasResponseError() bool {
	return r.ResponseError != nil
}

// ResultCode is the library code behind the failure, if the library failed.
func (r ActorResponseMixIn) ResultCode() (yasdi.ResultCode, bool) {
	if r.ResponseError == nil {
		return yasdi.YE_OK, false
	}
	return yasdi.CodeOf(r.ResponseError)
}

type ActorResponse interface {
	GetResponseError() error
	HasResponseError() bool
}

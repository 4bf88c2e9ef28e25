package middleware

import (
	"context"

	"github.com/switchboard-dev/switchboard/model"
)

// Handler is the terminal operation a chain wraps: one model call that
// consumes the (possibly rewritten) request and produces the final result.
type Handler func(ctx context.Context, req *model.Request) (*model.Result, error)

// Middleware observes and mutates model calls. WrapModelCall may rewrite the
// request before delegating to next and may transform the result on the way
// out. One instance serves every call of the agent it is attached to, so
// implementations must be safe for concurrent use.
type Middleware interface {
	Name() string
	WrapModelCall(ctx context.Context, req *model.Request, next Handler) (*model.Result, error)
}

// RequestHook is the narrower middleware form for implementations that only
// touch the outgoing request. Adapt with FromHook.
type RequestHook interface {
	Name() string
	BeforeModel(ctx context.Context, req *model.Request) error
}

// FromHook lifts a RequestHook into a Middleware. A hook error aborts the
// call before it reaches the model.
func FromHook(hook RequestHook) Middleware {
	return hookAdapter{hook: hook}
}

type hookAdapter struct {
	hook RequestHook
}

func (a hookAdapter) Name() string { return a.hook.Name() }

func (a hookAdapter) WrapModelCall(ctx context.Context, req *model.Request, next Handler) (*model.Result, error) {
	if err := a.hook.BeforeModel(ctx, req); err != nil {
		return nil, err
	}
	return next(ctx, req)
}

// Chain composes middlewares around a terminal handler. The first middleware
// is outermost: it rewrites the request first and sees the result last.
func Chain(final Handler, middlewares ...Middleware) Handler {
	h := final
	for i := len(middlewares) - 1; i >= 0; i-- {
		mw := middlewares[i]
		next := h
		h = func(ctx context.Context, req *model.Request) (*model.Result, error) {
			return mw.WrapModelCall(ctx, req, next)
		}
	}
	return h
}

package model

import (
	"context"
	"math/rand"
	"time"

	"github.com/switchboard-dev/switchboard/core"
	"github.com/switchboard-dev/switchboard/logging"
)

// Options configure the Client.
type Options struct {
	// Timeout bounds each request when Request.Timeout is zero.
	Timeout time.Duration
	// RetryDelay is the base backoff before the single rate limit retry.
	RetryDelay time.Duration
	// RetryJitter is the maximum random addition to RetryDelay.
	RetryJitter time.Duration
	// Logger receives model call instrumentation.
	Logger logging.Logger
}

// InvokeOptions configure one Invoke call.
type InvokeOptions struct {
	// OnToken is called with each streamed text fragment when the request
	// has Stream set and the provider supports it.
	OnToken func(text string)
}

// Result is the assembled outcome of one completed model call.
type Result struct {
	Message      core.Message
	FinishReason string
	Usage        *TokenUsage
}

// Client drives a provider adapter with the engine's call policy: a
// deadline on every request, exactly one retry after a rate limit, and
// normalized errors. It is safe for concurrent use.
type Client struct {
	model  Model
	opts   Options
	logger *logging.Scoped
}

// NewClient wraps a provider adapter.
func NewClient(m Model, optFns ...func(o *Options)) *Client {
	opts := Options{
		Timeout:     60 * time.Second,
		RetryDelay:  2 * time.Second,
		RetryJitter: time.Second,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		model:  m,
		opts:   opts,
		logger: logging.NewScoped(opts.Logger).WithComponent("model_client"),
	}
}

// Info exposes the wrapped adapter's metadata.
func (c *Client) Info() Info { return c.model.Info() }

// Invoke runs one model call to completion and returns the assembled
// assistant message. The request deadline is Request.Timeout, falling back
// to the client default; expiry surfaces as *Error{Kind: KindTimeout}. A
// rate limited call is retried once after a jittered backoff, then the
// error surfaces.
func (c *Client) Invoke(ctx context.Context, req Request, optFns ...func(o *InvokeOptions)) (*Result, error) {
	var invokeOpts InvokeOptions
	for _, fn := range optFns {
		fn(&invokeOpts)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.opts.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result, err := c.generate(ctx, req, invokeOpts.OnToken)
	if err != nil && IsRateLimit(err) {
		delay := c.opts.RetryDelay
		if c.opts.RetryJitter > 0 {
			delay += time.Duration(rand.Int63n(int64(c.opts.RetryJitter)))
		}
		c.logger.Warn("model call rate limited, retrying once", "model", req.Model, "delay", delay.String())
		select {
		case <-ctx.Done():
			err = Wrap(c.model.Info().Provider, ctx.Err())
		case <-time.After(delay):
			result, err = c.generate(ctx, req, invokeOpts.OnToken)
		}
	}
	if err != nil {
		err = Wrap(c.model.Info().Provider, err)
	}

	var tokens int
	if result != nil && result.Usage != nil {
		tokens = result.Usage.TotalTokens
	}
	c.logger.LogModelCall(c.modelID(req), tokens, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) modelID(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return c.model.Info().Name
}

// generate consumes the adapter's channels, forwarding partial text to
// onToken and keeping the last non-partial response as the result.
func (c *Client) generate(ctx context.Context, req Request, onToken func(string)) (*Result, error) {
	respCh, errCh := c.model.Generate(ctx, req)

	var final *Response
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				if onToken != nil {
					if text := resp.Message.Text(); text != "" {
						onToken(text)
					}
				}
				continue
			}
			r := resp
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if final == nil {
		return nil, &Error{
			Kind:     KindServer,
			Provider: c.model.Info().Provider,
			Message:  "provider closed the stream without a final response",
		}
	}
	return &Result{
		Message:      final.Message,
		FinishReason: final.FinishReason,
		Usage:        final.Usage,
	}, nil
}

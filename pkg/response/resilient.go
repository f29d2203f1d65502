package response

import (
	"context"
	"errors"

	"emotion-diary-be/pkg/conversation"
	"emotion-diary-be/pkg/emotion"
	"emotion-diary-be/pkg/gateway"

	"go.uber.org/zap"
)

// Degradation reasons reported in Result.Reason.
const (
	ReasonNoGenerator = "no_generator"
	ReasonError       = "generator_error"
	ReasonTimeout     = "timeout"
	ReasonCircuitOpen = "circuit_open"
	ReasonSaturated   = "saturated"
	ReasonTooShort    = "reply_too_short"
)

// Result is the reply for one turn.
type Result struct {
	Text     string
	Degraded bool
	Reason   string
}

// Resilient never fails: the generator runs through the gateway, and any
// error, timeout, open breaker or unusable reply falls back to a template.
type Resilient struct {
	generator Generator
	gateway   *gateway.Gateway
	fallback  *Fallback
	table     *Table
	logger    *zap.Logger
}

// NewResilient wires the pieces. generator may be nil, in which case every
// reply is a template.
func NewResilient(generator Generator, gw *gateway.Gateway, table *Table, selector Selector, logger *zap.Logger) *Resilient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resilient{
		generator: generator,
		gateway:   gw,
		fallback:  NewFallback(table, selector),
		table:     table,
		logger:    logger,
	}
}

func (r *Resilient) Respond(ctx context.Context, userText string, label emotion.Label, recent []conversation.Turn) Result {
	if r.generator == nil {
		return r.degrade(userText, label, ReasonNoGenerator, nil)
	}

	call := func(ctx context.Context) (string, error) {
		return r.generator.Generate(ctx, userText, label, recent)
	}

	var (
		reply string
		err   error
	)
	if r.gateway != nil {
		reply, err = gateway.Call(ctx, r.gateway, call)
	} else {
		reply, err = call(ctx)
	}

	switch {
	case err == nil && Usable(reply):
		return Result{Text: r.table.PostProcess(reply, label)}
	case err == nil:
		return r.degrade(userText, label, ReasonTooShort, nil)
	case errors.Is(err, gateway.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return r.degrade(userText, label, ReasonTimeout, err)
	case errors.Is(err, gateway.ErrCircuitOpen):
		return r.degrade(userText, label, ReasonCircuitOpen, err)
	case errors.Is(err, gateway.ErrSaturated):
		return r.degrade(userText, label, ReasonSaturated, err)
	default:
		return r.degrade(userText, label, ReasonError, err)
	}
}

func (r *Resilient) degrade(userText string, label emotion.Label, reason string, err error) Result {
	fields := []zap.Field{zap.String("reason", reason), zap.String("emotion", string(label))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == ReasonNoGenerator {
		r.logger.Debug("no generator configured, using fallback reply", fields...)
	} else {
		r.logger.Warn("RESPONSE_DEGRADED: using fallback reply", fields...)
	}
	return Result{Text: r.fallback.Respond(userText, label), Degraded: true, Reason: reason}
}

// GeneratorState reports the generator breaker state, or "disabled" when
// replies always come from templates.
func (r *Resilient) GeneratorState() string {
	switch {
	case r.generator == nil:
		return "disabled"
	case r.gateway == nil:
		return "closed"
	}
	return r.gateway.State()
}

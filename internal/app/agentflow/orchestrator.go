package agentflow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

// Orchestrator runs the synchronous part of a turn: reflect, then reply.
type Orchestrator struct {
	reflector *ReflectorAgent
	responder *ResponderAgent
}

// NewDefaultOrchestrator constructs a flow with Reflector -> Responder.
func NewDefaultOrchestrator(llm domain.CompletionClient, endMarker string) *Orchestrator {
	return &Orchestrator{
		reflector: NewReflectorAgent(llm),
		responder: NewResponderAgent(llm, endMarker),
	}
}

// Open asks the persona for the opening line of a new session. The
// instruction itself is not part of the returned history.
func (o *Orchestrator) Open(ctx context.Context, history []domain.Message) (*domain.Completion, error) {
	start := time.Now()
	res, err := o.responder.llm.Complete(ctx, withInstruction(history, OpeningInstruction))
	if err != nil {
		return nil, fmt.Errorf("opening failed: %w", err)
	}
	observability.LoggerFromContext(ctx).Debug("opening generated",
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return res, nil
}

type TurnInput struct {
	History     []domain.Message // history before the new user message
	UserText    string
	Reflections []string // reflection log before this turn

	// LoadPlan is called after the reflection step so the reply sees the
	// newest plan that has been written by then.
	LoadPlan func(ctx context.Context) string
	// Clock is evaluated right before the reply is requested.
	Clock func() Clock
}

type TurnOutput struct {
	NewReflections []string
	Reply          string
	// Usage covers every call that completed, also when RunTurn fails.
	Usage domain.Usage
}

// RunTurn executes the agents in order. No session state is touched here.
func (o *Orchestrator) RunTurn(ctx context.Context, in TurnInput) (TurnOutput, error) {
	log := observability.LoggerFromContext(ctx)
	log.Debug("turn started", zap.Int("history_len", len(in.History)))

	var out TurnOutput

	start := time.Now()
	refl, err := o.reflector.Run(ctx, ReflectInput{
		History:     in.History,
		UserText:    in.UserText,
		Reflections: in.Reflections,
	})
	if err != nil {
		return out, fmt.Errorf("agent %s failed: %w", o.reflector.Name(), err)
	}
	out.Usage = out.Usage.Add(refl.Usage)
	out.NewReflections = refl.Reflections
	log.Debug("agent run end", zap.String("agent", o.reflector.Name()),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	reflections := make([]string, 0, len(in.Reflections)+len(refl.Reflections))
	reflections = append(reflections, in.Reflections...)
	reflections = append(reflections, refl.Reflections...)

	var plan string
	if in.LoadPlan != nil {
		plan = in.LoadPlan(ctx)
	}
	var clock Clock
	if in.Clock != nil {
		clock = in.Clock()
	}

	start = time.Now()
	reply, err := o.responder.Run(ctx, ReplyInput{
		History:     in.History,
		UserText:    in.UserText,
		Reflections: reflections,
		Plan:        plan,
		Clock:       clock,
	})
	if err != nil {
		return out, fmt.Errorf("agent %s failed: %w", o.responder.Name(), err)
	}
	out.Usage = out.Usage.Add(reply.Usage)
	out.Reply = reply.Text
	log.Debug("agent run end", zap.String("agent", o.responder.Name()),
		zap.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	return out, nil
}

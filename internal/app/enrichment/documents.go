package enrichment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PabloGalante/psykologen/internal/app/agentflow"
	"github.com/PabloGalante/psykologen/internal/domain"
)

// readCurrent returns the stored document, or "" when none exists yet.
func readCurrent(ctx context.Context, store domain.DocumentStore, ref domain.DocumentRef) (string, error) {
	doc, err := store.Read(ctx, ref)
	if errors.Is(err, domain.ErrDocumentNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref, err)
	}
	return doc, nil
}

// ProfileJob rewrites the patient profile of a session.
type ProfileJob struct {
	agent *agentflow.ProfilerAgent
	store domain.DocumentStore
}

func NewProfileJob(llm domain.CompletionClient, store domain.DocumentStore) *ProfileJob {
	return &ProfileJob{agent: agentflow.NewProfilerAgent(llm), store: store}
}

func (j *ProfileJob) Name() string {
	return string(domain.DocumentProfile)
}

func (j *ProfileJob) Run(ctx context.Context, snap Snapshot) (domain.Usage, error) {
	ref := domain.DocumentRef{SessionID: snap.SessionID, Name: domain.DocumentProfile}

	current, err := readCurrent(ctx, j.store, ref)
	if err != nil {
		return domain.Usage{}, err
	}

	res, err := j.agent.Run(ctx, agentflow.ProfileInput{
		Current:   current,
		UserText:  snap.UserText,
		ReplyText: snap.ReplyText,
	})
	if err != nil {
		return domain.Usage{}, fmt.Errorf("profile completion: %w", err)
	}

	if err := j.store.Write(ctx, ref, res.Text); err != nil {
		return res.Usage, fmt.Errorf("write %s: %w", ref, err)
	}
	return res.Usage, nil
}

// PlanJob rewrites the session plan, taking the pace of the conversation
// into account.
type PlanJob struct {
	agent  *agentflow.PlannerAgent
	store  domain.DocumentStore
	budget time.Duration
	now    func() time.Time
}

// NewPlanJob measures elapsed time with now, time.Now when nil.
func NewPlanJob(llm domain.CompletionClient, store domain.DocumentStore, budget time.Duration, now func() time.Time) *PlanJob {
	if now == nil {
		now = time.Now
	}
	return &PlanJob{
		agent:  agentflow.NewPlannerAgent(llm),
		store:  store,
		budget: budget,
		now:    now,
	}
}

func (j *PlanJob) Name() string {
	return string(domain.DocumentPlan)
}

func (j *PlanJob) Run(ctx context.Context, snap Snapshot) (domain.Usage, error) {
	ref := domain.DocumentRef{SessionID: snap.SessionID, Name: domain.DocumentPlan}

	current, err := readCurrent(ctx, j.store, ref)
	if err != nil {
		return domain.Usage{}, err
	}

	res, err := j.agent.Run(ctx, agentflow.PlanInput{
		Current:   current,
		UserText:  snap.UserText,
		ReplyText: snap.ReplyText,
		History:   snap.History,
		Clock: agentflow.Clock{
			Elapsed: agentflow.Elapsed(snap.StartedAt, j.now()),
			Budget:  j.budget,
		},
	})
	if err != nil {
		return domain.Usage{}, fmt.Errorf("plan completion: %w", err)
	}

	if err := j.store.Write(ctx, ref, res.Text); err != nil {
		return res.Usage, fmt.Errorf("write %s: %w", ref, err)
	}
	return res.Usage, nil
}

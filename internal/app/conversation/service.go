package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/app/agentflow"
	"github.com/PabloGalante/psykologen/internal/app/enrichment"
	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

const (
	NoProfileYet = "Ingen profil skapad än."
	NoPlanYet    = "Ingen plan skapad än."

	DefaultContextWindow = 128000
)

type Options struct {
	EndMarker     string
	Budget        time.Duration // soft limit, only shown to the model
	ContextWindow int
	Workers       int
	QueueSize     int
	Metrics       *observability.Metrics
	Now           func() time.Time
}

// Service coordinates the sessions of this process: the synchronous turn
// path plus the background enrichment of the derived documents.
type Service struct {
	llm          domain.CompletionClient
	sessionStore domain.SessionStore
	docs         domain.DocumentStore
	now          func() time.Time

	orchestrator  *agentflow.Orchestrator
	scheduler     *enrichment.Scheduler
	endMarker     string
	budget        time.Duration
	contextWindow int
}

func NewService(
	llm domain.CompletionClient,
	sessionStore domain.SessionStore,
	docs domain.DocumentStore,
	opts Options,
) *Service {
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = DefaultContextWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		llm:           llm,
		sessionStore:  sessionStore,
		docs:          docs,
		now:           opts.Now,
		orchestrator:  agentflow.NewDefaultOrchestrator(llm, opts.EndMarker),
		endMarker:     opts.EndMarker,
		budget:        opts.Budget,
		contextWindow: opts.ContextWindow,
	}

	s.scheduler = enrichment.NewScheduler(enrichment.Options{
		Workers:   opts.Workers,
		QueueSize: opts.QueueSize,
		Metrics:   opts.Metrics,
		OnUsage:   s.recordEnrichmentUsage,
	},
		enrichment.NewProfileJob(llm, docs),
		enrichment.NewPlanJob(llm, docs, opts.Budget, opts.Now),
	)

	return s
}

// EndMarker returns the phrase that ends a session.
func (s *Service) EndMarker() string {
	return s.endMarker
}

type StartSessionInput struct {
	SessionID domain.SessionID // optional, generated when empty
}

type StartSessionOutput struct {
	Session domain.Snapshot
	Opening domain.Message
}

// StartSession registers the session before anything else happens, so a
// second start with the same ID fails without touching the first session's
// documents. The registration is undone if the opening cannot be generated.
func (s *Service) StartSession(ctx context.Context, in StartSessionInput) (*StartSessionOutput, error) {
	id := in.SessionID
	if id == "" {
		id = domain.SessionID(uuid.NewString())
	}

	ctx = observability.WithSessionID(ctx, string(id))
	log := observability.LoggerFromContext(ctx)

	now := s.now()
	session := domain.NewSessionState(id, now, s.newMessage(domain.RoleSystem, agentflow.SystemPrompt, now, 0))

	// Held until the opening is in place; turns on this ID wait for it.
	unlock := session.LockTurn()
	defer unlock()

	if err := s.sessionStore.CreateSession(session); err != nil {
		if errors.Is(err, domain.ErrSessionExists) {
			return nil, &domain.ValidationError{Field: "session_id", Reason: "already in use"}
		}
		log.Error("failed to create session", zap.Error(err))
		return nil, err
	}

	log.Info("starting new session")

	opening, err := s.open(ctx, session)
	if err != nil {
		if derr := s.sessionStore.DeleteSession(id); derr != nil {
			log.Warn("failed to release session", zap.Error(derr))
		}
		return nil, err
	}

	log.Info("session started")

	return &StartSessionOutput{
		Session: session.Snapshot(),
		Opening: opening,
	}, nil
}

// open clears documents left under the session ID and appends the opening.
func (s *Service) open(ctx context.Context, session *domain.SessionState) (domain.Message, error) {
	log := observability.LoggerFromContext(ctx)

	if err := s.deleteDocuments(ctx, session.ID()); err != nil {
		return domain.Message{}, err
	}

	res, err := s.orchestrator.Open(ctx, session.Messages())
	if err != nil {
		log.Error("failed to generate opening", zap.Error(err))
		return domain.Message{}, err
	}

	at := s.now()
	opening := s.newMessage(domain.RoleAssistant, res.Text, at, session.Offset(at))
	session.Append(opening)
	session.AddUsage(res.Usage)
	return opening, nil
}

func (s *Service) deleteDocuments(ctx context.Context, id domain.SessionID) error {
	for _, name := range []domain.DocumentName{domain.DocumentProfile, domain.DocumentPlan} {
		ref := domain.DocumentRef{SessionID: id, Name: name}
		if err := s.docs.Delete(ctx, ref); err != nil {
			observability.LoggerFromContext(ctx).Error("failed to reset document",
				zap.String("document", ref.String()), zap.Error(err))
			return fmt.Errorf("reset %s: %w", ref, err)
		}
	}
	return nil
}

// EndSession waits for a running turn, forgets the session and removes its
// documents. Saved transcripts are kept.
func (s *Service) EndSession(ctx context.Context, id domain.SessionID) error {
	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		return err
	}

	ctx = observability.WithSessionID(ctx, string(id))

	unlock := session.LockTurn()
	defer unlock()

	if err := s.sessionStore.DeleteSession(id); err != nil {
		return err
	}
	if err := s.deleteDocuments(ctx, id); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info("session ended")
	return nil
}

// ListSessions returns the IDs of the live sessions.
func (s *Service) ListSessions(ctx context.Context) []domain.SessionID {
	return s.sessionStore.ListSessions()
}

type SubmitTurnInput struct {
	SessionID domain.SessionID
	Text      string
}

type SubmitTurnOutput struct {
	UserMessage      domain.Message
	AssistantMessage domain.Message
	Reflections      []string // added during this turn
	SessionComplete  bool
	FinalText        string
}

// SubmitUserTurn runs one exchange. Nothing is appended to the session unless
// both the reflection and the reply succeed; usage of completed calls is
// counted either way.
func (s *Service) SubmitUserTurn(ctx context.Context, in SubmitTurnInput) (*SubmitTurnOutput, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, &domain.ValidationError{Field: "text", Reason: "must not be blank"}
	}

	session, err := s.sessionStore.GetSession(in.SessionID)
	if err != nil {
		return nil, err
	}

	ctx = observability.WithSessionID(ctx, string(session.ID()))
	log := observability.LoggerFromContext(ctx)

	unlock := session.LockTurn()
	defer unlock()

	// The session may have been ended, or its start failed, while we waited.
	if current, err := s.sessionStore.GetSession(session.ID()); err != nil || current != session {
		return nil, domain.ErrSessionNotFound
	}

	log.Info("submitting user turn", zap.Int("text_len", len(text)))

	userAt := s.now()
	out, err := s.orchestrator.RunTurn(ctx, agentflow.TurnInput{
		History:     session.Messages(),
		UserText:    text,
		Reflections: session.Reflections(),
		LoadPlan: func(ctx context.Context) string {
			return s.readDocument(ctx, domain.DocumentRef{SessionID: session.ID(), Name: domain.DocumentPlan})
		},
		Clock: func() agentflow.Clock {
			return agentflow.Clock{
				Elapsed: agentflow.Elapsed(session.StartedAt(), s.now()),
				Budget:  s.budget,
			}
		},
	})
	session.AddUsage(out.Usage)
	if err != nil {
		log.Error("turn failed", zap.Error(err))
		return nil, err
	}

	replyAt := s.now()
	userMsg := s.newMessage(domain.RoleUser, text, userAt, session.Offset(userAt))
	replyMsg := s.newMessage(domain.RoleAssistant, out.Reply, replyAt, session.Offset(replyAt))
	session.CommitTurn(userMsg, replyMsg, out.NewReflections)

	result := &SubmitTurnOutput{
		UserMessage:      userMsg,
		AssistantMessage: replyMsg,
		Reflections:      out.NewReflections,
	}
	if final, ok := agentflow.SplitEndMarker(out.Reply, s.endMarker); ok {
		session.MarkCompleted(final)
		result.SessionComplete = true
		result.FinalText = final
		log.Info("session reached end marker")
	}

	s.scheduler.Schedule(ctx, enrichment.NewSnapshot(session.ID(), session.StartedAt(), text, out.Reply, session.Messages()))

	log.Info("user turn completed", zap.Int("new_reflections", len(out.NewReflections)))
	return result, nil
}

// GetConversation returns the full history, system message included.
func (s *Service) GetConversation(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		return nil, err
	}
	return session.Messages(), nil
}

// GetSession returns a snapshot of the whole session state.
func (s *Service) GetSession(ctx context.Context, id domain.SessionID) (*domain.Snapshot, error) {
	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	return &snap, nil
}

func (s *Service) GetProfile(ctx context.Context, id domain.SessionID) (string, error) {
	return s.document(ctx, id, domain.DocumentProfile, NoProfileYet)
}

func (s *Service) GetPlan(ctx context.Context, id domain.SessionID) (string, error) {
	return s.document(ctx, id, domain.DocumentPlan, NoPlanYet)
}

func (s *Service) document(ctx context.Context, id domain.SessionID, name domain.DocumentName, sentinel string) (string, error) {
	if _, err := s.sessionStore.GetSession(id); err != nil {
		return "", err
	}

	doc, err := s.docs.Read(ctx, domain.DocumentRef{SessionID: id, Name: name})
	if errors.Is(err, domain.ErrDocumentNotFound) || (err == nil && strings.TrimSpace(doc) == "") {
		return sentinel, nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return doc, nil
}

// readDocument returns the document text, or "" when it is absent or
// unreadable.
func (s *Service) readDocument(ctx context.Context, ref domain.DocumentRef) string {
	doc, err := s.docs.Read(ctx, ref)
	if err != nil {
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			observability.LoggerFromContext(ctx).Warn("failed to read document",
				zap.String("document", ref.String()), zap.Error(err))
		}
		return ""
	}
	return doc
}

// Statistics describes token use and progress of one session. Input, output
// and total tokens cover the synchronous path (opening, reflections and
// replies); enrichment is reported separately.
type Statistics struct {
	SessionID              domain.SessionID                  `json:"session_id"`
	TurnCount              int                               `json:"turn_count"`
	InputTokens            int                               `json:"input_tokens"`
	OutputTokens           int                               `json:"output_tokens"`
	TotalTokens            int                               `json:"total_tokens"`
	EnrichmentInputTokens  int                               `json:"enrichment_input_tokens"`
	EnrichmentOutputTokens int                               `json:"enrichment_output_tokens"`
	ContextWindow          int                               `json:"context_window"`
	RemainingTokens        int                               `json:"remaining_tokens"`
	UsagePercent           float64                           `json:"usage_percent"`
	Elapsed                time.Duration                     `json:"elapsed"`
	Completed              bool                              `json:"completed"`
	Enrichment             map[string]observability.JobStats `json:"enrichment"`
}

func (s *Service) GetStatistics(ctx context.Context, id domain.SessionID) (*Statistics, error) {
	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		return nil, err
	}
	snap := session.Snapshot()
	total := snap.Usage.Total()

	return &Statistics{
		SessionID:              snap.ID,
		TurnCount:              snap.TurnCount,
		InputTokens:            snap.Usage.InputTokens,
		OutputTokens:           snap.Usage.OutputTokens,
		TotalTokens:            total,
		EnrichmentInputTokens:  snap.EnrichmentUsage.InputTokens,
		EnrichmentOutputTokens: snap.EnrichmentUsage.OutputTokens,
		ContextWindow:          s.contextWindow,
		RemainingTokens:        s.contextWindow - total,
		UsagePercent:           float64(total) / float64(s.contextWindow) * 100,
		Elapsed:                agentflow.Elapsed(snap.StartedAt, s.now()),
		Completed:              snap.Completed,
		Enrichment:             s.scheduler.Metrics().Snapshot(),
	}, nil
}

// Shutdown stops background enrichment, waiting for running jobs until ctx
// expires.
func (s *Service) Shutdown(ctx context.Context) error {
	observability.LoggerFromContext(ctx).Info("shutting down enrichment scheduler")
	return s.scheduler.Close(ctx)
}

func (s *Service) recordEnrichmentUsage(id domain.SessionID, u domain.Usage) {
	session, err := s.sessionStore.GetSession(id)
	if err != nil {
		return
	}
	session.AddEnrichmentUsage(u)
}

func (s *Service) newMessage(role domain.Role, content string, at time.Time, offset time.Duration) domain.Message {
	return domain.Message{
		ID:            domain.MessageID(ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()),
		Role:          role,
		Content:       content,
		CreatedAt:     at,
		SessionOffset: offset,
	}
}

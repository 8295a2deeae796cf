package httpadapter

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/PabloGalante/psykologen/internal/app/conversation"
	"github.com/PabloGalante/psykologen/internal/app/journal"
	"github.com/PabloGalante/psykologen/internal/domain"
	"github.com/PabloGalante/psykologen/internal/observability"
)

type Server struct {
	svc     *conversation.Service
	journal *journal.Service
}

// NewServer builds the REST surface. journalSvc may be nil, in which case
// transcripts cannot be saved over HTTP.
func NewServer(svc *conversation.Service, journalSvc *journal.Service) *echo.Echo {
	s := &Server{svc: svc, journal: journalSvc}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(withRequestContext)
	e.Use(withLogging)
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))

	e.GET("/healthz", s.handleHealth)

	e.POST("/sessions", s.handleCreateSession)
	e.GET("/sessions", s.handleListSessions)
	e.GET("/sessions/:id", s.handleGetSession)
	e.DELETE("/sessions/:id", s.handleEndSession)
	e.POST("/sessions/:id/messages", s.handleSendMessage)
	e.GET("/sessions/:id/conversation", s.handleGetConversation)
	e.GET("/sessions/:id/profile", s.handleGetProfile)
	e.GET("/sessions/:id/plan", s.handleGetPlan)
	e.GET("/sessions/:id/statistics", s.handleGetStatistics)
	e.POST("/sessions/:id/transcript", s.handleSaveTranscript)
	e.GET("/sessions/:id/transcripts", s.handleListTranscripts)

	return e
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type createSessionResponse struct {
	Success   bool            `json:"success"`
	SessionID string          `json:"session_id"`
	Message   string          `json:"message"`
	Role      string          `json:"role"`
	Opening   messageResponse `json:"opening"`
}

type messageResponse struct {
	ID            string    `json:"id"`
	Role          string    `json:"role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	SessionTimeMS int64     `json:"session_time_ms"`
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Role             string          `json:"role"`
	SessionComplete  bool            `json:"sessionComplete,omitempty"`
	FinalText        string          `json:"finalText,omitempty"`
	Reflections      []string        `json:"reflections"`
	UserMessage      messageResponse `json:"user_message"`
	AssistantMessage messageResponse `json:"assistant_message"`
}

type sessionResponse struct {
	Success     bool              `json:"success"`
	SessionID   string            `json:"session_id"`
	StartedAt   time.Time         `json:"started_at"`
	TurnCount   int               `json:"turn_count"`
	Completed   bool              `json:"completed"`
	FinalText   string            `json:"final_text,omitempty"`
	Reflections []string          `json:"reflections"`
	Messages    []messageResponse `json:"messages"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "OK",
		"service": "Psykologen API",
	})
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req createSessionRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid JSON body")
		}
	}

	out, err := s.svc.StartSession(c.Request().Context(), conversation.StartSessionInput{
		SessionID: domain.SessionID(req.SessionID),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, createSessionResponse{
		Success:   true,
		SessionID: string(out.Session.ID),
		Message:   out.Opening.Content,
		Role:      "erik",
		Opening:   toMessageResponse(out.Opening),
	})
}

func (s *Server) handleGetSession(c echo.Context) error {
	snap, err := s.svc.GetSession(c.Request().Context(), sessionID(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, sessionResponse{
		Success:     true,
		SessionID:   string(snap.ID),
		StartedAt:   snap.StartedAt,
		TurnCount:   snap.TurnCount,
		Completed:   snap.Completed,
		FinalText:   snap.FinalText,
		Reflections: snap.Reflections,
		Messages:    toMessagesResponse(snap.Messages, false),
	})
}

func (s *Server) handleListSessions(c echo.Context) error {
	ids := s.svc.ListSessions(c.Request().Context())
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, string(id))
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "sessions": out})
}

// DELETE /sessions/:id frees the session. Saved transcripts stay listed.
func (s *Server) handleEndSession(c echo.Context) error {
	if err := s.svc.EndSession(c.Request().Context(), sessionID(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	out, err := s.svc.SubmitUserTurn(c.Request().Context(), conversation.SubmitTurnInput{
		SessionID: sessionID(c),
		Text:      req.Text,
	})
	if err != nil {
		return writeError(c, err)
	}

	reflections := out.Reflections
	if reflections == nil {
		reflections = []string{}
	}

	return c.JSON(http.StatusOK, sendMessageResponse{
		Success:          true,
		Message:          out.AssistantMessage.Content,
		Role:             "erik",
		SessionComplete:  out.SessionComplete,
		FinalText:        out.FinalText,
		Reflections:      reflections,
		UserMessage:      toMessageResponse(out.UserMessage),
		AssistantMessage: toMessageResponse(out.AssistantMessage),
	})
}

// GET /sessions/:id/conversation?include_system=true
func (s *Server) handleGetConversation(c echo.Context) error {
	msgs, err := s.svc.GetConversation(c.Request().Context(), sessionID(c))
	if err != nil {
		return writeError(c, err)
	}

	includeSystem := c.QueryParam("include_system") == "true"
	return c.JSON(http.StatusOK, map[string]any{
		"success":      true,
		"conversation": toMessagesResponse(msgs, includeSystem),
	})
}

func (s *Server) handleGetProfile(c echo.Context) error {
	profile, err := s.svc.GetProfile(c.Request().Context(), sessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "profile": profile})
}

func (s *Server) handleGetPlan(c echo.Context) error {
	plan, err := s.svc.GetPlan(c.Request().Context(), sessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "plan": plan})
}

func (s *Server) handleGetStatistics(c echo.Context) error {
	stats, err := s.svc.GetStatistics(c.Request().Context(), sessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "statistics": stats})
}

func (s *Server) handleSaveTranscript(c echo.Context) error {
	if s.journal == nil {
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "transcripts are not enabled"})
	}

	ctx := c.Request().Context()
	snap, err := s.svc.GetSession(ctx, sessionID(c))
	if err != nil {
		return writeError(c, err)
	}

	loc, err := s.journal.SaveTranscript(ctx, *snap)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{"success": true, "location": loc})
}

// GET /sessions/:id/transcripts also answers for sessions that have ended.
func (s *Server) handleListTranscripts(c echo.Context) error {
	if s.journal == nil {
		return c.JSON(http.StatusNotImplemented, errorResponse{Error: "transcripts are not enabled"})
	}

	infos, err := s.journal.ListTranscripts(c.Request().Context(), sessionID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "transcripts": infos})
}

// ─────────────────────────────────────────────
// Conversation Helpers
// ─────────────────────────────────────────────

func sessionID(c echo.Context) domain.SessionID {
	return domain.SessionID(c.Param("id"))
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:            string(m.ID),
		Role:          string(m.Role),
		Content:       m.Content,
		CreatedAt:     m.CreatedAt,
		SessionTimeMS: m.SessionOffset.Milliseconds(),
	}
}

func toMessagesResponse(msgs []domain.Message, includeSystem bool) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == domain.RoleSystem && !includeSystem {
			continue
		}
		out = append(out, toMessageResponse(m))
	}
	return out
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Error: msg})
}

// writeError maps service errors to status codes.
func writeError(c echo.Context, err error) error {
	var status int
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExists):
		status = http.StatusConflict
	case domain.IsUpstream(err):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		observability.LoggerFromContext(c.Request().Context()).Error("request failed",
			zap.Int("status", status), zap.Error(err))
	}
	if status == http.StatusInternalServerError {
		return c.JSON(status, errorResponse{Error: "internal server error"})
	}
	return c.JSON(status, errorResponse{Error: err.Error()})
}

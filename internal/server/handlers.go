package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/orchestra/internal/orchestrator"
	"github.com/mohammad-safakhou/orchestra/internal/registry"
	"github.com/mohammad-safakhou/orchestra/session"
)

// Processor plans and executes one user turn.
type Processor interface {
	Process(ctx context.Context, userInput string, sess *session.Session) *orchestrator.Outcome
}

// ChatHandler serves the conversational endpoints.
type ChatHandler struct {
	Orch     Processor
	Store    session.Store
	Registry *registry.Registry
	Now      func() time.Time
}

// Register mounts the routes. The optional middleware guards the two
// chat endpoints only; health, agents and session inspection stay open.
func (h *ChatHandler) Register(e *echo.Echo, authMW ...echo.MiddlewareFunc) {
	e.POST("/api/chat", h.chat, authMW...)
	e.POST("/orchestrate", h.orchestrate, authMW...)
	e.GET("/health", h.health)
	e.GET("/agents", h.agents)
	e.GET("/session/:sessionId", h.getSession)
	e.DELETE("/session/:sessionId", h.deleteSession)
}

func (h *ChatHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// chat is the session-aware endpoint: short bare-date or affirmation
// inputs are merged with the previous unresolved request before planning.
func (h *ChatHandler) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	text := req.Text()
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}

	ctx := c.Request().Context()
	sess, err := h.Store.GetOrCreate(ctx, req.SessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	processed := text
	isFollowUp := false
	if session.IsFollowUp(text) && sess.LastRequest != "" {
		if merged := sess.MergeFollowUp(text); merged != text {
			processed = merged
			isFollowUp = true
		}
	}

	outcome := h.Orch.Process(ctx, processed, sess)

	reply := outcome.Response
	if reply == "" {
		reply = outcome.Result
	}
	sess.RecordTurn(processed, reply, outcome.Pending(), h.now())
	if err := h.Store.Put(ctx, sess); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := h.envelope(outcome, text)
	resp.SessionID = sess.ID
	resp.IsFollowUp = isFollowUp
	resp.ProcessedInput = processed
	resp.AllUserInputs = sess.UserInputs
	resp.ConversationHistory = sess.History
	return c.JSON(http.StatusOK, resp)
}

// orchestrate is the stateless endpoint: no session, no follow-up merge.
func (h *ChatHandler) orchestrate(c echo.Context) error {
	var req OrchestrateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	text := req.Text()
	if text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userInput is required")
	}
	outcome := h.Orch.Process(c.Request().Context(), text, nil)
	return c.JSON(http.StatusOK, h.envelope(outcome, text))
}

func (h *ChatHandler) envelope(o *orchestrator.Outcome, userInput string) *ChatResponse {
	resp := &ChatResponse{
		Success:   o.Success,
		UserInput: userInput,
		Type:      o.Type,
		Response:    o.Response,
		Error:       o.Err,
		LLMResponse: o.RawResponse,
		Timestamp:   h.now().UTC().Format(time.RFC3339),

		AgentUsed:  o.Agent,
		ToolUsed:   o.Tool,
		Parameters: o.Parameters,
		Result:     o.Result,

		MissingParameters: o.Missing,
		Suggestions:       o.Suggestions,
	}
	if o.Run != nil {
		resp.FinalResult = o.Run.FinalResult
		resp.TotalSteps = o.Run.TotalSteps
		resp.CompletedSteps = o.Run.CompletedSteps
		resp.FailedSteps = o.Run.FailedSteps
		resp.StepDetails = o.Run.StepDetails
		resp.Results = o.Run.Results
		resp.WeatherAssessment = o.Run.WeatherAssessment
	}
	// final_result carries the user-facing text for every outcome type,
	// not just multi-step runs
	if resp.FinalResult == "" {
		resp.FinalResult = o.Response
		if resp.FinalResult == "" {
			resp.FinalResult = o.Result
		}
	}
	return resp
}

func (h *ChatHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"agents":    len(h.Registry.Agents()),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func (h *ChatHandler) agents(c echo.Context) error {
	cards := h.Registry.Agents()
	out := make([]AgentInfo, 0, len(cards))
	for _, a := range cards {
		info := AgentInfo{Name: a.Name, Description: a.Description, ServerURL: a.ServerURL}
		for _, t := range a.Tools {
			info.Tools = append(info.Tools, ToolInfo{
				Name:           t.Name,
				Description:    t.Description,
				RequiredParams: t.RequiredParams,
			})
		}
		out = append(out, info)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"agents": out, "total": len(out)})
}

func (h *ChatHandler) getSession(c echo.Context) error {
	id := c.Param("sessionId")
	sess, ok, err := h.Store.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}
	return c.JSON(http.StatusOK, SessionResponse{
		SessionID:   sess.ID,
		LastRequest: sess.LastRequest,
		Pending:     sess.Pending,
		History:     sess.History,
		UserInputs:  sess.UserInputs,
		LastTouched: sess.LastTouched.UTC().Format(time.RFC3339),
	})
}

func (h *ChatHandler) deleteSession(c echo.Context) error {
	id := c.Param("sessionId")
	if err := h.Store.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted", "sessionId": id})
}

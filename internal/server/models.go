package server

import (
	"github.com/mohammad-safakhou/orchestra/internal/orchestrator"
	"github.com/mohammad-safakhou/orchestra/session"
)

// ChatRequest is the /api/chat payload. The text may arrive under any of
// message, query or prompt; the first non-empty one wins.
type ChatRequest struct {
	Message   string `json:"message"`
	Query     string `json:"query"`
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId"`
}

func (r ChatRequest) Text() string {
	for _, s := range []string{r.Message, r.Query, r.Prompt} {
		if s != "" {
			return s
		}
	}
	return ""
}

// OrchestrateRequest is the stateless /orchestrate payload.
type OrchestrateRequest struct {
	UserInput string `json:"userInput"`
	Message   string `json:"message"`
}

func (r OrchestrateRequest) Text() string {
	if r.UserInput != "" {
		return r.UserInput
	}
	return r.Message
}

// ChatResponse is the result envelope for both chat endpoints. Fields are
// included per outcome type; omitted ones stay off the wire.
type ChatResponse struct {
	Success   bool   `json:"success"`
	UserInput string `json:"userInput"`
	Type      string `json:"type,omitempty"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
	// raw model text when planning output could not be parsed
	LLMResponse string `json:"llmResponse,omitempty"`
	Timestamp   string `json:"timestamp"`

	// single agent
	AgentUsed  string                 `json:"agent_used,omitempty"`
	ToolUsed   string                 `json:"tool_used,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Result     string                 `json:"result,omitempty"`

	// missing parameters
	MissingParameters []string `json:"missing_parameters,omitempty"`
	Suggestions       []string `json:"suggestions,omitempty"`

	// multi step
	FinalResult       string                    `json:"final_result,omitempty"`
	TotalSteps        int                       `json:"total_steps,omitempty"`
	CompletedSteps    int                       `json:"completed_steps,omitempty"`
	FailedSteps       int                       `json:"failed_steps,omitempty"`
	StepDetails       []orchestrator.StepResult `json:"step_details,omitempty"`
	Results           []string                  `json:"results,omitempty"`
	WeatherAssessment string                    `json:"weather_assessment,omitempty"`

	// session context (chat endpoint only)
	SessionID           string         `json:"sessionId,omitempty"`
	IsFollowUp          bool           `json:"isFollowUp,omitempty"`
	ProcessedInput      string         `json:"processedInput,omitempty"`
	AllUserInputs       []string       `json:"allUserInputs,omitempty"`
	ConversationHistory []session.Turn `json:"conversationHistory,omitempty"`
}

// SessionResponse is the GET /session/:sessionId payload.
type SessionResponse struct {
	SessionID   string           `json:"sessionId"`
	LastRequest string           `json:"lastRequest,omitempty"`
	Pending     *session.Pending `json:"pending,omitempty"`
	History     []session.Turn   `json:"history"`
	UserInputs  []string         `json:"userInputs"`
	LastTouched string           `json:"lastTouched"`
}

// AgentInfo is one entry of the GET /agents listing.
type AgentInfo struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ServerURL   string     `json:"server_url"`
	Tools       []ToolInfo `json:"tools"`
}

type ToolInfo struct {
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	RequiredParams []string `json:"required_params,omitempty"`
}

// HTTPError mirrors the error handler's JSON body.
type HTTPError struct {
	Error string `json:"error"`
}

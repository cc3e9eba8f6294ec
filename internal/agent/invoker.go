package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/mohammad-safakhou/orchestra/config"
	"github.com/mohammad-safakhou/orchestra/internal/registry"
)

// ErrUnknownTool indicates the requested tool is not in the registry.
var ErrUnknownTool = errors.New("unknown tool")

// MissingParamsError reports required parameters that are absent or blank.
type MissingParamsError struct {
	Tool    string
	Missing []string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("tool %s missing required parameters: %s", e.Tool, strings.Join(e.Missing, ", "))
}

// MissingRequiredParams returns the required parameters of a tool that are
// absent, nil, or blank in params. Unknown tools have no requirements.
func MissingRequiredParams(card registry.ToolCard, params map[string]interface{}) []string {
	var missing []string
	for _, name := range card.RequiredParams {
		v, ok := params[name]
		if !ok || v == nil {
			missing = append(missing, name)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// Invoker calls downstream agents over their A2A endpoints.
type Invoker struct {
	registry *registry.Registry
	http     *HTTPClient
	logger   *log.Logger
}

func NewInvoker(cfg config.AgentsConfig, reg *registry.Registry) *Invoker {
	return &Invoker{
		registry: reg,
		http:     NewHTTPClient(cfg.CallTimeout, cfg.MaxRetries, cfg.Backoff),
		logger:   log.New(log.Writer(), "[INVOKER] ", log.LstdFlags),
	}
}

// Result is the normalized outcome of one agent call.
type Result struct {
	Agent    string
	Tool     string
	Text     string
	Raw      map[string]interface{}
	Duration time.Duration
}

// Call posts {"tool": ..., params...} to the agent owning the tool and
// normalizes the response to text. The agent name from the plan wins when
// it is registered; otherwise the tool's owning agent is used.
func (inv *Invoker) Call(ctx context.Context, agentName, toolName string, params map[string]interface{}) (*Result, error) {
	card, ok := inv.registry.Tool(toolName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, toolName)
	}
	if missing := MissingRequiredParams(card, params); len(missing) > 0 {
		return nil, &MissingParamsError{Tool: toolName, Missing: missing}
	}
	serverURL := card.ServerURL
	resolvedAgent := card.AgentName
	if agentName != "" && agentName != card.AgentName {
		if ag, ok := inv.registry.Agent(agentName); ok {
			serverURL = ag.ServerURL
			resolvedAgent = ag.Name
		}
	}

	payload := map[string]interface{}{"tool": toolName}
	for k, v := range params {
		if k == "tool" {
			continue
		}
		payload[k] = v
	}

	inv.logger.Printf("calling %s/%s at %s", resolvedAgent, toolName, serverURL)
	started := time.Now()
	var raw map[string]interface{}
	err := inv.http.DoJSON(ctx, "POST", serverURL+card.Endpoint, nil, payload, &raw)
	elapsed := time.Since(started)
	observeAgentCall(resolvedAgent, toolName, err, elapsed)
	if err != nil {
		inv.logger.Printf("%s/%s failed after %s: %v", resolvedAgent, toolName, elapsed, err)
		return nil, fmt.Errorf("agent %s tool %s: %w", resolvedAgent, toolName, err)
	}

	return &Result{
		Agent:    resolvedAgent,
		Tool:     toolName,
		Text:     normalizeResponse(raw),
		Raw:      raw,
		Duration: elapsed,
	}, nil
}

// normalizeResponse flattens the varied agent response shapes to plain text:
// content.text, content[0].text, bare text, else the re-encoded body.
func normalizeResponse(raw map[string]interface{}) string {
	if raw == nil {
		return ""
	}
	switch content := raw["content"].(type) {
	case map[string]interface{}:
		if text, ok := content["text"].(string); ok && text != "" {
			return text
		}
	case []interface{}:
		for _, item := range content {
			if m, ok := item.(map[string]interface{}); ok {
				if text, ok := m["text"].(string); ok && text != "" {
					return text
				}
			}
		}
	}
	if text, ok := raw["text"].(string); ok && text != "" {
		return text
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprintf("%v", raw)
	}
	return string(b)
}

// TranslateError maps transport and status failures to the user-facing
// messages surfaced in step details.
func TranslateError(toolName string, err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == 400:
			return "Invalid request parameters. Please rephrase your request."
		case se.Code == 401:
			return "Authentication with the service failed. Please check the service credentials."
		case se.Code == 404:
			return "The requested information is not available. Please check your input and try again."
		case se.Code == 429:
			return "The service is rate limited. Please retry in a moment."
		case se.Code >= 500:
			return "A server error occurred. Please try again later."
		}
	}
	if isConnRefused(err) {
		return "The service is currently unavailable. Please try again later."
	}
	if strings.Contains(toolName, "email") {
		return "Email could not be sent. Please verify the recipient address and try again."
	}
	return "The agent could not complete the request. Please try again."
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}

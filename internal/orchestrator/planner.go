package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mohammad-safakhou/orchestra/internal/registry"
	"github.com/mohammad-safakhou/orchestra/provider"
)

const plannerSystemPrompt = "You are a helpful assistant."

// Planner turns a user utterance into an execution plan via one LLM call.
type Planner struct {
	provider provider.Provider
	registry *registry.Registry
	logger   *log.Logger
	clock    Clock
}

func NewPlanner(p provider.Provider, reg *registry.Registry) *Planner {
	return &Planner{
		provider: p,
		registry: reg,
		logger:   log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
		clock:    time.Now,
	}
}

// Plan builds the planning prompt, calls the LLM once, and decodes the
// reply into a Plan. history, when non-empty, is the rendered session
// transcript prepended to bias the model toward reusing known facts.
func (p *Planner) Plan(ctx context.Context, userInput, history string) (*Plan, error) {
	template := buildPromptTemplate(p.registry, p.clock())

	var prompt strings.Builder
	prompt.WriteString(template)
	if history != "" {
		prompt.WriteString("\n")
		prompt.WriteString(history)
	}
	prompt.WriteString("\nUser request: ")
	prompt.WriteString(userInput)
	prompt.WriteString("\nAssistant:")

	raw, err := p.provider.Generate(ctx, plannerSystemPrompt, prompt.String())
	if err != nil {
		return nil, fmt.Errorf("llm planning call: %w", err)
	}

	parsed, err := parsePlanningJSON(raw)
	if err != nil {
		p.logger.Printf("unparsable planning response: %v", err)
		return nil, &PlanningError{RawResponse: raw, Err: err}
	}

	plan, err := interpretPlan(parsed)
	if err != nil {
		return nil, &PlanningError{RawResponse: raw, Err: err}
	}

	p.applyDateTemplates(plan)

	if degraded := p.vagueTimeGuard(plan, userInput); degraded != nil {
		p.logger.Printf("vague meeting time in %q, asking for clarification", userInput)
		return degraded, nil
	}
	if degraded := p.requiredParamGuard(plan); degraded != nil {
		return degraded, nil
	}
	return plan, nil
}

// interpretPlan maps the decoded JSON onto the closed Plan variant set by
// the status discriminator.
func interpretPlan(v interface{}) (*Plan, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		// a bare array is taken as its first object element
		if arr, isArr := v.([]interface{}); isArr && len(arr) > 0 {
			if first, isObj := arr[0].(map[string]interface{}); isObj {
				obj = first
			}
		}
		if obj == nil {
			return nil, fmt.Errorf("planning response is not a JSON object")
		}
	}

	status, ok := asInt(obj["status"])
	if !ok {
		return nil, fmt.Errorf("planning response has no status discriminator")
	}

	switch status {
	case 0:
		return &Plan{Kind: PlanDirectAnswer, Response: asString(obj["response"])}, nil
	case 1:
		plan := &Plan{
			Kind:       PlanSingleCall,
			Agent:      firstString(obj, "agent_name", "agent"),
			Tool:       firstString(obj, "tool_name", "tool"),
			Parameters: asParams(obj["parameters"]),
		}
		if plan.Tool == "" {
			return nil, fmt.Errorf("single-call plan names no tool")
		}
		return plan, nil
	case 2:
		missing := asStringList(obj["missing_parameters"])
		if len(missing) == 0 {
			if resp := asString(obj["response"]); resp != "" {
				// the model answered directly at status 2
				return &Plan{
					Kind:       PlanCompleted,
					Response:   resp,
					Agent:      firstString(obj, "agent_name", "agent"),
					Tool:       firstString(obj, "tool_name", "tool"),
					Parameters: asParams(obj["parameters"]),
				}, nil
			}
			return nil, fmt.Errorf("status 2 plan carries neither missing_parameters nor response")
		}
		return &Plan{
			Kind:        PlanMissingParams,
			Agent:       firstString(obj, "agent_name", "agent"),
			Tool:        firstString(obj, "tool_name", "tool"),
			Missing:     missing,
			Suggestions: asStringList(obj["suggestions"]),
			Response:    asString(obj["response"]),
		}, nil
	case 3:
		rawSteps, ok := obj["steps"].([]interface{})
		if !ok || len(rawSteps) == 0 {
			return nil, fmt.Errorf("multi-step plan has no steps")
		}
		steps := make([]Step, 0, len(rawSteps))
		for i, rs := range rawSteps {
			sm, ok := rs.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("step %d is not an object", i+1)
			}
			number, ok := asInt(sm["step"])
			if !ok {
				number = i + 1
			}
			step := Step{
				Number:      number,
				Agent:       firstString(sm, "agent_name", "agent"),
				Tool:        firstString(sm, "tool_name", "tool"),
				Parameters:  asParams(sm["parameters"]),
				Description: asString(sm["description"]),
				Condition:   asString(sm["condition"]),
			}
			if step.Tool == "" {
				return nil, fmt.Errorf("step %d names no tool", i+1)
			}
			steps = append(steps, step)
		}
		return &Plan{Kind: PlanMultiStep, Steps: steps}, nil
	default:
		return nil, fmt.Errorf("unrecognized planning status %d", status)
	}
}

// applyDateTemplates resolves {{today_date}} and {{tomorrow_date}} in
// every string parameter.
func (p *Planner) applyDateTemplates(plan *Plan) {
	today := p.clock().Format("2006-01-02")
	tomorrow := p.clock().AddDate(0, 0, 1).Format("2006-01-02")
	substitute := func(params map[string]interface{}) {
		for k, v := range params {
			if s, ok := v.(string); ok {
				s = strings.ReplaceAll(s, TokenTodayDate, today)
				s = strings.ReplaceAll(s, TokenTomorrowDate, tomorrow)
				params[k] = s
			}
		}
	}
	substitute(plan.Parameters)
	for i := range plan.Steps {
		substitute(plan.Steps[i].Parameters)
	}
}

var vagueTimeReferences = []string{"this week", "next week", "soon", "asap", "when convenient", "when available"}

var specificDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

var specificTimes = []string{"morning", "afternoon", "evening", "9am", "10am", "11am", "12pm", "1pm", "2pm", "3pm", "4pm", "5pm", "6pm"}

// vagueTimeGuard short-circuits a multi-step plan that would schedule a
// meeting the user only vaguely pinned in time.
func (p *Planner) vagueTimeGuard(plan *Plan, userInput string) *Plan {
	if plan.Kind != PlanMultiStep {
		return nil
	}
	hasZoomMeeting := false
	for _, step := range plan.Steps {
		if step.Tool == "zoom_create_meeting" {
			hasZoomMeeting = true
			break
		}
	}
	if !hasZoomMeeting {
		return nil
	}
	request := strings.ToLower(userInput)
	if !containsAny(request, vagueTimeReferences) || containsAny(request, specificDays) || containsAny(request, specificTimes) {
		return nil
	}
	return &Plan{
		Kind:    PlanMissingParams,
		Agent:   "Orchestrator",
		Tool:    "meeting_scheduling",
		Missing: []string{"meeting_day", "meeting_time"},
		Response: "Sure! I'd be happy to help schedule that meeting. What day this week would work best for you? " +
			"And would an hour-long meeting be good, or do you need a different duration?\n\n" +
			"Just let me know your preferred day and time, and I'll get everything set up.",
	}
}

// requiredParamGuard degrades a single call whose required parameters are
// already known to be absent, so the invoker is never reached.
func (p *Planner) requiredParamGuard(plan *Plan) *Plan {
	if plan.Kind != PlanSingleCall {
		return nil
	}
	var missing []string
	for _, name := range p.registry.RequiredParams(plan.Tool) {
		v, present := plan.Parameters[name]
		if !present || v == nil {
			missing = append(missing, name)
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &Plan{
		Kind:    PlanMissingParams,
		Agent:   plan.Agent,
		Tool:    plan.Tool,
		Missing: missing,
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func firstString(obj map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := asString(obj[k]); s != "" {
			return s
		}
	}
	return ""
}

func asParams(v interface{}) map[string]interface{} {
	if m, ok := v.(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// asStringList accepts both array form ["source","date"] and object form
// {"source": "...", "date": "..."} for missing_parameters.
func asStringList(v interface{}) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case map[string]interface{}:
		out := make([]string, 0, len(val))
		for k := range val {
			out = append(out, k)
		}
		sort.Strings(out)
		return out
	default:
		return nil
	}
}

package orchestrator

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/orchestra/internal/agent"
	"github.com/mohammad-safakhou/orchestra/internal/formatter"
	"github.com/mohammad-safakhou/orchestra/internal/registry"
	"github.com/mohammad-safakhou/orchestra/provider"
	"github.com/mohammad-safakhou/orchestra/session"
)

// conditionKeywords is the fixed keyword set a "weather is good" condition
// is checked against in the previous step's result.
var conditionKeywords = []string{
	"good", "clear", "sunny", "fine", "excellent",
	"scattered clouds", "partly cloudy", "overcast clouds", "fair",
}

var weatherTools = map[string]bool{
	"get_current_weather_by_city":        true,
	"get_weather_forecast_by_city":       true,
	"get_current_weather_by_coordinates": true,
}

var locationTools = map[string]bool{
	"get_live_location":    true,
	"get_location_by_ip":   true,
	"get_location_details": true,
}

// Executor walks a multi-step plan strictly in order, resolving
// placeholders from accumulated context, evaluating conditions, gating on
// required parameters, and recording per-step outcomes.
type Executor struct {
	invoker  *agent.Invoker
	registry *registry.Registry
	provider provider.Provider
	logger   *log.Logger
	clock    Clock
}

func NewExecutor(inv *agent.Invoker, reg *registry.Registry, p provider.Provider) *Executor {
	return &Executor{
		invoker:  inv,
		registry: reg,
		provider: p,
		logger:   log.New(log.Writer(), "[EXECUTOR] ", log.LstdFlags),
		clock:    time.Now,
	}
}

// Execute runs the plan's steps sequentially. A failed step is recorded
// and execution continues; an unresolvable required parameter aborts the
// remaining plan with a missing-parameters outcome.
func (e *Executor) Execute(ctx context.Context, steps []Step, sess *session.Session) *RunResult {
	run := &RunResult{}
	ec := ExecutionContext{}

	// steps may grow mid-run via the zoom delete-all fan-out
	queue := append([]Step(nil), steps...)

	var lastResultText string
	var lastWeatherResult string

	for i := 0; i < len(queue); i++ {
		step := queue[i]
		if step.Number == 0 {
			step.Number = i + 1
		}

		// redundancy skip: a location/weather lookup whose fact the
		// session already knows is not re-executed
		if reason := e.redundantLookup(step, sess, queue, i); reason != "" {
			run.StepDetails = append(run.StepDetails, StepResult{
				StepNumber: step.Number, Agent: step.Agent, Tool: step.Tool,
				Parameters: step.Parameters, Description: step.Description,
				Status: StepSkipped, SkipReason: reason,
			})
			continue
		}

		params, missing := e.resolveParameters(ctx, step, ec)

		// weather-gated flight search: skip when the last weather reading
		// was bad, even without an explicit condition on the step
		if step.Tool == "search_flights" && lastWeatherResult != "" {
			if run.WeatherAssessment == "" {
				run.WeatherAssessment = assessWeatherForTravel(lastWeatherResult)
			}
			if run.WeatherAssessment == "bad" {
				city := ec[ctxCity]
				if city == "" {
					city = "the destination"
				}
				reason := fmt.Sprintf("⚠️ FLIGHT SEARCH SKIPPED: Weather conditions in %s are not suitable for travel. Travel is not recommended at this time.", city)
				run.StepDetails = append(run.StepDetails, StepResult{
					StepNumber: step.Number, Agent: step.Agent, Tool: step.Tool,
					Parameters: params, Description: step.Description,
					Status: StepSkipped, SkipReason: reason,
				})
				continue
			}
		}

		if step.Condition != "" && !e.conditionMet(step.Condition, lastResultText) {
			reason := fmt.Sprintf("condition %q not met by previous result", step.Condition)
			run.StepDetails = append(run.StepDetails, StepResult{
				StepNumber: step.Number, Agent: step.Agent, Tool: step.Tool,
				Parameters: params, Description: step.Description,
				Status: StepSkipped, SkipReason: reason,
			})
			continue
		}

		// required-parameter gate: aborts the whole remaining plan.
		// Unresolvable placeholders count as missing alongside blank or
		// absent required fields.
		if card, ok := e.registry.Tool(step.Tool); ok {
			for _, name := range agent.MissingRequiredParams(card, params) {
				if !contains(missing, name) {
					missing = append(missing, name)
				}
			}
		}
		if len(missing) > 0 {
			run.Aborted = true
			run.MissingTool = step.Tool
			run.MissingParams = missing
			run.FinalResult = missingParamsMessage(step.Tool, missing)
			e.finalize(run, len(queue))
			return run
		}

		result, err := e.invoker.Call(ctx, step.Agent, step.Tool, params)
		if err != nil {
			e.logger.Printf("step %d (%s) failed: %v", step.Number, step.Tool, err)
			run.StepDetails = append(run.StepDetails, StepResult{
				StepNumber: step.Number, Agent: step.Agent, Tool: step.Tool,
				Parameters: params, Description: step.Description,
				Status: StepFailed, Error: agent.TranslateError(step.Tool, err),
			})
			continue
		}

		text := result.Text
		run.StepDetails = append(run.StepDetails, StepResult{
			StepNumber: step.Number, Agent: result.Agent, Tool: step.Tool,
			Parameters: params, Description: step.Description,
			Status: StepSuccess, Result: text,
		})
		run.Results = append(run.Results, text)

		ec[step.Tool] = text
		runExtractors(step.Tool, text, ec, e.clock())
		lastResultText = text
		if weatherTools[step.Tool] {
			lastWeatherResult = text
			run.WeatherAssessment = assessWeatherForTravel(text)
		}

		// zoom delete-all fan-out: once the meeting list is known, expand
		// a placeholder delete step into one delete per discovered ID
		if step.Tool == "zoom_list_meetings" || step.Tool == "zoom_list_today_meetings" {
			queue = e.expandDeleteAll(queue, i, ec)
		}
	}

	e.finalize(run, len(queue))
	run.FinalResult = e.composeFinalResult(run)
	return run
}

func (e *Executor) finalize(run *RunResult, total int) {
	run.TotalSteps = total
	for _, sr := range run.StepDetails {
		switch sr.Status {
		case StepSuccess:
			run.CompletedSteps++
		case StepFailed:
			run.FailedSteps++
		}
	}
}

// redundantLookup reports why a step can be skipped without calling out,
// or "" when it must run. A lookup whose result feeds a later message via
// an INCLUDE token is never skipped.
func (e *Executor) redundantLookup(step Step, sess *session.Session, queue []Step, idx int) string {
	if sess == nil {
		return ""
	}
	if !locationTools[step.Tool] && !weatherTools[step.Tool] {
		return ""
	}
	for _, later := range queue[idx+1:] {
		for _, v := range later.Parameters {
			if s, ok := v.(string); ok && (strings.Contains(s, TokenIncludeWeatherResults) || strings.Contains(s, TokenIncludeLocationResult)) {
				return ""
			}
		}
	}
	for _, turn := range sess.History {
		if turn.Role != "assistant" {
			continue
		}
		if locationTools[step.Tool] && strings.Contains(turn.Content, "City:") {
			return "location already known from conversation history"
		}
		if weatherTools[step.Tool] {
			city, _ := step.Parameters["city"].(string)
			if city != "" && strings.Contains(turn.Content, "Current Weather in "+normalizeCityName(city)) {
				return "recent weather for " + city + " already in conversation history"
			}
		}
	}
	return ""
}

// conditionMet checks a step condition against the previous step's
// textual result. Only weather-goodness is actually evaluated; any other
// condition text passes unchecked.
func (e *Executor) conditionMet(condition, previousResult string) bool {
	if !strings.Contains(strings.ToLower(condition), "weather") {
		return true
	}
	if previousResult == "" {
		return true
	}
	text := strings.ToLower(previousResult)
	for _, kw := range conditionKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// expandDeleteAll splices one zoom_delete_meeting step per discovered
// meeting ID in place of a placeholder delete step following the list.
func (e *Executor) expandDeleteAll(queue []Step, listIdx int, ec ExecutionContext) []Step {
	ids := strings.Split(ec[ctxMeetingIDs], ",")
	if len(ids) == 0 || ids[0] == "" {
		return queue
	}
	for j := listIdx + 1; j < len(queue); j++ {
		if queue[j].Tool != "zoom_delete_meeting" {
			continue
		}
		meetingID, _ := queue[j].Parameters["meetingId"].(string)
		if !isDeleteAllPlaceholder(meetingID) {
			continue
		}
		queue[j].Parameters["meetingId"] = ids[0]
		extra := make([]Step, 0, len(ids)-1)
		for k, id := range ids[1:] {
			extra = append(extra, Step{
				Number:      queue[j].Number + k + 1,
				Agent:       queue[j].Agent,
				Tool:        "zoom_delete_meeting",
				Parameters:  map[string]interface{}{"meetingId": id},
				Description: queue[j].Description,
			})
		}
		expanded := append([]Step(nil), queue[:j+1]...)
		expanded = append(expanded, extra...)
		expanded = append(expanded, queue[j+1:]...)
		return expanded
	}
	return queue
}

func isDeleteAllPlaceholder(meetingID string) bool {
	if meetingID == "" {
		return true
	}
	upper := strings.ToUpper(meetingID)
	return upper == TokenIncludeMeetingID ||
		strings.HasPrefix(upper, "FOUND_MEETING_ID") ||
		strings.HasPrefix(upper, "PLACEHOLDER_FOR_MEETING_ID") ||
		upper == "ALL" || upper == "ANY"
}

// composeFinalResult summarizes the run for the user, surfacing skip
// reasons and failures rather than hiding them.
func (e *Executor) composeFinalResult(run *RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ I've completed %d of %d steps", run.CompletedSteps, run.TotalSteps)
	if run.FailedSteps > 0 {
		fmt.Fprintf(&b, " (%d failed)", run.FailedSteps)
	}
	b.WriteString(".\n")
	for _, sr := range run.StepDetails {
		switch sr.Status {
		case StepSuccess:
			b.WriteString("\n" + formatter.Summarize(sr.Tool, sr.Result) + "\n")
		case StepSkipped:
			b.WriteString("\n" + sr.SkipReason + "\n")
		case StepFailed:
			fmt.Fprintf(&b, "\n❌ Step %d (%s) failed: %s\n", sr.StepNumber, sr.Tool, sr.Error)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// missingParamsMessage builds the user-facing prompt naming the absent
// fields, with tool-specific phrasing for the common cases.
func missingParamsMessage(tool string, missing []string) string {
	msg := "I need some additional information to help you with your request. "
	switch tool {
	case "search_flights", "book_flight":
		var parts []string
		for _, m := range missing {
			switch m {
			case "source":
				parts = append(parts, "departure city or airport")
			case "destination":
				parts = append(parts, "destination city or airport")
			case "date":
				parts = append(parts, "travel date")
			default:
				parts = append(parts, m)
			}
		}
		return msg + fmt.Sprintf("For flight search, I need: %s. Please provide these details so I can find the best flights for you.", strings.Join(parts, ", "))
	case "get_current_weather_by_city", "get_weather_forecast_by_city":
		return msg + "I need to know which city you'd like weather information for. Please specify the city name."
	case "outlook_send_email":
		return msg + "I need an email address to send the message to. Please provide the recipient's email address."
	case "teams_send_message":
		return msg + "I need a message to send to Teams. Please provide the message content."
	case "zoom_create_meeting":
		return msg + "I need meeting details like topic, date, time, and duration to create a Zoom meeting. Please provide these details."
	case "execute_query":
		return msg + "I need a database query to execute. Please specify what data you'd like me to retrieve or analyze."
	default:
		names := make([]string, 0, len(missing))
		for _, m := range missing {
			names = append(names, friendlyParamName(m))
		}
		if len(names) == 0 {
			return msg + "Please provide the required details."
		}
		return msg + fmt.Sprintf("I need the following information: %s. Please provide these details.", strings.Join(names, ", "))
	}
}

func friendlyParamName(param string) string {
	switch param {
	case "source":
		return "departure location"
	case "destination":
		return "destination location"
	case "city":
		return "city name"
	case "message":
		return "message content"
	case "to_email":
		return "email address"
	case "topic":
		return "meeting topic"
	case "start_time":
		return "start time"
	case "duration":
		return "duration"
	case "timezone":
		return "timezone"
	case "agenda":
		return "meeting agenda"
	case "query":
		return "database query"
	default:
		return param
	}
}

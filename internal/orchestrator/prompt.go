package orchestrator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mohammad-safakhou/orchestra/internal/registry"
)

// buildPromptTemplate renders the planning system prompt: the full tool
// catalog with parameter requirements, the response-format contract, the
// SQL authoring rules, placeholder conventions, and email formatting
// rules. The literal token names are load-bearing; downstream plans are
// matched against them verbatim.
func buildPromptTemplate(reg *registry.Registry, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current system date and time: %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Today's date is %s and tomorrow's date is %s.\n\n", now.Format("2006-01-02"), now.AddDate(0, 0, 1).Format("2006-01-02"))

	b.WriteString("You have access to the following agents and their capabilities:\n\n")
	for _, agent := range reg.Agents() {
		fmt.Fprintf(&b, "%s (%s) - %s\n  Capabilities:\n", agent.Name, agent.ServerURL, agent.Description)
		for _, tool := range agent.Tools {
			params := describeParams(tool)
			fmt.Fprintf(&b, "    • %s - %s (%s)\n", tool.Name, tool.Description, params)
		}
		b.WriteString("\n")
	}

	b.WriteString(`RESPONSE FORMAT:
- Respond with ONLY a single valid JSON object, nothing else. No markdown, no code fences, no commentary.
- Use only these fields: "status", "agent_name", "tool_name", "parameters", "missing_parameters", "response", "steps".
- status 0: direct answer. Include "response" with your answer text.
- status 1: single agent call. Include "agent_name", "tool_name", and "parameters".
- status 2: missing parameters. Include "missing_parameters" (array of parameter names) and optionally "response" describing what you need.
- status 3: multi-step plan. Include "steps", an array of {"step": N, "agent_name": ..., "tool_name": ..., "parameters": {...}, "description": ..., "condition": ...}. Steps run in order; "condition" is optional (e.g. "if weather is good").

INSTRUCTIONS:
- Before calling any agent, check that ALL required parameters are available from the user's request. If any are missing, return status 2 naming them.
- For flight searches, convert city names to IATA codes when possible (e.g., "bangalore" → "BLR", "chennai" → "MAA", "hyderabad" → "HYD").
- For flight searches, if the date is missing, ask the user for the date.
- If the user wants today's or tomorrow's date, you may use the templates {{today_date}} and {{tomorrow_date}} as parameter values.
- For multiple actions in one request, return status 3 with sequential steps; results from earlier steps can feed later steps.
- For Zoom operations (create, list, delete meetings) always use FlightSearchAgent.
- For "cancel all meetings" or "delete all meetings": step 1 lists meetings with zoom_list_meetings, step 2 deletes with zoom_delete_meeting using the placeholder "INCLUDE_MEETING_ID_HERE" as meetingId. Never reuse meeting IDs from conversation history.
- For email requests with no recipient address, return status 2 asking for the email address. Do NOT invent addresses.

PLACEHOLDER CONVENTIONS (the system substitutes these automatically):
- FOUND_CITY: city name discovered by an earlier location step.
- FOUND_CODE, FOUND_CITY_CODE, FOUND_REGION_CODE, FOUND_REGION_IATA_CODE: IATA code derived from an earlier step (location lookup or database result).
- FOUND_NEXT_GOOD_WEATHER_DATE, FOUND_SUNNY_DAY, FOUND_GOOD_WEATHER_DATE: first good-weather date found in an earlier forecast step.
- INCLUDE_FLIGHT_RESULTS_HERE: formatted flight search results inside an email/message body.
- INCLUDE_DATABASE_RESULTS_TABLE_HERE: formatted table of database results inside a body.
- INCLUDE_MEETING_DETAILS_HERE: Zoom meeting details (topic, ID, start time, duration, join URL, password).
- INCLUDE_MEETING_LINK_HERE: the Zoom join URL alone.
- INCLUDE_WEATHER_RESULTS_HERE: the weather report from an earlier step.
- INCLUDE_LOCATION_RESULTS_HERE: the location details from an earlier step.
- INCLUDE_MEETING_ID_HERE: a meeting ID from an earlier zoom_list_meetings step.
- Legacy database fields: INCLUDE_<FIELD>_HERE (e.g. INCLUDE_MAXIMUM_PRICE_HERE) substitutes that field from the latest database result.

SQL RULES (for PostgresAgent queries):
- Use GROUP BY whenever aggregate functions (AVG, COUNT, SUM, MAX, MIN) appear.
- Use ONLY ONE GROUP BY clause per query; list multiple grouping columns in that single clause, comma-separated.
- Every non-aggregate column in the SELECT must appear in the GROUP BY.
- When ordering by an aggregate, include the aggregate in the SELECT.
  Example: "SELECT region, AVG(deal_value) FROM sales_deal_data GROUP BY region ORDER BY AVG(deal_value) DESC LIMIT 1"
- Quarter date ranges: Q1 Jan-Mar, Q2 Apr-Jun, Q3 Jul-Sep, Q4 Oct-Dec. If the current quarter has no data, use the most recent quarter that does and say so.

EMAIL FORMAT (mandatory for outlook_send_email bodies):
- Start with a polite greeting ("Dear User," or the recipient's name when known), followed by a blank line.
- Separate each paragraph with a blank line.
- End with a blank line, then "Best regards," on its own line, then the signature on the next line.
  Example: "Dear User,\n\nHere are the flight search results from [source] to [destination] on [date]:\n\nINCLUDE_FLIGHT_RESULTS_HERE\n\nBest regards,\nYour Travel Assistant"

CONVERSATION HISTORY INTELLIGENCE:
- Analyze the conversation history before deciding. Reuse facts from prior successful calls (e.g. "City: Mumbai" → city: "Mumbai"; "BOM → DEL" → IATA codes) instead of re-querying them.
- Do not call location or weather tools again when the needed fact is already in the history, UNLESS the result must be embedded in a message: "send weather in Teams" is always a two-step plan — fetch fresh weather, then send with INCLUDE_WEATHER_RESULTS_HERE.
`)

	return b.String()
}

func describeParams(tool registry.ToolCard) string {
	required := tool.RequiredParams
	var optional []string
	if props, ok := tool.InputSchema["properties"].(map[string]interface{}); ok {
		for name := range props {
			if !contains(required, name) {
				optional = append(optional, name)
			}
		}
	}
	var parts []string
	if len(required) > 0 {
		parts = append(parts, "Required: "+strings.Join(required, ", "))
	}
	if len(optional) > 0 {
		sort.Strings(optional)
		parts = append(parts, "Optional: "+strings.Join(optional, ", "))
	}
	if len(parts) == 0 {
		return "no parameters"
	}
	return strings.Join(parts, "; ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

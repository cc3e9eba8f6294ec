package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/orchestra/internal/formatter"
)

const notAvailable = "not available"

var (
	includeTokenRe    = regexp.MustCompile(`INCLUDE_[A-Z_]+_HERE`)
	previousResultRe  = regexp.MustCompile(`\{\{(previous_result[._][a-z0-9_.]+)\}\}`)
	threeLetterCodeRe = regexp.MustCompile(`^[A-Z]{3}$`)
)

// resolveParameters substitutes placeholder tokens in a step's parameters
// from the accumulated execution context. It returns the resolved map and
// the names of required parameters that stayed unresolved.
func (e *Executor) resolveParameters(ctx context.Context, step Step, ec ExecutionContext) (map[string]interface{}, []string) {
	resolved := make(map[string]interface{}, len(step.Parameters))
	var missing []string
	for key, value := range step.Parameters {
		// outlook plans sometimes name the recipient "to" instead of the
		// tool's "to_email"
		if step.Tool == "outlook_send_email" && key == "to" {
			key = "to_email"
		}
		s, ok := value.(string)
		if !ok {
			resolved[key] = value
			continue
		}
		out, unresolved := e.resolveString(ctx, step.Tool, key, s, ec)
		resolved[key] = out
		if unresolved {
			missing = append(missing, key)
		}
	}
	// the email endpoint expects to_email as an array; wrap a scalar.
	// A blank recipient stays a string so the required-param gate sees it.
	if step.Tool == "outlook_send_email" {
		switch v := resolved["to_email"].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				resolved["to_email"] = []interface{}{v}
			}
		case nil, []interface{}, []string:
		default:
			resolved["to_email"] = []interface{}{v}
		}
	}
	return resolved, missing
}

// resolveString resolves one string parameter. The bool return reports a
// placeholder that could not be filled from context or lookups.
func (e *Executor) resolveString(ctx context.Context, tool, key, value string, ec ExecutionContext) (string, bool) {
	switch {
	case value == TokenFoundCity:
		if city := ec[ctxCity]; city != "" {
			return normalizeCityName(city), false
		}
		return value, true

	case codeTokens[value]:
		if code := ec[ctxIata]; code != "" {
			return code, false
		}
		if code := e.resolveIata(ctx, ec[ctxCity]); code != "" {
			return code, false
		}
		return value, true

	case dateTokens[value]:
		if date := ec[ctxSunnyDay]; date != "" {
			return date, false
		}
		// no forecast slot in context; tomorrow is the fallback
		return e.clock().AddDate(0, 0, 1).Format("2006-01-02"), false

	case value == TokenTodayDate || strings.EqualFold(value, "today"):
		return e.clock().Format("2006-01-02"), false

	case value == TokenTomorrowDate || strings.EqualFold(value, "tomorrow"):
		return e.clock().AddDate(0, 0, 1).Format("2006-01-02"), false
	}

	if ctxValue, ok := ec[value]; ok && strings.HasPrefix(value, previousResultPrefix) {
		return ctxValue, false
	}

	if previousResultRe.MatchString(value) {
		value = previousResultRe.ReplaceAllStringFunc(value, func(m string) string {
			name := strings.Trim(m, "{}")
			if v, ok := ec[name]; ok {
				return v
			}
			return m
		})
	}

	if includeTokenRe.MatchString(value) {
		value = e.injectDeferred(value, ec)
	}

	// flight endpoints take IATA codes; convert a city name left in place
	if tool == "search_flights" && (key == "source" || key == "destination") && !threeLetterCodeRe.MatchString(value) {
		if code := e.resolveIata(ctx, value); code != "" {
			return code, false
		}
		return value, true
	}

	return value, false
}

// resolveIata turns a city name into an IATA airport code. It tries the
// static table, then a search_locations call, then a one-shot model query.
func (e *Executor) resolveIata(ctx context.Context, city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return ""
	}
	if code, ok := knownIataCode(city); ok {
		return code
	}
	if result, err := e.invoker.Call(ctx, "FlightSearchAgent", "search_locations", map[string]interface{}{"keyword": city}); err == nil {
		if m := iataRe.FindStringSubmatch(result.Text); m != nil {
			return m[1]
		}
	}
	if e.provider != nil {
		reply, err := e.provider.Generate(ctx,
			"You are a helpful assistant.",
			fmt.Sprintf("What is the IATA airport code for %s? Reply with only the 3-letter code.", city))
		if err == nil {
			if m := bareIataRe.FindStringSubmatch(reply); m != nil {
				return m[1]
			}
		}
	}
	return ""
}

// injectDeferred replaces INCLUDE_*_HERE tokens inside a message body with
// content rendered from earlier step results. A token with no backing
// result renders a neutral "not available" phrase rather than leaking the
// raw placeholder.
func (e *Executor) injectDeferred(value string, ec ExecutionContext) string {
	return includeTokenRe.ReplaceAllStringFunc(value, func(token string) string {
		switch token {
		case TokenIncludeFlightResults:
			if res := ec["search_flights"]; res != "" {
				return formatter.RenderFlightTable(res)
			}
		case TokenIncludeDatabaseTable:
			if data := ec[ctxDBData]; data != "" {
				return formatter.RenderDatabaseTable(data)
			}
			for _, tool := range []string{"execute_query", "execute_select_query"} {
				if res := ec[tool]; res != "" {
					return res
				}
			}
		case TokenIncludeMeetingDetails:
			if res := ec["zoom_create_meeting"]; res != "" {
				return formatter.RenderMeetingDetails(res)
			}
			if res := ec["zoom_get_meeting_details"]; res != "" {
				return formatter.RenderMeetingDetails(res)
			}
		case TokenIncludeMeetingLink:
			if res := ec["zoom_create_meeting"]; res != "" {
				return formatter.RenderMeetingLink(res)
			}
		case TokenIncludeWeatherResults:
			for _, tool := range []string{"get_weather_forecast_by_city", "get_current_weather_by_city", "get_current_weather_by_coordinates"} {
				if res := ec[tool]; res != "" {
					return formatter.RenderWeather(res)
				}
			}
		case TokenIncludeLocationResult:
			for _, tool := range []string{"get_live_location", "get_location_by_ip", "get_location_details"} {
				if res := ec[tool]; res != "" {
					return res
				}
			}
		case TokenIncludeMeetingID:
			ids := strings.Split(ec[ctxMeetingIDs], ",")
			if len(ids) > 0 && ids[0] != "" {
				return ids[0]
			}
		default:
			if v := ec[previousResultPrefix+"."+includeField(token)]; v != "" {
				return v
			}
		}
		return notAvailable
	})
}

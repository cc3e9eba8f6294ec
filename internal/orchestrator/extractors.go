package orchestrator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Derived context keys written by extractors.
const (
	ctxCity       = "previous_result_city"
	ctxIata       = "previous_result_iata"
	ctxTimezone   = "previous_result_timezone"
	ctxSunnyDay   = "previous_result_sunny_day"
	ctxMeetingIDs = "previous_result_meeting_ids"
	ctxDBData     = "previous_result_db_data"
)

var (
	cityRe      = regexp.MustCompile(`(?i)City:\s*([^\n\r]+)`)
	iataRe      = regexp.MustCompile(`\(([A-Z]{3})\)`)
	timezoneRe  = regexp.MustCompile(`(?i)Timezone:\s*([^\n\r]+)`)
	dbDataRe    = regexp.MustCompile(`Data:\s*(\[[\s\S]*\])`)
	jsonBlobRe  = regexp.MustCompile(`\{[\s\S]*\}`)
	slotRe      = regexp.MustCompile(`(\d{1,2}:\d{2})\s*(AM|PM)\s*-\s*[\d.]+°C,\s*(.+)`)
	bareIataRe    = regexp.MustCompile(`\b([A-Z]{3})\b`)
	weatherCityRe = regexp.MustCompile(`(?:Current Weather in|5-Day Weather Forecast for)\s+([^:\n]+):`)
)

// extractor probes one tool's textual result for facts worth carrying
// forward in the execution context. Keyed by tool name so the fragile
// regex surface stays localized and testable.
type extractor func(text string, ec ExecutionContext, now time.Time)

var extractors = map[string]extractor{
	"get_live_location":           extractLocationFacts,
	"get_location_by_ip":          extractLocationFacts,
	"get_location_by_coordinates": extractLocationFacts,
	"get_location_details":        extractLocationFacts,
	"search_locations":            extractIataFact,
	"get_current_weather_by_city": extractWeatherCity,
	"get_weather_forecast_by_city": func(text string, ec ExecutionContext, now time.Time) {
		extractWeatherCity(text, ec, now)
		if date := findGoodWeatherDate(text, now); date != "" {
			ec[ctxSunnyDay] = date
		}
	},
	"zoom_list_meetings":       extractMeetingIDFacts,
	"zoom_list_today_meetings": extractMeetingIDFacts,
	"execute_query":            extractDatabaseFacts,
	"execute_select_query":     extractDatabaseFacts,
}

// runExtractors applies the tool's extractor, if any, to the result text.
func runExtractors(tool, text string, ec ExecutionContext, now time.Time) {
	if ex, ok := extractors[tool]; ok {
		ex(text, ec, now)
	}
}

func extractLocationFacts(text string, ec ExecutionContext, _ time.Time) {
	if m := cityRe.FindStringSubmatch(text); m != nil {
		ec[ctxCity] = strings.TrimSpace(m[1])
	}
	if m := iataRe.FindStringSubmatch(text); m != nil {
		ec[ctxIata] = m[1]
	}
	if m := timezoneRe.FindStringSubmatch(text); m != nil {
		ec[ctxTimezone] = strings.TrimSpace(m[1])
	}
}

func extractIataFact(text string, ec ExecutionContext, _ time.Time) {
	if m := iataRe.FindStringSubmatch(text); m != nil {
		ec[ctxIata] = m[1]
	}
}

func extractWeatherCity(text string, ec ExecutionContext, _ time.Time) {
	if m := weatherCityRe.FindStringSubmatch(text); m != nil {
		ec[ctxCity] = strings.TrimSpace(m[1])
		return
	}
	if m := cityRe.FindStringSubmatch(text); m != nil {
		ec[ctxCity] = strings.TrimSpace(m[1])
	}
}

func extractMeetingIDFacts(text string, ec ExecutionContext, _ time.Time) {
	ids := ExtractMeetingIDs(text)
	if len(ids) > 0 {
		ec[ctxMeetingIDs] = strings.Join(ids, ",")
	}
}

func extractDatabaseFacts(text string, ec ExecutionContext, _ time.Time) {
	m := dbDataRe.FindStringSubmatch(text)
	if m == nil {
		return
	}
	ec[ctxDBData] = m[1]

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(m[1]), &rows); err != nil || len(rows) == 0 {
		return
	}
	// a single-row result exposes its fields as previous_result.<field>
	if len(rows) == 1 {
		for field, value := range rows[0] {
			ec[previousResultPrefix+"."+strings.ToLower(field)] = fmt.Sprintf("%v", value)
		}
	}
}

// ExtractMeetingIDs pulls meeting IDs out of a zoom_list_meetings result,
// which embeds a JSON object with a meetings array.
func ExtractMeetingIDs(text string) []string {
	blob := jsonBlobRe.FindString(text)
	if blob == "" {
		return nil
	}
	var payload struct {
		Meetings []struct {
			ID json.Number `json:"id"`
		} `json:"meetings"`
	}
	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil
	}
	ids := make([]string, 0, len(payload.Meetings))
	for _, m := range payload.Meetings {
		if m.ID.String() != "" {
			ids = append(ids, m.ID.String())
		}
	}
	return ids
}

var badWeatherIndicators = []string{
	"heavy rain", "thunderstorm", "storm", "cyclone", "typhoon", "hurricane",
	"blizzard", "snowstorm", "fog", "mist", "haze", "smog",
	"extreme", "severe", "dangerous", "poor visibility",
}

var goodWeatherIndicators = []string{
	"clear sky", "sunny", "partly cloudy", "scattered clouds",
	"light rain", "drizzle", "good visibility", "mild",
}

// assessWeatherForTravel classifies a weather result as good, bad, or
// moderate. Bad indicators win over good ones.
func assessWeatherForTravel(weatherResult string) string {
	text := strings.ToLower(weatherResult)
	for _, indicator := range badWeatherIndicators {
		if strings.Contains(text, indicator) {
			return "bad"
		}
	}
	for _, indicator := range goodWeatherIndicators {
		if strings.Contains(text, indicator) {
			return "good"
		}
	}
	return "moderate"
}

// findGoodWeatherDate scans a forecast for the first time slot with
// acceptable conditions and returns today's date when one exists, else
// the next day. Empty when the forecast has no parsable slots.
func findGoodWeatherDate(forecast string, now time.Time) string {
	found := false
	for _, line := range strings.Split(forecast, "\n") {
		m := slotRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		found = true
		condition := strings.ToLower(strings.TrimSpace(m[3]))
		bad := false
		for _, kw := range []string{"storm", "thunder", "heavy", "snow"} {
			if strings.Contains(condition, kw) {
				bad = true
				break
			}
		}
		good := !bad && (strings.Contains(condition, "clear") ||
			strings.Contains(condition, "sunny") ||
			(strings.Contains(condition, "cloud") && !strings.Contains(condition, "rain")) ||
			strings.Contains(condition, "light rain"))
		if good {
			return now.Format("2006-01-02")
		}
	}
	if found {
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	}
	return ""
}

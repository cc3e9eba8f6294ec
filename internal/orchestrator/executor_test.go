package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mohammad-safakhou/orchestra/config"
	"github.com/mohammad-safakhou/orchestra/internal/agent"
	"github.com/mohammad-safakhou/orchestra/internal/registry"
)

var fixedNow = time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

type callRecord struct {
	Tool    string
	Payload map[string]interface{}
}

type callLog struct {
	mu    sync.Mutex
	calls []callRecord
}

func (l *callLog) add(tool string, payload map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, callRecord{Tool: tool, Payload: payload})
}

func (l *callLog) tools() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	for i, c := range l.calls {
		out[i] = c.Tool
	}
	return out
}

func (l *callLog) find(tool string) (map[string]interface{}, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calls {
		if c.Tool == tool {
			return c.Payload, true
		}
	}
	return nil, false
}

// newAgentServer serves the A2A wire shape: the handler maps a tool name
// and payload to the text the agent would return.
func newAgentServer(t *testing.T, respond func(tool string, payload map[string]interface{}) string) (*httptest.Server, *callLog) {
	t.Helper()
	log := &callLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		tool, _ := payload["tool"].(string)
		log.add(tool, payload)
		text := respond(tool, payload)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": map[string]interface{}{"text": text},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func testRegistry(t *testing.T, url string) *registry.Registry {
	t.Helper()
	endpoints := map[string]string{
		"FlightSearchAgent": url,
		"TeamsAgent":        url,
		"WeatherAgent":      url,
		"LiveLocationAgent": url,
		"PostgresAgent":     url,
	}
	reg, err := registry.NewRegistry(registry.DefaultAgentCards(endpoints), "", nil)
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}
	return reg
}

func newTestExecutor(t *testing.T, url string) *Executor {
	t.Helper()
	reg := testRegistry(t, url)
	inv := agent.NewInvoker(config.AgentsConfig{CallTimeout: 5 * time.Second}, reg)
	ex := NewExecutor(inv, reg, nil)
	ex.clock = func() time.Time { return fixedNow }
	return ex
}

func TestExecuteResolvesCityFromPreviousStep(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string {
		switch tool {
		case "get_live_location":
			return "📍 Your Current Location:\nCity: Mumbai\nCountry: India"
		case "get_current_weather_by_city":
			return "Current Weather in Bombay:\nTemperature: 29°C\nCondition: scattered clouds"
		}
		return "ok"
	})
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "LiveLocationAgent", Tool: "get_live_location", Parameters: map[string]interface{}{}},
		{Number: 2, Agent: "WeatherAgent", Tool: "get_current_weather_by_city", Parameters: map[string]interface{}{"city": TokenFoundCity}},
	}, nil)

	if run.CompletedSteps != 2 {
		t.Fatalf("completed = %d, want 2; details %+v", run.CompletedSteps, run.StepDetails)
	}
	payload, ok := calls.find("get_current_weather_by_city")
	if !ok {
		t.Fatal("weather call not made")
	}
	// Mumbai normalizes to the name the weather service indexes
	if payload["city"] != "Bombay" {
		t.Fatalf("city = %v, want Bombay", payload["city"])
	}
}

func TestExecuteResolvesIataCodes(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string {
		switch tool {
		case "get_live_location":
			return "City: Delhi\nCountry: India"
		case "search_flights":
			return "Found 1 flight"
		}
		return "ok"
	})
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "LiveLocationAgent", Tool: "get_live_location", Parameters: map[string]interface{}{}},
		{Number: 2, Agent: "FlightSearchAgent", Tool: "search_flights", Parameters: map[string]interface{}{
			"source":      TokenFoundCode,
			"destination": "Mumbai",
			"date":        TokenTomorrowDate,
		}},
	}, nil)

	if run.FailedSteps != 0 {
		t.Fatalf("failed steps: %+v", run.StepDetails)
	}
	payload, ok := calls.find("search_flights")
	if !ok {
		t.Fatal("flight call not made")
	}
	if payload["source"] != "DEL" {
		t.Errorf("source = %v, want DEL", payload["source"])
	}
	if payload["destination"] != "BOM" {
		t.Errorf("destination = %v, want BOM", payload["destination"])
	}
	if payload["date"] != "2025-07-16" {
		t.Errorf("date = %v, want 2025-07-16", payload["date"])
	}
}

func TestExecuteSkipsFlightSearchOnBadWeather(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string {
		if tool == "get_current_weather_by_city" {
			return "Current Weather in Chennai:\nTemperature: 24°C\nCondition: heavy rain with thunderstorm"
		}
		return "ok"
	})
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "WeatherAgent", Tool: "get_current_weather_by_city", Parameters: map[string]interface{}{"city": "Chennai"}},
		{Number: 2, Agent: "FlightSearchAgent", Tool: "search_flights", Parameters: map[string]interface{}{
			"source": "BLR", "destination": "MAA", "date": "2025-07-20",
		}, Condition: "if weather is good"},
	}, nil)

	if run.WeatherAssessment != "bad" {
		t.Fatalf("weather assessment = %q, want bad", run.WeatherAssessment)
	}
	if _, called := calls.find("search_flights"); called {
		t.Fatal("flight search should have been skipped")
	}
	if run.StepDetails[1].Status != StepSkipped {
		t.Fatalf("step 2 status = %s, want skipped", run.StepDetails[1].Status)
	}
	if !strings.Contains(run.FinalResult, "not recommended") {
		t.Fatalf("final result should state travel is not recommended, got %q", run.FinalResult)
	}
}

func TestExecuteProceedsOnGoodWeather(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string {
		if tool == "get_current_weather_by_city" {
			return "Current Weather in Chennai:\nTemperature: 24°C\nCondition: scattered clouds"
		}
		return "Found 2 flights"
	})
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "WeatherAgent", Tool: "get_current_weather_by_city", Parameters: map[string]interface{}{"city": "Chennai"}},
		{Number: 2, Agent: "FlightSearchAgent", Tool: "search_flights", Parameters: map[string]interface{}{
			"source": "BLR", "destination": "MAA", "date": "2025-07-20",
		}, Condition: "if weather is good"},
	}, nil)

	if _, called := calls.find("search_flights"); !called {
		t.Fatalf("flight search should have run; details %+v", run.StepDetails)
	}
	if run.CompletedSteps != 2 {
		t.Fatalf("completed = %d, want 2", run.CompletedSteps)
	}
}

func TestExecuteRunsStepsInOrder(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string { return "ok" })
	ex := newTestExecutor(t, srv.URL)

	ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "LiveLocationAgent", Tool: "get_live_location", Parameters: map[string]interface{}{}},
		{Number: 2, Agent: "PostgresAgent", Tool: "get_all_tables", Parameters: map[string]interface{}{}},
		{Number: 3, Agent: "TeamsAgent", Tool: "teams_send_message", Parameters: map[string]interface{}{"message": "done"}},
	}, nil)

	got := calls.tools()
	want := []string{"get_live_location", "get_all_tables", "teams_send_message"}
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestExecuteAbortsPlanOnMissingEmailAddress(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string { return "ok" })
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "FlightSearchAgent", Tool: "outlook_send_email", Parameters: map[string]interface{}{
			"subject": "Trip", "body": "Details inside",
		}},
		{Number: 2, Agent: "TeamsAgent", Tool: "teams_send_message", Parameters: map[string]interface{}{"message": "sent"}},
	}, nil)

	if !run.Aborted {
		t.Fatal("run should have aborted")
	}
	if run.MissingTool != "outlook_send_email" {
		t.Fatalf("missing tool = %q", run.MissingTool)
	}
	if len(calls.tools()) != 0 {
		t.Fatalf("no agent should have been called, got %v", calls.tools())
	}
	if !strings.Contains(run.FinalResult, "email address") {
		t.Fatalf("final result should ask for the email address, got %q", run.FinalResult)
	}
}

func TestExecuteExpandsDeleteAllMeetings(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string {
		if tool == "zoom_list_meetings" {
			return `Upcoming meetings: {"meetings":[{"id":101},{"id":202},{"id":303}]}`
		}
		return "deleted"
	})
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "FlightSearchAgent", Tool: "zoom_list_meetings", Parameters: map[string]interface{}{}},
		{Number: 2, Agent: "FlightSearchAgent", Tool: "zoom_delete_meeting", Parameters: map[string]interface{}{"meetingId": TokenIncludeMeetingID}},
	}, nil)

	if run.TotalSteps != 4 {
		t.Fatalf("total steps = %d, want 4 (list + 3 deletes)", run.TotalSteps)
	}
	var deleted []string
	for _, c := range calls.calls {
		if c.Tool == "zoom_delete_meeting" {
			deleted = append(deleted, c.Payload["meetingId"].(string))
		}
	}
	want := []string{"101", "202", "303"}
	if len(deleted) != len(want) {
		t.Fatalf("deleted %v, want %v", deleted, want)
	}
	for i := range want {
		if deleted[i] != want[i] {
			t.Fatalf("delete %d = %s, want %s", i, deleted[i], want[i])
		}
	}
}

func TestExecuteInjectsNotAvailableForMissingContent(t *testing.T) {
	srv, calls := newAgentServer(t, func(tool string, _ map[string]interface{}) string { return "sent" })
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "FlightSearchAgent", Tool: "outlook_send_email", Parameters: map[string]interface{}{
			"to_email": []interface{}{"user@example.com"},
			"subject":  "Flights",
			"body":     "Here are your options:\n" + TokenIncludeFlightResults,
		}},
	}, nil)

	if run.CompletedSteps != 1 {
		t.Fatalf("completed = %d; details %+v", run.CompletedSteps, run.StepDetails)
	}
	payload, _ := calls.find("outlook_send_email")
	body, _ := payload["body"].(string)
	if strings.Contains(body, "INCLUDE_") {
		t.Fatalf("placeholder leaked into body: %q", body)
	}
	if !strings.Contains(body, "not available") {
		t.Fatalf("body should carry a neutral fallback, got %q", body)
	}
}

func TestExecuteRecordsFailedStepAndContinues(t *testing.T) {
	srv, _ := newAgentServer(t, func(tool string, _ map[string]interface{}) string { return "ok" })
	fail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(fail.Close)

	// weather agent routed to the failing server
	failing, err := registry.NewRegistry(registry.DefaultAgentCards(map[string]string{
		"FlightSearchAgent": srv.URL,
		"TeamsAgent":        srv.URL,
		"WeatherAgent":      fail.URL,
		"LiveLocationAgent": srv.URL,
		"PostgresAgent":     srv.URL,
	}), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	inv := agent.NewInvoker(config.AgentsConfig{CallTimeout: 5 * time.Second}, failing)
	ex := NewExecutor(inv, failing, nil)
	ex.clock = func() time.Time { return fixedNow }

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "WeatherAgent", Tool: "get_current_weather_by_city", Parameters: map[string]interface{}{"city": "Pune"}},
		{Number: 2, Agent: "TeamsAgent", Tool: "teams_send_message", Parameters: map[string]interface{}{"message": "hello"}},
	}, nil)

	if run.FailedSteps != 1 || run.CompletedSteps != 1 {
		t.Fatalf("failed=%d completed=%d, want 1/1; %+v", run.FailedSteps, run.CompletedSteps, run.StepDetails)
	}
	if run.StepDetails[0].Error == "" {
		t.Fatal("failed step should carry a user-facing error")
	}
}

func TestExecuteWrapsEmailRecipientIntoArray(t *testing.T) {
	srv, calls := newAgentServer(t, func(string, map[string]interface{}) string {
		return "Email sent"
	})
	ex := newTestExecutor(t, srv.URL)

	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "FlightSearchAgent", Tool: "outlook_send_email", Parameters: map[string]interface{}{
			"to":      "user@example.com",
			"subject": "hello",
			"body":    "Dear User,\n\nhi\n\nBest regards,\nAssistant",
		}},
	}, nil)

	if run.CompletedSteps != 1 {
		t.Fatalf("completed=%d, want 1; %+v", run.CompletedSteps, run.StepDetails)
	}
	payload, ok := calls.find("outlook_send_email")
	if !ok {
		t.Fatal("outlook_send_email was never called")
	}
	if _, present := payload["to"]; present {
		t.Error("scalar to should have been renamed to to_email")
	}
	list, isList := payload["to_email"].([]interface{})
	if !isList {
		t.Fatalf("to_email = %T(%v), want a JSON array", payload["to_email"], payload["to_email"])
	}
	if len(list) != 1 || list[0] != "user@example.com" {
		t.Errorf("to_email = %v, want [user@example.com]", list)
	}
}

func TestExecuteSunnyDayTokenFallsBackToTomorrow(t *testing.T) {
	srv, calls := newAgentServer(t, func(string, map[string]interface{}) string {
		return "Flights found"
	})
	ex := newTestExecutor(t, srv.URL)

	// no forecast step ran, so there is no sunny day in context
	run := ex.Execute(context.Background(), []Step{
		{Number: 1, Agent: "FlightSearchAgent", Tool: "search_flights", Parameters: map[string]interface{}{
			"source":      "BLR",
			"destination": "DEL",
			"date":        TokenFoundSunnyDay,
		}},
	}, nil)

	if run.CompletedSteps != 1 {
		t.Fatalf("completed=%d, want 1; %+v", run.CompletedSteps, run.StepDetails)
	}
	payload, ok := calls.find("search_flights")
	if !ok {
		t.Fatal("search_flights was never called")
	}
	if got := payload["date"]; got != "2025-07-16" {
		t.Errorf("date = %v, want tomorrow 2025-07-16", got)
	}
}

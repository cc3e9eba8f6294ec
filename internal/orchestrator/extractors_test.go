package orchestrator

import (
	"testing"
)

func TestExtractLocationFacts(t *testing.T) {
	ec := ExecutionContext{}
	runExtractors("get_live_location", "📍 Your Current Location:\nCity: Bengaluru\nCountry: India\nTimezone: Asia/Kolkata\nNearest Airport: Kempegowda International (BLR)", ec, fixedNow)
	if ec[ctxCity] != "Bengaluru" {
		t.Errorf("city = %q", ec[ctxCity])
	}
	if ec[ctxIata] != "BLR" {
		t.Errorf("iata = %q", ec[ctxIata])
	}
	if ec[ctxTimezone] != "Asia/Kolkata" {
		t.Errorf("timezone = %q", ec[ctxTimezone])
	}
}

func TestExtractWeatherCity(t *testing.T) {
	ec := ExecutionContext{}
	runExtractors("get_current_weather_by_city", "Current Weather in Bombay:\nTemperature: 29°C", ec, fixedNow)
	if ec[ctxCity] != "Bombay" {
		t.Errorf("city = %q", ec[ctxCity])
	}
}

func TestForecastSetsSunnyDay(t *testing.T) {
	forecast := "5-Day Weather Forecast for Pune:\n" +
		"9:00 AM - 24.5°C, scattered clouds\n" +
		"12:00 PM - 28.1°C, clear sky\n"
	ec := ExecutionContext{}
	runExtractors("get_weather_forecast_by_city", forecast, ec, fixedNow)
	if ec[ctxSunnyDay] != "2025-07-15" {
		t.Errorf("sunny day = %q, want today", ec[ctxSunnyDay])
	}
}

func TestFindGoodWeatherDate(t *testing.T) {
	cases := []struct {
		name     string
		forecast string
		want     string
	}{
		{"good slot today", "9:00 AM - 24.5°C, clear sky", "2025-07-15"},
		{"cloudy but dry counts as good", "9:00 AM - 24.5°C, overcast clouds", "2025-07-15"},
		{"all slots bad falls to tomorrow", "9:00 AM - 24.5°C, heavy rain\n12:00 PM - 22.0°C, thunderstorm", "2025-07-16"},
		{"no slots yields empty", "no forecast data", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := findGoodWeatherDate(tc.forecast, fixedNow); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAssessWeatherForTravel(t *testing.T) {
	cases := []struct {
		result string
		want   string
	}{
		{"Condition: thunderstorm approaching", "bad"},
		{"Condition: clear sky, good visibility", "good"},
		{"Condition: light rain", "good"},
		{"Condition: moderate rain", "moderate"},
		{"Condition: fog over the runway", "bad"},
	}
	for _, tc := range cases {
		if got := assessWeatherForTravel(tc.result); got != tc.want {
			t.Errorf("assess(%q) = %q, want %q", tc.result, got, tc.want)
		}
	}
}

func TestExtractMeetingIDs(t *testing.T) {
	text := `📅 Upcoming meetings: {"meetings":[{"id":86543210987,"topic":"Sync"},{"id":12345,"topic":"1:1"}]}`
	ids := ExtractMeetingIDs(text)
	if len(ids) != 2 {
		t.Fatalf("ids = %v", ids)
	}
	if ids[0] != "86543210987" {
		t.Errorf("large numeric id mangled: %q", ids[0])
	}
	if ids[1] != "12345" {
		t.Errorf("ids[1] = %q", ids[1])
	}
}

func TestExtractDatabaseFactsSingleRow(t *testing.T) {
	ec := ExecutionContext{}
	runExtractors("execute_query", `Query OK. Data: [{"branch":"Indiranagar","revenue":125000}]`, ec, fixedNow)
	if ec["previous_result.branch"] != "Indiranagar" {
		t.Errorf("branch = %q", ec["previous_result.branch"])
	}
	if ec[ctxDBData] == "" {
		t.Error("db data blob missing")
	}
}

package formatter

import (
	"strings"
	"testing"
)

const flightListing = `Found 2 flights:

1. AI 505 | BLR → DEL
Departure: 2025-07-16T06:30:00 | Arrival: 2025-07-16T09:15:00
Duration: PT2H45M
Price: $120.50 EUR

2. UK 812 | BLR → DEL
Departure: 2025-07-16T18:00:00 | Arrival: 2025-07-16T20:30:00
Duration: PT2H30M
Price: $98.00 EUR`

func TestParseFlightRows(t *testing.T) {
	rows := ParseFlightRows(flightListing)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Flight != "AI 505" || rows[0].Origin != "BLR" || rows[0].Dest != "DEL" {
		t.Fatalf("row 0 = %+v", rows[0])
	}
	if rows[0].Duration != "2h 45m" {
		t.Errorf("duration = %q", rows[0].Duration)
	}
	if rows[1].Price != "98.00" {
		t.Errorf("price = %q", rows[1].Price)
	}
}

func TestRenderFlightTableIsDeterministic(t *testing.T) {
	first := RenderFlightTable(flightListing)
	second := RenderFlightTable(flightListing)
	if first != second {
		t.Fatal("render is not byte-identical across calls")
	}
	if !strings.Contains(first, "<table") || !strings.Contains(first, "AI 505") {
		t.Fatalf("unexpected table: %q", first)
	}
}

func TestRenderFlightTableFallsBackToRaw(t *testing.T) {
	raw := "No flights found for this route."
	if got := RenderFlightTable(raw); got != raw {
		t.Fatalf("got %q", got)
	}
}

func TestRenderDatabaseTableSingleRow(t *testing.T) {
	out := RenderDatabaseTable(`[{"branch":"Indiranagar","revenue":125000.5}]`)
	if !strings.Contains(out, "branch") || !strings.Contains(out, "Indiranagar") {
		t.Fatalf("got %q", out)
	}
	if !strings.Contains(out, "125000.50") {
		t.Fatalf("fractional number should render with two decimals: %q", out)
	}
}

func TestRenderDatabaseTableMultiRowSortsColumns(t *testing.T) {
	out := RenderDatabaseTable(`[{"b":1,"a":2},{"b":3,"a":4}]`)
	if strings.Index(out, ">a<") > strings.Index(out, ">b<") {
		t.Fatalf("columns not sorted: %q", out)
	}
	if out != RenderDatabaseTable(`[{"b":1,"a":2},{"b":3,"a":4}]`) {
		t.Fatal("render is not deterministic")
	}
}

func TestRenderDatabaseTableUnparsable(t *testing.T) {
	raw := "not json at all"
	if got := RenderDatabaseTable(raw); got != raw {
		t.Fatalf("got %q", got)
	}
}

func TestRenderWeatherCurrentConditions(t *testing.T) {
	out := RenderWeather("Current Weather in Pune:\nTemperature: 24°C\nCondition: scattered clouds\nHumidity: 60%")
	if !strings.Contains(out, "<table") || !strings.Contains(out, "scattered clouds") {
		t.Fatalf("got %q", out)
	}
}

func TestSummarizeMeetingList(t *testing.T) {
	result := `Upcoming: {"total_meetings_scheduled":2,"meetings":[{"id":111,"topic":"Standup","start_time":"2025-07-16T09:00:00Z","duration":30},{"id":222,"topic":"Review","start_time":"2025-07-17T15:00:00Z","duration":60,"join_url":"https://us02web.zoom.us/j/222"}]}`
	out := Summarize("zoom_list_meetings", result)
	if !strings.Contains(out, "2 meetings scheduled") {
		t.Fatalf("got %q", out)
	}
	if !strings.Contains(out, "Standup") || !strings.Contains(out, "https://us02web.zoom.us/j/222") {
		t.Fatalf("got %q", out)
	}
}

func TestSummarizeEmptyMeetingList(t *testing.T) {
	out := Summarize("zoom_list_meetings", `{"total_meetings_scheduled":0,"meetings":[]}`)
	if !strings.Contains(out, "no Zoom meetings") {
		t.Fatalf("got %q", out)
	}
}

func TestRenderMeetingDetails(t *testing.T) {
	result := `Created: {"id":987654,"topic":"Planning","start_time":"2025-07-18T10:00:00Z","duration":45,"join_url":"https://us02web.zoom.us/j/987654","password":"abc123"}`
	out := RenderMeetingDetails(result)
	for _, want := range []string{"Topic: Planning", "Meeting ID: 987654", "Duration: 45 minutes", "Password: abc123"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}

func TestRenderMeetingLink(t *testing.T) {
	result := `{"id":1,"topic":"x","join_url":"https://us02web.zoom.us/j/1"}`
	if got := RenderMeetingLink(result); got != "https://us02web.zoom.us/j/1" {
		t.Fatalf("got %q", got)
	}
	plain := "join at https://us04web.zoom.us/j/42 please"
	if got := RenderMeetingLink(plain); got != "https://us04web.zoom.us/j/42" {
		t.Fatalf("got %q", got)
	}
}

func TestSummarizeGenericTool(t *testing.T) {
	out := Summarize("get_database_stats", "size: 12MB")
	if out != "size: 12MB" {
		t.Fatalf("got %q", out)
	}
	out = Summarize("unknown_tool", "whatever")
	if !strings.Contains(out, "unknown_tool") {
		t.Fatalf("got %q", out)
	}
}

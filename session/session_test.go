package session

import (
	"strings"
	"testing"
	"time"
)

func TestIsFollowUp(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"july 25", true},
		{"25 july", true},
		{"tomorrow", true},
		{"next week", true},
		{"2025-08-01", true},
		{"25/07/2025", true},
		{"yes", true},
		{"ok let's do it", true},
		{"what's the weather in pune", false},
		{"book a flight to delhi", false},
	}
	for _, tc := range cases {
		if got := IsFollowUp(tc.input); got != tc.want {
			t.Errorf("IsFollowUp(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}

func TestMergeFollowUpMissingDate(t *testing.T) {
	s := &Session{
		LastRequest: "flights from BLR to DEL",
		Pending:     &Pending{Tool: "search_flights", Missing: []string{"date"}},
	}
	if got := s.MergeFollowUp("2025-08-01"); got != "flights from BLR to DEL on 2025-08-01" {
		t.Fatalf("got %q", got)
	}
}

func TestMergeFollowUpMissingDestination(t *testing.T) {
	s := &Session{
		LastRequest: "flights from BLR",
		Pending:     &Pending{Tool: "search_flights", Missing: []string{"destination"}},
	}
	if got := s.MergeFollowUp("Delhi"); got != "flights from BLR to Delhi" {
		t.Fatalf("got %q", got)
	}
	// an input already phrased with "to" is left alone
	if got := s.MergeFollowUp("to Delhi please"); got != "to Delhi please" {
		t.Fatalf("got %q", got)
	}
}

func TestMergeFollowUpMissingSource(t *testing.T) {
	s := &Session{
		LastRequest: "flights to DEL tomorrow",
		Pending:     &Pending{Tool: "search_flights", Missing: []string{"source"}},
	}
	if got := s.MergeFollowUp("Bengaluru"); got != "flights to DEL tomorrow from Bengaluru" {
		t.Fatalf("got %q", got)
	}
}

func TestMergeFollowUpWithoutPendingIsIdentity(t *testing.T) {
	s := &Session{LastRequest: "flights from BLR to DEL"}
	if got := s.MergeFollowUp("2025-08-01"); got != "2025-08-01" {
		t.Fatalf("got %q", got)
	}
}

func TestRecordTurn(t *testing.T) {
	now := time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)
	s := &Session{ID: "abc"}
	s.RecordTurn("find flights", "Which date?", &Pending{Tool: "search_flights", Missing: []string{"date"}}, now)

	if len(s.History) != 2 || s.History[0].Role != "user" || s.History[1].Role != "assistant" {
		t.Fatalf("history = %+v", s.History)
	}
	if s.LastRequest != "find flights" || s.Pending == nil {
		t.Fatalf("session = %+v", s)
	}

	// a resolved turn clears the pending state
	s.RecordTurn("find flights on 2025-08-01", "Here are your flights", nil, now.Add(time.Minute))
	if s.Pending != nil {
		t.Fatal("pending should be cleared")
	}
	if len(s.UserInputs) != 2 {
		t.Fatalf("user inputs = %v", s.UserInputs)
	}
}

func TestRenderHistoryPromptCarriesFacts(t *testing.T) {
	now := time.Now()
	s := &Session{ID: "abc"}
	s.RecordTurn("where am I", "City: Bengaluru\nCountry: India", nil, now)
	s.RecordTurn("weather here", "Current Weather in Bengaluru:\nTemperature: 22°C", nil, now)

	prompt := RenderHistoryPrompt(s)
	if !strings.Contains(prompt, "Bengaluru") {
		t.Fatalf("prompt should carry the known city: %q", prompt)
	}
	if !strings.Contains(prompt, "22°C") {
		t.Fatalf("prompt should carry the last temperature: %q", prompt)
	}
	if !strings.Contains(prompt, "where am I") {
		t.Fatalf("prompt should carry the transcript: %q", prompt)
	}
}

package session

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// DefaultTTL is how long an idle session survives before eviction.
const DefaultTTL = 30 * time.Minute

// DefaultSweepInterval is how often the eviction sweeper runs.
const DefaultSweepInterval = 10 * time.Minute

// Turn is one utterance in a conversation.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Pending records the unresolved request of the previous turn.
type Pending struct {
	Agent   string   `json:"agent_name,omitempty"`
	Tool    string   `json:"tool_name,omitempty"`
	Missing []string `json:"missing_params,omitempty"`
}

// Session is the per-conversation state enabling follow-up utterances to
// reuse prior context.
type Session struct {
	ID          string   `json:"id"`
	LastRequest string   `json:"last_request"`
	Pending     *Pending `json:"pending,omitempty"`
	History     []Turn   `json:"history"`
	UserInputs  []string `json:"user_inputs"`
	LastTouched time.Time `json:"last_touched"`
}

// Store is the session storage interface. Implementations must be safe
// for concurrent use.
type Store interface {
	// GetOrCreate returns the session for id, creating it when absent.
	GetOrCreate(ctx context.Context, id string) (*Session, error)
	// Get returns the session for id when present.
	Get(ctx context.Context, id string) (*Session, bool, error)
	// Put persists a mutated session and refreshes its TTL.
	Put(ctx context.Context, s *Session) error
	// Delete removes a session.
	Delete(ctx context.Context, id string) error
	// Evict removes sessions idle longer than the TTL, returning how many
	// were removed. Redis-backed stores rely on key expiry and return 0.
	Evict(now time.Time) int
}

var followUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(july|august|september|october|november|december|january|february|march|april|may|june)\s+\d{1,2}`),
	regexp.MustCompile(`(?i)^\d{1,2}\s+(july|august|september|october|november|december|january|february|march|april|may|june)`),
	regexp.MustCompile(`(?i)^(today|tomorrow|next week|next month)`),
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
	regexp.MustCompile(`(?i)^(yes|no|ok|sure|fine)`),
}

// IsFollowUp reports whether text looks like a short continuation of the
// previous turn: a bare date, a relative day, or an affirmation.
func IsFollowUp(text string) bool {
	trimmed := strings.TrimSpace(text)
	for _, p := range followUpPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// MergeFollowUp splices a follow-up utterance onto the session's pending
// request based on which parameter was missing. With no pending context
// the input comes back unchanged.
func (s *Session) MergeFollowUp(input string) string {
	if s == nil || s.LastRequest == "" || s.Pending == nil || len(s.Pending.Missing) == 0 {
		return input
	}
	missing := s.Pending.Missing
	if containsParam(missing, "date") && IsFollowUp(input) {
		return s.LastRequest + " on " + input
	}
	if containsParam(missing, "destination") && !strings.Contains(strings.ToLower(input), "to ") {
		return s.LastRequest + " to " + input
	}
	if containsParam(missing, "source") && !strings.Contains(strings.ToLower(input), "from ") {
		return s.LastRequest + " from " + input
	}
	return input
}

// RecordTurn appends the user input and assistant reply to the history
// and updates the pending-parameter state: set when the outcome asks for
// more information, cleared otherwise.
func (s *Session) RecordTurn(userInput, assistantReply string, pending *Pending, now time.Time) {
	s.History = append(s.History, Turn{Role: "user", Content: userInput, Timestamp: now})
	if assistantReply != "" {
		s.History = append(s.History, Turn{Role: "assistant", Content: assistantReply, Timestamp: now})
	}
	s.UserInputs = append(s.UserInputs, userInput)
	s.LastRequest = userInput
	s.Pending = pending
	s.LastTouched = now
}

func containsParam(list []string, name string) bool {
	for _, v := range list {
		if v == name {
			return true
		}
	}
	return false
}

var (
	historyCityRe = regexp.MustCompile(`City:\s*([^\n]+)`)
	historyTempRe = regexp.MustCompile(`Temperature:\s*([^\n]+)`)
	historyIataRe = regexp.MustCompile(`([A-Z]{3})\s*→\s*([A-Z]{3})`)
)

// RenderHistoryPrompt builds the conversation-context block prepended to
// the planning prompt: an extracted-facts summary (location, last weather
// reading, IATA routes seen) followed by the raw transcript.
func RenderHistoryPrompt(s *Session) string {
	if s == nil || len(s.History) == 0 {
		return ""
	}

	var city, temp string
	routes := map[string]bool{}
	var routeOrder []string
	for _, turn := range s.History {
		if turn.Role != "assistant" {
			continue
		}
		if m := historyCityRe.FindStringSubmatch(turn.Content); m != nil {
			city = strings.TrimSpace(m[1])
		}
		if m := historyTempRe.FindStringSubmatch(turn.Content); m != nil {
			temp = strings.TrimSpace(m[1])
		}
		for _, m := range historyIataRe.FindAllStringSubmatch(turn.Content, -1) {
			route := m[1] + " → " + m[2]
			if !routes[route] {
				routes[route] = true
				routeOrder = append(routeOrder, route)
			}
		}
	}

	var b strings.Builder
	b.WriteString("📋 PREVIOUS CONVERSATION CONTEXT:\n")
	if city != "" {
		b.WriteString("Location: " + city + "\n")
	}
	if temp != "" {
		b.WriteString("Weather: Temperature: " + temp + "\n")
	}
	if len(routeOrder) > 0 {
		b.WriteString("IATA routes: " + strings.Join(routeOrder, ", ") + "\n")
	}
	b.WriteString("\n💬 CONVERSATION HISTORY:\n")
	for _, turn := range s.History {
		role := "User"
		if turn.Role == "assistant" {
			role = "Assistant"
		}
		b.WriteString(role + ": " + turn.Content + "\n")
	}
	return b.String()
}

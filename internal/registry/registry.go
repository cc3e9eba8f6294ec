package registry

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ToolCard represents registry metadata for a downstream agent tool.
type ToolCard struct {
	Name           string                 `json:"name"`
	Version        string                 `json:"version"`
	Description    string                 `json:"description"`
	AgentName      string                 `json:"agent_name"`
	ServerURL      string                 `json:"server_url"`
	Endpoint       string                 `json:"endpoint"`
	InputSchema    map[string]interface{} `json:"input_schema"`
	RequiredParams []string               `json:"required_params"`
	SideEffects    []string               `json:"side_effects"`
	Checksum       string                 `json:"checksum"`
	Signature      string                 `json:"signature"`
}

// AgentCard groups the tools served by one downstream agent.
type AgentCard struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ServerURL   string     `json:"server_url"`
	Tools       []ToolCard `json:"tools"`
}

// Registry holds validated ToolCards keyed by tool name.
type Registry struct {
	tools  map[string]ToolCard
	agents map[string]AgentCard
}

// ErrToolMissing indicates a required tool is not registered.
var ErrToolMissing = fmt.Errorf("required tool missing")

// NewRegistry validates ToolCards and ensures required tools exist.
// An empty signing secret skips signature validation; cards signed with a
// secret the registry does not know are rejected.
func NewRegistry(agents []AgentCard, signingSecret string, required []string) (*Registry, error) {
	reg := &Registry{
		tools:  make(map[string]ToolCard),
		agents: make(map[string]AgentCard),
	}
	for _, ag := range agents {
		if strings.TrimSpace(ag.ServerURL) == "" {
			return nil, fmt.Errorf("agent %s has no server_url", ag.Name)
		}
		for i := range ag.Tools {
			tc := ag.Tools[i]
			tc.AgentName = ag.Name
			if tc.ServerURL == "" {
				tc.ServerURL = ag.ServerURL
			}
			if tc.Endpoint == "" {
				tc.Endpoint = "/a2a"
			}
			if err := validateSignature(tc, signingSecret); err != nil {
				return nil, fmt.Errorf("tool %s@%s signature invalid: %w", tc.Name, tc.Version, err)
			}
			existing, ok := reg.tools[tc.Name]
			if !ok || versionGreater(tc.Version, existing.Version) {
				reg.tools[tc.Name] = tc
			}
			ag.Tools[i] = tc
		}
		reg.agents[ag.Name] = ag
	}
	for _, r := range required {
		if _, ok := reg.tools[r]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolMissing, r)
		}
	}
	return reg, nil
}

// Tool returns the ToolCard for a tool name.
func (r *Registry) Tool(name string) (ToolCard, bool) {
	if r == nil {
		return ToolCard{}, false
	}
	tc, ok := r.tools[name]
	return tc, ok
}

// Agent returns the AgentCard for an agent name.
func (r *Registry) Agent(name string) (AgentCard, bool) {
	if r == nil {
		return AgentCard{}, false
	}
	ag, ok := r.agents[name]
	return ag, ok
}

// Agents returns all registered agents sorted by name.
func (r *Registry) Agents() []AgentCard {
	if r == nil {
		return nil
	}
	out := make([]AgentCard, 0, len(r.agents))
	for _, ag := range r.agents {
		out = append(out, ag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RequiredParams returns the required parameter names for a tool, or nil
// when the tool is unknown.
func (r *Registry) RequiredParams(tool string) []string {
	tc, ok := r.Tool(tool)
	if !ok {
		return nil
	}
	return tc.RequiredParams
}

// ComputeChecksum returns a deterministic hash of the ToolCard payload
// (excluding checksum and signature fields).
func ComputeChecksum(tc ToolCard) (string, error) {
	payload := map[string]interface{}{
		"name":            tc.Name,
		"version":         tc.Version,
		"description":     tc.Description,
		"agent_name":      tc.AgentName,
		"server_url":      tc.ServerURL,
		"endpoint":        tc.Endpoint,
		"input_schema":    tc.InputSchema,
		"required_params": tc.RequiredParams,
		"side_effects":    tc.SideEffects,
	}
	normalized, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}

// SignToolCard computes an HMAC signature using the signing secret.
func SignToolCard(tc ToolCard, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("signing secret is empty")
	}
	checksum, err := ComputeChecksum(tc)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(checksum))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

func validateSignature(tc ToolCard, secret string) error {
	if secret == "" {
		return nil
	}
	expected, err := SignToolCard(tc, secret)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(tc.Signature)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func versionGreater(a, b string) bool {
	if a == b {
		return false
	}
	return compareVersions(splitVersion(a), splitVersion(b)) > 0
}

func splitVersion(v string) []int {
	parts := strings.Split(strings.TrimPrefix(v, "v"), ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		fmt.Sscanf(p, "%d", &out[i])
	}
	return out
}

func compareVersions(a, b []int) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ai, bi := 0, 0
		if i < len(a) {
			ai = a[i]
		}
		if i < len(b) {
			bi = b[i]
		}
		if ai > bi {
			return 1
		}
		if ai < bi {
			return -1
		}
	}
	return 0
}

package orchestrator

import (
	"time"
)

// PlanKind discriminates the planner's decision for one user turn.
type PlanKind int

const (
	// PlanDirectAnswer carries a conversational reply with no tool call.
	PlanDirectAnswer PlanKind = iota
	// PlanSingleCall is one tool invocation.
	PlanSingleCall
	// PlanMissingParams asks the user for required information.
	PlanMissingParams
	// PlanMultiStep is an ordered list of tool invocations.
	PlanMultiStep
	// PlanCompleted is a status-2 reply where the model answered with an
	// embedded result instead of naming missing parameters.
	PlanCompleted
)

// Step is one tool invocation within a multi-step plan.
type Step struct {
	Number      int                    `json:"step"`
	Agent       string                 `json:"agent_name"`
	Tool        string                 `json:"tool_name"`
	Parameters  map[string]interface{} `json:"parameters"`
	Description string                 `json:"description,omitempty"`
	Condition   string                 `json:"condition,omitempty"`
}

// Plan is the planner's structured decision, decoded once from the LLM
// reply so the rest of the system works against a closed variant set.
type Plan struct {
	Kind PlanKind

	// PlanDirectAnswer / PlanCompleted
	Response string

	// PlanSingleCall / PlanCompleted / PlanMissingParams (when known)
	Agent      string
	Tool       string
	Parameters map[string]interface{}

	// PlanMissingParams
	Missing     []string
	Suggestions []string

	// PlanMultiStep
	Steps []Step
}

// StepStatus records the outcome of one executed step.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
	StepSkipped StepStatus = "skipped"
)

// StepResult is the audit record for one step of a multi-step run.
type StepResult struct {
	StepNumber  int                    `json:"step"`
	Agent       string                 `json:"agent"`
	Tool        string                 `json:"tool"`
	Parameters  map[string]interface{} `json:"parameters"`
	Description string                 `json:"description,omitempty"`
	Status      StepStatus             `json:"status"`
	Result      string                 `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
	SkipReason  string                 `json:"skip_reason,omitempty"`
}

// RunResult is what one executor run hands back to the HTTP surface.
type RunResult struct {
	FinalResult       string       `json:"final_result"`
	TotalSteps        int          `json:"total_steps"`
	CompletedSteps    int          `json:"completed_steps"`
	FailedSteps       int          `json:"failed_steps"`
	StepDetails       []StepResult `json:"step_details"`
	Results           []string     `json:"results"`
	WeatherAssessment string       `json:"weather_assessment,omitempty"`
	MissingParams     []string     `json:"missing_parameters,omitempty"`
	MissingTool       string       `json:"missing_tool,omitempty"`
	Aborted           bool         `json:"-"`
}

// PlanningError carries the raw model text when every repair strategy
// failed, so callers can report it verbatim for diagnosis.
type PlanningError struct {
	RawResponse string
	Err         error
}

func (e *PlanningError) Error() string {
	return "could not parse planning response: " + e.Err.Error()
}

func (e *PlanningError) Unwrap() error { return e.Err }

// ExecutionContext accumulates facts discovered while a plan runs. Keys
// are the producing tool name or derived previous_result_* names. Never
// shared between runs.
type ExecutionContext map[string]string

// Clock lets tests pin time-dependent behavior.
type Clock func() time.Time

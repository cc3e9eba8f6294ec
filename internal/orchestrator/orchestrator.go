package orchestrator

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/mohammad-safakhou/orchestra/internal/agent"
	"github.com/mohammad-safakhou/orchestra/internal/formatter"
	"github.com/mohammad-safakhou/orchestra/internal/registry"
	"github.com/mohammad-safakhou/orchestra/provider"
	"github.com/mohammad-safakhou/orchestra/session"
)

// Outcome is the envelope-ready result of one orchestrated user turn.
type Outcome struct {
	Success     bool
	Type        string // direct_answer | single_agent | multi_step | missing_parameters | error
	Response    string
	Agent       string
	Tool        string
	Parameters  map[string]interface{}
	Result      string
	Missing     []string
	Suggestions []string
	Run         *RunResult
	Err         string
	RawResponse string // unparseable model output, surfaced to the caller
}

// Pending returns the clarification state to park on the session, or nil
// when this turn needs no follow-up.
func (o *Outcome) Pending() *session.Pending {
	if o.Type != "missing_parameters" || len(o.Missing) == 0 {
		return nil
	}
	return &session.Pending{Agent: o.Agent, Tool: o.Tool, Missing: o.Missing}
}

// Orchestrator ties the planner, executor and invoker into the single
// entry point the HTTP surface calls per user turn.
type Orchestrator struct {
	planner  *Planner
	executor *Executor
	invoker  *agent.Invoker
	registry *registry.Registry
	logger   *log.Logger
}

func New(p provider.Provider, reg *registry.Registry, inv *agent.Invoker) *Orchestrator {
	return &Orchestrator{
		planner:  NewPlanner(p, reg),
		executor: NewExecutor(inv, reg, p),
		invoker:  inv,
		registry: reg,
		logger:   log.New(log.Writer(), "[ORCHESTRATOR] ", log.LstdFlags),
	}
}

// WithClock pins the planner's and executor's notion of now, for tests.
func (o *Orchestrator) WithClock(c Clock) *Orchestrator {
	o.planner.clock = c
	o.executor.clock = c
	return o
}

// Process plans and executes one user turn. sess may be nil for the
// stateless endpoint; when present its history feeds the planner prompt.
func (o *Orchestrator) Process(ctx context.Context, userInput string, sess *session.Session) *Outcome {
	history := ""
	if sess != nil {
		history = session.RenderHistoryPrompt(sess)
	}

	plan, err := o.planner.Plan(ctx, userInput, history)
	if err != nil {
		out := &Outcome{
			Type:     "error",
			Response: "I'm having trouble understanding your request right now. Please try again.",
			Err:      err.Error(),
		}
		var pe *PlanningError
		if errors.As(err, &pe) {
			o.logger.Printf("unparseable planning response: %v\nraw: %s", pe.Err, pe.RawResponse)
			out.Err = "Could not parse LLM response"
			out.RawResponse = pe.RawResponse
		} else {
			o.logger.Printf("planning failed: %v", err)
		}
		return out
	}

	switch plan.Kind {
	case PlanDirectAnswer:
		return &Outcome{Success: true, Type: "direct_answer", Response: plan.Response, Result: plan.Response}

	case PlanCompleted:
		return &Outcome{
			Success: true, Type: "single_agent",
			Agent: plan.Agent, Tool: plan.Tool,
			Response: plan.Response, Result: plan.Response,
		}

	case PlanMissingParams:
		response := plan.Response
		if response == "" {
			response = missingParamsMessage(plan.Tool, plan.Missing)
		}
		return &Outcome{
			Success: true, Type: "missing_parameters",
			Agent: plan.Agent, Tool: plan.Tool,
			Missing: plan.Missing, Suggestions: plan.Suggestions,
			Response: response,
		}

	case PlanMultiStep:
		run := o.executor.Execute(ctx, plan.Steps, sess)
		if run.Aborted {
			return &Outcome{
				Success: true, Type: "missing_parameters",
				Tool: run.MissingTool, Missing: run.MissingParams,
				Response: run.FinalResult, Run: run,
			}
		}
		return &Outcome{Success: true, Type: "multi_step", Response: run.FinalResult, Run: run}

	default: // PlanSingleCall
		return o.singleCall(ctx, plan)
	}
}

func (o *Orchestrator) singleCall(ctx context.Context, plan *Plan) *Outcome {
	step := Step{Number: 1, Agent: plan.Agent, Tool: plan.Tool, Parameters: plan.Parameters}
	params, _ := o.executor.resolveParameters(ctx, step, ExecutionContext{})

	start := time.Now()
	result, err := o.invoker.Call(ctx, plan.Agent, plan.Tool, params)
	if err != nil {
		var mpe *agent.MissingParamsError
		if errors.As(err, &mpe) {
			return &Outcome{
				Success: true, Type: "missing_parameters",
				Agent: plan.Agent, Tool: plan.Tool, Parameters: params,
				Missing:  mpe.Missing,
				Response: missingParamsMessage(plan.Tool, mpe.Missing),
			}
		}
		o.logger.Printf("single call %s/%s failed after %s: %v", plan.Agent, plan.Tool, time.Since(start), err)
		return &Outcome{
			Type: "single_agent",
			Agent: plan.Agent, Tool: plan.Tool, Parameters: params,
			Response: agent.TranslateError(plan.Tool, err),
			Err:      err.Error(),
		}
	}

	return &Outcome{
		Success: true, Type: "single_agent",
		Agent: result.Agent, Tool: plan.Tool, Parameters: params,
		Result:   result.Text,
		Response: formatter.Summarize(plan.Tool, result.Text),
	}
}

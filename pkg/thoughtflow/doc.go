/*
Package thoughtflow provides a pluggable engine for advanced LLM
reasoning flows.

# Overview

thoughtflow runs named, organization-scoped reasoning flows against a
language model: a flow definition binds a reasoning strategy (flow
type) to the configuration its processor runs with; the engine
dispatches prompts to the registered processor and records every
invocation as an immutable execution for later analytics and replay.

Three strategies ship with the module:
  - tree_of_thoughts: branch into parallel reasoning paths, score
    them, and synthesize an answer from the best path
  - internal_monologue: think out loud, then optionally revise the
    answer through reflection rounds
  - self_critique: draft, critique the draft, and rewrite it

# Basic Usage

Register processors, store a definition, and execute it:

	db, err := store.Open("./flows.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer db.Close()

	registry := thoughtflow.NewRegistry()
	registry.MustRegister(tot.New(client))
	registry.MustRegister(monologue.New(client))
	registry.MustRegister(critique.New(client))

	engine := thoughtflow.NewEngine(db.Flows(), db.Executions(), registry)

	cfg := config.New(map[string]any{
	    "branching_factor":  3,
	    "max_depth":         2,
	    "evaluation_method": "llm_scoring",
	})
	flow := thoughtflow.NewFlowDefinition("deep reasoning", thoughtflow.FlowTypeTreeOfThoughts, cfg, orgID)
	if _, err := db.Flows().Save(flow); err != nil {
	    log.Fatal(err)
	}

	execution, err := engine.Execute(ctx, flow.ID, "How should we price the new tier?", nil)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(execution.Result["final_response"])

# Failure Model

Engine guards (missing flow, inactive flow, unregistered type, invalid
configuration) fail fast with sentinel errors and record nothing. Once
a processor runs, failures become data: the pipeline converts model
errors and panics into an execution whose result carries an "ERROR: "
message and Metrics["error"]=true, so the history keeps a complete
record of what was attempted.

	execution, err := engine.Execute(ctx, flowID, prompt, nil)
	if err != nil {
	    var dispatchErr *thoughtflow.DispatchError
	    if errors.As(err, &dispatchErr) {
	        log.Printf("flow %s rejected during %s: %v", dispatchErr.FlowID, dispatchErr.Op, dispatchErr.Err)
	    }
	    return err
	}
	if execution.Failed() {
	    log.Printf("pipeline degraded: %s", *execution.ErrorMessage)
	}

# Analytics

Execution history answers aggregate questions per flow:

	stats, err := engine.Analytics(flowID)
	// stats.TotalExecutions, stats.ResponseChangeRate, stats.AverageProcessingTime

	slowest, err := db.Executions().FindSlowest(flowID, 10)
	failed, err := db.Executions().FindWithErrors(flowID)
	removed, err := db.Executions().DeleteBefore(time.Now().AddDate(0, -1, 0))

# Thread Safety

  - Registry IS safe for concurrent use; registration normally happens
    once at startup
  - Engine IS safe for concurrent use
  - Store implementations are safe for concurrent use
  - FlowDefinition and FlowExecution values returned by stores are
    copies owned by the caller

# Subpackages

  - config: typed, validated access to flow configuration
  - llm: model port, provider adapters (OpenAI, Anthropic) and a
    scriptable mock
  - tot, monologue, critique: the shipped reasoning processors
  - store: flow and execution persistence (memory, SQLite)
  - prompt: placeholder template rendering
  - observability: logging, metrics, and tracing helpers
*/
package thoughtflow

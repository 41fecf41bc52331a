/*
Package tot implements the Tree-of-Thoughts reasoning strategy.

# Overview

Tree-of-Thoughts explores a problem by growing a full
branching_factor-ary tree of candidate thoughts to a configured depth,
scoring every root-to-leaf reasoning path, and synthesizing a final
answer from the winning path. The pipeline makes four kinds of model
calls:

 1. Initial thoughts: one call producing branching_factor independent
    approaches, parsed from "THOUGHT <n>: <content>" markers.
 2. Expansion: for each depth level, one call per node of the previous
    level, continuing its reasoning chain with branching_factor
    children. Sibling expansions run on a bounded worker pool and join
    before the next level.
 3. Path evaluation: llm_scoring (one call over all enumerated paths),
    heuristic (no call), or combined.
 4. Synthesis: one final call conditioned on the winning path.

# Parameters

	branching_factor   int    [2,5]  default 3
	max_depth          int    [1,5]  default 3
	evaluation_method  string {llm_scoring, heuristic, combined}
	                          default llm_scoring

# Degradation

Malformed model output never fails the pipeline: missing thoughts are
filled with placeholders, an unparsable path selection falls back to
path 1, a missing score falls back to 75.0. Every such fallback marks
the result Degraded so consumers can tell best-effort fill from
genuine model output. Genuine failures (a model call error, a panic)
are converted at the top of Process into a terminal result carrying
the error flag and message; no error escapes Process.

# Usage

	processor := tot.New(client,
	    tot.WithLogger(slog.Default()),
	    tot.WithMaxConcurrency(8),
	)

	cfg := config.New(map[string]any{
	    "branching_factor":  3,
	    "max_depth":         2,
	    "evaluation_method": "combined",
	})
	if !processor.ValidateConfiguration(cfg) {
	    // reject before any model call
	}
	result := processor.Process(ctx, "How should we price the new tier?", cfg, nil)
*/
package tot

/*
Package config provides the flow configuration parameter bag.

# Overview

config wraps a map[string]any and provides typed accessor methods that
handle missing keys and type mismatches gracefully by returning default
values. Flow processors use it to read their parameters (branching
factor, depth limits, evaluation method, ...) from definitions loaded
out of YAML/JSON or out of a durable store, without verbose type
assertions and nil checks.

# Basic Usage

Create a Config from any map and extract values with defaults:

	cfg := config.New(map[string]any{
	    "branching_factor":  3,
	    "evaluation_method": "heuristic",
	    "show_reasoning":    true,
	})

	bf := cfg.Int("branching_factor", 3)                  // 3
	method := cfg.String("evaluation_method", "llm_scoring") // "heuristic"
	show := cfg.Bool("show_reasoning", false)             // true

# Type Conversion

There is no coercion across types: a string never becomes an int, a
bool never becomes a string. Numeric types handle the conversions JSON
decoding makes unavoidable:
  - int from whole-valued float64
  - float64 from int

All methods return the default value if the key is missing, the value
cannot be converted, or the conversion would lose precision.

# Validation Helpers

IntInRange and StringInSet implement the common validation shapes for
processor parameters. A missing key is always valid since the
processor's default applies:

	ok := cfg.IntInRange("branching_factor", 2, 5)
	ok = cfg.StringInSet("evaluation_method", "llm_scoring", "heuristic", "combined")

# File Loading

Load a configuration from YAML or JSON:

	cfg, err := config.FromFile("flow.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	// Or load from bytes
	cfg, err = config.FromYAML(yamlBytes)
	cfg, err = config.FromJSON(jsonBytes)

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation. However, if the original map is modified
externally, behavior is undefined.
*/
package config

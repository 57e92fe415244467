package agent

import (
	"context"
	"errors"
	"fmt"

	"neograph/pkg/ai"
	"neograph/pkg/codegraph"
)

// Capability names exposed to the model. The set is closed: anything else is
// rejected with ErrUnknownCapability.
const (
	CapRawQuery     = "raw_query"
	CapFindFunction = "find_function"
	CapBlastRadius  = "blast_radius"
)

const defaultBlastDepth = 3

var (
	ErrInvalidArguments  = errors.New("invalid tool arguments")
	ErrUnknownCapability = errors.New("unknown capability")
)

// Registry dispatches validated tool calls onto the graph engine.
type Registry struct {
	engine *codegraph.Engine
}

func NewRegistry(engine *codegraph.Engine) *Registry {
	return &Registry{engine: engine}
}

// Schemas returns the capability definitions advertised to the completion
// service.
func (r *Registry) Schemas() []ai.Tool {
	return []ai.Tool{
		{
			Name:        CapRawQuery,
			Description: "Execute an arbitrary read-only SQL query against the code graph. Returns the result rows. Use this when the specialized tools cannot express the question.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The SQL query to execute. Must be a read query.",
					},
				},
				"required": []string{"query"},
			},
		},
		{
			Name:        CapFindFunction,
			Description: "Search functions and methods by name. * matches any run of characters, the rest matches case-insensitively. Returns up to 50 matches with file, repository and call counts.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "The name pattern to search for, e.g. 'parse*' or '*handler*'.",
					},
				},
				"required": []string{"pattern"},
			},
		},
		{
			Name:        CapBlastRadius,
			Description: "Analyze the impact of changing a function: walks the call graph backwards and reports every dependent with its distance, split into direct and transitive.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name": map[string]any{
						"type":        "string",
						"description": "Exact name of the function to analyze.",
					},
					"depth": map[string]any{
						"type":        "integer",
						"description": "Maximum number of call hops to follow (default: 3).",
						"default":     defaultBlastDepth,
					},
				},
				"required": []string{"name"},
			},
		},
	}
}

// Execute runs one capability. A missing or mistyped required field fails
// with ErrInvalidArguments; a name outside the capability set fails with
// ErrUnknownCapability. A blast-radius target that does not exist comes back
// as a structured error payload, not as an error.
func (r *Registry) Execute(ctx context.Context, name string, input map[string]any) (any, error) {
	switch name {
	case CapRawQuery:
		query, ok := stringArg(input, "query")
		if !ok {
			return nil, fmt.Errorf("%w: raw_query requires a query string", ErrInvalidArguments)
		}
		return r.engine.RawQuery(ctx, query), nil

	case CapFindFunction:
		pattern, ok := stringArg(input, "pattern")
		if !ok {
			return nil, fmt.Errorf("%w: find_function requires a pattern string", ErrInvalidArguments)
		}
		matches, err := r.engine.FindFunction(ctx, pattern)
		if err != nil {
			if errors.Is(err, codegraph.ErrInvalidPattern) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
			return nil, err
		}
		return matches, nil

	case CapBlastRadius:
		fnName, ok := stringArg(input, "name")
		if !ok {
			return nil, fmt.Errorf("%w: blast_radius requires a function name", ErrInvalidArguments)
		}
		depth := defaultBlastDepth
		if raw, present := input["depth"]; present {
			f, ok := raw.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: depth must be an integer", ErrInvalidArguments)
			}
			depth = int(f)
		}
		result, err := r.engine.BlastRadius(ctx, fnName, depth)
		if err != nil {
			if errors.Is(err, codegraph.ErrFunctionNotFound) {
				return map[string]any{
					"error":    fmt.Sprintf("no function named %q found in the graph", fnName),
					"function": fnName,
				}, nil
			}
			if errors.Is(err, codegraph.ErrInvalidDepth) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
			return nil, err
		}
		return result, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
}

func stringArg(input map[string]any, key string) (string, bool) {
	s, ok := input[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

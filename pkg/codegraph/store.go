package codegraph

import "context"

// Store is the read surface of the graph database the engine queries.
// Implementations acquire and release their session per call and must be safe
// for concurrent use.
type Store interface {
	// RawQuery executes an arbitrary read query and returns its rows as
	// ordered column-name-to-value mappings.
	RawQuery(ctx context.Context, query string) ([]map[string]any, error)

	// Functions returns every declaration node with its optional file and
	// repository resolved.
	Functions(ctx context.Context) ([]FunctionRecord, error)

	// FunctionByName resolves a function by exact name. Returns (nil, nil)
	// when no function has that name.
	FunctionByName(ctx context.Context, name string) (*FunctionRecord, error)

	// Callers returns every CALLS edge pointing at any of the given callees.
	Callers(ctx context.Context, calleeIDs []string) ([]CallerEdge, error)

	// CallCounts returns distinct fan-out and fan-in for the given functions.
	CallCounts(ctx context.Context, ids []string) (map[string]CallCounts, error)

	// RepositoryStructure returns every file of a repository with its
	// declarations, including outer-join placeholders for empty files.
	RepositoryStructure(ctx context.Context, repoID string) ([]FileStructure, error)
}

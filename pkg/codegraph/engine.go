package codegraph

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"neograph/pkg/logger"
)

const (
	// maxFunctionResults caps wildcard search output.
	maxFunctionResults = 50
	// maxBlastDepth bounds the reverse-call traversal.
	maxBlastDepth = 10
)

var (
	ErrFunctionNotFound = errors.New("function not found")
	ErrInvalidDepth     = errors.New("depth must be at least 1")
	ErrInvalidPattern   = errors.New("invalid search pattern")
)

// Engine answers graph questions over a Store. It owns the traversal and
// matching logic so that stores stay thin row mappers.
type Engine struct {
	store Store
}

func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// RawQuery runs an arbitrary read query and never fails: execution errors are
// absorbed into a single row carrying the error text, so a conversational
// caller can relay the failure instead of aborting.
func (e *Engine) RawQuery(ctx context.Context, query string) []map[string]any {
	rows, err := e.store.RawQuery(ctx, query)
	if err != nil {
		logger.Error("raw graph query failed", "err", err)
		return []map[string]any{{"error": err.Error()}}
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows
}

// FunctionMatch is one wildcard search hit, enriched with call counts.
type FunctionMatch struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Signature string  `json:"signature,omitempty"`
	FilePath  *string `json:"file_path"`
	RepoName  *string `json:"repo_name"`
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	Calls     int     `json:"calls"`
	CalledBy  int     `json:"called_by"`
}

// FindFunction matches callable declarations against a case-insensitive
// pattern where * matches any run of characters and every other character
// matches literally. Results are sorted by name ascending and capped at
// maxFunctionResults before call counts are resolved.
func (e *Engine) FindFunction(ctx context.Context, pattern string) ([]FunctionMatch, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}

	funcs, err := e.store.Functions(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing functions: %w", err)
	}

	matched := make([]FunctionRecord, 0)
	for _, fn := range funcs {
		if fn.Kind == KindClass {
			continue
		}
		if re.MatchString(fn.Name) {
			matched = append(matched, fn)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > maxFunctionResults {
		matched = matched[:maxFunctionResults]
	}

	ids := make([]string, len(matched))
	for i, fn := range matched {
		ids[i] = fn.ID
	}
	counts := map[string]CallCounts{}
	if len(ids) > 0 {
		counts, err = e.store.CallCounts(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolving call counts: %w", err)
		}
	}

	results := make([]FunctionMatch, len(matched))
	for i, fn := range matched {
		c := counts[fn.ID]
		results[i] = FunctionMatch{
			ID:        fn.ID,
			Name:      fn.Name,
			Signature: fn.Signature,
			FilePath:  fn.FilePath,
			RepoName:  fn.RepoName,
			StartLine: fn.StartLine,
			EndLine:   fn.EndLine,
			Calls:     c.FanOut,
			CalledBy:  c.FanIn,
		}
	}
	return results, nil
}

// Dependent is one function affected by a change to the analysis target.
// Distance is the minimum number of call hops back to the target.
type Dependent struct {
	Name      string `json:"name"`
	Signature string `json:"signature,omitempty"`
	Distance  int    `json:"distance"`
}

// BlastRadiusResult summarizes the impact surface of changing one function.
type BlastRadiusResult struct {
	Function             string      `json:"function"`
	Signature            string      `json:"signature,omitempty"`
	File                 *string     `json:"file"`
	DirectDependents     int         `json:"direct_dependents"`
	TransitiveDependents int         `json:"transitive_dependents"`
	TotalDependents      int         `json:"total_dependents"`
	Dependents           []Dependent `json:"dependents"`
}

// BlastRadius walks the CALLS relation in reverse from the named function for
// at most depth hops and reports every distinct dependent at its minimum
// distance. The target itself never appears as a dependent, even when the
// graph is cyclic. Depth values above maxBlastDepth are clamped.
func (e *Engine) BlastRadius(ctx context.Context, name string, depth int) (*BlastRadiusResult, error) {
	if depth < 1 {
		return nil, ErrInvalidDepth
	}
	if depth > maxBlastDepth {
		depth = maxBlastDepth
	}

	target, err := e.store.FunctionByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolving function %q: %w", name, err)
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, name)
	}

	// Level-order walk. Seeding seen with the target pins it at distance 0
	// so cycles can never re-admit it as its own dependent, and visiting a
	// whole frontier per hop guarantees every dependent is first reached at
	// its minimum distance.
	seen := map[string]int{target.ID: 0}
	dependents := make([]Dependent, 0)
	direct := 0
	frontier := []string{target.ID}

	for dist := 1; dist <= depth && len(frontier) > 0; dist++ {
		edges, err := e.store.Callers(ctx, frontier)
		if err != nil {
			return nil, fmt.Errorf("expanding callers at distance %d: %w", dist, err)
		}
		next := make([]string, 0, len(edges))
		for _, edge := range edges {
			if _, ok := seen[edge.Caller.ID]; ok {
				continue
			}
			seen[edge.Caller.ID] = dist
			dependents = append(dependents, Dependent{
				Name:      edge.Caller.Name,
				Signature: edge.Caller.Signature,
				Distance:  dist,
			})
			if dist == 1 {
				direct++
			}
			next = append(next, edge.Caller.ID)
		}
		frontier = next
	}

	sort.Slice(dependents, func(i, j int) bool {
		if dependents[i].Distance != dependents[j].Distance {
			return dependents[i].Distance < dependents[j].Distance
		}
		return dependents[i].Name < dependents[j].Name
	})

	return &BlastRadiusResult{
		Function:             target.Name,
		Signature:            target.Signature,
		File:                 target.FilePath,
		DirectDependents:     direct,
		TransitiveDependents: len(dependents) - direct,
		TotalDependents:      len(dependents),
		Dependents:           dependents,
	}, nil
}

// CodeStructure returns the file and declaration layout of a repository.
func (e *Engine) CodeStructure(ctx context.Context, repoID string) ([]FileStructure, error) {
	structure, err := e.store.RepositoryStructure(ctx, repoID)
	if err != nil {
		return nil, fmt.Errorf("loading repository structure: %w", err)
	}
	return structure, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	return regexp.Compile("(?i)^" + strings.Join(parts, ".*") + "$")
}

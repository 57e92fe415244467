package agent

import "fmt"

// Profile selects the system instructions an agent converses with.
type Profile string

const (
	// ProfileExplorer answers free-form questions about the code graph.
	ProfileExplorer Profile = "explorer"
	// ProfileAnalyzer focuses on dependency and impact analysis.
	ProfileAnalyzer Profile = "analyzer"
	// ProfileDocWriter drafts documentation grounded in graph lookups.
	ProfileDocWriter Profile = "doc-writer"
)

// ProfileFromString maps a request value onto a known profile, falling back
// to the explorer for anything unrecognized.
func ProfileFromString(s string) Profile {
	switch Profile(s) {
	case ProfileExplorer, ProfileAnalyzer, ProfileDocWriter:
		return Profile(s)
	default:
		return ProfileExplorer
	}
}

const sharedInstructions = `You are connected to an indexed source-code graph stored in PostgreSQL.
Tables: repositories(id, name, url), files(id, repo_id, path, language),
functions(id, file_id, name, kind, signature, docstring, start_line, end_line),
calls(caller_id, callee_id).

Use the available tools to answer from the graph instead of guessing:
- find_function to locate functions by name pattern (* is a wildcard)
- blast_radius to measure the impact of changing a function
- raw_query for anything the other tools cannot express (read-only SQL)

Ground every statement in tool results. If a lookup returns nothing, say so.`

var profileInstructions = map[Profile]string{
	ProfileExplorer: `You are a code exploration assistant. Help the user navigate and
understand the indexed codebase. Prefer find_function for discovery and keep
answers concise, citing file paths and line spans from tool results.`,
	ProfileAnalyzer: `You are a dependency analyst. For change-impact questions, always
run blast_radius on the functions in question and report direct and
transitive dependents separately. Call out cycles or unusually wide impact
surfaces explicitly.`,
	ProfileDocWriter: `You are a technical writer. Produce well-structured markdown
grounded in graph lookups. Verify every function or file you mention exists
in the graph before describing it.`,
}

// SystemPrompts returns the instruction set for a profile, scoped to a
// repository when one is given.
func SystemPrompts(profile Profile, repoID *string) []string {
	prompts := []string{sharedInstructions, profileInstructions[profile]}
	if repoID != nil && *repoID != "" {
		prompts = append(prompts, fmt.Sprintf(
			"Scope all queries to the repository with id %q unless the user explicitly asks about another one.", *repoID))
	}
	return prompts
}

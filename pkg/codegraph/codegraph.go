// Package codegraph models an indexed source-code graph and the read-only
// query operations exposed over it. Node kinds are repositories, files, and
// declarations (functions, methods, classes); relations are containment
// (repository to file), declaration (file to function), and calls
// (function to function).
package codegraph

// Declaration kinds stored in the graph.
const (
	KindFunction = "function"
	KindMethod   = "method"
	KindClass    = "class"
)

// FunctionRecord is one declaration node together with its optional owning
// file and repository. FilePath and RepoName are nil when the declaring file
// or containing repository is missing from the graph.
type FunctionRecord struct {
	ID        string
	Name      string
	Kind      string
	Signature string
	Docstring string
	StartLine int
	EndLine   int
	FilePath  *string
	RepoName  *string
}

// FunctionRef is the minimal identity of a function reached during traversal.
type FunctionRef struct {
	ID        string
	Name      string
	Signature string
}

// CallerEdge is one reverse CALLS edge: Caller calls the function CalleeID.
type CallerEdge struct {
	CalleeID string
	Caller   FunctionRef
}

// CallCounts holds the distinct fan-out (callees) and fan-in (callers) of a
// function.
type CallCounts struct {
	FanOut int
	FanIn  int
}

// Declaration is one named declaration inside a file, as used by the wiki
// structure view. A Declaration with an empty Name is an outer-join
// placeholder for a file that declares nothing.
type Declaration struct {
	Name      string `json:"name"`
	Kind      string `json:"kind,omitempty"`
	Signature string `json:"signature,omitempty"`
	Docstring string `json:"docstring,omitempty"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
}

// FileStructure is one file with its declarations.
type FileStructure struct {
	Path         string        `json:"path"`
	Language     string        `json:"language,omitempty"`
	Declarations []Declaration `json:"declarations"`
}

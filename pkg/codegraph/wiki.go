package codegraph

// WikiDiagram is one embedded diagram of a wiki page.
type WikiDiagram struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}

// WikiPage is one generated documentation page. Slug is unique within a
// repository's page set; Order defines the display ordering; ParentSlug is an
// unvalidated soft relation consumed by the presentation layer.
type WikiPage struct {
	Slug       string        `json:"slug"`
	Title      string        `json:"title"`
	Content    string        `json:"content"`
	Order      int           `json:"order"`
	ParentSlug *string       `json:"parent_slug"`
	Diagrams   []WikiDiagram `json:"diagrams"`
}

// WikiNavEntry is the navigation view of a stored page.
type WikiNavEntry struct {
	Slug       string  `json:"slug"`
	Title      string  `json:"title"`
	Order      int     `json:"order"`
	ParentSlug *string `json:"parent_slug"`
}

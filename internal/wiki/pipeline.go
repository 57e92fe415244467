// Package wiki turns the indexed structure of a repository into a multi-page
// markdown wiki via a single completion call, recovering from malformed
// model output instead of failing.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"neograph/pkg/ai"
	"neograph/pkg/codegraph"
	"neograph/pkg/logger"
)

// structureTokenBudget caps the serialized code structure embedded in the
// generation prompt so very large repositories still fit one request.
const structureTokenBudget = 32000

var repoIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ValidRepoID reports whether s has the UUID shape repository ids carry
// everywhere in the graph. Handlers use it to reject bad path parameters
// before any query runs.
func ValidRepoID(s string) bool {
	return repoIDPattern.MatchString(s)
}

// moduleGroup is one directory-level grouping of files presented to the
// model.
type moduleGroup struct {
	Module string                    `json:"module"`
	Files  []codegraph.FileStructure `json:"files"`
}

type pagesEnvelope struct {
	Pages []codegraph.WikiPage `json:"pages"`
}

// wikiSystemPrompt frames the single generation call. The schema attached to
// the request enforces the shape; this keeps the register and scope fixed.
const wikiSystemPrompt = "You are a technical writer producing a structured wiki for a source code repository. Respond with JSON only."

// Pipeline generates wiki pages from the code graph.
type Pipeline struct {
	engine *codegraph.Engine
	client ai.CompletionClient
}

func NewPipeline(engine *codegraph.Engine, client ai.CompletionClient) *Pipeline {
	return &Pipeline{engine: engine, client: client}
}

// Generate produces the wiki for a repository. It always returns a valid,
// possibly degenerate, page collection: identifier and structure problems
// yield a "no code structure" page, everything downstream of the completion
// call degrades to a "generation failed" page.
func (p *Pipeline) Generate(ctx context.Context, repoID, repoName string) []codegraph.WikiPage {
	if !ValidRepoID(repoID) {
		logger.Warn("rejecting malformed repository id", "repo_id", repoID)
		return placeholderPages(repoName, "No code structure found. Please ensure the repository has been indexed.")
	}

	structure, err := p.engine.CodeStructure(ctx, repoID)
	if err != nil {
		logger.Error("failed to load repository structure", "repo_id", repoID, "err", err)
		return placeholderPages(repoName, "Wiki generation failed. Please try again.")
	}

	modules := groupModules(structure)
	if len(modules) == 0 {
		return placeholderPages(repoName, "No code structure found. Please ensure the repository has been indexed.")
	}

	prompt, err := buildPrompt(repoName, modules)
	if err != nil {
		logger.Error("failed to serialize code structure", "repo_id", repoID, "err", err)
		return placeholderPages(repoName, "Wiki generation failed. Please try again.")
	}

	logger.Info("generating wiki", "repo", repoName, "modules", len(modules))

	raw, err := p.client.GenerateCompletionWithFormat(ctx, "wiki_pages",
		"Multi-page wiki for a code repository", prompt, &pagesEnvelope{},
		ai.WithSystemPrompts(wikiSystemPrompt), ai.WithTemperature(0.1))
	if err != nil {
		logger.Error("wiki completion call failed", "repo", repoName, "err", err)
		return placeholderPages(repoName, "Wiki generation failed. Please try again.")
	}

	pages, err := parsePages(raw)
	if err != nil {
		logger.Error("failed to parse wiki response", "repo", repoName, "err", err, "response", truncate(raw, 500))
		return placeholderPages(repoName, "Wiki generation failed. Please try again.")
	}

	pages = normalizePages(pages)
	logger.Info("generated wiki", "repo", repoName, "pages", len(pages))
	return pages
}

// groupModules buckets files by their immediate parent directory. A literal
// "src" parent is skipped in favor of the file's own extension-stripped name,
// and parentless files land in a synthetic "root" group. Declarations without
// a name are outer-join placeholders and are dropped.
func groupModules(structure []codegraph.FileStructure) []moduleGroup {
	byName := map[string]int{}
	var groups []moduleGroup

	for _, file := range structure {
		decls := make([]codegraph.Declaration, 0, len(file.Declarations))
		for _, decl := range file.Declarations {
			if decl.Name != "" {
				decls = append(decls, decl)
			}
		}
		file.Declarations = decls

		parts := strings.Split(file.Path, "/")
		module := "root"
		if len(parts) > 1 {
			module = parts[len(parts)-2]
			if module == "src" {
				base := parts[len(parts)-1]
				module = strings.TrimSuffix(base, path.Ext(base))
			}
		}

		idx, ok := byName[module]
		if !ok {
			idx = len(groups)
			byName[module] = idx
			groups = append(groups, moduleGroup{Module: module})
		}
		groups[idx].Files = append(groups[idx].Files, file)
	}
	return groups
}

const promptTemplate = `You are generating documentation for a code repository.

## Repository: %s

## Code Structure:
%s

## Instructions:
Generate a multi-page wiki with:

1. **Overview page** (slug: "overview", order: 1)
   - Project purpose based on the code
   - Architecture diagram in mermaid format
   - Key modules summary (one line each)

2. **Module pages** (one per directory, order: 2+)
   - Module purpose
   - Key functions with brief descriptions
   - How this module relates to others

## Output Format:
Return ONLY valid JSON (no markdown, no explanation) with this exact structure:
{
  "pages": [
    {
      "slug": "overview",
      "title": "Overview",
      "content": "# Project Name\n\nmarkdown content...",
      "order": 1,
      "parent_slug": null,
      "diagrams": [
        {
          "id": "architecture",
          "title": "Architecture",
          "code": "graph TD\n  A[Module] --> B[Module]"
        }
      ]
    },
    {
      "slug": "module-name",
      "title": "Module Name",
      "content": "# Module Name\n\nmarkdown content...",
      "order": 2,
      "parent_slug": "overview",
      "diagrams": []
    }
  ]
}

IMPORTANT:
- Return ONLY the JSON, no other text
- Use \n for newlines in content strings
- Keep content concise (200-400 words per page)
- Generate 3-6 pages total`

func buildPrompt(repoName string, modules []moduleGroup) (string, error) {
	serialized, err := json.MarshalIndent(modules, "", "  ")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(promptTemplate, repoName, truncateToTokens(string(serialized), structureTokenBudget)), nil
}

// truncateToTokens cuts text to at most budget tokens. Best effort: when the
// encoding is unavailable the text passes through untouched.
func truncateToTokens(text string, budget int) string {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return text
	}
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= budget {
		return text
	}
	return enc.Decode(tokens[:budget])
}

// parsePages decodes the model output, first strictly, then once more after
// sanitizing literal control characters inside strings.
func parsePages(raw string) ([]codegraph.WikiPage, error) {
	text := stripFence(raw)

	var env pagesEnvelope
	if err := json.Unmarshal([]byte(text), &env); err == nil && len(env.Pages) > 0 {
		return env.Pages, nil
	}

	repaired := Sanitize(text)
	env = pagesEnvelope{}
	if err := ai.UnmarshalFlexible(repaired, &env); err != nil {
		return nil, fmt.Errorf("response is not a pages object: %w", err)
	}
	if len(env.Pages) == 0 {
		return nil, fmt.Errorf("response contains no pages")
	}
	return env.Pages, nil
}

// stripFence removes one enclosing markdown code fence by dropping its first
// and last lines.
func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return text
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// normalizePages enforces the page-collection invariants: unique slugs,
// non-nil diagram lists, and a total display ordering.
func normalizePages(pages []codegraph.WikiPage) []codegraph.WikiPage {
	seen := map[string]bool{}
	for i := range pages {
		base := pages[i].Slug
		if base == "" {
			base = fmt.Sprintf("page-%d", i+1)
		}
		slug := base
		for n := 2; seen[slug]; n++ {
			slug = fmt.Sprintf("%s-%d", base, n)
		}
		seen[slug] = true
		pages[i].Slug = slug
		if pages[i].Diagrams == nil {
			pages[i].Diagrams = []codegraph.WikiDiagram{}
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Order < pages[j].Order })
	return pages
}

func placeholderPages(repoName, message string) []codegraph.WikiPage {
	return []codegraph.WikiPage{{
		Slug:     "overview",
		Title:    "Overview",
		Content:  fmt.Sprintf("# %s\n\n%s", repoName, message),
		Order:    1,
		Diagrams: []codegraph.WikiDiagram{},
	}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Package pgx implements the codegraph store on PostgreSQL.
package pgx

import (
	"context"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"neograph/pkg/codegraph"
)

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
	BeginTx(ctx context.Context, txOptions pgxv5.TxOptions) (pgxv5.Tx, error)
}

// GraphDBStore implements codegraph.Store on a pgx connection pool.
type GraphDBStore struct {
	conn pgxIConn
}

func NewGraphDBStore(conn pgxIConn) *GraphDBStore {
	return &GraphDBStore{conn: conn}
}

// RawQuery runs the statement inside a read-only transaction so arbitrary
// conversational queries can never mutate the graph. Rows come back as
// column-name-to-value maps in result order.
func (s *GraphDBStore) RawQuery(ctx context.Context, query string) ([]map[string]any, error) {
	tx, err := s.conn.BeginTx(ctx, pgxv5.TxOptions{AccessMode: pgxv5.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("starting read-only transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

const functionsSQL = `
SELECT f.id, f.name, f.kind,
       COALESCE(f.signature, ''), COALESCE(f.docstring, ''),
       COALESCE(f.start_line, 0), COALESCE(f.end_line, 0),
       fl.path, r.name
FROM functions f
LEFT JOIN files fl ON fl.id = f.file_id
LEFT JOIN repositories r ON r.id = fl.repo_id
`

func (s *GraphDBStore) Functions(ctx context.Context) ([]codegraph.FunctionRecord, error) {
	rows, err := s.conn.Query(ctx, functionsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var functions []codegraph.FunctionRecord
	for rows.Next() {
		var fn codegraph.FunctionRecord
		if err := rows.Scan(
			&fn.ID, &fn.Name, &fn.Kind,
			&fn.Signature, &fn.Docstring,
			&fn.StartLine, &fn.EndLine,
			&fn.FilePath, &fn.RepoName,
		); err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	return functions, rows.Err()
}

const functionByNameSQL = functionsSQL + `
WHERE f.name = $1
ORDER BY f.id
LIMIT 1
`

func (s *GraphDBStore) FunctionByName(ctx context.Context, name string) (*codegraph.FunctionRecord, error) {
	var fn codegraph.FunctionRecord
	err := s.conn.QueryRow(ctx, functionByNameSQL, name).Scan(
		&fn.ID, &fn.Name, &fn.Kind,
		&fn.Signature, &fn.Docstring,
		&fn.StartLine, &fn.EndLine,
		&fn.FilePath, &fn.RepoName,
	)
	if err == pgxv5.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &fn, nil
}

const callersSQL = `
SELECT c.callee_id, f.id, f.name, COALESCE(f.signature, '')
FROM calls c
JOIN functions f ON f.id = c.caller_id
WHERE c.callee_id = ANY($1::uuid[])
ORDER BY f.name, f.id
`

func (s *GraphDBStore) Callers(ctx context.Context, calleeIDs []string) ([]codegraph.CallerEdge, error) {
	rows, err := s.conn.Query(ctx, callersSQL, calleeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []codegraph.CallerEdge
	for rows.Next() {
		var edge codegraph.CallerEdge
		if err := rows.Scan(&edge.CalleeID, &edge.Caller.ID, &edge.Caller.Name, &edge.Caller.Signature); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}
	return edges, rows.Err()
}

const callCountsSQL = `
SELECT f.id,
       (SELECT COUNT(DISTINCT callee_id) FROM calls WHERE caller_id = f.id),
       (SELECT COUNT(DISTINCT caller_id) FROM calls WHERE callee_id = f.id)
FROM functions f
WHERE f.id = ANY($1::uuid[])
`

func (s *GraphDBStore) CallCounts(ctx context.Context, ids []string) (map[string]codegraph.CallCounts, error) {
	rows, err := s.conn.Query(ctx, callCountsSQL, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]codegraph.CallCounts, len(ids))
	for rows.Next() {
		var id string
		var c codegraph.CallCounts
		if err := rows.Scan(&id, &c.FanOut, &c.FanIn); err != nil {
			return nil, err
		}
		counts[id] = c
	}
	return counts, rows.Err()
}

const repositoryStructureSQL = `
SELECT fl.path, COALESCE(fl.language, ''),
       COALESCE(f.name, ''), COALESCE(f.kind, ''),
       COALESCE(f.signature, ''), COALESCE(f.docstring, ''),
       COALESCE(f.start_line, 0), COALESCE(f.end_line, 0)
FROM files fl
LEFT JOIN functions f ON f.file_id = fl.id
WHERE fl.repo_id = $1::uuid
ORDER BY fl.path, f.start_line, f.name
`

func (s *GraphDBStore) RepositoryStructure(ctx context.Context, repoID string) ([]codegraph.FileStructure, error) {
	rows, err := s.conn.Query(ctx, repositoryStructureSQL, repoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var structure []codegraph.FileStructure
	for rows.Next() {
		var path, language string
		var decl codegraph.Declaration
		if err := rows.Scan(
			&path, &language,
			&decl.Name, &decl.Kind,
			&decl.Signature, &decl.Docstring,
			&decl.StartLine, &decl.EndLine,
		); err != nil {
			return nil, err
		}
		if len(structure) == 0 || structure[len(structure)-1].Path != path {
			structure = append(structure, codegraph.FileStructure{Path: path, Language: language})
		}
		file := &structure[len(structure)-1]
		file.Declarations = append(file.Declarations, decl)
	}
	return structure, rows.Err()
}

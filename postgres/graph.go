package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/blockpipe"
)

// SaveGraph saves a full graph (blocks + links) in one transaction,
// replacing whatever was stored under the same id.
// Nodes/edges without IDs get auto-generated UUIDs and refs are resolved.
func (s *PGStore) SaveGraph(ctx context.Context, g *blockpipe.Graph) (*blockpipe.Graph, error) {
	if err := g.Prepare(); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("blockpipe: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO pipeline_graphs (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET updated_at = NOW()`,
		g.ID,
	); err != nil {
		return nil, fmt.Errorf("blockpipe: upsert graph %s: %w", g.ID, err)
	}
	if err := deleteContents(ctx, tx, g.ID); err != nil {
		return nil, err
	}

	for i, n := range g.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_blocks (id, graph_id, position, data) VALUES ($1, $2, $3, $4)`,
			n.ID, g.ID, i, jsonb(n.Data),
		); err != nil {
			return nil, fmt.Errorf("blockpipe: insert block %s: %w", n.ID, err)
		}
	}

	for i, e := range g.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO pipeline_links (id, graph_id, position, from_block_id, to_block_id, data) VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, g.ID, i, e.FromNodeID, e.ToNodeID, jsonb(e.Data),
		); err != nil {
			return nil, fmt.Errorf("blockpipe: insert link %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("blockpipe: commit: %w", err)
	}
	return g, nil
}

// GetGraph retrieves a full graph by its ID.
// Returns nil, nil if the graph was never saved. A saved graph with no
// blocks comes back with empty node and edge lists.
func (s *PGStore) GetGraph(ctx context.Context, graphID string) (*blockpipe.Graph, error) {
	g := &blockpipe.Graph{Nodes: []blockpipe.Node{}, Edges: []blockpipe.Edge{}}

	err := s.db.QueryRow(ctx, `SELECT id FROM pipeline_graphs WHERE id = $1`, graphID).Scan(&g.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("blockpipe: query graph: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, data FROM pipeline_blocks WHERE graph_id = $1 ORDER BY position`, graphID)
	if err != nil {
		return nil, fmt.Errorf("blockpipe: query blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var n blockpipe.Node
		if err := rows.Scan(&n.ID, &n.Data); err != nil {
			return nil, fmt.Errorf("blockpipe: scan block: %w", err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blockpipe: rows blocks: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, from_block_id, to_block_id, data FROM pipeline_links WHERE graph_id = $1 ORDER BY position`, graphID)
	if err != nil {
		return nil, fmt.Errorf("blockpipe: query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e blockpipe.Edge
		if err := rows.Scan(&e.ID, &e.FromNodeID, &e.ToNodeID, &e.Data); err != nil {
			return nil, fmt.Errorf("blockpipe: scan link: %w", err)
		}
		g.Edges = append(g.Edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blockpipe: rows links: %w", err)
	}

	return g, nil
}

// DeleteGraph removes the graph with its blocks and links.
// No error if the graphID doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, graphID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("blockpipe: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteGraph(ctx, tx, graphID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListGraphs returns the ids of every stored graph.
func (s *PGStore) ListGraphs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM pipeline_graphs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("blockpipe: list graphs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("blockpipe: scan graph id: %w", err)
	}
	return ids, nil
}

func deleteGraph(ctx context.Context, tx pgx.Tx, graphID string) error {
	if err := deleteContents(ctx, tx, graphID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_graphs WHERE id = $1`, graphID); err != nil {
		return fmt.Errorf("blockpipe: delete graph: %w", err)
	}
	return nil
}

// deleteContents clears blocks and links but keeps the graph row.
func deleteContents(ctx context.Context, tx pgx.Tx, graphID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_links WHERE graph_id = $1`, graphID); err != nil {
		return fmt.Errorf("blockpipe: delete links: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM pipeline_blocks WHERE graph_id = $1`, graphID); err != nil {
		return fmt.Errorf("blockpipe: delete blocks: %w", err)
	}
	return nil
}

// jsonb keeps NOT NULL data columns happy for edges saved without payload.
func jsonb(data json.RawMessage) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage(`{}`)
	}
	return data
}

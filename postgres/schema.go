package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pipeline_graphs (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS pipeline_blocks (
    graph_id   TEXT NOT NULL REFERENCES pipeline_graphs(id) ON DELETE CASCADE,
    id         TEXT NOT NULL,
    position   INTEGER NOT NULL,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS pipeline_links (
    graph_id      TEXT NOT NULL,
    id            TEXT NOT NULL,
    position      INTEGER NOT NULL,
    from_block_id TEXT NOT NULL,
    to_block_id   TEXT NOT NULL,
    data          JSONB NOT NULL DEFAULT '{}',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (graph_id, id),
    FOREIGN KEY (graph_id, from_block_id) REFERENCES pipeline_blocks(graph_id, id) ON DELETE CASCADE,
    FOREIGN KEY (graph_id, to_block_id)   REFERENCES pipeline_blocks(graph_id, id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_pipeline_blocks_position ON pipeline_blocks(graph_id, position);
CREATE INDEX IF NOT EXISTS idx_pipeline_links_position  ON pipeline_links(graph_id, position);
`

// CreateSchema creates the pipeline_graphs, pipeline_blocks and pipeline_links
// tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all three tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS pipeline_links, pipeline_blocks, pipeline_graphs CASCADE;`)
	return err
}

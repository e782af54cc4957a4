package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/vita-labs/recallai/internal/domain"
)

// RedactionMarker overwrites chunk text on redaction; the embedding is kept
// so retrieval patterns stay stable.
const RedactionMarker = "[REDACTED]"

// ChunkRepository persists embedded chunks in the pgvector-backed store.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// UpsertChunks writes chunks keyed by chunk_id. Re-inserting the same ID
// overwrites, so a retried unit converges instead of duplicating.
func (r *ChunkRepository) UpsertChunks(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO chunks
				(chunk_id, source_unit_ids, channel_id, thread_id, author_id, roles, allowed_channels,
				 content, sequence_index, total_in_group, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (chunk_id) DO UPDATE
			 SET source_unit_ids = EXCLUDED.source_unit_ids,
			     channel_id = EXCLUDED.channel_id,
			     thread_id = EXCLUDED.thread_id,
			     author_id = EXCLUDED.author_id,
			     roles = EXCLUDED.roles,
			     allowed_channels = EXCLUDED.allowed_channels,
			     content = EXCLUDED.content,
			     sequence_index = EXCLUDED.sequence_index,
			     total_in_group = EXCLUDED.total_in_group,
			     embedding = EXCLUDED.embedding`,
			c.ChunkID,
			c.SourceUnitIDs,
			c.ChannelID,
			c.ThreadID,
			c.AuthorID,
			c.Roles,
			c.AllowedChannels,
			c.Text,
			c.SequenceIndex,
			c.TotalInGroup,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// SearchNearest returns the limit nearest chunks by cosine distance along
// with a similarity score in (0,1]. Permission filtering happens in the
// service layer, so callers request a superset of what they need.
func (r *ChunkRepository) SearchNearest(ctx context.Context, embedding []float32, limit int) ([]*domain.ChunkCandidate, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)
	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, source_unit_ids, channel_id, thread_id, author_id, roles, allowed_channels,
		        content, sequence_index, total_in_group, created_at,
		        1.0 / (1.0 + (embedding <=> $1)) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]*domain.ChunkCandidate, 0, limit)
	for rows.Next() {
		var c domain.ChunkCandidate
		if err := rows.Scan(
			&c.ChunkID,
			&c.SourceUnitIDs,
			&c.ChannelID,
			&c.ThreadID,
			&c.AuthorID,
			&c.Roles,
			&c.AllowedChannels,
			&c.Text,
			&c.SequenceIndex,
			&c.TotalInGroup,
			&c.CreatedAt,
			&c.Score,
		); err != nil {
			return nil, err
		}
		candidates = append(candidates, &c)
	}
	return candidates, rows.Err()
}

// DeleteByUnitID removes every chunk that carries unitID in its provenance.
// Returns the number of chunks removed.
func (r *ChunkRepository) DeleteByUnitID(ctx context.Context, unitID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE $1 = ANY(source_unit_ids)`,
		unitID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RedactByUnitID overwrites the stored text of every chunk derived from
// unitID while preserving the embedding vector.
func (r *ChunkRepository) RedactByUnitID(ctx context.Context, unitID string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE chunks SET content = $2 WHERE $1 = ANY(source_unit_ids)`,
		unitID, RedactionMarker,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// CountByUnitID reports how many stored chunks reference unitID.
func (r *ChunkRepository) CountByUnitID(ctx context.Context, unitID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM chunks WHERE $1 = ANY(source_unit_ids)`,
		unitID,
	).Scan(&count)
	return count, err
}

// TruncateAll drops every stored chunk. Used by the index clear admin
// command only.
func (r *ChunkRepository) TruncateAll(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `TRUNCATE chunks`)
	return err
}

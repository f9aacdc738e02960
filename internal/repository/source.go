package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
)

type SourceRepository struct {
	db dbtx
}

func NewSourceRepository(pool *pgxpool.Pool) *SourceRepository {
	return &SourceRepository{db: pool}
}

func NewSourceRepositoryWithTx(tx pgx.Tx) *SourceRepository {
	return &SourceRepository{db: tx}
}

func (r *SourceRepository) Create(ctx context.Context, s *domain.Source) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO sources (id, type, title, raw_text, source_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Type, s.Title, s.RawText, nullableString(s.SourceURL), s.CreatedAt,
	)
	return err
}

func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var s domain.Source
	var url *string
	err := r.db.QueryRow(ctx,
		`SELECT id, type, title, raw_text, source_url, created_at
		 FROM sources WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Type, &s.Title, &s.RawText, &url, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, err
	}
	if url != nil {
		s.SourceURL = *url
	}
	return &s, nil
}

// List returns every stored source in insertion order, oldest first.
func (r *SourceRepository) List(ctx context.Context) ([]*domain.Source, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, type, title, raw_text, source_url, created_at
		 FROM sources ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSourceRows(rows)
}

// ExistingIDs reports which of the given source IDs are present. Unknown
// IDs are simply absent from the result.
func (r *SourceRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := r.db.Query(ctx,
		`SELECT id FROM sources WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	return found, rows.Err()
}

func scanSourceRows(rows pgx.Rows) ([]*domain.Source, error) {
	var out []*domain.Source
	for rows.Next() {
		var s domain.Source
		var url *string
		if err := rows.Scan(&s.ID, &s.Type, &s.Title, &s.RawText, &url, &s.CreatedAt); err != nil {
			return nil, err
		}
		if url != nil {
			s.SourceURL = *url
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

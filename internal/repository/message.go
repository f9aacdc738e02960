package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
)

type MessageRepository struct {
	db   dbtx
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool, pool: pool}
}

func NewMessageRepositoryWithTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, question, answer, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Question, nullableString(m.Answer), m.Status, m.CreatedAt,
	)
	return err
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	var answer *string
	err := r.db.QueryRow(ctx,
		`SELECT id, question, answer, status, created_at
		 FROM messages WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Question, &answer, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	if answer != nil {
		m.Answer = *answer
	}

	m.Citations, err = r.citationsFor(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// List returns every message oldest first, each with its citations in
// citation order.
func (r *MessageRepository) List(ctx context.Context) ([]*domain.Message, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, question, answer, status, created_at
		 FROM messages ORDER BY created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Message
	byID := map[string]*domain.Message{}
	for rows.Next() {
		var m domain.Message
		var answer *string
		if err := rows.Scan(&m.ID, &m.Question, &answer, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		if answer != nil {
			m.Answer = *answer
		}
		out = append(out, &m)
		byID[m.ID] = &m
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := r.db.Query(ctx,
		`SELECT message_id, source_id, snippet, citation_index, created_at
		 FROM citations ORDER BY message_id, citation_index ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer crows.Close()
	for crows.Next() {
		var c domain.Citation
		if err := crows.Scan(&c.MessageID, &c.SourceID, &c.Snippet, &c.CitationIndex, &c.CreatedAt); err != nil {
			return nil, err
		}
		if m, ok := byID[c.MessageID]; ok {
			m.Citations = append(m.Citations, &c)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Finalize stores the answer and its citations atomically and flips the
// message to answered. A partial write never becomes visible.
func (r *MessageRepository) Finalize(ctx context.Context, messageID, answer string, citations []*domain.Citation) error {
	if r.pool == nil {
		return errors.New("finalize requires a pool-backed repository")
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`UPDATE messages SET answer = $1, status = $2 WHERE id = $3`,
		answer, domain.MessageStatusAnswered, messageID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}

	for _, c := range citations {
		_, err := tx.Exec(ctx,
			`INSERT INTO citations (message_id, source_id, snippet, citation_index, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			c.MessageID, c.SourceID, c.Snippet, c.CitationIndex, c.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// MarkFailed flips a message to failed. Used when the answer pipeline
// dies after the row was created.
func (r *MessageRepository) MarkFailed(ctx context.Context, messageID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages SET status = $1 WHERE id = $2`,
		domain.MessageStatusFailed, messageID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) citationsFor(ctx context.Context, messageID string) ([]*domain.Citation, error) {
	rows, err := r.db.Query(ctx,
		`SELECT message_id, source_id, snippet, citation_index, created_at
		 FROM citations WHERE message_id = $1 ORDER BY citation_index ASC`,
		messageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Citation
	for rows.Next() {
		var c domain.Citation
		if err := rows.Scan(&c.MessageID, &c.SourceID, &c.Snippet, &c.CitationIndex, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

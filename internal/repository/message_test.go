//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sourcebook-ai/sourcebook/internal/domain"
	"github.com/sourcebook-ai/sourcebook/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_CreatePending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMessageRepository(pool)

	m := domain.NewMessage(uuid.NewString(), "What is chunking?", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, m))

	retrieved, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, m.Question, retrieved.Question)
	assert.Equal(t, domain.MessageStatusPending, retrieved.Status)
	assert.Empty(t, retrieved.Answer)
	assert.Empty(t, retrieved.Citations)
}

func TestMessageRepository_Finalize(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	repo := NewMessageRepository(pool)

	src := newTestSource(domain.SourceTypeNote, "Cited Source")
	require.NoError(t, sourceRepo.Create(ctx, src))

	m := domain.NewMessage(uuid.NewString(), "Question?", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, m))

	now := time.Now().UTC().Truncate(time.Microsecond)
	citations := []*domain.Citation{
		{MessageID: m.ID, SourceID: src.ID, Snippet: "first snippet", CitationIndex: 1, CreatedAt: now},
		{MessageID: m.ID, SourceID: src.ID, Snippet: "second snippet", CitationIndex: 2, CreatedAt: now},
	}
	require.NoError(t, repo.Finalize(ctx, m.ID, "The answer.", citations))

	retrieved, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusAnswered, retrieved.Status)
	assert.Equal(t, "The answer.", retrieved.Answer)
	require.Len(t, retrieved.Citations, 2)
	assert.Equal(t, 1, retrieved.Citations[0].CitationIndex)
	assert.Equal(t, "first snippet", retrieved.Citations[0].Snippet)
	assert.Equal(t, 2, retrieved.Citations[1].CitationIndex)
}

func TestMessageRepository_Finalize_RollsBackOnBadCitation(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMessageRepository(pool)

	m := domain.NewMessage(uuid.NewString(), "Question?", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, m))

	// Citation references a source that does not exist, so the FK fails
	// and the answer update must roll back with it.
	bad := []*domain.Citation{
		{MessageID: m.ID, SourceID: uuid.NewString(), Snippet: "dangling", CitationIndex: 1, CreatedAt: time.Now().UTC()},
	}
	err := repo.Finalize(ctx, m.ID, "Should not persist.", bad)
	require.Error(t, err)

	retrieved, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusPending, retrieved.Status)
	assert.Empty(t, retrieved.Answer)
	assert.Empty(t, retrieved.Citations)
}

func TestMessageRepository_Finalize_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMessageRepository(pool)

	err := repo.Finalize(ctx, uuid.NewString(), "answer", nil)
	assert.ErrorIs(t, err, domain.ErrMessageNotFound)
}

func TestMessageRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMessageRepository(pool)

	m := domain.NewMessage(uuid.NewString(), "Doomed question", time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, repo.Create(ctx, m))
	require.NoError(t, repo.MarkFailed(ctx, m.ID))

	retrieved, err := repo.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageStatusFailed, retrieved.Status)
}

func TestMessageRepository_List_OldestFirstWithCitations(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	sourceRepo := NewSourceRepository(pool)
	repo := NewMessageRepository(pool)

	src := newTestSource(domain.SourceTypeNote, "Cited Source")
	require.NoError(t, sourceRepo.Create(ctx, src))

	base := time.Now().UTC().Truncate(time.Microsecond)

	older := domain.NewMessage(uuid.NewString(), "Older question", base.Add(-time.Hour))
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Finalize(ctx, older.ID, "Older answer.", []*domain.Citation{
		{MessageID: older.ID, SourceID: src.ID, Snippet: "snippet", CitationIndex: 1, CreatedAt: base},
	}))

	newer := domain.NewMessage(uuid.NewString(), "Newer question", base)
	require.NoError(t, repo.Create(ctx, newer))

	messages, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Older question", messages[0].Question)
	require.Len(t, messages[0].Citations, 1)
	assert.Equal(t, src.ID, messages[0].Citations[0].SourceID)
	assert.Equal(t, "Newer question", messages[1].Question)
	assert.Equal(t, domain.MessageStatusPending, messages[1].Status)
}

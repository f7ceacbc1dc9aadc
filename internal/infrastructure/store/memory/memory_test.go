package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdictapp/backend/internal/domain"
)

func TestStore_FindCandidates(t *testing.T) {
	ctx := context.Background()
	store := New(
		domain.ProductRow{ID: 5, Name: "Oat Milk", UPC: "111111111111"},
		domain.ProductRow{ID: 2, Name: "Almond MILK"},
		domain.ProductRow{ID: 9, Name: "Greek Yogurt"},
	)

	t.Run("name terms match case-insensitively in ID order", func(t *testing.T) {
		rows, err := store.FindCandidates(ctx, domain.CandidateQuery{NameTerms: []string{"milk"}, Limit: 50})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, int64(2), rows[0].ID)
		assert.Equal(t, int64(5), rows[1].ID)
	})

	t.Run("any term matches", func(t *testing.T) {
		rows, err := store.FindCandidates(ctx, domain.CandidateQuery{NameTerms: []string{"yogurt", "oat"}, Limit: 50})
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("limit caps rows", func(t *testing.T) {
		rows, err := store.FindCandidates(ctx, domain.CandidateQuery{NameTerms: []string{"milk"}, Limit: 1})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, int64(2), rows[0].ID)
	})

	t.Run("UPC equality", func(t *testing.T) {
		rows, err := store.FindCandidates(ctx, domain.CandidateQuery{UPC: "111111111111", Limit: 1})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Oat Milk", rows[0].Name)
	})

	t.Run("no match returns empty slice", func(t *testing.T) {
		rows, err := store.FindCandidates(ctx, domain.CandidateQuery{UPC: "0", Limit: 1})
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	})

	t.Run("rejects invalid query", func(t *testing.T) {
		_, err := store.FindCandidates(ctx, domain.CandidateQuery{})
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	})
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := New(domain.ProductRow{ID: 3, Name: "Oat Milk"})

	created, err := store.Create(ctx, domain.ProductRow{Name: "Soy Milk", Brand: "Silk"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, domain.StatusDraft, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, *created, *got)

	_, err = store.GetByID(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 2, store.Len())
}

func TestNew_AssignsIDs(t *testing.T) {
	store := New(domain.ProductRow{Name: "A"}, domain.ProductRow{ID: 7, Name: "B"}, domain.ProductRow{Name: "C"})

	ids := []int64{}
	for _, row := range store.rows {
		ids = append(ids, row.ID)
	}
	assert.Equal(t, []int64{7, 8, 9}, ids)
}

func TestStore_ListAfter(t *testing.T) {
	store := New(domain.ProductRow{ID: 1, Name: "A"}, domain.ProductRow{ID: 4, Name: "B"}, domain.ProductRow{ID: 6, Name: "C"})

	rows, err := store.ListAfter(context.Background(), 1, 5)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(4), rows[0].ID)

	rows, err = store.ListAfter(context.Background(), 6, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

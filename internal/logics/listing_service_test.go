package logics_test

import (
	"context"
	"fmt"
	"testing"

	"dopple-server/internal/apperrors"
	"dopple-server/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paginationOf(pageSize int, pageToken string) utils.CursorPagination {
	return utils.CursorPagination{PageSize: pageSize, PageToken: pageToken}
}

func TestListChildrenOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent := env.mustFolder(t, 1, "Parent", nil)
	fileB := env.mustFile(t, 1, "b.txt", &parent.ID)
	folderZ := env.mustFolder(t, 1, "Zoo", &parent.ID)
	fileA := env.mustFile(t, 1, "a.txt", &parent.ID)
	folderA := env.mustFolder(t, 1, "Apps", &parent.ID)

	result, err := env.listing.ListChildren(ctx, 1, &parent.ID, paginationOf(0, ""))
	require.NoError(t, err)
	require.Len(t, result.Items, 4)
	assert.False(t, result.Pagination.HasMore)
	assert.Empty(t, result.Pagination.NextPageToken)

	ids := make([]int64, 0, 4)
	for _, item := range result.Items {
		ids = append(ids, item.ID)
	}
	// Folders first, each tier name-ordered.
	assert.Equal(t, []int64{folderA.ID, folderZ.ID, fileA.ID, fileB.ID}, ids)
}

func TestListChildrenPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent := env.mustFolder(t, 1, "Parent", nil)

	expected := make([]int64, 0, 9)
	for i := 0; i < 3; i++ {
		folder := env.mustFolder(t, 1, fmt.Sprintf("dir-%02d", i), &parent.ID)
		expected = append(expected, folder.ID)
	}
	for i := 0; i < 6; i++ {
		file := env.mustFile(t, 1, fmt.Sprintf("file-%02d.txt", i), &parent.ID)
		expected = append(expected, file.ID)
	}

	// Walk all pages; every child appears exactly once, in order.
	var collected []int64
	token := ""
	pages := 0
	for {
		result, err := env.listing.ListChildren(ctx, 1, &parent.ID, paginationOf(4, token))
		require.NoError(t, err)
		pages++
		for _, item := range result.Items {
			collected = append(collected, item.ID)
		}
		if !result.Pagination.HasMore {
			break
		}
		require.NotEmpty(t, result.Pagination.NextPageToken)
		token = result.Pagination.NextPageToken
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, expected, collected)
}

func TestListChildrenMalformedTokenStartsOver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	parent := env.mustFolder(t, 1, "Parent", nil)
	first := env.mustFile(t, 1, "a.txt", &parent.ID)
	env.mustFile(t, 1, "b.txt", &parent.ID)

	result, err := env.listing.ListChildren(ctx, 1, &parent.ID, paginationOf(1, "not-a-valid-token"))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, first.ID, result.Items[0].ID)
}

func TestListChildrenScoping(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine := env.mustFile(t, 1, "mine.txt", nil)
	env.mustFile(t, 2, "theirs.txt", nil)
	deleted := env.mustFile(t, 1, "gone.txt", nil)
	require.NoError(t, env.items.Delete(ctx, 1, deleted.ID))

	result, err := env.listing.ListChildren(ctx, 1, nil, paginationOf(0, ""))
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, mine.ID, result.Items[0].ID)
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustFolder(t, 1, "Reports", nil)
	env.mustFile(t, 1, "annual-report.pdf", nil)
	env.mustFile(t, 1, "notes.txt", nil)
	env.mustFile(t, 2, "report-other-owner.pdf", nil)

	t.Run("case-insensitive substring", func(t *testing.T) {
		items, err := env.listing.Search(ctx, 1, "REPORT")
		require.NoError(t, err)
		require.Len(t, items, 2)
		// Folder tier first.
		assert.Equal(t, "Reports", items[0].Name)
		assert.Equal(t, "annual-report.pdf", items[1].Name)
	})

	t.Run("too short returns nothing", func(t *testing.T) {
		items, err := env.listing.Search(ctx, 1, "r")
		require.NoError(t, err)
		assert.Empty(t, items)

		items, err = env.listing.Search(ctx, 1, "  x  ")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("excludes deleted items", func(t *testing.T) {
		doomed := env.mustFile(t, 1, "doomed-report.txt", nil)
		require.NoError(t, env.items.Delete(ctx, 1, doomed.ID))

		items, err := env.listing.Search(ctx, 1, "doomed")
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("capped result count", func(t *testing.T) {
		folder := env.mustFolder(t, 1, "Bulk", nil)
		for i := 0; i < 10; i++ {
			env.mustFile(t, 1, fmt.Sprintf("bulk-%02d.txt", i), &folder.ID)
		}
		items, err := env.listing.Search(ctx, 1, "bulk")
		require.NoError(t, err)
		assert.Len(t, items, 7)
	})
}

func TestBreadcrumb(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	root := env.mustFolder(t, 1, "Root", nil)
	mid := env.mustFolder(t, 1, "Mid", &root.ID)
	leaf := env.mustFile(t, 1, "leaf.txt", &mid.ID)

	t.Run("root to leaf order", func(t *testing.T) {
		crumbs, err := env.listing.Breadcrumb(ctx, 1, leaf.ID)
		require.NoError(t, err)
		require.Len(t, crumbs, 3)
		assert.Equal(t, "Root", crumbs[0].Name)
		assert.Equal(t, "Mid", crumbs[1].Name)
		assert.Equal(t, "leaf.txt", crumbs[2].Name)
	})

	t.Run("single element for a root item", func(t *testing.T) {
		crumbs, err := env.listing.Breadcrumb(ctx, 1, root.ID)
		require.NoError(t, err)
		require.Len(t, crumbs, 1)
		assert.Equal(t, root.ID, crumbs[0].ID)
	})

	t.Run("other owner is forbidden", func(t *testing.T) {
		_, err := env.listing.Breadcrumb(ctx, 2, leaf.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))
	})

	t.Run("deleted item is not found", func(t *testing.T) {
		doomed := env.mustFile(t, 1, "doomed.txt", nil)
		require.NoError(t, env.items.Delete(ctx, 1, doomed.ID))

		_, err := env.listing.Breadcrumb(ctx, 1, doomed.ID)
		require.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	})
}

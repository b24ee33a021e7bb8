package repository

import (
	"context"
	"testing"

	"animeverse/internal/models"
	"animeverse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewsletterRepository_Subscribe(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewNewsletterRepository(db)
	ctx := context.Background()

	outcome, err := repo.Subscribe(ctx, "fan@example.com")
	require.NoError(t, err)
	assert.Equal(t, Subscribed, outcome)

	outcome, err = repo.Subscribe(ctx, "fan@example.com")
	require.NoError(t, err)
	assert.Equal(t, AlreadySubscribed, outcome)

	var count int64
	require.NoError(t, db.Model(&models.Newsletter{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var row models.Newsletter
	require.NoError(t, db.Where("email = ?", "fan@example.com").First(&row).Error)
	require.NoError(t, repo.SetActive(ctx, row.ID, false))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	outcome, err = repo.Subscribe(ctx, "fan@example.com")
	require.NoError(t, err)
	assert.Equal(t, Reactivated, outcome)

	active, err = repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "fan@example.com", active[0].Email)
}

func TestContactRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewContactRepository(db)
	ctx := context.Background()

	msg := &models.Contact{Name: "Ann", Email: "ann@example.com", Subject: "Hi", Message: "Please review Frieren.", IsRead: true}
	require.NoError(t, repo.Create(ctx, msg))
	assert.False(t, msg.IsRead)

	unread, err := repo.ListUnread(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, repo.MarkRead(ctx, msg.ID, true))
	unread, err = repo.ListUnread(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, unread)

	err = repo.MarkRead(ctx, 999, true)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeNotFound, appErr.Code)
}

package main

import (
	"bytes"
	"context"
	"testing"

	"animeverse/internal/config"
	"animeverse/internal/database"
	"animeverse/internal/models"
	"animeverse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMigrator(t *testing.T, seed bool) (*migrator, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &migrator{
		db:   testutil.NewTestDB(t),
		cfg:  &config.Config{Env: "test"},
		out:  &out,
		seed: seed,
	}, &out
}

func TestMigrator_List(t *testing.T) {
	m, out := newTestMigrator(t, false)
	ctx := context.Background()

	require.NoError(t, m.run(ctx, []string{"list"}))
	all := database.GetMigrations()
	require.NotEmpty(t, all)
	for _, mig := range all {
		assert.Contains(t, out.String(), "[pending] "+mig.String())
	}

	require.NoError(t, m.db.AutoMigrate(&database.MigrationLog{}))
	require.NoError(t, m.db.Create(&database.MigrationLog{Version: all[0].Version, Name: all[0].Name}).Error)

	out.Reset()
	require.NoError(t, m.run(ctx, []string{"LIST"}))
	assert.Contains(t, out.String(), "[applied] "+all[0].String())
	if len(all) > 1 {
		assert.Contains(t, out.String(), "[pending] "+all[1].String())
	}
}

func TestMigrator_AutoWithSeed(t *testing.T) {
	m, out := newTestMigrator(t, true)
	ctx := context.Background()

	require.NoError(t, m.run(ctx, []string{"auto"}))
	assert.Contains(t, out.String(), "automigrations applied")
	assert.Contains(t, out.String(), "demo content ready")

	var posts int64
	require.NoError(t, m.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Positive(t, posts)

	require.NoError(t, m.run(ctx, []string{"auto"}))
	var again int64
	require.NoError(t, m.db.Model(&models.Post{}).Count(&again).Error)
	assert.Equal(t, posts, again, "seeding only fills an empty site")
}

func TestMigrator_AutoWithoutSeed(t *testing.T) {
	m, out := newTestMigrator(t, false)

	require.NoError(t, m.run(context.Background(), []string{"auto"}))
	assert.NotContains(t, out.String(), "demo content")

	var posts int64
	require.NoError(t, m.db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, posts)
}

func TestMigrator_Errors(t *testing.T) {
	m, _ := newTestMigrator(t, false)
	ctx := context.Background()

	assert.EqualError(t, m.run(ctx, nil), usageLine)
	assert.ErrorContains(t, m.run(ctx, []string{"sideways"}), `unknown command "sideways"`)
	assert.EqualError(t, m.run(ctx, []string{"down"}), "no applied migrations to roll back")
	assert.ErrorContains(t, m.run(ctx, []string{"down", "abc"}), `invalid version "abc"`)
	assert.ErrorContains(t, m.run(ctx, []string{"down", "999"}), "not found")
}

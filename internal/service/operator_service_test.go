package service

import (
	"context"
	"testing"

	"animeverse/internal/models"
	"animeverse/internal/repository"
	"animeverse/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperatorService_CreateOperator(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewOperatorService(repository.NewUserRepository(db))
	ctx := context.Background()

	user, err := svc.CreateOperator(ctx, CreateOperatorInput{
		Username: " kaori ", Email: "Kaori@Example.com", Password: "Str0ng!Passw0rd", Staff: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "kaori", user.Username)
	assert.Equal(t, "kaori@example.com", user.Email)
	assert.True(t, user.IsStaff)
	assert.NotEqual(t, "Str0ng!Passw0rd", user.Password)

	tests := []struct {
		name string
		in   CreateOperatorInput
	}{
		{"duplicate username", CreateOperatorInput{Username: "kaori", Password: "Str0ng!Passw0rd"}},
		{"weak password", CreateOperatorInput{Username: "kousei", Password: "password"}},
		{"bad username", CreateOperatorInput{Username: "-x-", Password: "Str0ng!Passw0rd"}},
		{"bad email", CreateOperatorInput{Username: "tsubaki", Email: "nope", Password: "Str0ng!Passw0rd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOperator(ctx, tt.in)
			assertCode(t, err, models.CodeValidation)
		})
	}
}

func TestOperatorService_Authenticate(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewOperatorService(repository.NewUserRepository(db))
	ctx := context.Background()
	op := testutil.CreateOperator(t, db, "editor")

	user, err := svc.Authenticate(ctx, "editor", "password123")
	require.NoError(t, err)
	assert.Equal(t, op.ID, user.ID)

	_, err = svc.Authenticate(ctx, "editor", "wrong")
	assertCode(t, err, models.CodeUnauthorized)
	_, err = svc.Authenticate(ctx, "ghost", "password123")
	assertCode(t, err, models.CodeUnauthorized)

	found, err := svc.GetByID(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", found.Username)
}

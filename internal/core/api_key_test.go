package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyService_Create(t *testing.T) {
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	svc := NewAPIKeyService(db)

	key, rawKey, err := svc.Create(context.Background(), "ci-pipeline")
	require.NoError(t, err)

	assert.Equal(t, "ci-pipeline", key.Name)
	assert.NotEmpty(t, key.ID)
	assert.True(t, strings.HasPrefix(rawKey, "dsk_"))
	assert.Equal(t, rawKey[:12], key.KeyPrefix)
	assert.Empty(t, key.KeyHash, "raw hash must not leak through the model")
	assert.Nil(t, key.RevokedAt)

	// The stored hash must match what the auth middleware computes from
	// the presented key.
	hash := sha256.Sum256([]byte(rawKey))
	db.AssertCalled(t, "Exec", mock.Anything, mock.AnythingOfType("string"),
		[]any{key.ID, "ci-pipeline", hex.EncodeToString(hash[:]), key.KeyPrefix})
}

func TestAPIKeyService_Create_Unique(t *testing.T) {
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.NewCommandTag("INSERT 0 1"), nil)
	svc := NewAPIKeyService(db)

	_, first, err := svc.Create(context.Background(), "a")
	require.NoError(t, err)
	_, second, err := svc.Create(context.Background(), "b")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestAPIKeyService_Create_InsertFails(t *testing.T) {
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(pgconn.CommandTag{}, errors.New("connection refused"))
	svc := NewAPIKeyService(db)

	_, _, err := svc.Create(context.Background(), "broken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert api key")
}

func TestAPIKeyService_Revoke(t *testing.T) {
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"key-1"}).
		Return(pgconn.NewCommandTag("UPDATE 1"), nil)
	svc := NewAPIKeyService(db)

	require.NoError(t, svc.Revoke(context.Background(), "key-1"))
}

func TestAPIKeyService_Revoke_AlreadyRevoked(t *testing.T) {
	db := &mockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), []any{"key-1"}).
		Return(pgconn.NewCommandTag("UPDATE 0"), nil)
	svc := NewAPIKeyService(db)

	err := svc.Revoke(context.Background(), "key-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or already revoked")
}

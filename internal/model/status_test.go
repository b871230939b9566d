package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusConstants(t *testing.T) {
	assert.Equal(t, "pending", StatusPending)
	assert.Equal(t, "deploying", StatusDeploying)
	assert.Equal(t, "deployed", StatusDeployed)
	assert.Equal(t, "failed", StatusFailed)
	assert.Equal(t, "stopped", StatusStopped)
	assert.Equal(t, "deleting", StatusDeleting)
	assert.Equal(t, "deleted", StatusDeleted)
}

func TestEnvVarMasked(t *testing.T) {
	secret := EnvVar{Key: "POSTGRES_PASSWORD", Value: "hunter2", IsSecret: true}
	assert.Equal(t, SecretMask, secret.Masked().Value)
	// Masked returns a copy; the original keeps the raw value.
	assert.Equal(t, "hunter2", secret.Value)

	plain := EnvVar{Key: "POSTGRES_DB", Value: "app", IsSecret: false}
	assert.Equal(t, "app", plain.Masked().Value)
}

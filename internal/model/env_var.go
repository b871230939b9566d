package model

import "time"

// SecretMask replaces secret values in API responses.
const SecretMask = "***HIDDEN***"

// EnvVar is one environment variable attached to a deployment. Values with
// IsSecret set are never echoed back in plaintext.
type EnvVar struct {
	ID           string    `json:"id" db:"id"`
	DeploymentID string    `json:"deployment_id" db:"deployment_id"`
	Key          string    `json:"key" db:"key"`
	Value        string    `json:"value" db:"value"`
	IsSecret     bool      `json:"is_secret" db:"is_secret"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Masked returns a copy with the value hidden when the variable is secret.
func (e EnvVar) Masked() EnvVar {
	if e.IsSecret {
		e.Value = SecretMask
	}
	return e
}

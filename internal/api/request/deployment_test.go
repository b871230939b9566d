package request

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/deploystack/internal/model"
)

func decodeCreate(t *testing.T, body string) (CreateDeployment, error) {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/deploy/postgres", strings.NewReader(body))
	var req CreateDeployment
	err := Decode(r, &req)
	return req, err
}

func TestCreateDeploymentDecode_Valid(t *testing.T) {
	req, err := decodeCreate(t, `{
		"image": "postgres",
		"tag": "17",
		"containerName": "orders-db",
		"port": 30500,
		"pvcSize": 5,
		"envVars": {"POSTGRES_USER": "orders"}
	}`)
	require.NoError(t, err)
	assert.Equal(t, "postgres", req.Image)
	assert.Equal(t, "17", req.Tag)
	assert.Equal(t, 30500, req.Port)
	assert.Equal(t, 5, req.PVCSize)
}

func TestCreateDeploymentDecode_MissingImage(t *testing.T) {
	_, err := decodeCreate(t, `{"tag": "17"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestCreateDeploymentDecode_MissingTag(t *testing.T) {
	_, err := decodeCreate(t, `{"image": "postgres"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestCreateDeploymentDecode_BadContainerName(t *testing.T) {
	_, err := decodeCreate(t, `{"image": "postgres", "tag": "17", "containerName": "Not A Slug"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation error")
}

func TestCreateDeploymentDecode_InvalidJSON(t *testing.T) {
	_, err := decodeCreate(t, `{"image": `)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestValidateEnvVars(t *testing.T) {
	cases := []struct {
		name    string
		appType string
		envVars map[string]string
		wantErr string
	}{
		{
			name:    "postgres credentials accepted",
			appType: model.AppTypePostgres,
			envVars: map[string]string{"POSTGRES_USER": "u", "POSTGRES_PASSWORD": "p", "POSTGRES_DB": "d"},
		},
		{
			name:    "pass-through vars accepted",
			appType: model.AppTypeRedis,
			envVars: map[string]string{"REDIS_PASSWORD": "p", "CUSTOM_FLAG": "1"},
		},
		{
			name:    "redis credential rejected on postgres",
			appType: model.AppTypePostgres,
			envVars: map[string]string{"REDIS_PASSWORD": "p"},
			wantErr: "not valid for postgres",
		},
		{
			name:    "lowercase key rejected",
			appType: model.AppTypePostgres,
			envVars: map[string]string{"postgres_user": "u"},
			wantErr: "invalid environment variable name",
		},
		{
			name:    "renderer-controlled key rejected",
			appType: model.AppTypePostgres,
			envVars: map[string]string{"PGDATA": "/tmp/elsewhere"},
			wantErr: "managed by the platform",
		},
		{
			name:    "PGDATA is not reserved for redis",
			appType: model.AppTypeRedis,
			envVars: map[string]string{"PGDATA": "/ignored"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := CreateDeployment{EnvVars: tc.envVars}
			err := req.ValidateEnvVars(tc.appType)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestSplitEnvVars(t *testing.T) {
	req := CreateDeployment{EnvVars: map[string]string{
		"POSTGRES_USER":     "orders",
		"POSTGRES_PASSWORD": "secret",
		"APP_MODE":          "prod",
	}}

	creds, extra := req.SplitEnvVars(model.AppTypePostgres)

	assert.Equal(t, map[string]string{"POSTGRES_USER": "orders", "POSTGRES_PASSWORD": "secret"}, creds)
	assert.Equal(t, map[string]string{"APP_MODE": "prod"}, extra)
}

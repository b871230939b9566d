package request

import (
	"fmt"
	"regexp"

	"github.com/edvin/deploystack/internal/model"
)

// CreateDeployment is the body of POST /deploy/{type}. Credentials travel
// inside EnvVars under the type's well-known keys; anything missing is
// defaulted or generated server-side.
type CreateDeployment struct {
	Image         string            `json:"image" validate:"required,max=255"`
	Tag           string            `json:"tag" validate:"required,max=128"`
	ContainerName string            `json:"containerName" validate:"omitempty,slug"`
	DisplayName   string            `json:"displayName" validate:"omitempty,max=100"`
	Port          int               `json:"port" validate:"omitempty,min=1,max=65535"`
	PVCSize       int               `json:"pvcSize" validate:"omitempty,min=1,max=1024"`
	EnvVars       map[string]string `json:"envVars"`
}

var envKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Recognized credential keys per application type. These are consumed by the
// workflow rather than passed through verbatim.
var credentialKeys = map[string][]string{
	model.AppTypePostgres: {"POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB"},
	model.AppTypeRedis:    {"REDIS_PASSWORD"},
}

// reservedEnvKeys are set by the manifest renderers themselves; letting a
// request override them would silently redirect the workload's data
// directory.
var reservedEnvKeys = map[string][]string{
	model.AppTypePostgres: {"PGDATA"},
}

// ValidateEnvVars checks the env-var map against the application type:
// credential keys belonging to other types are rejected, keys the renderer
// controls are rejected, and every key must look like an environment
// variable name.
func (r *CreateDeployment) ValidateEnvVars(appType string) error {
	foreign := map[string]string{}
	for otherType, keys := range credentialKeys {
		if otherType == appType {
			continue
		}
		for _, k := range keys {
			foreign[k] = otherType
		}
	}

	reserved := map[string]bool{}
	for _, k := range reservedEnvKeys[appType] {
		reserved[k] = true
	}

	for key := range r.EnvVars {
		if !envKeyRegex.MatchString(key) {
			return fmt.Errorf("invalid environment variable name %q", key)
		}
		if owner, ok := foreign[key]; ok {
			return fmt.Errorf("%s is a %s credential and not valid for %s deployments", key, owner, appType)
		}
		if reserved[key] {
			return fmt.Errorf("%s is managed by the platform and cannot be overridden", key)
		}
	}
	return nil
}

// SplitEnvVars separates the type's credential values from pass-through
// environment variables. The returned map never aliases r.EnvVars.
func (r *CreateDeployment) SplitEnvVars(appType string) (creds map[string]string, extra map[string]string) {
	creds = map[string]string{}
	extra = map[string]string{}

	recognized := map[string]bool{}
	for _, k := range credentialKeys[appType] {
		recognized[k] = true
	}

	for key, value := range r.EnvVars {
		if recognized[key] {
			creds[key] = value
		} else {
			extra[key] = value
		}
	}
	return creds, extra
}

package model

import "time"

// AppType identifies the kind of workload a deployment runs.
const (
	AppTypePostgres = "postgres"
	AppTypeRedis    = "redis"
)

// Deployment is one provisioned stateful workload on the shared cluster.
type Deployment struct {
	ID      string `json:"id" db:"id"`
	OwnerID string `json:"owner_id" db:"owner_id"`

	AppType       string `json:"app_type" db:"app_type"`
	Image         string `json:"image" db:"image"`
	Tag           string `json:"tag" db:"tag"`
	DisplayName   string `json:"display_name,omitempty" db:"display_name"`
	ContainerName string `json:"container_name" db:"container_name"`

	Namespace    string `json:"namespace" db:"namespace"`
	InternalPort int    `json:"internal_port" db:"internal_port"`
	NodePort     int    `json:"node_port" db:"node_port"`
	ExternalURL  string `json:"external_url" db:"external_url"`
	ExternalHost string `json:"external_host" db:"external_host"`

	ArgoCDApp string `json:"argocd_app" db:"argocd_app"`
	ArgoCDURL string `json:"argocd_url" db:"argocd_url"`

	Status       string         `json:"status" db:"status"`
	HealthStatus string         `json:"health_status,omitempty" db:"health_status"`
	LastSyncAt   *time.Time     `json:"last_sync_at,omitempty" db:"last_sync_at"`
	ErrorMessage *string        `json:"error_message,omitempty" db:"error_message"`
	ErrorDetails map[string]any `json:"error_details,omitempty" db:"error_details"`

	Metadata map[string]any `json:"metadata,omitempty" db:"metadata"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DeployedAt *time.Time `json:"deployed_at,omitempty" db:"deployed_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

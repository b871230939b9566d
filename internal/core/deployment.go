package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/deploystack/internal/model"
	"github.com/edvin/deploystack/internal/platform"
)

// ErrDeploymentNotFound is returned for ids that do not exist or were
// already soft-deleted.
var ErrDeploymentNotFound = errors.New("deployment not found")

const deploymentColumns = `id, owner_id, app_type, image, tag, display_name, container_name,
	namespace, internal_port, node_port, external_url, external_host,
	argocd_app, argocd_url, status, health_status, last_sync_at,
	error_message, error_details, metadata,
	created_at, updated_at, deployed_at, deleted_at`

// DeploymentService persists deployment records and their environment
// variables. Rows are never physically removed; deleted_at marks them
// logically gone.
type DeploymentService struct {
	db DB
}

func NewDeploymentService(db DB) *DeploymentService {
	return &DeploymentService{db: db}
}

// Create inserts the deployment row and its environment variable rows. A
// record whose env var insert fails is retired immediately so its node port
// reservation does not outlive the failed request.
func (s *DeploymentService) Create(ctx context.Context, d *model.Deployment, envVars []model.EnvVar) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO deployments (id, owner_id, app_type, image, tag, display_name, container_name,
		   namespace, internal_port, node_port, external_url, external_host,
		   argocd_app, argocd_url, status, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		d.ID, d.OwnerID, d.AppType, d.Image, d.Tag, d.DisplayName, d.ContainerName,
		d.Namespace, d.InternalPort, d.NodePort, d.ExternalURL, d.ExternalHost,
		d.ArgoCDApp, d.ArgoCDURL, d.Status, d.Metadata, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}

	for _, ev := range envVars {
		_, err := s.db.Exec(ctx,
			`INSERT INTO deployment_env_vars (id, deployment_id, key, value, is_secret, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			platform.NewID(), d.ID, ev.Key, ev.Value, ev.IsSecret, d.CreatedAt,
		)
		if err != nil {
			// The unique port index only covers live rows, so the soft
			// delete releases the port for the next allocation.
			if cleanupErr := s.SoftDelete(ctx, d.ID, nil); cleanupErr != nil {
				return fmt.Errorf("insert env var %s: %w (retiring record also failed: %v)", ev.Key, err, cleanupErr)
			}
			return fmt.Errorf("insert env var %s: %w", ev.Key, err)
		}
	}

	return nil
}

// GetByID returns a live (non-soft-deleted) deployment.
func (s *DeploymentService) GetByID(ctx context.Context, id string) (*model.Deployment, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+deploymentColumns+` FROM deployments WHERE id = $1 AND deleted_at IS NULL`, id)

	d, err := scanDeployment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("deployment %s: %w", id, ErrDeploymentNotFound)
		}
		return nil, fmt.Errorf("get deployment %s: %w", id, err)
	}
	return d, nil
}

// ListByOwner returns the caller's live deployments, newest first.
func (s *DeploymentService) ListByOwner(ctx context.Context, ownerID string) ([]model.Deployment, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+deploymentColumns+` FROM deployments
		 WHERE owner_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list deployments for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}
	return deployments, nil
}

// UpdateStatus moves a deployment to the given lifecycle status.
func (s *DeploymentService) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments SET status = $1, updated_at = now() WHERE id = $2 AND deleted_at IS NULL`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("set deployment %s status to %s: %w", id, status, err)
	}
	return nil
}

// MarkDeployed transitions to deployed, stamps deployed_at, and appends the
// apply output to the metadata bag.
func (s *DeploymentService) MarkDeployed(ctx context.Context, id, applyOutput string) error {
	meta := map[string]any{"apply_output": applyOutput}
	_, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $1, deployed_at = now(), updated_at = now(),
		     error_message = NULL, error_details = NULL,
		     metadata = COALESCE(metadata, '{}'::jsonb) || $2
		 WHERE id = $3 AND deleted_at IS NULL`,
		model.StatusDeployed, meta, id,
	)
	if err != nil {
		return fmt.Errorf("mark deployment %s deployed: %w", id, err)
	}
	return nil
}

// MarkFailed transitions to failed with the captured error. The row is
// retained so failed attempts stay auditable.
func (s *DeploymentService) MarkFailed(ctx context.Context, id, message string, details map[string]any) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $1, error_message = $2, error_details = $3, updated_at = now()
		 WHERE id = $4 AND deleted_at IS NULL`,
		model.StatusFailed, message, details, id,
	)
	if err != nil {
		return fmt.Errorf("mark deployment %s failed: %w", id, err)
	}
	return nil
}

// UpdateSyncState records the delivery controller's view and stamps the
// sync time.
func (s *DeploymentService) UpdateSyncState(ctx context.Context, id, status, healthStatus string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $1, health_status = $2, last_sync_at = now(), updated_at = now()
		 WHERE id = $3 AND deleted_at IS NULL`,
		status, healthStatus, id,
	)
	if err != nil {
		return fmt.Errorf("update deployment %s sync state: %w", id, err)
	}
	return nil
}

// SoftDelete marks the row logically deleted and records any teardown
// warnings for operator follow-up.
func (s *DeploymentService) SoftDelete(ctx context.Context, id string, warnings []string) error {
	meta := map[string]any{}
	if len(warnings) > 0 {
		meta["deletion_warnings"] = warnings
	}
	_, err := s.db.Exec(ctx,
		`UPDATE deployments
		 SET status = $1, deleted_at = now(), updated_at = now(),
		     metadata = COALESCE(metadata, '{}'::jsonb) || $2
		 WHERE id = $3 AND deleted_at IS NULL`,
		model.StatusDeleted, meta, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete deployment %s: %w", id, err)
	}
	return nil
}

// EnvVars returns the environment variables of a deployment with raw values.
// Callers serving API responses must mask secrets.
func (s *DeploymentService) EnvVars(ctx context.Context, deploymentID string) ([]model.EnvVar, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, deployment_id, key, value, is_secret, created_at
		 FROM deployment_env_vars WHERE deployment_id = $1 ORDER BY key`, deploymentID)
	if err != nil {
		return nil, fmt.Errorf("list env vars for deployment %s: %w", deploymentID, err)
	}
	defer rows.Close()

	var envVars []model.EnvVar
	for rows.Next() {
		var ev model.EnvVar
		if err := rows.Scan(&ev.ID, &ev.DeploymentID, &ev.Key, &ev.Value, &ev.IsSecret, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan env var: %w", err)
		}
		envVars = append(envVars, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate env vars: %w", err)
	}
	return envVars, nil
}

// InUsePorts returns the node ports held by live deployments.
func (s *DeploymentService) InUsePorts(ctx context.Context) (map[int]bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT node_port FROM deployments WHERE deleted_at IS NULL AND node_port > 0`)
	if err != nil {
		return nil, fmt.Errorf("list in-use ports: %w", err)
	}
	defer rows.Close()

	ports := make(map[int]bool)
	for rows.Next() {
		var port int
		if err := rows.Scan(&port); err != nil {
			return nil, fmt.Errorf("scan port: %w", err)
		}
		ports[port] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ports: %w", err)
	}
	return ports, nil
}

func scanDeployment(row interface{ Scan(dest ...any) error }) (*model.Deployment, error) {
	var d model.Deployment
	err := row.Scan(
		&d.ID, &d.OwnerID, &d.AppType, &d.Image, &d.Tag, &d.DisplayName, &d.ContainerName,
		&d.Namespace, &d.InternalPort, &d.NodePort, &d.ExternalURL, &d.ExternalHost,
		&d.ArgoCDApp, &d.ArgoCDURL, &d.Status, &d.HealthStatus, &d.LastSyncAt,
		&d.ErrorMessage, &d.ErrorDetails, &d.Metadata,
		&d.CreatedAt, &d.UpdatedAt, &d.DeployedAt, &d.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

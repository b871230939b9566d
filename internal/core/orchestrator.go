package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/edvin/deploystack/internal/argocd"
	"github.com/edvin/deploystack/internal/catalog"
	"github.com/edvin/deploystack/internal/credentials"
	"github.com/edvin/deploystack/internal/manifest"
	"github.com/edvin/deploystack/internal/metrics"
	"github.com/edvin/deploystack/internal/model"
	"github.com/edvin/deploystack/internal/platform"
)

// ErrValidation marks request problems rejected before any side effect.
var ErrValidation = errors.New("validation error")

// ManifestApplier sends rendered manifests to the cluster.
type ManifestApplier interface {
	Apply(ctx context.Context, objects []runtime.Object) (string, error)
}

// ClusterTeardown removes a deployment's namespace and everything in it.
type ClusterTeardown interface {
	DeleteNamespace(ctx context.Context, namespace string) error
}

// DeliveryController is the GitOps controller tracking sync and health
// state of deployed applications.
type DeliveryController interface {
	GetApplicationStatus(ctx context.Context, appName string) (argocd.AppStatus, error)
	DeleteApplication(ctx context.Context, appName string) error
}

// Orchestrator composes the allocator, renderer, and clients into the
// create, status-sync, and delete workflows. Each invocation is an
// independent request-scoped unit of work; there is no background
// reconciliation loop.
type Orchestrator struct {
	deployments *DeploymentService
	ports       *PortAllocator
	applier     ManifestApplier
	teardown    ClusterTeardown
	delivery    DeliveryController
	catalog     *catalog.Catalog

	externalHost string
	argocdUIURL  string
	logger       zerolog.Logger
}

func NewOrchestrator(
	deployments *DeploymentService,
	ports *PortAllocator,
	applier ManifestApplier,
	teardown ClusterTeardown,
	delivery DeliveryController,
	cat *catalog.Catalog,
	externalHost, argocdUIURL string,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		deployments:  deployments,
		ports:        ports,
		applier:      applier,
		teardown:     teardown,
		delivery:     delivery,
		catalog:      cat,
		externalHost: externalHost,
		argocdUIURL:  strings.TrimRight(argocdUIURL, "/"),
		logger:       logger,
	}
}

// CreateParams carries a validated deploy request into the create workflow.
type CreateParams struct {
	OwnerID string
	AppType string

	Image         string
	Tag           string
	ContainerName string
	DisplayName   string

	// NodePort optionally requests a specific external port. A taken or
	// out-of-range port falls back to allocation.
	NodePort  int
	PVCSizeGi int

	Username string
	Password string
	Database string

	EnvVars map[string]string
}

// Credentials are returned to the caller exactly once, on create.
type Credentials struct {
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Database string `json:"database,omitempty"`
}

type CreateResult struct {
	Deployment  *model.Deployment
	Credentials Credentials
}

// Create runs the provisioning workflow: allocate a port, persist the
// record, render manifests, and apply them. A failed apply leaves the row
// in failed status for auditing and returns the error.
func (o *Orchestrator) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	app, ok := o.catalog.Lookup(params.AppType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown application type %q (supported: %s)",
			ErrValidation, params.AppType, strings.Join(o.catalog.Types(), ", "))
	}

	var render func(manifest.Config) []runtime.Object
	switch params.AppType {
	case model.AppTypePostgres:
		render = manifest.RenderPostgres
	case model.AppTypeRedis:
		render = manifest.RenderRedis
	default:
		return nil, fmt.Errorf("%w: no renderer for application type %q", ErrValidation, params.AppType)
	}

	if params.Image == "" {
		return nil, fmt.Errorf("%w: image is required", ErrValidation)
	}
	if params.Tag == "" {
		return nil, fmt.Errorf("%w: tag is required", ErrValidation)
	}

	password := params.Password
	if password != "" {
		if result := credentials.ValidateStrength(password); !result.IsStrong {
			return nil, fmt.Errorf("%w: weak password: %s", ErrValidation, strings.Join(result.Errors, "; "))
		}
	} else if app.PasswordRequired {
		var err error
		password, err = credentials.GeneratePassword(credentials.DefaultLength)
		if err != nil {
			return nil, fmt.Errorf("generate password: %w", err)
		}
	}

	username := params.Username
	database := params.Database
	if params.AppType == model.AppTypePostgres {
		if username == "" {
			username = "admin"
		}
		if database == "" {
			database = "app"
		}
	}

	containerName := params.ContainerName
	if containerName == "" {
		containerName = platform.ContainerName(params.Image, params.Tag)
	}
	namespace := platform.NewNamespace(params.AppType)

	port, err := o.ports.Reserve(ctx, params.NodePort)
	if err != nil {
		return nil, err
	}

	pvcSize := params.PVCSizeGi
	if pvcSize == 0 {
		pvcSize = app.DefaultPVCSizeGi
	}

	now := time.Now()
	d := &model.Deployment{
		ID:            platform.NewID(),
		OwnerID:       params.OwnerID,
		AppType:       params.AppType,
		Image:         params.Image,
		Tag:           params.Tag,
		DisplayName:   params.DisplayName,
		ContainerName: containerName,
		Namespace:     namespace,
		InternalPort:  app.InternalPort,
		NodePort:      port,
		ExternalURL:   externalURL(params.AppType, o.externalHost, port),
		ExternalHost:  o.externalHost,
		ArgoCDApp:     containerName,
		ArgoCDURL:     o.argocdUIURL + "/applications/" + containerName,
		Status:        model.StatusPending,
		Metadata: map[string]any{
			"request": map[string]any{
				"image":    params.Image,
				"tag":      params.Tag,
				"app_type": params.AppType,
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	envVars := buildEnvVars(params.AppType, username, password, database, params.EnvVars)
	if err := o.deployments.Create(ctx, d, envVars); err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("deployment_id", d.ID).
		Str("app_type", d.AppType).
		Str("namespace", d.Namespace).
		Int("node_port", d.NodePort).
		Msg("deployment record created")

	objects := render(manifest.Config{
		Name:         containerName,
		Namespace:    namespace,
		Image:        params.Image,
		Tag:          params.Tag,
		InternalPort: app.InternalPort,
		NodePort:     port,
		Username:     username,
		Password:     password,
		Database:     database,
		PVCSizeGi:    pvcSize,
		DataPath:     app.DataPath,
		ExtraEnv:     params.EnvVars,
	})

	if err := o.deployments.UpdateStatus(ctx, d.ID, model.StatusDeploying); err != nil {
		return nil, err
	}

	output, err := o.applier.Apply(ctx, objects)
	if err != nil {
		metrics.DeploymentApplyFailures.WithLabelValues(params.AppType).Inc()
		details := map[string]any{"apply_output": output}
		if markErr := o.deployments.MarkFailed(ctx, d.ID, err.Error(), details); markErr != nil {
			o.logger.Error().Err(markErr).Str("deployment_id", d.ID).Msg("failed to record apply failure")
		}
		o.logger.Error().Err(err).Str("deployment_id", d.ID).Msg("cluster apply failed")
		return nil, fmt.Errorf("apply manifests for deployment %s: %w", d.ID, err)
	}

	if err := o.deployments.MarkDeployed(ctx, d.ID, output); err != nil {
		return nil, err
	}
	metrics.DeploymentsCreated.WithLabelValues(params.AppType).Inc()
	o.logger.Info().Str("deployment_id", d.ID).Msg("deployment applied")

	fresh, err := o.deployments.GetByID(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Deployment: fresh}
	if password != "" {
		result.Credentials = Credentials{Username: username, Password: password, Database: database}
	}
	return result, nil
}

// StatusView is the response of the status-sync workflow.
type StatusView struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Health      string     `json:"health,omitempty"`
	SyncStatus  string     `json:"syncStatus,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
	ExternalURL string     `json:"externalUrl"`
	ArgoCDURL   string     `json:"argocdUrl"`
	// ArgoCDError annotates a failed controller query. The rest of the view
	// then reflects last-known database state.
	ArgoCDError string `json:"argocdError,omitempty"`
}

// SyncStatus refreshes a deployment's status from the delivery controller.
// A controller failure is non-fatal: the last-known state is served and the
// row is left untouched.
func (o *Orchestrator) SyncStatus(ctx context.Context, id string) (*StatusView, error) {
	d, err := o.deployments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	app, err := o.delivery.GetApplicationStatus(ctx, d.ArgoCDApp)
	if err != nil {
		o.logger.Warn().Err(err).Str("deployment_id", d.ID).Msg("delivery controller query failed, serving last-known state")
		view := statusViewFrom(d)
		view.ArgoCDError = err.Error()
		return view, nil
	}

	status := StatusFromSync(app.SyncStatus)
	if err := o.deployments.UpdateSyncState(ctx, d.ID, status, app.HealthStatus); err != nil {
		return nil, err
	}

	now := time.Now()
	view := statusViewFrom(d)
	view.Status = status
	view.Health = app.HealthStatus
	view.SyncStatus = app.SyncStatus
	view.LastUpdated = &now
	return view, nil
}

// StatusFromSync maps the controller's sync status onto the deployment
// lifecycle: Synced means deployed, anything else is still deploying.
func StatusFromSync(syncStatus string) string {
	if syncStatus == "Synced" {
		return model.StatusDeployed
	}
	return model.StatusDeploying
}

type DeleteResult struct {
	Warnings []string
}

// Delete tears down cluster and controller state best-effort, then
// unconditionally soft-deletes the record. Each failed cleanup becomes a
// warning; losing the ability to mark the record deleted would be worse
// than leaving orphaned resources, which stay auditable via the
// managed-by label.
func (o *Orchestrator) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	d, err := o.deployments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Namespace teardown can take minutes; readers listing deployments in
	// the meantime should see the record on its way out, not deployed.
	if err := o.deployments.UpdateStatus(ctx, d.ID, model.StatusDeleting); err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		warnings []string
	)
	warn := func(format string, args ...any) {
		mu.Lock()
		warnings = append(warnings, fmt.Sprintf(format, args...))
		mu.Unlock()
	}

	// The two deletions are independent and order-insensitive; neither
	// blocks the other.
	var g errgroup.Group
	g.Go(func() error {
		if err := o.teardown.DeleteNamespace(ctx, d.Namespace); err != nil {
			warn("namespace teardown failed: %s", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := o.delivery.DeleteApplication(ctx, d.ArgoCDApp); err != nil {
			warn("delivery controller deletion failed: %s", err)
		}
		return nil
	})
	_ = g.Wait()
	sort.Strings(warnings)

	if err := o.deployments.SoftDelete(ctx, id, warnings); err != nil {
		return nil, err
	}
	metrics.DeploymentsDeleted.Inc()
	if len(warnings) > 0 {
		metrics.TeardownWarnings.Add(float64(len(warnings)))
		o.logger.Warn().Str("deployment_id", id).Strs("warnings", warnings).Msg("deployment deleted with cleanup warnings")
	} else {
		o.logger.Info().Str("deployment_id", id).Msg("deployment deleted")
	}

	return &DeleteResult{Warnings: warnings}, nil
}

func buildEnvVars(appType, username, password, database string, extra map[string]string) []model.EnvVar {
	var envVars []model.EnvVar

	switch appType {
	case model.AppTypePostgres:
		envVars = append(envVars,
			model.EnvVar{Key: "POSTGRES_USER", Value: username},
			model.EnvVar{Key: "POSTGRES_DB", Value: database},
			model.EnvVar{Key: "POSTGRES_PASSWORD", Value: password, IsSecret: true},
		)
	case model.AppTypeRedis:
		if password != "" {
			envVars = append(envVars, model.EnvVar{Key: "REDIS_PASSWORD", Value: password, IsSecret: true})
		}
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		envVars = append(envVars, model.EnvVar{Key: k, Value: extra[k]})
	}

	return envVars
}

func externalURL(appType, host string, port int) string {
	switch appType {
	case model.AppTypePostgres:
		return fmt.Sprintf("postgresql://%s:%d", host, port)
	case model.AppTypeRedis:
		return fmt.Sprintf("redis://%s:%d", host, port)
	default:
		return fmt.Sprintf("tcp://%s:%d", host, port)
	}
}

func statusViewFrom(d *model.Deployment) *StatusView {
	return &StatusView{
		ID:          d.ID,
		Status:      d.Status,
		Health:      d.HealthStatus,
		LastUpdated: d.LastSyncAt,
		ExternalURL: d.ExternalURL,
		ArgoCDURL:   d.ArgoCDURL,
	}
}

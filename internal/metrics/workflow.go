package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Workflow outcome counters, labeled by application type where the type is
// known at the point of failure.
var (
	DeploymentsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployments_created_total",
			Help: "Deployments that reached deployed status after apply",
		},
		[]string{"app_type"},
	)

	DeploymentApplyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deployment_apply_failures_total",
			Help: "Create workflows whose cluster apply failed",
		},
		[]string{"app_type"},
	)

	DeploymentsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "deployments_deleted_total",
			Help: "Deployments soft-deleted by the delete workflow",
		},
	)

	TeardownWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teardown_warnings_total",
			Help: "Teardown steps that failed and were recorded as warnings",
		},
	)
)

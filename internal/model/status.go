package model

// Deployment status constants.
const (
	StatusPending   = "pending"
	StatusDeploying = "deploying"
	StatusDeployed  = "deployed"
	StatusFailed    = "failed"
	StatusStopped   = "stopped"
	StatusDeleting  = "deleting"
	StatusDeleted   = "deleted"
)

package core

// Services bundles the database-backed services sharing one pool.
type Services struct {
	Deployment *DeploymentService
	APIKey     *APIKeyService
}

func NewServices(db DB) *Services {
	return &Services{
		Deployment: NewDeploymentService(db),
		APIKey:     NewAPIKeyService(db),
	}
}

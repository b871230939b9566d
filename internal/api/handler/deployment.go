package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/edvin/deploystack/internal/api/middleware"
	"github.com/edvin/deploystack/internal/api/request"
	"github.com/edvin/deploystack/internal/api/response"
	"github.com/edvin/deploystack/internal/core"
	"github.com/edvin/deploystack/internal/model"
)

type Deployment struct {
	orchestrator *core.Orchestrator
	svc          *core.DeploymentService
}

func NewDeployment(orchestrator *core.Orchestrator, svc *core.DeploymentService) *Deployment {
	return &Deployment{orchestrator: orchestrator, svc: svc}
}

type deploymentView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	AppType     string       `json:"appType"`
	Image       string       `json:"image"`
	Tag         string       `json:"tag"`
	Namespace   string       `json:"namespace"`
	NodePort    int          `json:"nodePort"`
	ExternalURL string       `json:"externalUrl"`
	ArgoCDURL   string       `json:"argocdUrl"`
	Status      string       `json:"status"`
	Health      string       `json:"health,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	EnvVars     []envVarView `json:"envVars,omitempty"`
}

type envVarView struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsSecret bool   `json:"isSecret"`
}

func viewFrom(d *model.Deployment) deploymentView {
	return deploymentView{
		ID:          d.ID,
		Name:        d.ContainerName,
		AppType:     d.AppType,
		Image:       d.Image,
		Tag:         d.Tag,
		Namespace:   d.Namespace,
		NodePort:    d.NodePort,
		ExternalURL: d.ExternalURL,
		ArgoCDURL:   d.ArgoCDURL,
		Status:      d.Status,
		Health:      d.HealthStatus,
		CreatedAt:   d.CreatedAt,
	}
}

type deployResponse struct {
	Success     bool              `json:"success"`
	Message     string            `json:"message"`
	Deployment  deploymentView    `json:"deployment"`
	Credentials *core.Credentials `json:"credentials,omitempty"`
}

// Deploy provisions a new workload of the type named in the URL.
func (h *Deployment) Deploy(w http.ResponseWriter, r *http.Request) {
	appType := chi.URLParam(r, "type")

	var req request.CreateDeployment
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.ValidateEnvVars(appType); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	identity := mw.GetIdentity(r.Context())
	if identity == nil {
		response.WriteError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	creds, extra := req.SplitEnvVars(appType)
	password := creds["POSTGRES_PASSWORD"]
	if p, ok := creds["REDIS_PASSWORD"]; ok {
		password = p
	}

	result, err := h.orchestrator.Create(r.Context(), core.CreateParams{
		OwnerID:       identity.ID,
		AppType:       appType,
		Image:         req.Image,
		Tag:           req.Tag,
		ContainerName: req.ContainerName,
		DisplayName:   req.DisplayName,
		NodePort:      req.Port,
		PVCSizeGi:     req.PVCSize,
		Username:      creds["POSTGRES_USER"],
		Password:      password,
		Database:      creds["POSTGRES_DB"],
		EnvVars:       extra,
	})
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	resp := deployResponse{
		Success:    true,
		Message:    "deployment applied",
		Deployment: viewFrom(result.Deployment),
	}
	if result.Credentials != (core.Credentials{}) {
		resp.Credentials = &result.Credentials
	}
	response.WriteJSON(w, http.StatusCreated, resp)
}

// List returns the caller's live deployments with secret values masked.
func (h *Deployment) List(w http.ResponseWriter, r *http.Request) {
	identity := mw.GetIdentity(r.Context())
	if identity == nil {
		response.WriteError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	deployments, err := h.svc.ListByOwner(r.Context(), identity.ID)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	views := make([]deploymentView, 0, len(deployments))
	for i := range deployments {
		view := viewFrom(&deployments[i])

		envVars, err := h.svc.EnvVars(r.Context(), deployments[i].ID)
		if err != nil {
			response.WriteServiceError(w, err)
			return
		}
		for _, ev := range envVars {
			masked := ev.Masked()
			view.EnvVars = append(view.EnvVars, envVarView{
				Key:      masked.Key,
				Value:    masked.Value,
				IsSecret: masked.IsSecret,
			})
		}

		views = append(views, view)
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{"deployments": views})
}

// Status refreshes and returns the deployment's sync state.
func (h *Deployment) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	view, err := h.orchestrator.SyncStatus(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, view)
}

// Delete tears a deployment down and soft-deletes its record.
func (h *Deployment) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorize(w, r)
	if !ok {
		return
	}

	result, err := h.orchestrator.Delete(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return
	}

	resp := map[string]any{
		"success": true,
		"message": "deployment deleted",
	}
	if len(result.Warnings) > 0 {
		resp["warnings"] = result.Warnings
	}
	response.WriteJSON(w, http.StatusOK, resp)
}

// authorize resolves the deployment ID from the URL and verifies the caller
// owns it. Foreign deployments read as not found rather than forbidden.
func (h *Deployment) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return "", false
	}

	identity := mw.GetIdentity(r.Context())
	if identity == nil {
		response.WriteError(w, http.StatusUnauthorized, "missing identity")
		return "", false
	}

	d, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		response.WriteServiceError(w, err)
		return "", false
	}
	if d.OwnerID != identity.ID {
		response.WriteError(w, http.StatusNotFound, core.ErrDeploymentNotFound.Error())
		return "", false
	}
	return id, true
}

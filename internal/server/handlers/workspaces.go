package handlers

import (
	"log/slog"
	"net/http"

	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/internal/server/storage"
	"github.com/iudanet/plansync/pkg/api"
)

// WorkspaceHandler обрабатывает операции над workspace
type WorkspaceHandler struct {
	logger *slog.Logger
	docs   storage.DocumentStorage
	policy *access.Policy
	hub    Publisher
}

// NewWorkspaceHandler создает handler workspace
func NewWorkspaceHandler(logger *slog.Logger, docs storage.DocumentStorage, policy *access.Policy, hub Publisher) *WorkspaceHandler {
	return &WorkspaceHandler{logger: logger, docs: docs, policy: policy, hub: hub}
}

// Autofix обрабатывает POST /api/v1/workspaces/{id}/permissions/autofix
// Добавляет вызывающего в authorizedUsers, если он владелец или planner
func (h *WorkspaceHandler) Autofix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return
	}
	workspace := r.PathValue("id")

	fields, granted, err := h.policy.Autofix(ctx, uid, workspace)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}

	if fields != nil {
		path, err := h.policy.WorkspacePath(workspace)
		if err != nil {
			sendFailure(h.logger, w, r, err)
			return
		}
		if _, err := h.docs.UpsertDocument(ctx, path, fields); err != nil {
			sendFailure(h.logger, w, r, err)
			return
		}
		h.hub.Publish(path.String())
		h.logger.InfoContext(ctx, "workspace access granted",
			slog.String("workspace", workspace),
			slog.String("user_id", uid))
	}
	if !granted {
		h.logger.WarnContext(ctx, "workspace autofix refused",
			slog.String("workspace", workspace),
			slog.String("user_id", uid))
	}

	sendJSON(h.logger, w, api.AutofixResponse{Workspace: workspace, Granted: granted}, http.StatusOK)
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/pkg/api"
)

func TestWorkspaceHandler_Autofix(t *testing.T) {
	tests := []struct {
		name        string
		workspace   map[string]any
		uid         string
		wantGranted bool
		wantMembers []any
		wantPublish bool
	}{
		{
			name:        "missing workspace is claimed",
			uid:         "alice",
			wantGranted: true,
			wantMembers: []any{"alice"},
			wantPublish: true,
		},
		{
			name:        "owner not listed is added",
			workspace:   map[string]any{access.FieldOwner: "alice"},
			uid:         "alice",
			wantGranted: true,
			wantMembers: []any{"alice"},
			wantPublish: true,
		},
		{
			name:        "already authorized",
			workspace:   map[string]any{access.FieldOwner: "alice", access.FieldAuthorizedUsers: []any{"alice"}},
			uid:         "alice",
			wantGranted: true,
			wantMembers: []any{"alice"},
		},
		{
			name:        "planner is added",
			workspace:   map[string]any{access.FieldOwner: "alice", access.FieldAuthorizedUsers: []any{"alice"}, access.FieldPlanners: []any{"bob"}},
			uid:         "bob",
			wantGranted: true,
			wantMembers: []any{"alice", "bob"},
			wantPublish: true,
		},
		{
			name:        "stranger is refused",
			workspace:   map[string]any{access.FieldOwner: "alice", access.FieldAuthorizedUsers: []any{"alice"}},
			uid:         "carol",
			wantMembers: []any{"alice"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := setupDocEnv(t)
			if tt.workspace != nil {
				e.seed(t, "weddings/W", tt.workspace)
			}
			handler := NewWorkspaceHandler(setupTestLogger(), e.store, e.policy, e.pub)

			req := newJSONRequest(t, http.MethodPost, "/api/v1/workspaces/W/permissions/autofix", tt.uid, struct{}{})
			req.SetPathValue("id", "W")
			w := httptest.NewRecorder()
			handler.Autofix(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			var resp api.AutofixResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, "W", resp.Workspace)
			assert.Equal(t, tt.wantGranted, resp.Granted)

			doc, err := e.store.GetDocument(context.Background(), models.MustDoc("weddings", "W"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantMembers, doc.Fields[access.FieldAuthorizedUsers])
			assert.Equal(t, tt.wantPublish, len(e.pub.published()) > 0)
		})
	}
}

func TestWorkspaceHandler_Autofix_Errors(t *testing.T) {
	e := setupDocEnv(t)
	handler := NewWorkspaceHandler(setupTestLogger(), e.store, e.policy, e.pub)

	w := httptest.NewRecorder()
	req := newJSONRequest(t, http.MethodPost, "/api/v1/workspaces/W/permissions/autofix", "", nil)
	req.SetPathValue("id", "W")
	handler.Autofix(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = newJSONRequest(t, http.MethodPost, "/api/v1/workspaces/x/permissions/autofix", "alice", nil)
	req.SetPathValue("id", "..")
	handler.Autofix(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/plansync/internal/models"
)

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver("", nil)

	tests := []struct {
		name     string
		key      string
		target   Target
		identity string
		want     string
		wantErr  error
	}{
		{
			name:     "explicit path wins",
			key:      "prefs",
			target:   Target{Path: models.MustDoc("custom", "doc"), Collection: "budget", Workspace: "w1"},
			identity: "u1",
			want:     "custom/doc",
		},
		{
			name:    "collection path is malformed",
			key:     "prefs",
			target:  Target{Path: models.MustCollection("custom")},
			wantErr: ErrMalformedPath,
		},
		{
			name:     "no collection goes to identity document",
			key:      "prefs",
			identity: "u1",
			want:     "users/u1",
		},
		{
			name:    "no collection without identity",
			key:     "prefs",
			wantErr: ErrNoIdentity,
		},
		{
			name:     "identity scoped collection",
			key:      "design",
			target:   Target{Collection: "userDesigns"},
			identity: "u1",
			want:     "userDesigns/u1",
		},
		{
			name:   "workspace scoped collection",
			key:    "summary",
			target: Target{Collection: "budget", Workspace: "w1"},
			want:   "weddings/w1/budget/summary",
		},
		{
			name:    "workspace scoped without workspace",
			key:     "summary",
			target:  Target{Collection: "budget"},
			wantErr: ErrNoWorkspace,
		},
		{
			name:    "key unusable as segment",
			key:     "a/b",
			target:  Target{Collection: "budget", Workspace: "w1"},
			wantErr: ErrMalformedPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(tt.key, tt.target, tt.identity)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestResolver_CustomRoot(t *testing.T) {
	r := NewResolver("events", []string{"profiles"})
	assert.Equal(t, "events", r.WorkspaceRoot())

	p, err := r.Resolve("x", Target{Collection: "profiles"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "profiles/u1", p.String())

	p, err = r.Resolve("x", Target{Collection: "users", Workspace: "w"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "events/w/users/x", p.String())

	col, err := r.CollectionPath("w", "guests")
	require.NoError(t, err)
	assert.Equal(t, "events/w/guests", col.String())

	ep, err := r.EntityPath("w", "guests", "g1")
	require.NoError(t, err)
	assert.Equal(t, "events/w/guests/g1", ep.String())

	wp, err := r.WorkspacePath("w")
	require.NoError(t, err)
	assert.Equal(t, "events/w", wp.String())
}

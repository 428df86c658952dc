package sync

import (
	"fmt"

	"github.com/iudanet/plansync/internal/models"
)

// DefaultWorkspaceRoot is the root collection holding workspace documents.
const DefaultWorkspaceRoot = "weddings"

// DefaultIdentityCollections are stored as one document per identity: {collection}/{identity}.
var DefaultIdentityCollections = []string{"users", "userProfiles", "userDesigns"}

// Target says where a record lives remotely.
type Target struct {
	// Path wins when set. A CollectionPath here is a configuration error.
	Path models.Path
	// Collection is the logical collection name; "" means the identity document.
	Collection string
	// Workspace scopes workspace collections.
	Workspace string
}

// Resolver maps logical collections to document paths by convention.
type Resolver struct {
	identityScoped map[string]bool
	workspaceRoot  string
}

// NewResolver builds a resolver. Empty arguments fall back to the defaults.
func NewResolver(workspaceRoot string, identityCollections []string) Resolver {
	if workspaceRoot == "" {
		workspaceRoot = DefaultWorkspaceRoot
	}
	if identityCollections == nil {
		identityCollections = DefaultIdentityCollections
	}
	scoped := make(map[string]bool, len(identityCollections))
	for _, c := range identityCollections {
		scoped[c] = true
	}
	return Resolver{identityScoped: scoped, workspaceRoot: workspaceRoot}
}

// WorkspaceRoot returns the root collection of workspace documents.
func (r Resolver) WorkspaceRoot() string { return r.workspaceRoot }

// CheckExplicit rejects an explicit path that cannot address a document.
func (r Resolver) CheckExplicit(p models.Path) error {
	switch v := p.(type) {
	case nil, models.DocumentPath:
		return nil
	case models.CollectionPath:
		return fmt.Errorf("%w: %q is a collection", ErrMalformedPath, v.String())
	default:
		return fmt.Errorf("%w: unsupported path type %T", ErrMalformedPath, p)
	}
}

// Resolve returns the document governing key.
func (r Resolver) Resolve(key string, t Target, identity string) (models.DocumentPath, error) {
	if err := r.CheckExplicit(t.Path); err != nil {
		return models.DocumentPath{}, err
	}
	if p, ok := t.Path.(models.DocumentPath); ok && !p.IsZero() {
		return p, nil
	}

	switch {
	case t.Collection == "":
		if identity == "" {
			return models.DocumentPath{}, ErrNoIdentity
		}
		return models.Doc("users", identity)
	case r.identityScoped[t.Collection]:
		if identity == "" {
			return models.DocumentPath{}, ErrNoIdentity
		}
		return models.Doc(t.Collection, identity)
	default:
		if t.Workspace == "" {
			return models.DocumentPath{}, ErrNoWorkspace
		}
		p, err := models.Doc(r.workspaceRoot, t.Workspace, t.Collection, key)
		if err != nil {
			return models.DocumentPath{}, fmt.Errorf("%w: %v", ErrMalformedPath, err)
		}
		return p, nil
	}
}

// EntityPath returns {root}/{workspace}/{collection}/{id}.
func (r Resolver) EntityPath(workspace, collection, id string) (models.DocumentPath, error) {
	return models.Doc(r.workspaceRoot, workspace, collection, id)
}

// CollectionPath returns {root}/{workspace}/{collection}.
func (r Resolver) CollectionPath(workspace, collection string) (models.CollectionPath, error) {
	return models.Collection(r.workspaceRoot, workspace, collection)
}

// WorkspacePath returns {root}/{workspace}.
func (r Resolver) WorkspacePath(workspace string) (models.DocumentPath, error) {
	return models.Doc(r.workspaceRoot, workspace)
}

// Package access decides which documents an authenticated user may touch.
//
// Identity roots (users/{uid}/...) belong to their owner. Documents under a
// workspace ({root}/{workspace}/...) need the caller in the workspace
// authorizedUsers list or as its ownerId. Everything else is open to any
// authenticated user.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/storage"
)

// Workspace document fields
const (
	FieldOwner           = "ownerId"
	FieldAuthorizedUsers = "authorizedUsers"
	FieldPlanners        = "planners"
)

// IdentityRoots are root collections keyed by user id.
var IdentityRoots = []string{"users", "usuarios", "userProfiles", "userDesigns"}

// ErrPermissionDenied is returned when the caller may not access a path.
var ErrPermissionDenied = errors.New("permission denied")

// DocumentReader is the part of storage.DocumentStorage the policy reads.
type DocumentReader interface {
	GetDocument(ctx context.Context, path models.DocumentPath) (*models.Document, error)
}

// Policy evaluates access rules.
type Policy struct {
	docs          DocumentReader
	workspaceRoot string
}

// NewPolicy creates a policy for workspaces stored under workspaceRoot.
func NewPolicy(docs DocumentReader, workspaceRoot string) *Policy {
	return &Policy{docs: docs, workspaceRoot: workspaceRoot}
}

// WorkspaceRoot returns the root collection of workspace documents.
func (p *Policy) WorkspaceRoot() string {
	return p.workspaceRoot
}

// WorkspacePath returns the document path of a workspace.
func (p *Policy) WorkspacePath(workspace string) (models.DocumentPath, error) {
	return models.Doc(p.workspaceRoot, workspace)
}

// CheckCollection allows reading a collection. Listing the workspace root is
// allowed; the result must go through FilterWorkspaces.
func (p *Policy) CheckCollection(ctx context.Context, uid string, path models.CollectionPath) error {
	return p.check(ctx, uid, path.Segments(), false)
}

// CheckRead allows reading a document. A missing workspace document is left
// to the caller to report as not found.
func (p *Policy) CheckRead(ctx context.Context, uid string, path models.DocumentPath) error {
	return p.check(ctx, uid, path.Segments(), false)
}

// CheckWrite allows writing fields to a document. Writing a workspace
// document that does not exist yet creates it for the caller.
func (p *Policy) CheckWrite(ctx context.Context, uid string, path models.DocumentPath, fields map[string]any) error {
	segs := path.Segments()
	if len(segs) == 2 && segs[0] == p.workspaceRoot {
		ws, err := p.workspace(ctx, path)
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !isMember(ws, uid) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		if owner, ok := fields[FieldOwner]; ok && owner != ownerOf(ws) && ownerOf(ws) != uid {
			return fmt.Errorf("%w: only the owner may transfer %s", ErrPermissionDenied, path)
		}
		return nil
	}
	return p.check(ctx, uid, segs, true)
}

// CheckDelete allows deleting a document. Only the owner deletes a workspace.
func (p *Policy) CheckDelete(ctx context.Context, uid string, path models.DocumentPath) error {
	segs := path.Segments()
	if len(segs) == 2 && segs[0] == p.workspaceRoot {
		ws, err := p.workspace(ctx, path)
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if ownerOf(ws) != uid {
			return fmt.Errorf("%w: only the owner may delete %s", ErrPermissionDenied, path)
		}
		return nil
	}
	return p.check(ctx, uid, segs, true)
}

// IsWorkspace reports whether path addresses a workspace document.
func (p *Policy) IsWorkspace(path models.DocumentPath) bool {
	segs := path.Segments()
	return len(segs) == 2 && segs[0] == p.workspaceRoot
}

// StampOwner records uid as the owner of a newly created workspace document.
func StampOwner(fields map[string]any, uid string) map[string]any {
	out := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		out[k] = v
	}
	out[FieldOwner] = uid
	out[FieldAuthorizedUsers] = appendMember(out[FieldAuthorizedUsers], uid)
	return out
}

// FilterWorkspaces keeps workspace documents the caller belongs to.
func (p *Policy) FilterWorkspaces(uid string, docs []models.Document) []models.Document {
	out := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if isMember(d.Fields, uid) {
			out = append(out, d)
		}
	}
	return out
}

// Autofix adds uid to authorizedUsers when uid owns the workspace or is one of its
// planners. A workspace that does not exist is claimed by uid. It returns the
// fields to merge (nil when nothing changes) and whether access is granted.
func (p *Policy) Autofix(ctx context.Context, uid, workspace string) (map[string]any, bool, error) {
	path, err := p.WorkspacePath(workspace)
	if err != nil {
		return nil, false, err
	}

	ws, err := p.workspace(ctx, path)
	if errors.Is(err, storage.ErrDocumentNotFound) {
		return StampOwner(nil, uid), true, nil
	}
	if err != nil {
		return nil, false, err
	}

	if isMember(ws, uid) {
		if contains(ws[FieldAuthorizedUsers], uid) {
			return nil, true, nil
		}
		return map[string]any{FieldAuthorizedUsers: appendMember(ws[FieldAuthorizedUsers], uid)}, true, nil
	}
	if contains(ws[FieldPlanners], uid) {
		return map[string]any{FieldAuthorizedUsers: appendMember(ws[FieldAuthorizedUsers], uid)}, true, nil
	}
	return nil, false, nil
}

func (p *Policy) check(ctx context.Context, uid string, segs []string, write bool) error {
	if uid == "" || len(segs) == 0 {
		return ErrPermissionDenied
	}

	root := segs[0]
	switch {
	case slices.Contains(IdentityRoots, root):
		if len(segs) < 2 || segs[1] != uid {
			return fmt.Errorf("%w: %s belongs to another user", ErrPermissionDenied, root)
		}
		return nil

	case root == p.workspaceRoot:
		if len(segs) == 1 {
			if write {
				return ErrPermissionDenied
			}
			return nil
		}
		wsPath, err := models.Doc(root, segs[1])
		if err != nil {
			return err
		}
		ws, err := p.workspace(ctx, wsPath)
		if errors.Is(err, storage.ErrDocumentNotFound) {
			if len(segs) == 2 {
				return nil
			}
			return fmt.Errorf("%w: workspace %s does not exist", ErrPermissionDenied, segs[1])
		}
		if err != nil {
			return err
		}
		if !isMember(ws, uid) {
			return fmt.Errorf("%w: not a member of workspace %s", ErrPermissionDenied, segs[1])
		}
		return nil
	}
	return nil
}

func (p *Policy) workspace(ctx context.Context, path models.DocumentPath) (map[string]any, error) {
	doc, err := p.docs.GetDocument(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrDocumentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read workspace %s: %w", path, err)
	}
	return doc.Fields, nil
}

func isMember(ws map[string]any, uid string) bool {
	return uid != "" && (ownerOf(ws) == uid || contains(ws[FieldAuthorizedUsers], uid))
}

func ownerOf(ws map[string]any) string {
	owner, _ := ws[FieldOwner].(string)
	return owner
}

func contains(list any, uid string) bool {
	switch v := list.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == uid {
				return true
			}
		}
	case []string:
		return slices.Contains(v, uid)
	}
	return false
}

// appendMember возвращает новый список без дубликатов
func appendMember(list any, uid string) []any {
	var out []any
	switch v := list.(type) {
	case []any:
		out = append(out, v...)
	case []string:
		for _, s := range v {
			out = append(out, s)
		}
	}
	if !contains(out, uid) {
		out = append(out, uid)
	}
	return out
}

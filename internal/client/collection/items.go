package collection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/iudanet/plansync/internal/client/notify"
	"github.com/iudanet/plansync/internal/models"
)

// AddItem appends entity to the list immediately and creates it remotely when bound and online.
// Entities without an id get a temporary one; the remote id replaces it after the create.
// When the remote create fails or the client is offline the temporary id stays and a
// merge is queued for replay.
func (m *Manager) AddItem(ctx context.Context, entity models.Entity) (models.Entity, error) {
	item := entity.Clone()
	tempID := item.ID()
	if tempID == "" {
		tempID = models.NewTempID()
		item["id"] = tempID
	}

	ws, items := m.mutate(func(list []models.Entity) []models.Entity {
		return append(list, item.Clone())
	})

	if ws == "" {
		m.logger.Debug("Adding item locally", "id", tempID)
		m.persist(ctx, ws, items)
		return item, nil
	}
	if !m.remoteWritable(ws) {
		m.logger.Debug("Offline, queueing item", "workspace", ws, "id", tempID)
		m.persist(ctx, ws, items)
		m.deferWrite(ctx, ws, tempID, item, models.WriteOpMerge)
		return item, nil
	}

	fields := item.Fields()
	fields["createdAt"] = time.Now().UTC().Format(time.RFC3339Nano)

	var err error
	if col, cerr := m.orch.Resolver().CollectionPath(ws, m.opts.Collection); cerr != nil {
		err = cerr
	} else if path, aerr := m.remote.AddDocument(ctx, col, fields); aerr != nil {
		err = aerr
	} else {
		saved := item.WithID(path.ID())
		ws, items = m.mutate(func(list []models.Entity) []models.Entity {
			for i, e := range list {
				if e.ID() == tempID {
					list[i] = saved.Clone()
				}
			}
			return list
		})
		m.persist(ctx, ws, items)
		return saved, nil
	}

	m.logger.Warn("Remote create failed, keeping item locally", "workspace", ws, "id", tempID, "error", err)
	m.persist(ctx, ws, items)
	m.deferWrite(ctx, ws, tempID, item, models.WriteOpMerge)
	m.notify("Could not save the item, it will be retried", notify.KindWarning)
	return item, nil
}

// UpdateItem applies patch remotely first; on failure or while offline the cached list
// is patched and the merged entity is queued for replay. Remote failures are logged, not returned.
func (m *Manager) UpdateItem(ctx context.Context, id string, patch map[string]any) error {
	if id == "" {
		return ErrEmptyID
	}

	apply := func(list []models.Entity) []models.Entity {
		for i, e := range list {
			if e.ID() == id {
				list[i] = e.Merge(patch)
			}
		}
		return list
	}

	ws := m.Workspace()
	if m.remoteWritable(ws) {
		path, err := m.orch.Resolver().EntityPath(ws, m.opts.Collection, id)
		if err == nil {
			err = m.remote.UpdateFields(ctx, path, patch)
		}
		if err == nil {
			m.orch.Discard(ctx, entityKey(ws, m.opts.Collection, id))
			ws, items := m.mutate(apply)
			m.persist(ctx, ws, items)
			return nil
		}
		m.logger.Warn("Remote update failed, updating local cache", "workspace", ws, "id", id, "error", err)
		m.notify("Could not save the change, it will be retried", notify.KindWarning)
	}

	ws, items := m.mutate(apply)
	m.persist(ctx, ws, items)
	if ws == "" {
		return nil
	}
	if merged, ok := find(items, id); ok {
		m.deferWrite(ctx, ws, id, merged, models.WriteOpMerge)
	}
	return nil
}

// RemoveItem deletes remotely first; on failure or while offline the item is dropped
// from the cached list and the delete is queued for replay. Remote failures are logged, not returned.
func (m *Manager) RemoveItem(ctx context.Context, id string) error {
	if id == "" {
		return ErrEmptyID
	}

	drop := func(list []models.Entity) []models.Entity {
		out := list[:0]
		for _, e := range list {
			if e.ID() != id {
				out = append(out, e)
			}
		}
		return out
	}

	ws := m.Workspace()
	if m.remoteWritable(ws) {
		path, err := m.orch.Resolver().EntityPath(ws, m.opts.Collection, id)
		if err == nil {
			err = m.remote.DeleteDocument(ctx, path)
		}
		if err == nil {
			m.orch.Discard(ctx, entityKey(ws, m.opts.Collection, id))
			ws, items := m.mutate(drop)
			m.persist(ctx, ws, items)
			return nil
		}
		m.logger.Warn("Remote delete failed, updating local cache", "workspace", ws, "id", id, "error", err)
		m.notify("Could not delete the item, it will be retried", notify.KindWarning)
	}
	if ws != "" {
		m.deferWrite(ctx, ws, id, nil, models.WriteOpDelete)
	}

	ws, items := m.mutate(drop)
	m.persist(ctx, ws, items)
	return nil
}

// mutate applies fn to the list under the lock, notifies observers and returns the
// binding it applied to with a copy of the result.
func (m *Manager) mutate(fn func([]models.Entity) []models.Entity) (string, []models.Entity) {
	m.mu.Lock()
	m.items = fn(m.items)
	ws := m.workspace
	items := cloneEntities(m.items)
	m.mu.Unlock()

	m.emit()
	return ws, items
}

func (m *Manager) remoteWritable(ws string) bool {
	return ws != "" && m.remote != nil && m.orch.Status().Online
}

// deferWrite queues an entity write for the orchestrator's next replay.
func (m *Manager) deferWrite(ctx context.Context, ws, id string, entity models.Entity, op models.WriteOp) {
	path, err := m.orch.Resolver().EntityPath(ws, m.opts.Collection, id)
	if err != nil {
		m.logger.Warn("Cannot queue write for unaddressable item", "id", id, "error", err)
		return
	}

	var payload json.RawMessage
	if entity != nil {
		if payload, err = json.Marshal(entity); err != nil {
			m.logger.Error("Failed to encode pending item", "id", id, "error", err)
			return
		}
	}

	err = m.orch.Defer(ctx, models.PendingWrite{
		Key:     entityKey(ws, m.opts.Collection, id),
		Payload: payload,
		Policy:  models.WritePolicy{Path: path, Op: op, Collection: m.opts.Collection, Workspace: ws},
	})
	if err != nil {
		m.logger.Error("Failed to queue pending item", "id", id, "error", err)
	}
}

// entityKey is the pending-queue key of one entity.
func entityKey(ws, collection, id string) string {
	return "entity:" + ws + "/" + collection + "/" + id
}

func find(items []models.Entity, id string) (models.Entity, bool) {
	for _, e := range items {
		if e.ID() == id {
			return e, true
		}
	}
	return nil, false
}

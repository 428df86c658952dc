package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/iudanet/plansync/internal/models"
	"github.com/iudanet/plansync/internal/server/access"
	"github.com/iudanet/plansync/internal/server/schema"
	"github.com/iudanet/plansync/internal/server/storage"
	"github.com/iudanet/plansync/pkg/api"
)

// Publisher получает сигнал после каждой закоммиченной записи
type Publisher interface {
	Publish(document string)
}

// DocumentHandler serves documents, collections and batches.
type DocumentHandler struct {
	logger  *slog.Logger
	docs    storage.DocumentStorage
	policy  *access.Policy
	schemas *schema.Registry
	hub     Publisher
}

// NewDocumentHandler создает handler документов; schemas may be nil
func NewDocumentHandler(logger *slog.Logger, docs storage.DocumentStorage, policy *access.Policy, schemas *schema.Registry, hub Publisher) *DocumentHandler {
	return &DocumentHandler{
		logger:  logger,
		docs:    docs,
		policy:  policy,
		schemas: schemas,
		hub:     hub,
	}
}

// GetDocument обрабатывает GET /api/v1/documents/{path...}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, path, ok := h.documentRequest(w, r)
	if !ok {
		return
	}

	if err := h.policy.CheckRead(ctx, uid, path); err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	doc, err := h.docs.GetDocument(ctx, path)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, toWire(*doc), http.StatusOK)
}

// PutDocument обрабатывает PUT /api/v1/documents/{path...} (create or merge)
func (h *DocumentHandler) PutDocument(w http.ResponseWriter, r *http.Request) {
	h.writeDocument(w, r, false)
}

// PatchDocument обрабатывает PATCH /api/v1/documents/{path...}, документ должен существовать
func (h *DocumentHandler) PatchDocument(w http.ResponseWriter, r *http.Request) {
	h.writeDocument(w, r, true)
}

func (h *DocumentHandler) writeDocument(w http.ResponseWriter, r *http.Request, mustExist bool) {
	ctx := r.Context()
	uid, path, ok := h.documentRequest(w, r)
	if !ok {
		return
	}

	var req api.WriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, "invalid request body")
		return
	}

	fields, err := h.prepareWrite(ctx, uid, path, req.Fields)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}

	if mustExist {
		err = h.docs.UpdateFields(ctx, path, fields)
	} else {
		_, err = h.docs.UpsertDocument(ctx, path, fields)
	}
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	h.hub.Publish(path.String())

	doc, err := h.docs.GetDocument(ctx, path)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	h.logger.DebugContext(ctx, "document written", slog.String("path", path.String()), slog.String("user_id", uid))
	sendJSON(h.logger, w, toWire(*doc), http.StatusOK)
}

// DeleteDocument обрабатывает DELETE /api/v1/documents/{path...}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, path, ok := h.documentRequest(w, r)
	if !ok {
		return
	}

	if err := h.policy.CheckDelete(ctx, uid, path); err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	if err := h.docs.DeleteDocument(ctx, path); err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	h.hub.Publish(path.String())
	w.WriteHeader(http.StatusNoContent)
}

// ListCollection обрабатывает GET /api/v1/collections/{path...}
func (h *DocumentHandler) ListCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, collection, ok := h.collectionRequest(w, r)
	if !ok {
		return
	}

	docs, err := Snapshot(ctx, h.docs, h.policy, uid, collection)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	sendJSON(h.logger, w, api.ListResponse{Documents: docs}, http.StatusOK)
}

// AddDocument обрабатывает POST /api/v1/collections/{path...}, id генерирует сервер
func (h *DocumentHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, collection, ok := h.collectionRequest(w, r)
	if !ok {
		return
	}

	var req api.WriteRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, "invalid request body")
		return
	}

	path, err := collection.Doc(uuid.New().String())
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	fields, err := h.prepareWrite(ctx, uid, path, req.Fields)
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	if _, err := h.docs.UpsertDocument(ctx, path, fields); err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	h.hub.Publish(path.String())

	sendJSON(h.logger, w, api.AddResponse{Path: path.String(), ID: path.ID()}, http.StatusCreated)
}

// Batch обрабатывает POST /api/v1/batch, все записи применяются атомарно
func (h *DocumentHandler) Batch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid, ok := GetUserID(ctx)
	if !ok {
		sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return
	}

	var req api.BatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, api.CodeInvalidArgument, "invalid request body")
		return
	}

	writes := make([]storage.Write, 0, len(req.Writes))
	for _, bw := range req.Writes {
		path, err := models.ParseDocumentPath(bw.Path)
		if err != nil {
			sendFailure(h.logger, w, r, err)
			return
		}
		fields, err := h.prepareWrite(ctx, uid, path, bw.Fields)
		if err != nil {
			sendFailure(h.logger, w, r, err)
			return
		}
		writes = append(writes, storage.Write{Path: path, Fields: fields, Merge: bw.Merge})
	}

	if err := h.docs.ApplyBatch(ctx, writes); err != nil {
		sendFailure(h.logger, w, r, err)
		return
	}
	for _, wr := range writes {
		h.hub.Publish(wr.Path.String())
	}

	h.logger.DebugContext(ctx, "batch committed", slog.Int("writes", len(writes)), slog.String("user_id", uid))
	w.WriteHeader(http.StatusNoContent)
}

// prepareWrite проверяет доступ и схему; новый workspace записывается на автора
func (h *DocumentHandler) prepareWrite(ctx context.Context, uid string, path models.DocumentPath, fields map[string]any) (map[string]any, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	if err := h.policy.CheckWrite(ctx, uid, path, fields); err != nil {
		return nil, err
	}

	if h.policy.IsWorkspace(path) {
		_, err := h.docs.GetDocument(ctx, path)
		switch {
		case errors.Is(err, storage.ErrDocumentNotFound):
			fields = access.StampOwner(fields, uid)
		case err != nil:
			return nil, err
		}
	}

	if err := h.schemas.Validate(path, fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func (h *DocumentHandler) documentRequest(w http.ResponseWriter, r *http.Request) (string, models.DocumentPath, bool) {
	uid, ok := GetUserID(r.Context())
	if !ok {
		sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return "", models.DocumentPath{}, false
	}
	path, err := models.ParseDocumentPath(r.PathValue("path"))
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return "", models.DocumentPath{}, false
	}
	return uid, path, true
}

func (h *DocumentHandler) collectionRequest(w http.ResponseWriter, r *http.Request) (string, models.CollectionPath, bool) {
	uid, ok := GetUserID(r.Context())
	if !ok {
		sendError(h.logger, w, http.StatusUnauthorized, api.CodeUnauthenticated, "authentication required")
		return "", models.CollectionPath{}, false
	}
	path, err := models.ParseCollectionPath(r.PathValue("path"))
	if err != nil {
		sendFailure(h.logger, w, r, err)
		return "", models.CollectionPath{}, false
	}
	return uid, path, true
}

// Snapshot lists a collection the caller may read, in wire form.
func Snapshot(ctx context.Context, docs storage.DocumentStorage, policy *access.Policy, uid string, collection models.CollectionPath) ([]api.Document, error) {
	if err := policy.CheckCollection(ctx, uid, collection); err != nil {
		return nil, err
	}
	list, err := docs.ListDocuments(ctx, collection)
	if err != nil {
		return nil, err
	}
	if collection.String() == policy.WorkspaceRoot() {
		list = policy.FilterWorkspaces(uid, list)
	}

	out := make([]api.Document, 0, len(list))
	for _, d := range list {
		out = append(out, toWire(d))
	}
	return out, nil
}

func toWire(d models.Document) api.Document {
	return api.Document{
		Path:      d.Path.String(),
		ID:        d.ID(),
		Fields:    d.Fields,
		UpdatedAt: d.UpdatedAt,
	}
}

// Package repository provides client-side repositories over the
// remote portfolio API, keeping a local cache of document summaries in
// sync with server responses.
package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"portfoliocore/internal/blocks"
	"portfoliocore/internal/models"
	"portfoliocore/internal/transport"
)

// Blogs orchestrates list/create/update/delete operations against the
// remote API. Write operations serialize through blocks.BuildPayload
// and, on success, replace the cached entry with the server's
// authoritative response — the server resolves pendingKey → url, so
// local block state is never merged into the cache. On failure the
// cache is left untouched and the error is surfaced for display.
type Blogs struct {
	client *transport.Client
	log    *zap.Logger

	mu      sync.Mutex
	cache   map[string]models.BlogDocument
	order   []string
	listSeq uint64
}

// NewBlogs creates a Blogs repository using the given client.
func NewBlogs(client *transport.Client, log *zap.Logger) *Blogs {
	return &Blogs{
		client: client,
		log:    log,
		cache:  make(map[string]models.BlogDocument),
	}
}

type blogEnvelope struct {
	Blog json.RawMessage `json:"blog"`
}

type blogListEnvelope struct {
	Blogs []json.RawMessage `json:"blogs"`
}

// List fetches all documents visible to the admin surface and replaces
// the cache with the result. A response superseded by a later List
// call is returned to its caller but never applied to the cache, so a
// stale fetch cannot clobber newer state.
func (r *Blogs) List(ctx context.Context) ([]models.BlogDocument, error) {
	r.mu.Lock()
	r.listSeq++
	seq := r.listSeq
	r.mu.Unlock()

	var wire blogListEnvelope
	if err := r.client.DoJSON(ctx, http.MethodGet, "/blogs", nil, &wire); err != nil {
		return nil, err
	}

	docs := make([]models.BlogDocument, 0, len(wire.Blogs))
	for _, raw := range wire.Blogs {
		doc, err := blocks.ParseDocument(raw)
		if err != nil {
			r.log.Warn("skipping malformed document in list response", zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.listSeq {
		r.log.Debug("discarding superseded list response")
		return docs, nil
	}
	r.cache = make(map[string]models.BlogDocument, len(docs))
	r.order = r.order[:0]
	for _, doc := range docs {
		r.cache[doc.ID] = doc
		r.order = append(r.order, doc.ID)
	}
	return docs, nil
}

// Cached returns the cached documents in server list order. It never
// touches the network.
func (r *Blogs) Cached() []models.BlogDocument {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.BlogDocument, 0, len(r.order))
	for _, id := range r.order {
		if doc, ok := r.cache[id]; ok {
			out = append(out, doc)
		}
	}
	return out
}

// Get returns the cached document with the given id, if present.
func (r *Blogs) Get(id string) (models.BlogDocument, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.cache[id]
	return doc, ok
}

// Create sends a new document to the server and caches the returned
// authoritative copy.
func (r *Blogs) Create(ctx context.Context, title string, status models.BlogStatus, list []models.ContentBlock, files models.PendingFileMap) (models.BlogDocument, error) {
	if err := validateTitle(title); err != nil {
		return models.BlogDocument{}, err
	}

	payload := blocks.BuildPayload(strings.TrimSpace(title), status, list, files)
	doc, err := r.writeDocument(ctx, http.MethodPost, "/blogs", payload)
	if err != nil {
		return models.BlogDocument{}, err
	}

	r.mu.Lock()
	r.cache[doc.ID] = doc
	r.order = append([]string{doc.ID}, r.order...)
	r.mu.Unlock()
	return doc, nil
}

// Update overwrites the document with the given id and caches the
// returned authoritative copy.
func (r *Blogs) Update(ctx context.Context, id, title string, status models.BlogStatus, list []models.ContentBlock, files models.PendingFileMap) (models.BlogDocument, error) {
	if err := validateTitle(title); err != nil {
		return models.BlogDocument{}, err
	}

	payload := blocks.BuildPayload(strings.TrimSpace(title), status, list, files)
	doc, err := r.writeDocument(ctx, http.MethodPut, "/blogs/"+id, payload)
	if err != nil {
		return models.BlogDocument{}, err
	}

	r.mu.Lock()
	r.cache[doc.ID] = doc
	r.mu.Unlock()
	return doc, nil
}

// PatchMedia re-reconciles only the content of an existing document:
// title and status stay as cached, the block list and its pending
// files travel in a PATCH.
func (r *Blogs) PatchMedia(ctx context.Context, id string, list []models.ContentBlock, files models.PendingFileMap) (models.BlogDocument, error) {
	r.mu.Lock()
	doc, ok := r.cache[id]
	r.mu.Unlock()
	if !ok {
		return models.BlogDocument{}, &transport.ValidationError{Field: "id", Reason: "unknown document " + id}
	}

	payload := blocks.BuildPayload(doc.Title, doc.Status, list, files)
	updated, err := r.writeDocument(ctx, http.MethodPatch, "/blogs/"+id, payload)
	if err != nil {
		return models.BlogDocument{}, err
	}

	r.mu.Lock()
	r.cache[updated.ID] = updated
	r.mu.Unlock()
	return updated, nil
}

// Remove deletes the document with the given id and drops it from the
// cache.
func (r *Blogs) Remove(ctx context.Context, id string) error {
	if err := r.client.DoJSON(ctx, http.MethodDelete, "/blogs/"+id, nil, nil); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.cache, id)
	for i, cached := range r.order {
		if cached == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()
	return nil
}

// Public fetches the published documents from the public read surface.
// No credential is attached and the admin cache is not touched.
func (r *Blogs) Public(ctx context.Context) ([]models.BlogDocument, error) {
	var wire blogListEnvelope
	if err := r.client.DoJSON(ctx, http.MethodGet, "/public-blogs", nil, &wire); err != nil {
		return nil, err
	}

	docs := make([]models.BlogDocument, 0, len(wire.Blogs))
	for _, raw := range wire.Blogs {
		doc, err := blocks.ParseDocument(raw)
		if err != nil {
			r.log.Warn("skipping malformed public document", zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// PublicBySlug fetches one published document by slug.
func (r *Blogs) PublicBySlug(ctx context.Context, slug string) (models.BlogDocument, error) {
	var wire blogEnvelope
	if err := r.client.DoJSON(ctx, http.MethodGet, "/public-blogs/"+slug, nil, &wire); err != nil {
		return models.BlogDocument{}, err
	}
	return blocks.ParseDocument(wire.Blog)
}

func (r *Blogs) writeDocument(ctx context.Context, method, path string, payload *blocks.Payload) (models.BlogDocument, error) {
	var wire blogEnvelope
	if err := r.client.DoJSON(ctx, method, path, payload, &wire); err != nil {
		return models.BlogDocument{}, err
	}
	doc, err := blocks.ParseDocument(wire.Blog)
	if err != nil {
		return models.BlogDocument{}, &transport.ServerError{StatusCode: http.StatusOK, Message: "malformed document in save response"}
	}
	return doc, nil
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &transport.ValidationError{Field: "title", Reason: "required"}
	}
	return nil
}

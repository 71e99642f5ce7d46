package service

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/quimbellmunt/medscan/config"
	"github.com/quimbellmunt/medscan/model"
)

// DocumentStore is an in-memory store for documents
// In production, this should be replaced with a database
type DocumentStore struct {
	documents    map[string]*model.Document
	mu           sync.RWMutex
	maxDocuments int // Maximum documents to keep, 0 = unlimited
}

// NewDocumentStore creates a document store bounded by cfg.MaxDocuments.
func NewDocumentStore(cfg *config.StoreConfig) *DocumentStore {
	maxDocuments := cfg.MaxDocuments
	if maxDocuments < 0 {
		maxDocuments = 0
	}
	slog.Info("document store initialized", "max_documents", maxDocuments)
	return &DocumentStore{
		documents:    make(map[string]*model.Document),
		maxDocuments: maxDocuments,
	}
}

// snapshot copies a document, detaching its slices, so that readers never
// share memory with the store's copy. The background analysis goroutine
// mutates stored documents through Update* under the write lock; handing
// out the live pointer would let request handlers read those fields
// unsynchronized.
func snapshot(d *model.Document) *model.Document {
	cp := *d
	cp.Pages = append([]model.PageText(nil), d.Pages...)
	cp.Entities = append([]model.Entity(nil), d.Entities...)
	return &cp
}

// Save stores a private copy of doc. Later changes to the caller's value
// do not affect the store.
func (s *DocumentStore) Save(doc *model.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := snapshot(doc)
	cp.UpdatedAt = time.Now()
	s.documents[cp.ID] = cp

	// Cleanup if exceeds max
	s.cleanupIfNeeded()
}

// Get returns a snapshot of the document, or nil if it does not exist.
func (s *DocumentStore) Get(id string) *model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return nil
	}
	return snapshot(d)
}

func (s *DocumentStore) GetByTenant(tenant string) []*model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Document
	for _, d := range s.documents {
		if d.Tenant == tenant {
			result = append(result, snapshot(d))
		}
	}
	return result
}

func (s *DocumentStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
}

func (s *DocumentStore) UpdateStatus(id, status string, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.Status = status
		d.ErrorMsg = errMsg
		d.UpdatedAt = time.Now()
	}
}

func (s *DocumentStore) UpdateJobID(id, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.JobID = jobID
		d.UpdatedAt = time.Now()
	}
}

// UpdatePages stores the aggregated pages and marks the document completed.
func (s *DocumentStore) UpdatePages(id string, pages []model.PageText) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.Pages = pages
		d.Status = model.StatusCompleted
		d.UpdatedAt = time.Now()
	}
}

func (s *DocumentStore) UpdateEntities(id string, entities []model.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.documents[id]; ok {
		d.Entities = entities
		d.UpdatedAt = time.Now()
	}
}

// cleanupIfNeeded removes oldest documents if store exceeds maxDocuments
// Must be called with lock held
func (s *DocumentStore) cleanupIfNeeded() {
	if s.maxDocuments <= 0 {
		return // Unlimited
	}

	if len(s.documents) <= s.maxDocuments {
		return
	}

	// Sort documents by creation time
	documents := make([]*model.Document, 0, len(s.documents))
	for _, d := range s.documents {
		documents = append(documents, d)
	}
	sort.Slice(documents, func(i, j int) bool {
		return documents[i].CreatedAt.Before(documents[j].CreatedAt)
	})

	// Remove oldest documents
	removeCount := len(documents) - s.maxDocuments
	for i := 0; i < removeCount; i++ {
		slog.Info("auto-cleaning old document",
			"document_id", documents[i].ID,
			"created_at", documents[i].CreatedAt,
		)
		delete(s.documents, documents[i].ID)
	}
}

// Count returns the number of documents in the store
func (s *DocumentStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

package service

import (
	"testing"
	"time"

	"github.com/quimbellmunt/medscan/model"
)

func newTestStore(maxDocuments int) *DocumentStore {
	return &DocumentStore{
		documents:    make(map[string]*model.Document),
		maxDocuments: maxDocuments,
	}
}

func TestDocumentStoreSaveAndGet(t *testing.T) {
	store := newTestStore(100)

	doc := &model.Document{
		ID:        "test-id-1",
		Filename:  "report.pdf",
		Tenant:    "tenant1",
		Status:    model.StatusPending,
		CreatedAt: time.Now(),
	}

	store.Save(doc)

	// Test Get
	retrieved := store.Get("test-id-1")
	if retrieved == nil {
		t.Fatal("Expected to retrieve document")
	}
	if retrieved.Filename != "report.pdf" {
		t.Errorf("Expected filename report.pdf, got %s", retrieved.Filename)
	}

	// Test Get non-existent
	notFound := store.Get("non-existent")
	if notFound != nil {
		t.Error("Expected nil for non-existent document")
	}
}

func TestDocumentStoreGetByTenant(t *testing.T) {
	store := newTestStore(100)

	// Add documents for different tenants
	store.Save(&model.Document{ID: "1", Tenant: "tenant1", CreatedAt: time.Now()})
	store.Save(&model.Document{ID: "2", Tenant: "tenant1", CreatedAt: time.Now()})
	store.Save(&model.Document{ID: "3", Tenant: "tenant2", CreatedAt: time.Now()})

	tenant1Docs := store.GetByTenant("tenant1")
	if len(tenant1Docs) != 2 {
		t.Errorf("Expected 2 documents for tenant1, got %d", len(tenant1Docs))
	}

	tenant2Docs := store.GetByTenant("tenant2")
	if len(tenant2Docs) != 1 {
		t.Errorf("Expected 1 document for tenant2, got %d", len(tenant2Docs))
	}

	tenant3Docs := store.GetByTenant("tenant3")
	if len(tenant3Docs) != 0 {
		t.Errorf("Expected 0 documents for tenant3, got %d", len(tenant3Docs))
	}
}

func TestDocumentStoreDelete(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Document{ID: "delete-me", CreatedAt: time.Now()})

	if store.Get("delete-me") == nil {
		t.Fatal("Expected document to exist before delete")
	}

	store.Delete("delete-me")

	if store.Get("delete-me") != nil {
		t.Error("Expected document to be deleted")
	}
}

func TestDocumentStoreUpdateStatus(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Document{ID: "doc-1", Status: model.StatusPending, CreatedAt: time.Now()})

	store.UpdateStatus("doc-1", model.StatusFailed, "boom")

	doc := store.Get("doc-1")
	if doc.Status != model.StatusFailed {
		t.Errorf("Expected status failed, got %s", doc.Status)
	}
	if doc.ErrorMsg != "boom" {
		t.Errorf("Expected error message 'boom', got %s", doc.ErrorMsg)
	}

	// Updating a non-existent document is a no-op
	store.UpdateStatus("missing", model.StatusFailed, "boom")
}

func TestDocumentStoreUpdateJobID(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Document{ID: "doc-1", CreatedAt: time.Now()})
	store.UpdateJobID("doc-1", "job-42")

	if got := store.Get("doc-1").JobID; got != "job-42" {
		t.Errorf("Expected job ID job-42, got %s", got)
	}
}

func TestDocumentStoreUpdatePages(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Document{ID: "doc-1", Status: model.StatusProcessing, CreatedAt: time.Now()})

	pages := []model.PageText{{Index: 0, Text: "hello"}, {Index: 1, Text: "world"}}
	store.UpdatePages("doc-1", pages)

	doc := store.Get("doc-1")
	if doc.Status != model.StatusCompleted {
		t.Errorf("Expected status completed, got %s", doc.Status)
	}
	if len(doc.Pages) != 2 || doc.Pages[1].Text != "world" {
		t.Errorf("Unexpected pages: %v", doc.Pages)
	}
}

func TestDocumentStoreUpdateEntities(t *testing.T) {
	store := newTestStore(100)

	store.Save(&model.Document{ID: "doc-1", CreatedAt: time.Now()})

	entities := []model.Entity{{Text: "aspirin", Category: "MEDICATION"}}
	store.UpdateEntities("doc-1", entities)

	doc := store.Get("doc-1")
	if len(doc.Entities) != 1 || doc.Entities[0].Text != "aspirin" {
		t.Errorf("Unexpected entities: %v", doc.Entities)
	}
}

func TestDocumentStoreGetReturnsSnapshot(t *testing.T) {
	store := newTestStore(100)

	doc := &model.Document{ID: "doc-1", Status: model.StatusProcessing, CreatedAt: time.Now()}
	store.Save(doc)

	// The caller's value is detached from the store.
	doc.Status = model.StatusFailed
	if got := store.Get("doc-1").Status; got != model.StatusProcessing {
		t.Errorf("Store shares memory with caller's document: status %s", got)
	}

	// A snapshot taken before an update keeps its old field values.
	before := store.Get("doc-1")
	store.UpdatePages("doc-1", []model.PageText{{Index: 0, Text: "hello"}})
	if before.Status != model.StatusProcessing || len(before.Pages) != 0 {
		t.Error("Snapshot changed after a store update")
	}

	// Mutating a snapshot does not write through to the store.
	after := store.Get("doc-1")
	after.Pages[0].Text = "tampered"
	if got := store.Get("doc-1").Pages[0].Text; got != "hello" {
		t.Errorf("Snapshot mutation leaked into the store: %q", got)
	}

	byTenant := store.GetByTenant("")
	if len(byTenant) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(byTenant))
	}
	byTenant[0].Entities = append(byTenant[0].Entities, model.Entity{Text: "x"})
	if got := store.Get("doc-1"); len(got.Entities) != 0 {
		t.Error("GetByTenant snapshot mutation leaked into the store")
	}
}

func TestDocumentStoreConcurrentReadWrite(t *testing.T) {
	store := newTestStore(100)
	store.Save(&model.Document{ID: "doc-1", Status: model.StatusProcessing, CreatedAt: time.Now()})

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			store.UpdateStatus("doc-1", model.StatusProcessing, "")
			store.UpdatePages("doc-1", []model.PageText{{Index: 0, Text: "page"}})
		}
	}()

	// Readers see either the old or the new fields, never a torn document.
	for i := 0; i < 200; i++ {
		doc := store.Get("doc-1")
		if doc.Status != model.StatusProcessing && doc.Status != model.StatusCompleted {
			t.Fatalf("Unexpected status %s", doc.Status)
		}
		for _, p := range doc.Pages {
			if p.Text != "page" {
				t.Fatalf("Unexpected page text %q", p.Text)
			}
		}
	}
	<-done
}

func TestDocumentStoreCleanup(t *testing.T) {
	store := newTestStore(3)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		store.Save(&model.Document{
			ID:        string(rune('a' + i)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	if store.Count() != 3 {
		t.Fatalf("Expected 3 documents after cleanup, got %d", store.Count())
	}

	// Oldest documents are removed first
	if store.Get("a") != nil || store.Get("b") != nil {
		t.Error("Expected oldest documents to be cleaned up")
	}
	if store.Get("e") == nil {
		t.Error("Expected newest document to survive cleanup")
	}
}

func TestDocumentStoreUnlimited(t *testing.T) {
	store := newTestStore(0)

	for i := 0; i < 50; i++ {
		store.Save(&model.Document{ID: string(rune('a' + i)), CreatedAt: time.Now()})
	}

	if store.Count() != 50 {
		t.Errorf("Expected 50 documents with unlimited store, got %d", store.Count())
	}
}

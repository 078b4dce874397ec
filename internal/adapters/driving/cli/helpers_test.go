package cli

import (
	"context"
	"time"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

// mockIngestionService implements driving.IngestionService for CLI tests.
type mockIngestionService struct {
	ingestResult domain.IngestResult
	ingestErr    error
	verifyOK     bool
	verifyErr    error
	deleted      int
	deleteErr    error
	documents    []domain.DocumentInfo
	listErr      error

	lastDoc  domain.Document
	lastText string
}

func (m *mockIngestionService) Ingest(_ context.Context, doc domain.Document, text string) (domain.IngestResult, error) {
	m.lastDoc = doc
	m.lastText = text
	if m.ingestErr != nil {
		return domain.IngestResult{}, m.ingestErr
	}
	result := m.ingestResult
	if result.DocumentID == "" {
		result.DocumentID = doc.ID
	}
	return result, nil
}

func (m *mockIngestionService) Verify(_ context.Context, _ string, _ int) (bool, error) {
	return m.verifyOK, m.verifyErr
}

func (m *mockIngestionService) Delete(_ context.Context, _ string) (int, error) {
	return m.deleted, m.deleteErr
}

func (m *mockIngestionService) ListDocuments(_ context.Context) ([]domain.DocumentInfo, error) {
	return m.documents, m.listErr
}

// mockRetrievalService implements driving.RetrievalService for CLI tests.
type mockRetrievalService struct {
	result domain.RetrievalResult
	err    error

	lastQuery string
	lastDocs  []string
	lastTopK  int
}

func (m *mockRetrievalService) Retrieve(_ context.Context, query string, documentIDs []string, topK int) (domain.RetrievalResult, error) {
	m.lastQuery = query
	m.lastDocs = documentIDs
	m.lastTopK = topK
	if m.err != nil {
		return domain.RetrievalResult{}, m.err
	}
	return m.result, nil
}

// setupTestServices wires mock services into the command package and
// returns the mocks plus a cleanup restoring the previous state.
func setupTestServices() (*mockIngestionService, *mockRetrievalService, func()) {
	prevIngestion := ingestionService
	prevRetrieval := retrievalService

	ingestion := &mockIngestionService{
		ingestResult: domain.IngestResult{ChunksCreated: 3},
		verifyOK:     true,
		deleted:      3,
		documents: []domain.DocumentInfo{
			{
				ID:         "doc-1",
				Name:       "Test Document 1",
				ChunkCount: 3,
				IngestedAt: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
			},
		},
	}
	retrieval := &mockRetrievalService{
		result: domain.RetrievalResult{
			Context:          "[Source: Test Document 1]\nsome chunk text",
			CharCount:        40,
			ChunkCount:       1,
			DocumentsCovered: 1,
			CoveragePct:      100,
		},
	}

	ingestionService = ingestion
	retrievalService = retrieval

	cleanup := func() {
		ingestionService = prevIngestion
		retrievalService = prevRetrieval
	}
	return ingestion, retrieval, cleanup
}

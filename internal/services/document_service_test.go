package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/askflow/internal/core"
	"github.com/markdave123-py/askflow/internal/logger"
	"github.com/markdave123-py/askflow/internal/models"
)

// mockStore routes each DocumentStore call to an optional func field.
type mockStore struct {
	getDocumentFunc    func(ctx context.Context, id int64) (*models.Document, error)
	listDocumentsFunc  func(ctx context.Context) ([]models.Document, error)
	getChunksFunc      func(ctx context.Context, id int64) ([]models.Chunk, error)
	countChunksFunc    func(ctx context.Context, id int64) (int, error)
	deleteDocumentFunc func(ctx context.Context, id int64) error
}

func (m *mockStore) Transact(context.Context, func(tx core.DocumentWriter) error) error {
	return errors.New("not implemented")
}

func (m *mockStore) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	if m.getDocumentFunc != nil {
		return m.getDocumentFunc(ctx, id)
	}
	return nil, core.ErrDocumentNotFound
}

func (m *mockStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	if m.listDocumentsFunc != nil {
		return m.listDocumentsFunc(ctx)
	}
	return []models.Document{}, nil
}

func (m *mockStore) GetChunksByDocument(ctx context.Context, id int64) ([]models.Chunk, error) {
	if m.getChunksFunc != nil {
		return m.getChunksFunc(ctx, id)
	}
	return []models.Chunk{}, nil
}

func (m *mockStore) CountChunks(ctx context.Context, id int64) (int, error) {
	if m.countChunksFunc != nil {
		return m.countChunksFunc(ctx, id)
	}
	chunks, err := m.GetChunksByDocument(ctx, id)
	return len(chunks), err
}

func (m *mockStore) DeleteDocument(ctx context.Context, id int64) error {
	if m.deleteDocumentFunc != nil {
		return m.deleteDocumentFunc(ctx, id)
	}
	return nil
}

func (m *mockStore) Close() error { return nil }

type mockObjects struct {
	deleted []string
	err     error
}

func (m *mockObjects) Save(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockObjects) Delete(_ context.Context, ref string) error {
	m.deleted = append(m.deleted, ref)
	return m.err
}

func docFixture(id int64) *models.Document {
	return &models.Document{ID: id, FileName: "report.pdf", FilePath: "uploads/x.pdf"}
}

func TestDocumentService_GetStripsVectors(t *testing.T) {
	store := &mockStore{
		getDocumentFunc: func(_ context.Context, id int64) (*models.Document, error) { return docFixture(id), nil },
		getChunksFunc: func(_ context.Context, id int64) ([]models.Chunk, error) {
			return []models.Chunk{
				{ID: 1, DocumentID: id, Text: "a", PageNumber: 1, Embedding: []float32{1, 2}},
				{ID: 2, DocumentID: id, Text: "b", PageNumber: 2, Embedding: []float32{3, 4}},
			}, nil
		},
	}
	svc := NewDocumentService(store, &mockObjects{}, logger.Discard())

	detail, err := svc.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), detail.ID)
	assert.Equal(t, 2, detail.ChunkCount)
	require.Len(t, detail.Chunks, 2)
	for _, ch := range detail.Chunks {
		assert.Nil(t, ch.Embedding)
	}
}

func TestDocumentService_GetMissing(t *testing.T) {
	svc := NewDocumentService(&mockStore{}, &mockObjects{}, logger.Discard())

	_, err := svc.Get(context.Background(), 1)
	assert.True(t, IsNotFound(err))
}

func TestDocumentService_DeleteRemovesFile(t *testing.T) {
	var deletedID int64
	store := &mockStore{
		getDocumentFunc:    func(_ context.Context, id int64) (*models.Document, error) { return docFixture(id), nil },
		deleteDocumentFunc: func(_ context.Context, id int64) error { deletedID = id; return nil },
	}
	objects := &mockObjects{}
	svc := NewDocumentService(store, objects, logger.Discard())

	require.NoError(t, svc.Delete(context.Background(), 3))
	assert.Equal(t, int64(3), deletedID)
	assert.Equal(t, []string{"uploads/x.pdf"}, objects.deleted)
}

func TestDocumentService_DeleteIgnoresFileError(t *testing.T) {
	store := &mockStore{
		getDocumentFunc: func(_ context.Context, id int64) (*models.Document, error) { return docFixture(id), nil },
	}
	objects := &mockObjects{err: errors.New("permission denied")}
	svc := NewDocumentService(store, objects, logger.Discard())

	assert.NoError(t, svc.Delete(context.Background(), 3))
	assert.Len(t, objects.deleted, 1)
}

func TestDocumentService_DeleteMissingKeepsFiles(t *testing.T) {
	objects := &mockObjects{}
	svc := NewDocumentService(&mockStore{}, objects, logger.Discard())

	err := svc.Delete(context.Background(), 3)
	assert.True(t, IsNotFound(err))
	assert.Empty(t, objects.deleted)
}

func TestDocumentService_DeleteStoreFailureKeepsFile(t *testing.T) {
	store := &mockStore{
		getDocumentFunc: func(_ context.Context, id int64) (*models.Document, error) { return docFixture(id), nil },
		deleteDocumentFunc: func(context.Context, int64) error {
			return &core.PersistenceError{Op: "delete document", Err: errors.New("conn reset")}
		},
	}
	objects := &mockObjects{}
	svc := NewDocumentService(store, objects, logger.Discard())

	err := svc.Delete(context.Background(), 3)
	assert.True(t, core.IsPersistence(err))
	assert.Empty(t, objects.deleted)
}

func TestDocumentService_List(t *testing.T) {
	store := &mockStore{
		listDocumentsFunc: func(context.Context) ([]models.Document, error) {
			return []models.Document{*docFixture(2), *docFixture(1)}, nil
		},
		countChunksFunc: func(_ context.Context, id int64) (int, error) { return int(id) * 10, nil },
	}
	svc := NewDocumentService(store, nil, logger.Discard())

	docs, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(2), docs[0].ID)
	assert.Equal(t, 20, docs[0].ChunkCount)
	assert.Equal(t, 10, docs[1].ChunkCount)
	assert.Empty(t, docs[0].Chunks)
}

func TestDocumentService_ListCountFailure(t *testing.T) {
	store := &mockStore{
		listDocumentsFunc: func(context.Context) ([]models.Document, error) {
			return []models.Document{*docFixture(1)}, nil
		},
		countChunksFunc: func(context.Context, int64) (int, error) {
			return 0, &core.PersistenceError{Op: "count chunks", Err: errors.New("conn reset")}
		},
	}
	svc := NewDocumentService(store, nil, logger.Discard())

	_, err := svc.List(context.Background())
	assert.True(t, core.IsPersistence(err))
}

package document_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuchat/features/document"
	"docuchat/internal/config"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, doc *document.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) Get(ctx context.Context, id int64) (*document.Document, error) {
	args := m.Called(ctx, id)
	if doc := args.Get(0); doc != nil {
		return doc.(*document.Document), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]document.Document, error) {
	args := m.Called(ctx)
	return args.Get(0).([]document.Document), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id int64, patch document.Patch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	args := m.Called(topic, body)
	return args.Error(0)
}

type MockVectorDeleter struct {
	mock.Mock
}

func (m *MockVectorDeleter) DeleteByDocument(ctx context.Context, documentID int64) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

type MockObjectDeleter struct {
	mock.Mock
}

func (m *MockObjectDeleter) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func TestServiceCreate(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc := document.NewService(repo, pub, new(MockVectorDeleter), new(MockObjectDeleter))

	repo.On("Create", mock.Anything, mock.AnythingOfType("*document.Document")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*document.Document).ID = 42
		}).Return(nil)
	pub.On("Publish", config.TopicDocumentIngest, mock.Anything).Return(nil)

	doc, err := svc.Create(context.Background(), "report.pdf", "uploads/report.pdf", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), doc.ID)
	assert.Equal(t, "pending", doc.Status)

	pub.AssertExpectations(t)
	body := pub.Calls[0].Arguments.Get(1).([]byte)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, float64(42), payload["document_id"])
	assert.Equal(t, "uploads/report.pdf", payload["storage_key"])
}

func TestServiceCreatePublishFailure(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc := document.NewService(repo, pub, new(MockVectorDeleter), new(MockObjectDeleter))

	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", config.TopicDocumentIngest, mock.Anything).Return(errors.New("nsqd unreachable"))

	_, err := svc.Create(context.Background(), "report.pdf", "uploads/report.pdf", 1)
	assert.Error(t, err)
}

func TestServiceReingest(t *testing.T) {
	repo := new(MockRepository)
	pub := new(MockPublisher)
	svc := document.NewService(repo, pub, new(MockVectorDeleter), new(MockObjectDeleter))

	repo.On("Get", mock.Anything, int64(7)).Return(&document.Document{
		ID: 7, StorageKey: "uploads/7.pdf", Status: "error", ProgressPercent: -1,
	}, nil)
	repo.On("Update", mock.Anything, int64(7), mock.MatchedBy(func(p document.Patch) bool {
		return p.Status != nil && *p.Status == "pending" &&
			p.ProgressPercent != nil && *p.ProgressPercent == 0 &&
			p.ErrorMessage != nil && *p.ErrorMessage == ""
	})).Return(nil)
	pub.On("Publish", config.TopicDocumentIngest, mock.Anything).Return(nil)

	err := svc.Reingest(context.Background(), 7)
	require.NoError(t, err)
	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestServiceDelete(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo := new(MockRepository)
		index := new(MockVectorDeleter)
		objects := new(MockObjectDeleter)
		svc := document.NewService(repo, new(MockPublisher), index, objects)

		repo.On("Get", mock.Anything, int64(7)).Return(&document.Document{ID: 7, StorageKey: "uploads/7.pdf"}, nil)
		index.On("DeleteByDocument", mock.Anything, int64(7)).Return(nil)
		objects.On("Delete", mock.Anything, "uploads/7.pdf").Return(nil)
		repo.On("Delete", mock.Anything, int64(7)).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), 7))
		index.AssertExpectations(t)
		objects.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("IndexFailureContinuesCleanup", func(t *testing.T) {
		repo := new(MockRepository)
		index := new(MockVectorDeleter)
		objects := new(MockObjectDeleter)
		svc := document.NewService(repo, new(MockPublisher), index, objects)

		repo.On("Get", mock.Anything, int64(7)).Return(&document.Document{ID: 7, StorageKey: "uploads/7.pdf"}, nil)
		index.On("DeleteByDocument", mock.Anything, int64(7)).Return(errors.New("weaviate down"))
		objects.On("Delete", mock.Anything, "uploads/7.pdf").Return(nil)
		repo.On("Delete", mock.Anything, int64(7)).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), 7))
		repo.AssertExpectations(t)
	})

	t.Run("ObjectFailureAborts", func(t *testing.T) {
		repo := new(MockRepository)
		index := new(MockVectorDeleter)
		objects := new(MockObjectDeleter)
		svc := document.NewService(repo, new(MockPublisher), index, objects)

		repo.On("Get", mock.Anything, int64(7)).Return(&document.Document{ID: 7, StorageKey: "uploads/7.pdf"}, nil)
		index.On("DeleteByDocument", mock.Anything, int64(7)).Return(nil)
		objects.On("Delete", mock.Anything, "uploads/7.pdf").Return(errors.New("permission denied"))

		assert.Error(t, svc.Delete(context.Background(), 7))
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})
}

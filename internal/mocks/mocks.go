package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"drafts-service/internal/models"
	"drafts-service/internal/repositories"
)

type DraftRepositoryMock struct {
	mock.Mock
}

func (m *DraftRepositoryMock) CreateDrafts(ctx context.Context, draftList []models.Draft) ([]models.Draft, error) {
	args := m.Called(ctx, draftList)
	var created []models.Draft
	if val := args.Get(0); val != nil {
		created = val.([]models.Draft)
	}
	return created, args.Error(1)
}

func (m *DraftRepositoryMock) GetDraft(ctx context.Context, draftID int, userID int) (models.Draft, error) {
	args := m.Called(ctx, draftID, userID)
	var draft models.Draft
	if val := args.Get(0); val != nil {
		draft = val.(models.Draft)
	}
	return draft, args.Error(1)
}

func (m *DraftRepositoryMock) ListDrafts(ctx context.Context, userID int) ([]models.Draft, error) {
	args := m.Called(ctx, userID)
	var list []models.Draft
	if val := args.Get(0); val != nil {
		list = val.([]models.Draft)
	}
	return list, args.Error(1)
}

func (m *DraftRepositoryMock) UpdateDraft(ctx context.Context, draft models.Draft) error {
	args := m.Called(ctx, draft)
	return args.Error(0)
}

func (m *DraftRepositoryMock) DeleteDraft(ctx context.Context, draftID int, userID int) error {
	args := m.Called(ctx, draftID, userID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUsersByIDs(ctx context.Context, userIDs []int, realmID int) ([]models.User, error) {
	args := m.Called(ctx, userIDs, realmID)
	var users []models.User
	if val := args.Get(0); val != nil {
		users = val.([]models.User)
	}
	return users, args.Error(1)
}

type StreamRepositoryMock struct {
	mock.Mock
}

func (m *StreamRepositoryMock) AccessStream(ctx context.Context, streamID int, user models.User) (models.Stream, error) {
	args := m.Called(ctx, streamID, user)
	var stream models.Stream
	if val := args.Get(0); val != nil {
		stream = val.(models.Stream)
	}
	return stream, args.Error(1)
}

type RecipientRepositoryMock struct {
	mock.Mock
}

func (m *RecipientRepositoryMock) GetOrCreateDirectRecipient(ctx context.Context, memberIDs []int) (int, error) {
	args := m.Called(ctx, memberIDs)
	return args.Int(0), args.Error(1)
}

type EventSenderMock struct {
	mock.Mock
}

func (m *EventSenderMock) SendDraftEvent(userID int, event models.DraftEvent) {
	m.Called(userID, event)
}

type DraftServiceMock struct {
	mock.Mock
}

func (m *DraftServiceMock) CreateDrafts(ctx context.Context, user models.User, payloads []models.DraftPayload) ([]models.Draft, error) {
	args := m.Called(ctx, user, payloads)
	var created []models.Draft
	if val := args.Get(0); val != nil {
		created = val.([]models.Draft)
	}
	return created, args.Error(1)
}

func (m *DraftServiceMock) EditDraft(ctx context.Context, user models.User, draftID int, payload models.DraftPayload) error {
	args := m.Called(ctx, user, draftID, payload)
	return args.Error(0)
}

func (m *DraftServiceMock) DeleteDraft(ctx context.Context, user models.User, draftID int) error {
	args := m.Called(ctx, user, draftID)
	return args.Error(0)
}

func (m *DraftServiceMock) ListDrafts(ctx context.Context, user models.User) ([]models.Draft, error) {
	args := m.Called(ctx, user)
	var list []models.Draft
	if val := args.Get(0); val != nil {
		list = val.([]models.Draft)
	}
	return list, args.Error(1)
}

var _ repositories.DraftRepository = (*DraftRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ repositories.StreamRepository = (*StreamRepositoryMock)(nil)
var _ repositories.RecipientRepository = (*RecipientRepositoryMock)(nil)

package drafts

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"drafts-service/internal/mocks"
	"drafts-service/internal/models"
	"drafts-service/internal/repositories"
)

type serviceFixture struct {
	drafts     *mocks.DraftRepositoryMock
	users      *mocks.UserRepositoryMock
	streams    *mocks.StreamRepositoryMock
	recipients *mocks.RecipientRepositoryMock
	events     *mocks.EventSenderMock
	service    *Service
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		drafts:     new(mocks.DraftRepositoryMock),
		users:      new(mocks.UserRepositoryMock),
		streams:    new(mocks.StreamRepositoryMock),
		recipients: new(mocks.RecipientRepositoryMock),
		events:     new(mocks.EventSenderMock),
	}
	f.service = NewService(f.drafts, f.users, f.streams, f.recipients, f.events)
	return f
}

func (f *serviceFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.drafts.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.streams.AssertExpectations(t)
	f.recipients.AssertExpectations(t)
	f.events.AssertExpectations(t)
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }
func ctxBG() context.Context    { return context.Background() }

func testUser() models.User {
	return models.User{ID: 1, RealmID: 5, Email: "me@example.com", IsActive: true, EnableDraftsSync: true}
}

func streamPayload(to []int, topic string) models.DraftPayload {
	return models.DraftPayload{
		Type:      models.DraftTypeStream,
		To:        to,
		Topic:     strPtr(topic),
		Content:   "hi",
		Timestamp: f64Ptr(1500000000),
	}
}

func TestStreamDraftResolvesStreamRecipient(t *testing.T) {
	f := newFixture()
	user := testUser()

	f.streams.On("AccessStream", mock.Anything, 42, user).Return(models.Stream{ID: 42, RecipientID: 7}, nil).Once()

	draft, err := f.service.validateAndTransform(ctxBG(), user, streamPayload([]int{42}, "plans"))
	require.NoError(t, err)
	require.NotNil(t, draft.RecipientID)
	assert.Equal(t, 7, *draft.RecipientID)
	assert.Equal(t, "plans", draft.Topic)
	assert.NotContains(t, draft.Topic, "\x00")
	f.assertExpectations(t)
}

func TestStreamDraftRequiresExactlyOneStreamID(t *testing.T) {
	f := newFixture()

	for _, to := range [][]int{{}, {42, 43}} {
		_, err := f.service.validateAndTransform(ctxBG(), testUser(), streamPayload(to, "plans"))
		require.ErrorIs(t, err, ErrInvalidRecipientCount)
	}
	f.assertExpectations(t)
}

func TestStreamDraftTopicNullByte(t *testing.T) {
	f := newFixture()

	_, err := f.service.validateAndTransform(ctxBG(), testUser(), streamPayload([]int{42}, "bad\x00topic"))
	require.ErrorIs(t, err, ErrInvalidTopic)
	f.assertExpectations(t)
}

func TestStreamDraftTopicTruncated(t *testing.T) {
	f := newFixture()
	user := testUser()

	f.streams.On("AccessStream", mock.Anything, 42, user).Return(models.Stream{ID: 42, RecipientID: 7}, nil).Once()

	longTopic := strings.Repeat("x", 100)
	draft, err := f.service.validateAndTransform(ctxBG(), user, streamPayload([]int{42}, longTopic))
	require.NoError(t, err)
	assert.Len(t, draft.Topic, maxTopicLength)
	assert.True(t, strings.HasSuffix(draft.Topic, topicTruncationMarker))
	f.assertExpectations(t)
}

func TestStreamDraftAccessErrorsPassThrough(t *testing.T) {
	f := newFixture()
	user := testUser()

	f.streams.On("AccessStream", mock.Anything, 42, user).Return(models.Stream{}, repositories.ErrStreamAccessDenied).Once()

	_, err := f.service.validateAndTransform(ctxBG(), user, streamPayload([]int{42}, "plans"))
	require.ErrorIs(t, err, repositories.ErrStreamAccessDenied)
	f.assertExpectations(t)
}

func TestPrivateDraftResolvesDirectRecipient(t *testing.T) {
	f := newFixture()
	user := testUser()

	// Duplicates collapse and the acting user joins the member set.
	f.users.On("GetUsersByIDs", mock.Anything, []int{1, 2, 3}, 5).
		Return([]models.User{user, {ID: 2, IsActive: true}, {ID: 3, IsActive: true}}, nil).Once()
	f.recipients.On("GetOrCreateDirectRecipient", mock.Anything, []int{1, 2, 3}).Return(9, nil).Once()

	payload := models.DraftPayload{
		Type:      models.DraftTypePrivate,
		To:        []int{3, 2, 3},
		Topic:     strPtr(""),
		Content:   "hi",
		Timestamp: f64Ptr(1500000000),
	}
	draft, err := f.service.validateAndTransform(ctxBG(), user, payload)
	require.NoError(t, err)
	require.NotNil(t, draft.RecipientID)
	assert.Equal(t, 9, *draft.RecipientID)
	assert.Equal(t, "", draft.Topic)
	f.assertExpectations(t)
}

func TestPrivateDraftEmptyToStaysUnaddressed(t *testing.T) {
	f := newFixture()

	for _, draftType := range []string{models.DraftTypePrivate, models.DraftTypeUnaddressed} {
		payload := models.DraftPayload{
			Type:      draftType,
			To:        []int{},
			Topic:     strPtr("ignored"),
			Content:   "hi",
			Timestamp: f64Ptr(1500000000),
		}
		draft, err := f.service.validateAndTransform(ctxBG(), testUser(), payload)
		require.NoError(t, err)
		assert.Nil(t, draft.RecipientID)
		assert.Equal(t, "", draft.Topic)
	}
	f.assertExpectations(t)
}

func TestPrivateDraftDeactivatedRecipient(t *testing.T) {
	f := newFixture()
	user := testUser()

	f.users.On("GetUsersByIDs", mock.Anything, []int{1, 2}, 5).
		Return([]models.User{user, {ID: 2, Email: "gone@example.com", IsActive: false}}, nil).Once()

	payload := models.DraftPayload{
		Type:      models.DraftTypePrivate,
		To:        []int{2},
		Topic:     strPtr(""),
		Content:   "hi",
		Timestamp: f64Ptr(1500000000),
	}
	_, err := f.service.validateAndTransform(ctxBG(), user, payload)
	var addressingErr *AddressingError
	require.ErrorAs(t, err, &addressingErr)
	assert.Contains(t, addressingErr.Message, "gone@example.com")
	f.assertExpectations(t)
}

func TestNegativeTimestampRejected(t *testing.T) {
	f := newFixture()

	payload := models.DraftPayload{
		Type:      models.DraftTypeUnaddressed,
		To:        []int{},
		Topic:     strPtr(""),
		Content:   "hi",
		Timestamp: f64Ptr(-1),
	}
	_, err := f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.ErrorIs(t, err, ErrInvalidTimestamp)
	f.assertExpectations(t)
}

func TestTimestampRoundedToMicroseconds(t *testing.T) {
	f := newFixture()

	payload := models.DraftPayload{
		Type:      models.DraftTypeUnaddressed,
		To:        []int{},
		Topic:     strPtr(""),
		Content:   "hi",
		Timestamp: f64Ptr(1234.12345678),
	}
	draft, err := f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.NoError(t, err)
	assert.Equal(t, time.UnixMicro(1234123457).UTC(), draft.LastEditTime)

	// Same input, same output.
	again, err := f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.NoError(t, err)
	assert.Equal(t, draft.LastEditTime, again.LastEditTime)
}

func TestMissingTimestampDefaultsToClock(t *testing.T) {
	f := newFixture()
	now := time.UnixMicro(1600000000654321).UTC()
	f.service.now = func() time.Time { return now }

	payload := models.DraftPayload{
		Type:    models.DraftTypeUnaddressed,
		To:      []int{},
		Topic:   strPtr(""),
		Content: "hi",
	}
	draft, err := f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.NoError(t, err)
	assert.Equal(t, now, draft.LastEditTime)
}

func TestContentNormalization(t *testing.T) {
	f := newFixture()

	payload := models.DraftPayload{
		Type:      models.DraftTypeUnaddressed,
		To:        []int{},
		Topic:     strPtr(""),
		Content:   "\n\nhello world  \n\t",
		Timestamp: f64Ptr(1500000000),
	}
	draft, err := f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.NoError(t, err)
	assert.Equal(t, "hello world", draft.Content)

	payload.Content = "   \n\t "
	_, err = f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.ErrorIs(t, err, ErrEmptyContent)

	payload.Content = "bad\x00content"
	_, err = f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.ErrorIs(t, err, ErrContentNullBytes)

	payload.Content = strings.Repeat("a", maxContentLength+50)
	draft, err = f.service.validateAndTransform(ctxBG(), testUser(), payload)
	require.NoError(t, err)
	assert.Len(t, draft.Content, maxContentLength)
	assert.True(t, strings.HasSuffix(draft.Content, contentTruncationMarker))
}

func TestCreateDraftsEmitsSingleAddEvent(t *testing.T) {
	f := newFixture()
	user := testUser()

	recipient7 := 7
	stored := []models.Draft{
		{ID: 100, UserID: user.ID, RecipientID: &recipient7, Topic: "plans", Content: "hi", LastEditTime: time.UnixMicro(1500000000000000).UTC()},
		{ID: 101, UserID: user.ID, Content: "later", LastEditTime: time.UnixMicro(1500000001000000).UTC()},
	}

	f.streams.On("AccessStream", mock.Anything, 42, user).Return(models.Stream{ID: 42, RecipientID: 7}, nil).Once()
	f.drafts.On("CreateDrafts", mock.Anything, mock.MatchedBy(func(draftList []models.Draft) bool {
		return len(draftList) == 2 && draftList[0].RecipientID != nil && *draftList[0].RecipientID == 7 &&
			draftList[0].Topic == "plans" && draftList[1].RecipientID == nil
	})).Return(stored, nil).Once()
	f.events.On("SendDraftEvent", user.ID, mock.MatchedBy(func(event models.DraftEvent) bool {
		return event.Type == "drafts" && event.Op == models.DraftOpAdd &&
			len(event.Drafts) == 2 && event.Drafts[0].ID == 100 && event.Drafts[1].ID == 101
	})).Once()

	payloads := []models.DraftPayload{
		streamPayload([]int{42}, "plans"),
		{Type: models.DraftTypeUnaddressed, To: []int{}, Topic: strPtr(""), Content: "later", Timestamp: f64Ptr(1500000001)},
	}
	created, err := f.service.CreateDrafts(ctxBG(), user, payloads)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, 100, created[0].ID)
	require.NotNil(t, created[0].RecipientID)
	assert.Equal(t, 7, *created[0].RecipientID)
	assert.Nil(t, created[1].RecipientID)
	f.assertExpectations(t)
}

func TestCreateDraftsAbortsWholeBatchOnOneBadDict(t *testing.T) {
	f := newFixture()

	payloads := []models.DraftPayload{
		{Type: models.DraftTypeUnaddressed, To: []int{}, Topic: strPtr(""), Content: "ok", Timestamp: f64Ptr(1500000000)},
		{Type: models.DraftTypeUnaddressed, To: []int{}, Topic: strPtr(""), Content: "bad", Timestamp: f64Ptr(-5)},
	}
	_, err := f.service.CreateDrafts(ctxBG(), testUser(), payloads)
	require.ErrorIs(t, err, ErrInvalidTimestamp)

	// Nothing persisted, nothing emitted.
	f.drafts.AssertNotCalled(t, "CreateDrafts", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "SendDraftEvent", mock.Anything, mock.Anything)
}

func TestCreateDraftsNoEventOnPersistFailure(t *testing.T) {
	f := newFixture()

	f.drafts.On("CreateDrafts", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	payloads := []models.DraftPayload{
		{Type: models.DraftTypeUnaddressed, To: []int{}, Topic: strPtr(""), Content: "ok", Timestamp: f64Ptr(1500000000)},
	}
	_, err := f.service.CreateDrafts(ctxBG(), testUser(), payloads)
	require.Error(t, err)
	f.events.AssertNotCalled(t, "SendDraftEvent", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEditDraftOverwritesAndEmitsUpdate(t *testing.T) {
	f := newFixture()
	user := testUser()
	oldRecipient := 7

	existing := models.Draft{ID: 11, UserID: user.ID, RecipientID: &oldRecipient, Topic: "old", Content: "old text", LastEditTime: time.UnixMicro(1400000000000000).UTC()}
	f.drafts.On("GetDraft", mock.Anything, 11, user.ID).Return(existing, nil).Once()
	f.drafts.On("UpdateDraft", mock.Anything, mock.MatchedBy(func(d models.Draft) bool {
		return d.ID == 11 && d.UserID == user.ID && d.RecipientID == nil && d.Topic == "" && d.Content == "new text"
	})).Return(nil).Once()
	f.events.On("SendDraftEvent", user.ID, mock.MatchedBy(func(event models.DraftEvent) bool {
		return event.Op == models.DraftOpUpdate && event.Draft != nil && event.Draft.ID == 11 && event.Draft.Content == "new text"
	})).Once()

	payload := models.DraftPayload{Type: models.DraftTypePrivate, To: []int{}, Topic: strPtr(""), Content: "new text", Timestamp: f64Ptr(1500000002)}
	require.NoError(t, f.service.EditDraft(ctxBG(), user, 11, payload))
	f.assertExpectations(t)
}

func TestEditDraftNotFoundEmitsNothing(t *testing.T) {
	f := newFixture()
	user := testUser()

	f.drafts.On("GetDraft", mock.Anything, 9999, user.ID).Return(models.Draft{}, repositories.ErrDraftNotFound).Once()

	payload := models.DraftPayload{Type: models.DraftTypeUnaddressed, To: []int{}, Topic: strPtr(""), Content: "hi", Timestamp: f64Ptr(1500000000)}
	err := f.service.EditDraft(ctxBG(), user, 9999, payload)
	require.ErrorIs(t, err, repositories.ErrDraftNotFound)
	f.events.AssertNotCalled(t, "SendDraftEvent", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestEditDraftOwnedByAnotherUserLooksMissing(t *testing.T) {
	f := newFixture()
	// The lookup is scoped to the caller, so user B probing user A's draft ids
	// only ever sees not-found.
	userB := models.User{ID: 2, RealmID: 5, IsActive: true, EnableDraftsSync: true}

	f.drafts.On("GetDraft", mock.Anything, 11, userB.ID).Return(models.Draft{}, repositories.ErrDraftNotFound).Once()

	payload := models.DraftPayload{Type: models.DraftTypeUnaddressed, To: []int{}, Topic: strPtr(""), Content: "hi", Timestamp: f64Ptr(1500000000)}
	err := f.service.EditDraft(ctxBG(), userB, 11, payload)
	require.ErrorIs(t, err, repositories.ErrDraftNotFound)
	f.assertExpectations(t)
}

func TestDeleteDraftTwiceFailsSecondTime(t *testing.T) {
	f := newFixture()
	user := testUser()

	f.drafts.On("DeleteDraft", mock.Anything, 11, user.ID).Return(nil).Once()
	f.drafts.On("DeleteDraft", mock.Anything, 11, user.ID).Return(repositories.ErrDraftNotFound).Once()
	f.events.On("SendDraftEvent", user.ID, mock.MatchedBy(func(event models.DraftEvent) bool {
		return event.Op == models.DraftOpRemove && event.DraftID == 11
	})).Once()

	require.NoError(t, f.service.DeleteDraft(ctxBG(), user, 11))
	err := f.service.DeleteDraft(ctxBG(), user, 11)
	require.ErrorIs(t, err, repositories.ErrDraftNotFound)
	f.assertExpectations(t)
}

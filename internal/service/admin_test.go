package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vita-labs/recallai/internal/domain"
)

func TestDeleteUnit(t *testing.T) {
	chunks := new(MockChunkAdmin)
	ledger := new(MockLedger)
	attachments := new(MockAttachmentDeleter)

	chunks.On("DeleteByUnitID", mock.Anything, "msg-1").Return(int64(3), nil)
	attachments.On("DeleteByUnit", mock.Anything, "msg-1").Return(nil)
	ledger.On("Forget", mock.Anything, "msg-1").Return(nil)

	svc := NewAdminService(chunks, ledger, attachments, new(MockFeedbackStore))
	deleted, err := svc.DeleteUnit(context.Background(), "msg-1")

	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	chunks.AssertExpectations(t)
	ledger.AssertExpectations(t)
	attachments.AssertExpectations(t)
}

func TestDeleteUnitNotFound(t *testing.T) {
	chunks := new(MockChunkAdmin)
	chunks.On("DeleteByUnitID", mock.Anything, "ghost").Return(int64(0), nil)

	svc := NewAdminService(chunks, new(MockLedger), nil, new(MockFeedbackStore))
	_, err := svc.DeleteUnit(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestDeleteUnitArchiveFailureNotFatal(t *testing.T) {
	chunks := new(MockChunkAdmin)
	ledger := new(MockLedger)
	attachments := new(MockAttachmentDeleter)

	chunks.On("DeleteByUnitID", mock.Anything, "msg-1").Return(int64(1), nil)
	attachments.On("DeleteByUnit", mock.Anything, "msg-1").Return(errors.New("bucket down"))
	ledger.On("Forget", mock.Anything, "msg-1").Return(nil)

	svc := NewAdminService(chunks, ledger, attachments, new(MockFeedbackStore))
	deleted, err := svc.DeleteUnit(context.Background(), "msg-1")

	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRedactUnit(t *testing.T) {
	chunks := new(MockChunkAdmin)
	chunks.On("RedactByUnitID", mock.Anything, "msg-1").Return(int64(2), nil)

	svc := NewAdminService(chunks, new(MockLedger), nil, new(MockFeedbackStore))
	redacted, err := svc.RedactUnit(context.Background(), "msg-1")

	require.NoError(t, err)
	assert.Equal(t, int64(2), redacted)
}

func TestRedactUnitNotFound(t *testing.T) {
	chunks := new(MockChunkAdmin)
	chunks.On("RedactByUnitID", mock.Anything, "ghost").Return(int64(0), nil)

	svc := NewAdminService(chunks, new(MockLedger), nil, new(MockFeedbackStore))
	_, err := svc.RedactUnit(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrUnitNotFound)
}

func TestRecordFeedback(t *testing.T) {
	feedback := new(MockFeedbackStore)
	feedback.On("Append", mock.Anything, mock.Anything).Return(nil)

	svc := NewAdminService(new(MockChunkAdmin), new(MockLedger), nil, feedback)
	err := svc.RecordFeedback(context.Background(), &domain.FeedbackEntry{
		RequesterID: "user-1",
		Verdict:     "helpful",
	})
	require.NoError(t, err)
	feedback.AssertExpectations(t)
}

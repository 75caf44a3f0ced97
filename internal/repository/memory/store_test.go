package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProject(t *testing.T, s *Store) *models.Project {
	t.Helper()
	p := &models.Project{
		ClientID: uuid.New(),
		Status:   models.StatusBriefSubmitted,
		Brief:    models.Brief{Title: "t", NumVideos: 1, Platforms: []string{"TikTok"}},
	}
	require.NoError(t, s.Projects().Create(context.Background(), p))
	return p
}

func TestInTx_RollbackDiscardsEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProject(t, s)
	boom := errors.New("boom")

	err := s.InTx(ctx, func(tx repository.Repositories) error {
		require.NoError(t, tx.Projects().SetStatus(ctx, p.ID, models.StatusFilming))
		require.NoError(t, tx.Transitions().Append(ctx, &models.StatusTransition{
			ProjectID: p.ID, From: p.Status, To: models.StatusFilming, Source: models.SourceManual,
		}))
		require.NoError(t, tx.Messages().Create(ctx, &models.Message{
			ProjectID: &p.ID, SenderID: uuid.New(), Channel: models.ChannelProject, Content: "hi",
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBriefSubmitted, got.Status)

	history, err := s.Transitions().ListByProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, history)

	msgs, err := s.Messages().History(ctx, repository.HistoryQuery{ProjectID: &p.ID, Channel: models.ChannelProject})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestInTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProject(t, s)

	err := s.InTx(ctx, func(tx repository.Repositories) error {
		return tx.Projects().SetStatus(ctx, p.ID, models.StatusFilming)
	})
	require.NoError(t, err)

	got, err := s.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFilming, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestInTx_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().InTx(ctx, func(repository.Repositories) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestProjects_ReturnedCopiesAreIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProject(t, s)

	got, err := s.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Platforms[0] = "changed"
	p.Platforms[0] = "changed too"

	again, err := s.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"TikTok"}, again.Platforms)
	assert.NotNil(t, again.Dos, "arrays are never nil")
}

func TestAssignments_ActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	s := New()
	projectID, creatorID := uuid.New(), uuid.New()

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Assignments().Create(ctx, &models.ProjectAssignment{
				ProjectID: projectID, CreatorID: creatorID, AssignedBy: uuid.New(), Status: models.AssignmentPending,
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	rows, err := s.Assignments().ListByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	changed, err := s.Assignments().UpdateStatus(ctx, rows[0].ID,
		[]models.AssignmentStatus{models.AssignmentPending}, models.AssignmentDeclined)
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, s.Assignments().Create(ctx, &models.ProjectAssignment{
		ProjectID: projectID, CreatorID: creatorID, AssignedBy: uuid.New(), Status: models.AssignmentPending,
	}), "a declined row frees the slot")
	active, err := s.Assignments().CountActive(ctx, projectID)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestAssignments_UpdateStatusConditional(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &models.ProjectAssignment{ProjectID: uuid.New(), CreatorID: uuid.New(), Status: models.AssignmentAccepted}
	require.NoError(t, s.Assignments().Create(ctx, a))

	changed, err := s.Assignments().UpdateStatus(ctx, a.ID, []models.AssignmentStatus{models.AssignmentPending}, models.AssignmentDeclined)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = s.Assignments().UpdateStatus(ctx, uuid.New(), []models.AssignmentStatus{models.AssignmentPending}, models.AssignmentDeclined)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestVersions(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := newProject(t, s)

	v, err := s.Scripts().NextVersion(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, s.Scripts().Create(ctx, &models.Script{ProjectID: p.ID, Version: 1, Body: "a", Type: models.ScriptAIGenerated}))
	err = s.Scripts().Create(ctx, &models.Script{ProjectID: p.ID, Version: 1, Body: "b", Type: models.ScriptAIGenerated})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	v, err = s.Scripts().NextVersion(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = s.Videos().NextVersion(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, v, "videos number independently")
}

func TestVideos_ClientReviewNeedsAdminApproval(t *testing.T) {
	ctx := context.Background()
	s := New()
	v := &models.Video{
		ProjectID: uuid.New(), AssignmentID: uuid.New(), VideoURL: "https://x", Version: 1,
		AdminApprovalStatus: models.ApprovalPending, ClientApprovalStatus: models.ApprovalPending,
	}
	require.NoError(t, s.Videos().Create(ctx, v))

	_, err := s.Videos().UpdateClientReview(ctx, v.ID, models.ApprovalApproved, nil, true)
	assert.ErrorIs(t, err, apperrors.ErrNotYetAdminApproved)

	_, err = s.Videos().UpdateAdminReview(ctx, v.ID, models.ApprovalApproved, nil)
	require.NoError(t, err)
	got, err := s.Videos().UpdateClientReview(ctx, v.ID, models.ApprovalApproved, nil, true)
	require.NoError(t, err)
	assert.True(t, got.IsFinal)

	_, err = s.Videos().UpdateClientReview(ctx, uuid.New(), models.ApprovalApproved, nil, true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestMessages_HistoryPartitionsAndOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	projectID := uuid.New()
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()

	send := func(ch models.Channel, project *uuid.UUID, from uuid.UUID, to *uuid.UUID, text string) int64 {
		m := &models.Message{ProjectID: project, SenderID: from, RecipientID: to, Channel: ch, Content: text}
		require.NoError(t, s.Messages().Create(ctx, m))
		return m.ID
	}
	first := send(models.ChannelProject, &projectID, alice, nil, "one")
	send(models.ChannelAdminClient, &projectID, alice, nil, "other channel")
	send(models.ChannelProject, nil, alice, nil, "no project")
	send(models.ChannelProject, &projectID, bob, nil, "two")
	send(models.ChannelDirect, &projectID, alice, &bob, "to bob")
	send(models.ChannelDirect, &projectID, carol, &alice, "to alice")

	msgs, err := s.Messages().History(ctx, repository.HistoryQuery{ProjectID: &projectID, Channel: models.ChannelProject})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "two", msgs[1].Content)
	assert.Less(t, msgs[0].ID, msgs[1].ID)

	after, err := s.Messages().History(ctx, repository.HistoryQuery{ProjectID: &projectID, Channel: models.ChannelProject, After: first})
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "two", after[0].Content)

	limited, err := s.Messages().History(ctx, repository.HistoryQuery{ProjectID: &projectID, Channel: models.ChannelProject, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "one", limited[0].Content)

	global, err := s.Messages().History(ctx, repository.HistoryQuery{Channel: models.ChannelProject})
	require.NoError(t, err)
	require.Len(t, global, 1)
	assert.Equal(t, "no project", global[0].Content)

	forBob, err := s.Messages().History(ctx, repository.HistoryQuery{ProjectID: &projectID, Channel: models.ChannelDirect, Participant: &bob})
	require.NoError(t, err)
	require.Len(t, forBob, 1)
	assert.Equal(t, "to bob", forBob[0].Content)
}

func TestAuthUsers_EmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.AuthUsers().Create(ctx, &models.AuthUser{Email: "Ann@Example.com", PasswordHash: "x"}))

	err := s.AuthUsers().Create(ctx, &models.AuthUser{Email: "ann@example.COM", PasswordHash: "y"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	u, err := s.AuthUsers().GetByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
}

func TestMessages_HistoryCursorFollowsSortKey(t *testing.T) {
	ctx := context.Background()
	s := New()
	projectID := uuid.New()
	q := repository.HistoryQuery{ProjectID: &projectID, Channel: models.ChannelProject}

	for _, text := range []string{"one", "two", "three"} {
		require.NoError(t, s.Messages().Create(ctx, &models.Message{
			ProjectID: &projectID, SenderID: uuid.New(), Channel: models.ChannelProject, Content: text,
		}))
	}
	// A later id committed with an earlier timestamp.
	s.mu.Lock()
	s.st.messages[2].CreatedAt = s.st.messages[0].CreatedAt.Add(-time.Second)
	s.mu.Unlock()

	all, err := s.Messages().History(ctx, q)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Content)

	var paged []string
	cursor := int64(0)
	for {
		page := q
		page.After, page.Limit = cursor, 1
		msgs, err := s.Messages().History(ctx, page)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		paged = append(paged, msgs[0].Content)
		cursor = msgs[0].ID
	}
	assert.Equal(t, []string{"three", "one", "two"}, paged)

	q.After = 999
	missing, err := s.Messages().History(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

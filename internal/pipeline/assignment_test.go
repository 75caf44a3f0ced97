package pipeline

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario B.
func TestAssign_FromScriptsApproved(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)

	a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)

	assert.Equal(t, models.AssignmentPending, a.Status)
	assert.Equal(t, f.admin.ID, a.AssignedBy)
	assert.Equal(t, models.StatusCreatorAssigned, f.reload(t, p.ID).Status)
}

func TestAssign_StatusCascadeOnlyFromEligibleStatuses(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusFilming)

	_, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFilming, f.reload(t, p.ID).Status)
}

func TestAssign_SecondCreatorDoesNotCascade(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)

	_, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)
	_, err = f.machine.Override(f.ctx, f.admin, p.ID, models.StatusScriptsApproved, nil)
	require.NoError(t, err)

	_, err = f.assignments.Assign(f.ctx, f.admin, p.ID, f.otherCreator.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusScriptsApproved, f.reload(t, p.ID).Status)
}

// Scenario E.
func TestAssign_AlreadyAssigned(t *testing.T) {
	for _, existing := range []models.AssignmentStatus{
		models.AssignmentPending, models.AssignmentAccepted, models.AssignmentInProgress,
	} {
		t.Run(string(existing), func(t *testing.T) {
			f, _ := newFixture(t)
			p := f.projectIn(t, models.StatusScriptsApproved)
			a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
			require.NoError(t, err)
			if existing != models.AssignmentPending {
				_, err := f.store.Assignments().UpdateStatus(f.ctx, a.ID, []models.AssignmentStatus{models.AssignmentPending}, existing)
				require.NoError(t, err)
			}

			_, err = f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
			assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)

			rows, err := f.store.Assignments().ListByProject(f.ctx, p.ID)
			require.NoError(t, err)
			assert.Len(t, rows, 1)
		})
	}
}

func TestAssign_AfterDeclineIsAllowed(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)
	a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)

	declined, err := f.assignments.Decline(f.ctx, f.creator, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentDeclined, declined.Status)

	again, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, again.ID)
}

// Concurrent assigns of the same pair: exactly one wins.
func TestAssign_Concurrent(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperrors.ErrAlreadyAssigned):
				dupes++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, n-1, dupes)
	active, err := f.store.Assignments().CountActive(f.ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestAssign_Errors(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)

	_, err := f.assignments.Assign(f.ctx, f.client, p.ID, f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = f.assignments.Assign(f.ctx, f.admin, uuid.New(), f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// A client profile is not a creator.
	_, err = f.assignments.Assign(f.ctx, f.admin, p.ID, f.client.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, models.StatusScriptsApproved, f.reload(t, p.ID).Status)
}

func TestRemove_LeavesStatus(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)
	a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)

	require.NoError(t, f.assignments.Remove(f.ctx, f.admin, a.ID))

	_, err = f.store.Assignments().GetByID(f.ctx, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, models.StatusCreatorAssigned, f.reload(t, p.ID).Status)

	assert.ErrorIs(t, f.assignments.Remove(f.ctx, f.admin, a.ID), apperrors.ErrNotFound)
	assert.ErrorIs(t, f.assignments.Remove(f.ctx, f.creator, a.ID), apperrors.ErrForbidden)
}

func TestAccept(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)
	a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)

	_, err = f.assignments.Accept(f.ctx, f.otherCreator, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound, "someone else's assignment")

	got, err := f.assignments.Accept(f.ctx, f.creator, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentAccepted, got.Status)
	assert.Equal(t, models.StatusCreatorScripting, f.reload(t, p.ID).Status)

	_, err = f.assignments.Accept(f.ctx, f.creator, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.assignments.Decline(f.ctx, f.creator, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestSubmitScript(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsInReview)
	ai := f.script(t, p.ID, models.ScriptAIGenerated)
	a := f.accepted(t, p)

	s, err := f.assignments.SubmitScript(f.ctx, f.creator, a.ID, ScriptDraft{
		Body:  "  my rewrite  ",
		Hooks: []string{"Stop scrolling", " "},
	})
	require.NoError(t, err)

	assert.Equal(t, models.ScriptCreatorRewrite, s.Type)
	assert.Equal(t, models.ApprovalPending, s.ApprovalStatus)
	assert.Equal(t, "my rewrite", s.Body)
	assert.Equal(t, []string{"Stop scrolling"}, s.Hooks)
	assert.Equal(t, ai.Version+1, s.Version)
	require.NotNil(t, s.AssignmentID)
	assert.Equal(t, a.ID, *s.AssignmentID)

	got, err := f.store.Assignments().GetByID(f.ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentInProgress, got.Status)
	assert.Equal(t, models.StatusScriptReview, f.reload(t, p.ID).Status)

	// A second rewrite gets the next version.
	s2, err := f.assignments.SubmitScript(f.ctx, f.creator, a.ID, ScriptDraft{Body: "v2"})
	require.NoError(t, err)
	assert.Equal(t, s.Version+1, s2.Version)
}

func TestSubmitScript_Errors(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)
	a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)

	_, err = f.assignments.SubmitScript(f.ctx, f.creator, a.ID, ScriptDraft{Body: " \n\t"})
	assert.ErrorIs(t, err, apperrors.ErrEmptyBody)

	_, err = f.assignments.SubmitScript(f.ctx, f.creator, a.ID, ScriptDraft{Body: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition, "still pending")

	_, err = f.assignments.SubmitScript(f.ctx, f.admin, a.ID, ScriptDraft{Body: "x"})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	scripts, err := f.store.Scripts().ListByProject(f.ctx, p.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, scripts)
}

func TestUploadVideo(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)
	a := f.accepted(t, p)
	s, err := f.assignments.SubmitScript(f.ctx, f.creator, a.ID, ScriptDraft{Body: "rewrite"})
	require.NoError(t, err)

	dur := 30
	v, err := f.assignments.UploadVideo(f.ctx, f.creator, a.ID, VideoUpload{
		VideoURL:        "https://cdn.example.com/1.mp4",
		DurationSeconds: &dur,
		ScriptID:        &s.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Version)
	assert.Equal(t, models.ApprovalPending, v.AdminApprovalStatus)
	assert.Equal(t, models.ApprovalPending, v.ClientApprovalStatus)
	assert.False(t, v.IsFinal)
	assert.Equal(t, models.StatusVideoInReview, f.reload(t, p.ID).Status)

	v2, err := f.assignments.UploadVideo(f.ctx, f.creator, a.ID, VideoUpload{VideoURL: "https://cdn.example.com/2.mp4"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)

	_, err = f.assignments.UploadVideo(f.ctx, f.creator, a.ID, VideoUpload{VideoURL: "  "})
	assert.ErrorIs(t, err, apperrors.ErrEmptyContent)

	other := f.projectIn(t, models.StatusScriptsInReview)
	foreign := f.script(t, other.ID, models.ScriptAIGenerated)
	_, err = f.assignments.UploadVideo(f.ctx, f.creator, a.ID, VideoUpload{VideoURL: "https://x", ScriptID: &foreign.ID})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListAssignments(t *testing.T) {
	f, _ := newFixture(t)
	p := f.projectIn(t, models.StatusScriptsApproved)
	_, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)
	_, err = f.assignments.Assign(f.ctx, f.admin, p.ID, f.otherCreator.ID)
	require.NoError(t, err)

	all, err := f.assignments.ListForProject(f.ctx, f.admin, p.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.creator.ID, all[0].CreatorID)

	mine, err := f.assignments.ListMine(f.ctx, f.creator)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	_, err = f.assignments.ListForProject(f.ctx, f.creator, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	ctx   context.Context
	store *memory.Store

	machine     *StateMachine
	approvals   *ApprovalEngine
	assignments *AssignmentManager
	projects    *ProjectService
	dashboard   *Dashboard

	admin, client, otherClient, creator, otherCreator models.Actor
}

type recordingListener struct {
	submitted []uuid.UUID
}

func (l *recordingListener) BriefSubmitted(id uuid.UUID) { l.submitted = append(l.submitted, id) }

func newFixture(t *testing.T) (*fixture, *recordingListener) {
	t.Helper()
	logger := zap.NewNop()
	store := memory.New()
	listener := &recordingListener{}

	f := &fixture{
		ctx:         context.Background(),
		store:       store,
		machine:     NewStateMachine(store, logger),
		approvals:   NewApprovalEngine(store, logger),
		assignments: NewAssignmentManager(store, logger),
		projects:    NewProjectService(store, listener, logger),
		dashboard:   NewDashboard(store),
	}
	f.admin = f.profile(t, models.RoleAdmin)
	f.client = f.profile(t, models.RoleClient)
	f.otherClient = f.profile(t, models.RoleClient)
	f.creator = f.profile(t, models.RoleCreator)
	f.otherCreator = f.profile(t, models.RoleCreator)
	return f, listener
}

func (f *fixture) profile(t *testing.T, role models.Role) models.Actor {
	t.Helper()
	p := &models.Profile{
		ID:       uuid.New(),
		Email:    string(role) + "-" + uuid.NewString()[:8] + "@example.com",
		FullName: "Test " + string(role),
		Role:     role,
	}
	require.NoError(t, f.store.Profiles().Create(f.ctx, p))
	return models.Actor{ID: p.ID, Role: role}
}

func (f *fixture) brief(t *testing.T) *models.Project {
	t.Helper()
	p, err := f.projects.SubmitBrief(f.ctx, f.client, BriefInput{
		Title:     "Spring launch",
		Platforms: []string{"TikTok"},
		NumVideos: 1,
	}, false)
	require.NoError(t, err)
	return p
}

// projectIn creates a project and forces it into status.
func (f *fixture) projectIn(t *testing.T, status models.ProjectStatus) *models.Project {
	t.Helper()
	p := f.brief(t)
	if status != p.Status {
		_, err := f.machine.Override(f.ctx, f.admin, p.ID, status, nil)
		require.NoError(t, err)
	}
	return f.reload(t, p.ID)
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *models.Project {
	t.Helper()
	p, err := f.store.Projects().GetByID(f.ctx, id)
	require.NoError(t, err)
	return p
}

func (f *fixture) script(t *testing.T, projectID uuid.UUID, typ models.ScriptType) *models.Script {
	t.Helper()
	version, err := f.store.Scripts().NextVersion(f.ctx, projectID)
	require.NoError(t, err)
	s := &models.Script{
		ProjectID:      projectID,
		Version:        version,
		Type:           typ,
		Hooks:          []string{"hook"},
		Body:           "body",
		ApprovalStatus: models.ApprovalPending,
	}
	require.NoError(t, f.store.Scripts().Create(f.ctx, s))
	return s
}

// accepted assigns f.creator to p and accepts.
func (f *fixture) accepted(t *testing.T, p *models.Project) *models.ProjectAssignment {
	t.Helper()
	a, err := f.assignments.Assign(f.ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)
	a, err = f.assignments.Accept(f.ctx, f.creator, a.ID)
	require.NoError(t, err)
	return a
}

func (f *fixture) video(t *testing.T, p *models.Project) *models.Video {
	t.Helper()
	a := f.accepted(t, p)
	v, err := f.assignments.UploadVideo(f.ctx, f.creator, a.ID, VideoUpload{VideoURL: "https://cdn.example.com/v.mp4"})
	require.NoError(t, err)
	return v
}

func strPtr(s string) *string { return &s }

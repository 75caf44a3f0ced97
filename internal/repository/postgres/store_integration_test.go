//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/auth"
	"github.com/lalith-99/ugcflow/internal/db"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/pipeline"
	"github.com/lalith-99/ugcflow/internal/repository"
	"github.com/lalith-99/ugcflow/internal/repository/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

var (
	sharedStore     *postgres.Store
	sharedStoreOnce sync.Once
	sharedStoreErr  error
	sharedPool      *pgxpool.Pool
)

// testStore starts one Postgres container per test run, migrates it and
// hands out a store over it. Tests isolate themselves with fresh uuids.
func testStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode (requires Docker)")
	}
	sharedStoreOnce.Do(func() {
		sharedStore, sharedStoreErr = setupStore()
	})
	if sharedStoreErr != nil {
		t.Fatalf("set up test database: %v", sharedStoreErr)
	}
	return sharedStore
}

func setupStore() (*postgres.Store, error) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "ugcflow_test",
				"POSTGRES_USER":     "ugcflow",
				"POSTGRES_PASSWORD": "test_password",
			},
			// Postgres logs this once for the init server and once for the
			// real one.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}
	url := fmt.Sprintf("postgres://ugcflow:test_password@%s:%s/ugcflow_test?sslmode=disable", host, port.Port())

	database, err := db.New(ctx, url, db.PoolOptions{MaxConns: 10}, zap.NewNop())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		return nil, err
	}
	sharedPool = database.Pool()
	return postgres.NewStore(sharedPool), nil
}

type fixture struct {
	client, creator, admin models.Actor
}

func newFixture(t *testing.T, ctx context.Context, store *postgres.Store) fixture {
	t.Helper()
	sessions := auth.NewService(store, auth.NewMemoryRevoker(), "integration-secret", time.Hour, zap.NewNop())
	var f fixture
	for _, role := range []models.Role{models.RoleClient, models.RoleCreator} {
		s, err := sessions.SignUp(ctx, auth.SignUpInput{
			Email: uuid.NewString() + "@example.com", Password: "password1", FullName: string(role), Role: role,
		})
		require.NoError(t, err)
		actor := models.Actor{ID: s.Profile.ID, Role: role}
		if role == models.RoleClient {
			f.client = actor
		} else {
			f.creator = actor
		}
	}
	admin, err := sessions.CreateAdmin(ctx, uuid.NewString()+"@example.com", "password1", "Ops")
	require.NoError(t, err)
	f.admin = models.Actor{ID: admin.ID, Role: models.RoleAdmin}
	return f
}

func TestPostgres_PipelineRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	f := newFixture(t, ctx, store)
	logger := zap.NewNop()

	projects := pipeline.NewProjectService(store, nil, logger)
	assignments := pipeline.NewAssignmentManager(store, logger)
	approvals := pipeline.NewApprovalEngine(store, logger)
	machine := pipeline.NewStateMachine(store, logger)

	p, err := projects.SubmitBrief(ctx, f.client, pipeline.BriefInput{
		Title: "Launch", Platforms: []string{"tiktok", "reels"}, Dos: []string{"smile"},
	}, false)
	require.NoError(t, err)

	got, err := store.Projects().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"tiktok", "reels"}, got.Platforms)
	assert.Equal(t, 1, got.NumVideos)

	a, err := assignments.Assign(ctx, f.admin, p.ID, f.creator.ID)
	require.NoError(t, err)
	_, err = assignments.Assign(ctx, f.admin, p.ID, f.creator.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)

	_, err = assignments.Accept(ctx, f.creator, a.ID)
	require.NoError(t, err)

	s1, err := assignments.SubmitScript(ctx, f.creator, a.ID, pipeline.ScriptDraft{Body: "first"})
	require.NoError(t, err)
	s2, err := assignments.SubmitScript(ctx, f.creator, a.ID, pipeline.ScriptDraft{Body: "second", Hooks: []string{"POV"}})
	require.NoError(t, err)
	assert.Equal(t, s1.Version+1, s2.Version)

	_, err = approvals.ReviewScript(ctx, f.admin, s2.ID, models.ApprovalApproved, nil)
	require.NoError(t, err)

	v, err := assignments.UploadVideo(ctx, f.creator, a.ID, pipeline.VideoUpload{VideoURL: "https://cdn.example.com/1.mp4"})
	require.NoError(t, err)

	_, err = approvals.ReviewVideoClient(ctx, f.client, v.ID, models.ApprovalApproved, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotYetAdminApproved)

	_, err = approvals.ReviewVideoAdmin(ctx, f.admin, v.ID, models.ApprovalApproved, nil)
	require.NoError(t, err)
	res, err := approvals.ReviewVideoClient(ctx, f.client, v.ID, models.ApprovalApproved, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, res.Project.Status)

	history, err := machine.History(ctx, f.admin, p.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, models.StatusDelivered, history[len(history)-1].To)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].To, history[i].From, "audit trail is contiguous")
	}
}

func TestPostgres_ConcurrentAssignOneWins(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	f := newFixture(t, ctx, store)
	logger := zap.NewNop()

	p, err := pipeline.NewProjectService(store, nil, logger).
		SubmitBrief(ctx, f.client, pipeline.BriefInput{Title: "Race"}, false)
	require.NoError(t, err)
	assignments := pipeline.NewAssignmentManager(store, logger)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := assignments.Assign(ctx, f.admin, p.ID, f.creator.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperrors.ErrAlreadyAssigned)
	}
	assert.Equal(t, 1, ok)

	count, err := store.Assignments().CountActive(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPostgres_TxRollback(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	f := newFixture(t, ctx, store)

	p := &models.Project{ClientID: f.client.ID, Status: models.StatusDraft, Brief: models.Brief{Title: "tx", NumVideos: 1}}
	err := store.InTx(ctx, func(tx repository.Repositories) error {
		if err := tx.Projects().Create(ctx, p); err != nil {
			return err
		}
		return apperrors.ErrConflict
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	_, err = store.Projects().GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestPostgres_MessageHistory(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	f := newFixture(t, ctx, store)

	p, err := pipeline.NewProjectService(store, nil, zap.NewNop()).
		SubmitBrief(ctx, f.client, pipeline.BriefInput{Title: "Chat"}, false)
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, store.Messages().Create(ctx, &models.Message{
			ProjectID: &p.ID, SenderID: f.client.ID, Channel: models.ChannelProject, Content: content,
		}))
	}
	require.NoError(t, store.Messages().Create(ctx, &models.Message{
		ProjectID: &p.ID, SenderID: f.admin.ID, Channel: models.ChannelAdminClient, Content: "other partition",
	}))
	require.NoError(t, store.Messages().Create(ctx, &models.Message{
		SenderID: f.client.ID, RecipientID: &f.admin.ID, Channel: models.ChannelDirect, Content: "direct",
	}))

	all, err := store.Messages().History(ctx, repository.HistoryQuery{ProjectID: &p.ID, Channel: models.ChannelProject})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Content)
	assert.Equal(t, "three", all[2].Content)

	page, err := store.Messages().History(ctx, repository.HistoryQuery{
		ProjectID: &p.ID, Channel: models.ChannelProject, After: all[0].ID, Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Content)

	direct, err := store.Messages().History(ctx, repository.HistoryQuery{
		Channel: models.ChannelDirect, Participant: &f.creator.ID,
	})
	require.NoError(t, err)
	assert.Empty(t, direct)

	direct, err = store.Messages().History(ctx, repository.HistoryQuery{
		Channel: models.ChannelDirect, Participant: &f.admin.ID,
	})
	require.NoError(t, err)
	require.Len(t, direct, 1)
	assert.Equal(t, "direct", direct[0].Content)
}

func TestPostgres_MessageHistoryCursorFollowsSortKey(t *testing.T) {
	ctx := context.Background()
	store := testStore(t)
	f := newFixture(t, ctx, store)

	p, err := pipeline.NewProjectService(store, nil, zap.NewNop()).
		SubmitBrief(ctx, f.client, pipeline.BriefInput{Title: "Cursor"}, false)
	require.NoError(t, err)

	var ids []int64
	for _, content := range []string{"one", "two", "three"} {
		m := &models.Message{ProjectID: &p.ID, SenderID: f.client.ID, Channel: models.ChannelProject, Content: content}
		require.NoError(t, store.Messages().Create(ctx, m))
		ids = append(ids, m.ID)
	}
	// A later id committed with an earlier timestamp.
	_, err = sharedPool.Exec(ctx,
		`UPDATE messages SET created_at = created_at - interval '1 hour' WHERE id = $1`, ids[2])
	require.NoError(t, err)

	q := repository.HistoryQuery{ProjectID: &p.ID, Channel: models.ChannelProject}
	var paged []string
	cursor := int64(0)
	for {
		page := q
		page.After, page.Limit = cursor, 1
		msgs, err := store.Messages().History(ctx, page)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		paged = append(paged, msgs[0].Content)
		cursor = msgs[0].ID
	}
	assert.Equal(t, []string{"three", "one", "two"}, paged)
}

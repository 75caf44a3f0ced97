// Package memory is an in-process implementation of repository.Store.
//
// It backs STORE=memory runs and the package tests. Transactions run under
// one store-wide mutex against a copy of the data that replaces the live
// copy only when the callback succeeds, so InTx is atomic and serializable.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lalith-99/ugcflow/internal/apperrors"
	"github.com/lalith-99/ugcflow/internal/models"
	"github.com/lalith-99/ugcflow/internal/repository"
)

type state struct {
	authUsers   map[uuid.UUID]models.AuthUser
	profiles    map[uuid.UUID]models.Profile
	projects    map[uuid.UUID]models.Project
	assignments map[uuid.UUID]models.ProjectAssignment
	scripts     map[uuid.UUID]models.Script
	videos      map[uuid.UUID]models.Video
	messages    []models.Message
	transitions []models.StatusTransition

	lastMessageID    int64
	lastTransitionID int64
	lastStamp        time.Time
}

func newState() *state {
	return &state{
		authUsers:   make(map[uuid.UUID]models.AuthUser),
		profiles:    make(map[uuid.UUID]models.Profile),
		projects:    make(map[uuid.UUID]models.Project),
		assignments: make(map[uuid.UUID]models.ProjectAssignment),
		scripts:     make(map[uuid.UUID]models.Script),
		videos:      make(map[uuid.UUID]models.Video),
	}
}

func (st *state) clone() *state {
	c := &state{
		authUsers:        copyMap(st.authUsers),
		profiles:         copyMap(st.profiles),
		projects:         copyMap(st.projects),
		assignments:      copyMap(st.assignments),
		scripts:          copyMap(st.scripts),
		videos:           copyMap(st.videos),
		messages:         append([]models.Message(nil), st.messages...),
		transitions:      append([]models.StatusTransition(nil), st.transitions...),
		lastMessageID:    st.lastMessageID,
		lastTransitionID: st.lastTransitionID,
		lastStamp:        st.lastStamp,
	}
	return c
}

// stamp returns a strictly increasing timestamp so that creation order is
// never ambiguous.
func (st *state) stamp() time.Time {
	t := time.Now().UTC().Truncate(time.Microsecond)
	if !t.After(st.lastStamp) {
		t = st.lastStamp.Add(time.Microsecond)
	}
	st.lastStamp = t
	return t
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}

// Store implements repository.Store in memory.
type Store struct {
	repos

	mu sync.Mutex
	st *state
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	s := &Store{st: newState()}
	s.repos = repos{s: s}
	return s
}

func (s *Store) InTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	if err := fn(repos{s: s, st: draft, tx: true}); err != nil {
		return err
	}
	s.st = draft
	return nil
}

// repos is either bound to a transaction draft (tx=true, lock already held)
// or to the live state, taking the store lock per call.
type repos struct {
	s  *Store
	st *state
	tx bool
}

func (r repos) acquire() (*state, func()) {
	if r.tx {
		return r.st, func() {}
	}
	r.s.mu.Lock()
	return r.s.st, r.s.mu.Unlock
}

func (r repos) AuthUsers() repository.AuthUserRepository     { return authUserRepo{r} }
func (r repos) Profiles() repository.ProfileRepository       { return profileRepo{r} }
func (r repos) Projects() repository.ProjectRepository       { return projectRepo{r} }
func (r repos) Assignments() repository.AssignmentRepository { return assignmentRepo{r} }
func (r repos) Scripts() repository.ScriptRepository         { return scriptRepo{r} }
func (r repos) Videos() repository.VideoRepository           { return videoRepo{r} }
func (r repos) Messages() repository.MessageRepository       { return messageRepo{r} }
func (r repos) Transitions() repository.TransitionRepository { return transitionRepo{r} }

func notFound(kind string, id any) error {
	return fmt.Errorf("%s %v: %w", kind, id, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------
// auth users
// ---------------------------------------------------------------

type authUserRepo struct{ repos }

func (r authUserRepo) Create(_ context.Context, u *models.AuthUser) error {
	st, release := r.acquire()
	defer release()

	u.Email = strings.ToLower(u.Email)
	for _, existing := range st.authUsers {
		if existing.Email == u.Email {
			return fmt.Errorf("auth user %s: %w", u.Email, apperrors.ErrConflict)
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = st.stamp()
	st.authUsers[u.ID] = *u
	return nil
}

func (r authUserRepo) GetByID(_ context.Context, id uuid.UUID) (*models.AuthUser, error) {
	st, release := r.acquire()
	defer release()

	u, ok := st.authUsers[id]
	if !ok {
		return nil, notFound("auth user", id)
	}
	return &u, nil
}

func (r authUserRepo) GetByEmail(_ context.Context, email string) (*models.AuthUser, error) {
	st, release := r.acquire()
	defer release()

	email = strings.ToLower(email)
	for _, u := range st.authUsers {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("auth user", email)
}

// ---------------------------------------------------------------
// profiles
// ---------------------------------------------------------------

type profileRepo struct{ repos }

func (r profileRepo) Create(_ context.Context, p *models.Profile) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.profiles[p.ID]; ok {
		return fmt.Errorf("profile %s: %w", p.ID, apperrors.ErrConflict)
	}
	now := st.stamp()
	p.CreatedAt, p.UpdatedAt = now, now
	st.profiles[p.ID] = *p
	return nil
}

func (r profileRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	st, release := r.acquire()
	defer release()

	p, ok := st.profiles[id]
	if !ok {
		return nil, notFound("profile", id)
	}
	return &p, nil
}

func (r profileRepo) ListByRole(_ context.Context, role models.Role) ([]models.Profile, error) {
	st, release := r.acquire()
	defer release()

	out := make([]models.Profile, 0)
	for _, p := range st.profiles {
		if p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ---------------------------------------------------------------
// projects
// ---------------------------------------------------------------

type projectRepo struct{ repos }

func cloneProject(p models.Project) models.Project {
	p.Platforms = cloneStrings(p.Platforms)
	p.VideoStyles = cloneStrings(p.VideoStyles)
	p.KeyMessaging = cloneStrings(p.KeyMessaging)
	p.Dos = cloneStrings(p.Dos)
	p.Donts = cloneStrings(p.Donts)
	p.ReferenceVideoURLs = cloneStrings(p.ReferenceVideoURLs)
	return p
}

func (r projectRepo) Create(_ context.Context, p *models.Project) error {
	st, release := r.acquire()
	defer release()

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := st.stamp()
	p.CreatedAt, p.UpdatedAt = now, now
	*p = cloneProject(*p)
	st.projects[p.ID] = cloneProject(*p)
	return nil
}

func (r projectRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Project, error) {
	st, release := r.acquire()
	defer release()

	p, ok := st.projects[id]
	if !ok {
		return nil, notFound("project", id)
	}
	p = cloneProject(p)
	return &p, nil
}

// GetForUpdate needs no extra locking: transactions already hold the store
// mutex.
func (r projectRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return r.GetByID(ctx, id)
}

func (r projectRepo) SetStatus(_ context.Context, id uuid.UUID, status models.ProjectStatus) error {
	st, release := r.acquire()
	defer release()

	p, ok := st.projects[id]
	if !ok {
		return notFound("project", id)
	}
	p.Status = status
	p.UpdatedAt = st.stamp()
	st.projects[id] = p
	return nil
}

func (r projectRepo) filter(keep func(models.Project) bool, newestFirst bool) ([]models.Project, error) {
	st, release := r.acquire()
	defer release()

	out := make([]models.Project, 0)
	for _, p := range st.projects {
		if keep(p) {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r projectRepo) List(_ context.Context, clientID *uuid.UUID) ([]models.Project, error) {
	return r.filter(func(p models.Project) bool {
		return clientID == nil || p.ClientID == *clientID
	}, true)
}

func (r projectRepo) ListForCreator(_ context.Context, creatorID uuid.UUID) ([]models.Project, error) {
	st, release := r.acquire()
	assigned := make(map[uuid.UUID]bool)
	for _, a := range st.assignments {
		if a.CreatorID == creatorID && a.Status.Active() {
			assigned[a.ProjectID] = true
		}
	}
	release()

	return r.filter(func(p models.Project) bool { return assigned[p.ID] }, true)
}

func statusSet(statuses []models.ProjectStatus) map[models.ProjectStatus]bool {
	set := make(map[models.ProjectStatus]bool, len(statuses))
	for _, s := range statuses {
		set[s] = true
	}
	return set
}

func (r projectRepo) ListByStatus(_ context.Context, statuses []models.ProjectStatus) ([]models.Project, error) {
	set := statusSet(statuses)
	return r.filter(func(p models.Project) bool { return set[p.Status] }, false)
}

func (r projectRepo) CountByClient(_ context.Context) (map[uuid.UUID]int, error) {
	st, release := r.acquire()
	defer release()

	counts := make(map[uuid.UUID]int)
	for _, p := range st.projects {
		counts[p.ClientID]++
	}
	return counts, nil
}

func (r projectRepo) CountByStatus(_ context.Context, statuses []models.ProjectStatus) (int, error) {
	st, release := r.acquire()
	defer release()

	set := statusSet(statuses)
	n := 0
	for _, p := range st.projects {
		if set[p.Status] {
			n++
		}
	}
	return n, nil
}

func (r projectRepo) Count(_ context.Context) (int, error) {
	st, release := r.acquire()
	defer release()
	return len(st.projects), nil
}

// ---------------------------------------------------------------
// assignments
// ---------------------------------------------------------------

type assignmentRepo struct{ repos }

func (r assignmentRepo) Create(_ context.Context, a *models.ProjectAssignment) error {
	st, release := r.acquire()
	defer release()

	if a.Status.Active() {
		for _, existing := range st.assignments {
			if existing.ProjectID == a.ProjectID && existing.CreatorID == a.CreatorID && existing.Status.Active() {
				return fmt.Errorf("project %s creator %s: %w", a.ProjectID, a.CreatorID, apperrors.ErrAlreadyAssigned)
			}
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := st.stamp()
	a.CreatedAt, a.UpdatedAt = now, now
	st.assignments[a.ID] = *a
	return nil
}

func (r assignmentRepo) GetByID(_ context.Context, id uuid.UUID) (*models.ProjectAssignment, error) {
	st, release := r.acquire()
	defer release()

	a, ok := st.assignments[id]
	if !ok {
		return nil, notFound("assignment", id)
	}
	return &a, nil
}

func (r assignmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, from []models.AssignmentStatus, to models.AssignmentStatus) (bool, error) {
	st, release := r.acquire()
	defer release()

	a, ok := st.assignments[id]
	if !ok {
		return false, notFound("assignment", id)
	}
	for _, f := range from {
		if a.Status == f {
			a.Status = to
			a.UpdatedAt = st.stamp()
			st.assignments[id] = a
			return true, nil
		}
	}
	return false, nil
}

func (r assignmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	st, release := r.acquire()
	defer release()

	if _, ok := st.assignments[id]; !ok {
		return notFound("assignment", id)
	}
	delete(st.assignments, id)
	return nil
}

func (r assignmentRepo) list(keep func(models.ProjectAssignment) bool, newestFirst bool) []models.ProjectAssignment {
	st, release := r.acquire()
	defer release()

	out := make([]models.ProjectAssignment, 0)
	for _, a := range st.assignments {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r assignmentRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]models.ProjectAssignment, error) {
	return r.list(func(a models.ProjectAssignment) bool { return a.ProjectID == projectID }, false), nil
}

func (r assignmentRepo) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]models.ProjectAssignment, error) {
	return r.list(func(a models.ProjectAssignment) bool { return a.CreatorID == creatorID }, true), nil
}

func (r assignmentRepo) HasActive(_ context.Context, projectID, creatorID uuid.UUID) (bool, error) {
	active := r.list(func(a models.ProjectAssignment) bool {
		return a.ProjectID == projectID && a.CreatorID == creatorID && a.Status.Active()
	}, false)
	return len(active) > 0, nil
}

func (r assignmentRepo) CountActive(_ context.Context, projectID uuid.UUID) (int, error) {
	active := r.list(func(a models.ProjectAssignment) bool {
		return a.ProjectID == projectID && a.Status.Active()
	}, false)
	return len(active), nil
}

// ---------------------------------------------------------------
// scripts
// ---------------------------------------------------------------

type scriptRepo struct{ repos }

func (r scriptRepo) Create(_ context.Context, s *models.Script) error {
	st, release := r.acquire()
	defer release()

	for _, existing := range st.scripts {
		if existing.ProjectID == s.ProjectID && existing.Version == s.Version {
			return fmt.Errorf("script version %d of project %s: %w", s.Version, s.ProjectID, apperrors.ErrConflict)
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.Hooks = cloneStrings(s.Hooks)
	s.CreatedAt = st.stamp()
	st.scripts[s.ID] = *s
	return nil
}

func (r scriptRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Script, error) {
	st, release := r.acquire()
	defer release()

	s, ok := st.scripts[id]
	if !ok {
		return nil, notFound("script", id)
	}
	s.Hooks = cloneStrings(s.Hooks)
	return &s, nil
}

func (r scriptRepo) NextVersion(_ context.Context, projectID uuid.UUID) (int, error) {
	st, release := r.acquire()
	defer release()

	max := 0
	for _, s := range st.scripts {
		if s.ProjectID == projectID && s.Version > max {
			max = s.Version
		}
	}
	return max + 1, nil
}

func (r scriptRepo) UpdateReview(_ context.Context, id uuid.UUID, rv repository.ScriptReview) (*models.Script, error) {
	st, release := r.acquire()
	defer release()

	s, ok := st.scripts[id]
	if !ok {
		return nil, notFound("script", id)
	}
	s.ApprovalStatus = rv.Status
	s.ApprovedBy = rv.ApprovedBy
	s.Feedback = rv.Feedback
	st.scripts[id] = s
	s.Hooks = cloneStrings(s.Hooks)
	return &s, nil
}

func (r scriptRepo) list(keep func(models.Script) bool, newestFirst bool) []models.Script {
	st, release := r.acquire()
	defer release()

	out := make([]models.Script, 0)
	for _, s := range st.scripts {
		if keep(s) {
			s.Hooks = cloneStrings(s.Hooks)
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r scriptRepo) ListByProject(_ context.Context, projectID uuid.UUID, status *models.ApprovalStatus) ([]models.Script, error) {
	return r.list(func(s models.Script) bool {
		return s.ProjectID == projectID && (status == nil || s.ApprovalStatus == *status)
	}, true), nil
}

func (r scriptRepo) ListPending(_ context.Context) ([]models.Script, error) {
	return r.list(func(s models.Script) bool { return s.ApprovalStatus == models.ApprovalPending }, false), nil
}

// ---------------------------------------------------------------
// videos
// ---------------------------------------------------------------

type videoRepo struct{ repos }

func (r videoRepo) Create(_ context.Context, v *models.Video) error {
	st, release := r.acquire()
	defer release()

	for _, existing := range st.videos {
		if existing.ProjectID == v.ProjectID && existing.Version == v.Version {
			return fmt.Errorf("video version %d of project %s: %w", v.Version, v.ProjectID, apperrors.ErrConflict)
		}
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	v.CreatedAt = st.stamp()
	st.videos[v.ID] = *v
	return nil
}

func (r videoRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Video, error) {
	st, release := r.acquire()
	defer release()

	v, ok := st.videos[id]
	if !ok {
		return nil, notFound("video", id)
	}
	return &v, nil
}

func (r videoRepo) NextVersion(_ context.Context, projectID uuid.UUID) (int, error) {
	st, release := r.acquire()
	defer release()

	max := 0
	for _, v := range st.videos {
		if v.ProjectID == projectID && v.Version > max {
			max = v.Version
		}
	}
	return max + 1, nil
}

func (r videoRepo) UpdateAdminReview(_ context.Context, id uuid.UUID, status models.ApprovalStatus, feedback *string) (*models.Video, error) {
	st, release := r.acquire()
	defer release()

	v, ok := st.videos[id]
	if !ok {
		return nil, notFound("video", id)
	}
	v.AdminApprovalStatus = status
	v.AdminFeedback = feedback
	st.videos[id] = v
	return &v, nil
}

func (r videoRepo) UpdateClientReview(_ context.Context, id uuid.UUID, status models.ApprovalStatus, feedback *string, isFinal bool) (*models.Video, error) {
	st, release := r.acquire()
	defer release()

	v, ok := st.videos[id]
	if !ok {
		return nil, notFound("video", id)
	}
	if v.AdminApprovalStatus != models.ApprovalApproved {
		return nil, fmt.Errorf("video %s: %w", id, apperrors.ErrNotYetAdminApproved)
	}
	v.ClientApprovalStatus = status
	v.ClientFeedback = feedback
	v.IsFinal = isFinal
	st.videos[id] = v
	return &v, nil
}

func (r videoRepo) list(keep func(models.Video) bool, newestFirst bool) []models.Video {
	st, release := r.acquire()
	defer release()

	out := make([]models.Video, 0)
	for _, v := range st.videos {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if newestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r videoRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]models.Video, error) {
	return r.list(func(v models.Video) bool { return v.ProjectID == projectID }, true), nil
}

func (r videoRepo) ListPendingAdmin(_ context.Context) ([]models.Video, error) {
	return r.list(func(v models.Video) bool { return v.AdminApprovalStatus == models.ApprovalPending }, false), nil
}

func (r videoRepo) CountAdminApproved(_ context.Context, projectIDs []uuid.UUID) (int, error) {
	ids := make(map[uuid.UUID]bool, len(projectIDs))
	for _, id := range projectIDs {
		ids[id] = true
	}
	approved := r.list(func(v models.Video) bool {
		return ids[v.ProjectID] && v.AdminApprovalStatus == models.ApprovalApproved
	}, false)
	return len(approved), nil
}

// ---------------------------------------------------------------
// messages
// ---------------------------------------------------------------

type messageRepo struct{ repos }

func (r messageRepo) Create(_ context.Context, m *models.Message) error {
	st, release := r.acquire()
	defer release()

	st.lastMessageID++
	m.ID = st.lastMessageID
	m.CreatedAt = st.stamp()
	st.messages = append(st.messages, *m)
	return nil
}

func sameProject(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r messageRepo) History(_ context.Context, q repository.HistoryQuery) ([]models.Message, error) {
	st, release := r.acquire()
	defer release()

	var cursor *models.Message
	if q.After > 0 {
		for i := range st.messages {
			if st.messages[i].ID == q.After {
				cursor = &st.messages[i]
				break
			}
		}
		if cursor == nil {
			return []models.Message{}, nil
		}
	}

	out := make([]models.Message, 0)
	for _, m := range st.messages {
		if m.Channel != q.Channel || !sameProject(m.ProjectID, q.ProjectID) {
			continue
		}
		if cursor != nil && !messageAfter(m, *cursor) {
			continue
		}
		if q.Participant != nil {
			p := *q.Participant
			if m.SenderID != p && (m.RecipientID == nil || *m.RecipientID != p) {
				continue
			}
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return messageAfter(out[j], out[i]) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// messageAfter orders messages by (created_at, id).
func messageAfter(m, cursor models.Message) bool {
	if m.CreatedAt.Equal(cursor.CreatedAt) {
		return m.ID > cursor.ID
	}
	return m.CreatedAt.After(cursor.CreatedAt)
}

// ---------------------------------------------------------------
// status transitions
// ---------------------------------------------------------------

type transitionRepo struct{ repos }

func (r transitionRepo) Append(_ context.Context, t *models.StatusTransition) error {
	st, release := r.acquire()
	defer release()

	st.lastTransitionID++
	t.ID = st.lastTransitionID
	t.CreatedAt = st.stamp()
	st.transitions = append(st.transitions, *t)
	return nil
}

func (r transitionRepo) ListByProject(_ context.Context, projectID uuid.UUID) ([]models.StatusTransition, error) {
	st, release := r.acquire()
	defer release()

	out := make([]models.StatusTransition, 0)
	for _, t := range st.transitions {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

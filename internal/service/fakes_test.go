package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mtlprog/taskhub/internal/domain"
	"github.com/mtlprog/taskhub/internal/notify"
)

var errStoreDown = errors.New("store down")

// memoryStore is an in-memory TaskStore that resolves relations from a user table.
type memoryStore struct {
	mu        sync.Mutex
	tasks     map[string]*domain.Task
	users     map[string]*domain.User
	seq       int
	clock     time.Time
	listCalls int
	updateErr error
	// rereadErr fails the first read that follows a write.
	rereadErr error
	written   bool
}

func newMemoryStore(users ...*domain.User) *memoryStore {
	s := &memoryStore{
		tasks: map[string]*domain.Task{},
		users: map[string]*domain.User{},
		clock: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memoryStore) resolve(t *domain.Task) *domain.Task {
	out := *t
	out.AssignedTo, out.CreatedBy = nil, nil
	if t.AssignedToID != nil {
		if u, ok := s.users[*t.AssignedToID]; ok {
			copied := *u
			out.AssignedTo = &copied
		}
	}
	if u, ok := s.users[t.CreatedByID]; ok {
		copied := *u
		out.CreatedBy = &copied
	}
	return &out
}

func (s *memoryStore) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.clock = s.clock.Add(time.Minute)

	s.written = true

	stored := *task
	stored.AssignedTo, stored.CreatedBy = nil, nil
	stored.ID = fmt.Sprintf("task-%d", s.seq)
	stored.CreatedAt = s.clock
	stored.UpdatedAt = s.clock
	s.tasks[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (s *memoryStore) GetByID(_ context.Context, taskID string) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written && s.rereadErr != nil {
		s.written = false
		return nil, s.rereadErr
	}
	s.written = false

	t, ok := s.tasks[taskID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return s.resolve(t), nil
}

func (s *memoryStore) ListAll(_ context.Context) ([]*domain.Task, error) {
	return s.list(func(*domain.Task) bool { return true }), nil
}

func (s *memoryStore) ListForUser(_ context.Context, userID string) ([]*domain.Task, error) {
	return s.list(func(t *domain.Task) bool {
		return t.IsAssignedTo(userID) || t.IsCreatedBy(userID)
	}), nil
}

func (s *memoryStore) list(keep func(*domain.Task) bool) []*domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listCalls++
	out := []*domain.Task{}
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, s.resolve(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memoryStore) Update(_ context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.updateErr != nil {
		return s.updateErr
	}
	current, ok := s.tasks[task.ID]
	if !ok {
		return domain.ErrTaskNotFound
	}
	s.clock = s.clock.Add(time.Minute)
	s.written = true

	updated := *task
	updated.AssignedTo, updated.CreatedBy = nil, nil
	updated.CreatedByID = current.CreatedByID
	updated.UpdatedAt = s.clock
	s.tasks[task.ID] = &updated
	return nil
}

func (s *memoryStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[taskID]; !ok {
		return domain.ErrTaskNotFound
	}
	delete(s.tasks, taskID)
	return nil
}

func (s *memoryStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// userTable serves both UserFinder and UserStore.
type userTable struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	seq      int
	lookups  int
	assigned map[string]int
}

func newUserTable(users ...*domain.User) *userTable {
	t := &userTable{users: map[string]*domain.User{}, assigned: map[string]int{}}
	for _, u := range users {
		t.users[u.ID] = u
	}
	return t
}

func (t *userTable) FindByID(ctx context.Context, userID string) (*domain.User, error) {
	return t.GetByID(ctx, userID)
}

func (t *userTable) GetByID(_ context.Context, userID string) (*domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookups++
	u, ok := t.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (t *userTable) GetByToken(_ context.Context, token string) (*domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, u := range t.users {
		if u.Token == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrInvalidToken
}

func (t *userTable) List(_ context.Context) ([]*domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lookups++
	out := []*domain.User{}
	for _, u := range t.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *userTable) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, u := range t.users {
		if u.Email == user.Email {
			return nil, domain.ErrEmailTaken
		}
	}
	t.seq++
	user.ID = fmt.Sprintf("new-user-%d", t.seq)
	stored := *user
	t.users[user.ID] = &stored
	return user, nil
}

func (t *userTable) CountAssignedTasks(_ context.Context, userID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.assigned[userID], nil
}

func (t *userTable) Update(_ context.Context, user *domain.User) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	stored := *user
	t.users[user.ID] = &stored
	return nil
}

func (t *userTable) Delete(_ context.Context, userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(t.users, userID)
	return nil
}

// auditLog records appended events and can be made to fail.
type auditLog struct {
	mu     sync.Mutex
	events []*domain.AuditEvent
	err    error
}

func (a *auditLog) Append(_ context.Context, event *domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.err != nil {
		return a.err
	}
	event.ID = fmt.Sprintf("event-%d", len(a.events)+1)
	a.events = append(a.events, event)
	return nil
}

func (a *auditLog) ListByEntity(_ context.Context, entityType, entityID string) ([]*domain.AuditEvent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []*domain.AuditEvent{}
	for i := len(a.events) - 1; i >= 0; i-- {
		if e := a.events[i]; e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (a *auditLog) all() []*domain.AuditEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*domain.AuditEvent(nil), a.events...)
}

type published struct {
	topic string
	env   notify.Envelope
}

// recordingPublisher captures every envelope instead of delivering it.
type recordingPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, env notify.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sent = append(p.sent, published{topic: topic, env: env})
	return p.err
}

func (p *recordingPublisher) to(topic, event string) []published {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []published
	for _, m := range p.sent {
		if m.topic == topic && m.env.Event == event {
			out = append(out, m)
		}
	}
	return out
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}

var errCacheDown = errors.New("cache down")

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, error)              { return nil, errCacheDown }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errCacheDown }
func (brokenCache) Delete(context.Context, ...string) error                  { return errCacheDown }
func (brokenCache) DeletePrefix(context.Context, string) (int, error)        { return 0, errCacheDown }

// Package repotest provides in-memory stores with the same contracts as the
// MySQL and Redis repositories, for service, handler and router tests.
package repotest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/lessons-api/internal/model"
	"github.com/iliyamo/lessons-api/internal/queue"
	"github.com/iliyamo/lessons-api/internal/repository"
)

// Users is an in-memory user store.
type Users struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func NewUsers() *Users { return &Users{byID: map[uint64]model.User{}} }

func (s *Users) Create(_ context.Context, name, email, hash string, roles ...string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.byID {
		if u.Email == email {
			return model.User{}, repository.ErrEmailExists
		}
	}
	s.nextID++
	now := time.Now().UTC()
	u := model.User{ID: s.nextID, Name: name, Email: email, PasswordHash: hash,
		Roles: append([]string{}, roles...), CreatedAt: now, UpdatedAt: now}
	s.byID[u.ID] = u
	return u, nil
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (s *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.PasswordHash = hash
	s.byID[id] = u
	return nil
}

// Count returns the number of stored users.
func (s *Users) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type refreshEntry struct {
	userID uint64
	exp    time.Time
}

// RefreshTokens is an in-memory refresh store.  Redeem is atomic under the
// mutex.
type RefreshTokens struct {
	mu      sync.Mutex
	entries map[string]refreshEntry
	Now     func() time.Time
}

func NewRefreshTokens() *RefreshTokens {
	return &RefreshTokens{entries: map[string]refreshEntry{}, Now: time.Now}
}

func (s *RefreshTokens) Insert(_ context.Context, hash string, userID uint64, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[hash]; ok {
		return repository.ErrTokenExists
	}
	s.entries[hash] = refreshEntry{userID: userID, exp: exp}
	return nil
}

func (s *RefreshTokens) Redeem(_ context.Context, hash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[hash]
	if !ok {
		return 0, repository.ErrTokenNotFound
	}
	delete(s.entries, hash)
	if s.Now().After(e.exp) {
		return 0, repository.ErrTokenNotFound
	}
	return e.userID, nil
}

func (s *RefreshTokens) Revoke(_ context.Context, userID uint64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[hash]; ok && e.userID == userID {
		delete(s.entries, hash)
	}
	return nil
}

func (s *RefreshTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for h, e := range s.entries {
		if e.userID == userID {
			delete(s.entries, h)
		}
	}
	return nil
}

// Len returns the number of live tokens.
func (s *RefreshTokens) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Resets is an in-memory password reset store.
type Resets struct {
	mu   sync.Mutex
	rows map[string]model.PasswordReset
}

func NewResets() *Resets { return &Resets{rows: map[string]model.PasswordReset{}} }

func (s *Resets) Get(_ context.Context, email string) (model.PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pr, ok := s.rows[strings.ToLower(email)]
	if !ok {
		return model.PasswordReset{}, repository.ErrTokenNotFound
	}
	return pr, nil
}

func (s *Resets) Put(_ context.Context, email, hash string, createdAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	s.rows[email] = model.PasswordReset{Email: email, TokenHash: hash, CreatedAt: createdAt}
	return nil
}

func (s *Resets) Consume(_ context.Context, email, hash string, notBefore time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(email)
	pr, ok := s.rows[email]
	if !ok || pr.TokenHash != hash || pr.CreatedAt.Before(notBefore) {
		return repository.ErrTokenNotFound
	}
	delete(s.rows, email)
	return nil
}

// Publisher records published messages.  Set MailErr or ResetErr to make
// the corresponding publish fail.
type Publisher struct {
	mu       sync.Mutex
	Mails    []queue.RecoveryMail
	Resets   []queue.PasswordResetEvent
	MailErr  error
	ResetErr error
}

func (p *Publisher) PublishRecoveryMail(_ context.Context, m queue.RecoveryMail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.MailErr != nil {
		return p.MailErr
	}
	p.Mails = append(p.Mails, m)
	return nil
}

func (p *Publisher) PublishPasswordReset(_ context.Context, ev queue.PasswordResetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ResetErr != nil {
		return p.ResetErr
	}
	p.Resets = append(p.Resets, ev)
	return nil
}

// LastMail returns the most recent recovery mail.
func (p *Publisher) LastMail() (queue.RecoveryMail, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Mails) == 0 {
		return queue.RecoveryMail{}, false
	}
	return p.Mails[len(p.Mails)-1], true
}

// Denylist is an in-memory access token denylist.
type Denylist struct {
	mu  sync.Mutex
	ids map[string]time.Time
}

func NewDenylist() *Denylist { return &Denylist{ids: map[string]time.Time{}} }

func (d *Denylist) Deny(_ context.Context, jti string, exp time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids[jti] = exp
	return nil
}

func (d *Denylist) IsDenied(_ context.Context, jti string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.ids[jti]
	return ok && time.Now().Before(exp), nil
}

// Lessons is an in-memory lesson store.
type Lessons struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Lesson
}

func NewLessons() *Lessons { return &Lessons{rows: map[uint64]model.Lesson{}} }

func (s *Lessons) List(_ context.Context, p repository.ListParams) ([]model.Lesson, int, error) {
	s.mu.Lock()
	all := make([]model.Lesson, 0, len(s.rows))
	for _, l := range s.rows {
		all = append(all, l)
	}
	s.mu.Unlock()
	key := func(l model.Lesson) string {
		switch p.Sort {
		case "title":
			return l.Title
		case "description":
			return l.Description
		}
		return ""
	}
	sortRows(all, p.Order == "desc", key, func(l model.Lesson) uint64 { return l.ID })
	return page(all, p), len(all), nil
}

func (s *Lessons) Get(_ context.Context, id uint64) (model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		return model.Lesson{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *Lessons) Create(_ context.Context, l *model.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	l.ID = s.nextID
	s.rows[l.ID] = *l
	return nil
}

func (s *Lessons) Update(_ context.Context, id uint64, p model.LessonPatch) (model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rows[id]
	if !ok {
		return model.Lesson{}, repository.ErrNotFound
	}
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	s.rows[id] = l
	return l, nil
}

func (s *Lessons) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Students is an in-memory student store.
type Students struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Student
	// Err, when set, is returned by every call.
	Err error
}

func NewStudents() *Students { return &Students{rows: map[uint64]model.Student{}} }

func (s *Students) List(_ context.Context, p repository.ListParams) ([]model.Student, int, error) {
	if s.Err != nil {
		return nil, 0, s.Err
	}
	s.mu.Lock()
	all := make([]model.Student, 0, len(s.rows))
	for _, st := range s.rows {
		all = append(all, st)
	}
	s.mu.Unlock()
	key := func(st model.Student) string {
		switch p.Sort {
		case "name":
			return st.Name
		case "last_name":
			return st.LastName
		case "phone":
			return st.Phone
		case "email":
			return st.Email
		}
		return ""
	}
	sortRows(all, p.Order == "desc", key, func(st model.Student) uint64 { return st.ID })
	return page(all, p), len(all), nil
}

func (s *Students) Get(_ context.Context, id uint64) (model.Student, error) {
	if s.Err != nil {
		return model.Student{}, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[id]
	if !ok {
		return model.Student{}, repository.ErrNotFound
	}
	return st, nil
}

func (s *Students) Create(_ context.Context, st *model.Student) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	st.ID = s.nextID
	s.rows[st.ID] = *st
	return nil
}

func (s *Students) Update(_ context.Context, id uint64, p model.StudentPatch) (model.Student, error) {
	if s.Err != nil {
		return model.Student{}, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[id]
	if !ok {
		return model.Student{}, repository.ErrNotFound
	}
	for _, f := range []struct {
		dst *string
		v   *string
	}{{&st.Name, p.Name}, {&st.LastName, p.LastName}, {&st.Phone, p.Phone}, {&st.Email, p.Email}} {
		if f.v != nil {
			*f.dst = *f.v
		}
	}
	s.rows[id] = st
	return st, nil
}

func (s *Students) Delete(_ context.Context, id uint64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// ErrBoom is a generic storage failure for tests.
var ErrBoom = errors.New("boom")

// sortRows orders rows by key with id as tie-break, both in one direction,
// like the ORDER BY the SQL repositories build.
func sortRows[T any](rows []T, desc bool, key func(T) string, id func(T) uint64) {
	less := func(a, b T) bool {
		if ka, kb := key(a), key(b); ka != kb {
			return ka < kb
		}
		return id(a) < id(b)
	}
	sort.Slice(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func page[T any](rows []T, p repository.ListParams) []T {
	from := p.Offset()
	if from >= len(rows) {
		return []T{}
	}
	to := from + p.PerPage
	if to > len(rows) {
		to = len(rows)
	}
	return rows[from:to]
}

package users

import (
	"context"
	"sync"
	"time"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/auth"
)

type fakeStore struct {
	mu     sync.Mutex
	users  map[int64]User
	codes  map[int64]VerificationCode
	nextID int64
}

func newFakeStore(seed ...User) *fakeStore {
	s := &fakeStore{users: map[int64]User{}, codes: map[int64]VerificationCode{}}
	for _, u := range seed {
		s.users[u.ID] = u
		if u.ID > s.nextID {
			s.nextID = u.ID
		}
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, u User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email || existing.NickName == u.NickName {
			return User{}, ErrConflict
		}
	}
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	return u, nil
}

func (s *fakeStore) List(context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *fakeStore) find(match func(User) bool) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *fakeStore) GetByEmail(_ context.Context, email string) (User, error) {
	return s.find(func(u User) bool { return u.Email == email })
}

func (s *fakeStore) GetByNickName(_ context.Context, nick string) (User, error) {
	return s.find(func(u User) bool { return u.NickName == nick })
}

func (s *fakeStore) mutate(id int64, fn func(*User)) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	fn(&u)
	s.users[id] = u
	return u, nil
}

func (s *fakeStore) Update(_ context.Context, id int64, req UpdateUserRequest) (User, error) {
	return s.mutate(id, func(u *User) {
		if req.FirstName != nil {
			u.FirstName = *req.FirstName
		}
		if req.Email != nil {
			u.Email = *req.Email
		}
		if req.NickName != nil {
			u.NickName = *req.NickName
		}
	})
}

func (s *fakeStore) UpdateStatus(_ context.Context, id int64, status Status) (User, error) {
	return s.mutate(id, func(u *User) { u.Status = status })
}

func (s *fakeStore) UpdateRole(_ context.Context, id int64, role ability.Role) (User, error) {
	return s.mutate(id, func(u *User) { u.Role = role })
}

func (s *fakeStore) UpdatePassword(_ context.Context, id int64, hash string) error {
	_, err := s.mutate(id, func(u *User) { u.PasswordHash = hash })
	return err
}

func (s *fakeStore) SetFailedAttempts(_ context.Context, id int64, n int) error {
	_, err := s.mutate(id, func(u *User) { u.FailedLoginAttempts = n })
	return err
}

func (s *fakeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *fakeStore) SaveCode(_ context.Context, code VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[code.UserID] = code
	return nil
}

func (s *fakeStore) GetCode(_ context.Context, userID int64) (VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[userID]
	if !ok {
		return VerificationCode{}, ErrCodeNotFound
	}
	return code, nil
}

func (s *fakeStore) DeleteCode(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, userID)
	return nil
}

type fakeIssuer struct {
	issued []auth.Identity
}

func (f *fakeIssuer) Issue(id auth.Identity) (string, time.Time, error) {
	f.issued = append(f.issued, id)
	return "signed-token", time.Now().Add(time.Hour), nil
}

type fakeNotifier struct {
	codes map[string]string
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, email, _ string, code string) error {
	if f.codes == nil {
		f.codes = map[string]string{}
	}
	f.codes[email] = code
	return nil
}

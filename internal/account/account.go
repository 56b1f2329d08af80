// Package account handles login and admin management of student accounts.
package account

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"schoolattendance/internal/model"
	"schoolattendance/internal/state"
)

// DefaultPassword is given to students created without a password.
const DefaultPassword = "password123"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidInput       = errors.New("username and name are required")
)

// Input is the editable part of a student account.
type Input struct {
	Username      string
	Password      string
	Name          string
	ClassName     string
	ParentContact string
}

// Service manages accounts stored in the state container.
type Service struct {
	state *state.State
	cost  int
}

func NewService(st *state.State) *Service {
	return &Service{state: st, cost: bcrypt.DefaultCost}
}

// HashPassword returns the bcrypt hash stored as a user's credential.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Login matches username and password against the stored credential.
func (s *Service) Login(username, password string) (model.User, error) {
	u, ok := s.state.UserByUsername(strings.TrimSpace(username))
	if !ok {
		return model.User{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Credential), []byte(password)) != nil {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Create adds a student account.
func (s *Service) Create(ctx context.Context, in Input) (model.User, error) {
	in = normalize(in)
	if in.Username == "" || in.Name == "" {
		return model.User{}, ErrInvalidInput
	}
	password := in.Password
	if password == "" {
		password = DefaultPassword
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return model.User{}, err
	}
	u := model.User{
		ID:            uuid.NewString(),
		Username:      in.Username,
		Credential:    hash,
		Role:          model.RoleStudent,
		Name:          in.Name,
		ClassName:     in.ClassName,
		ParentContact: in.ParentContact,
	}
	if err := s.state.AddUser(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

// Update edits an account. An empty password keeps the current one.
func (s *Service) Update(ctx context.Context, id string, in Input) (model.User, error) {
	in = normalize(in)
	if in.Username == "" || in.Name == "" {
		return model.User{}, ErrInvalidInput
	}
	u, ok := s.state.User(id)
	if !ok {
		return model.User{}, state.ErrUserNotFound
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password, s.cost)
		if err != nil {
			return model.User{}, err
		}
		u.Credential = hash
	}
	u.Username = in.Username
	u.Name = in.Name
	u.ClassName = in.ClassName
	u.ParentContact = in.ParentContact
	if err := s.state.UpdateUser(ctx, u); err != nil {
		return u, err
	}
	return u, nil
}

// Delete removes the account with its records and queued messages.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.state.DeleteUser(ctx, id)
}

// SortKey is a sortable student column.
type SortKey string

const (
	SortName      SortKey = "name"
	SortClassName SortKey = "className"
	SortUsername  SortKey = "username"
)

// ListStudents filters students whose name, class or username contains
// query (case-insensitive) and sorts them by key.
func (s *Service) ListStudents(query string, key SortKey, desc bool) []model.User {
	students := s.state.Students()
	if q := strings.ToLower(strings.TrimSpace(query)); q != "" {
		students = slices.DeleteFunc(students, func(u model.User) bool {
			return !strings.Contains(strings.ToLower(u.Name), q) &&
				!strings.Contains(strings.ToLower(u.ClassName), q) &&
				!strings.Contains(strings.ToLower(u.Username), q)
		})
	}
	field := func(u model.User) string {
		switch key {
		case SortClassName:
			return strings.ToLower(u.ClassName)
		case SortUsername:
			return strings.ToLower(u.Username)
		default:
			return strings.ToLower(u.Name)
		}
	}
	slices.SortStableFunc(students, func(a, b model.User) int {
		c := strings.Compare(field(a), field(b))
		if desc {
			return -c
		}
		return c
	})
	return students
}

// SeedUsers returns the accounts used when no users have been stored yet.
func SeedUsers(cost int) ([]model.User, error) {
	hash, err := HashPassword(DefaultPassword, cost)
	if err != nil {
		return nil, err
	}
	return []model.User{
		{ID: "admin-1", Username: "admin", Credential: hash, Role: model.RoleAdmin, Name: "Administrator", ClassName: "N/A", ParentContact: "-"},
		{ID: "student-1", Username: "budi", Credential: hash, Role: model.RoleStudent, Name: "Budi Santoso", ClassName: "12 IPA 1", ParentContact: "6281234567890"},
		{ID: "student-2", Username: "siti", Credential: hash, Role: model.RoleStudent, Name: "Siti Aminah", ClassName: "12 IPS 2", ParentContact: "6289876543210"},
	}, nil
}

func normalize(in Input) Input {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.ClassName = strings.TrimSpace(in.ClassName)
	in.ParentContact = strings.TrimSpace(in.ParentContact)
	return in
}

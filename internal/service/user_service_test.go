package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"taskManager/internal/models/user"
	"taskManager/internal/repository"
	"taskManager/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newUserService(repo *MockUserRepository) *service.UserService {
	return service.NewUserService(repo, fixedClock(time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC))).
		WithHashCost(bcrypt.MinCost)
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name       string
		input      service.RegisterInput
		setupMock  func(*MockUserRepository)
		wantFields []string
	}{
		{
			name:  "success",
			input: service.RegisterInput{Name: " Ann ", Email: "Ann@Example.com", Password: "secret-pass"},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
					return u.Email == "ann@example.com" && u.Name == "Ann" && u.Active && u.Role == user.RoleUser
				})).Return(nil)
			},
		},
		{
			name:       "invalid fields",
			input:      service.RegisterInput{Name: "", Email: "not-an-email", Password: "short"},
			setupMock:  func(m *MockUserRepository) {},
			wantFields: []string{"name", "email", "password"},
		},
		{
			name:       "password longer than bcrypt accepts",
			input:      service.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("p", 80)},
			setupMock:  func(m *MockUserRepository) {},
			wantFields: []string{"password"},
		},
		{
			name:       "multibyte password over 72 bytes",
			input:      service.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("пароль", 7)},
			setupMock:  func(m *MockUserRepository) {},
			wantFields: []string{"password"},
		},
		{
			name:  "password of exactly 72 bytes",
			input: service.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("p", 72)},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:       "email with display name",
			input:      service.RegisterInput{Name: "Bob", Email: "Bob <bob@x.io>", Password: "secret-pass"},
			setupMock:  func(m *MockUserRepository) {},
			wantFields: []string{"email"},
		},
		{
			name:  "duplicate email",
			input: service.RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "secret-pass"},
			setupMock: func(m *MockUserRepository) {
				m.On("Create", mock.Anything, mock.Anything).Return(repository.ErrDuplicate)
			},
			wantFields: []string{"email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setupMock(repo)

			u, err := newUserService(repo).Register(context.Background(), tt.input)

			if len(tt.wantFields) > 0 {
				busErr, ok := service.AsBusinessError(err)
				require.True(t, ok)
				assert.Equal(t, service.CodeValidation, busErr.Code)
				for _, field := range tt.wantFields {
					assert.Contains(t, busErr.Details, field)
				}
				return
			}

			require.NoError(t, err)
			assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(tt.input.Password)))
			repo.AssertExpectations(t)
		})
	}
}

func TestUserService_GetActiveUser(t *testing.T) {
	repo := new(MockUserRepository)
	svc := newUserService(repo)

	active := &user.User{UUID: uuid.New(), Active: true}
	inactive := &user.User{UUID: uuid.New(), Active: false}
	missing := uuid.New()
	repo.On("GetByID", mock.Anything, active.UUID).Return(active, nil)
	repo.On("GetByID", mock.Anything, inactive.UUID).Return(inactive, nil)
	repo.On("GetByID", mock.Anything, missing).Return(nil, repository.ErrNotFound)

	got, err := svc.GetActiveUser(context.Background(), active.UUID)
	require.NoError(t, err)
	assert.Equal(t, active.UUID, got.UUID)

	_, err = svc.GetActiveUser(context.Background(), inactive.UUID)
	assert.Equal(t, service.CodeUserInactive, businessCode(err))

	_, err = svc.GetActiveUser(context.Background(), missing)
	assert.Equal(t, service.CodeNotFound, businessCode(err))
}

func TestUserService_UpdateProfile(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.MinCost)
	require.NoError(t, err)
	actor := &user.User{UUID: uuid.New(), Name: "Old", PasswordHash: string(hash), Active: true}

	t.Run("wrong current password", func(t *testing.T) {
		repo := new(MockUserRepository)
		next := "new-password"
		_, err := newUserService(repo).UpdateProfile(context.Background(), actor, service.UpdateProfileInput{Password: &next, CurrentPassword: "nope"})

		busErr, ok := service.AsBusinessError(err)
		require.True(t, ok)
		assert.Contains(t, busErr.Details, "current_password")
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("new password too long for bcrypt", func(t *testing.T) {
		repo := new(MockUserRepository)
		next := strings.Repeat("x", 73)
		_, err := newUserService(repo).UpdateProfile(context.Background(), actor, service.UpdateProfileInput{Password: &next, CurrentPassword: "old-password"})

		busErr, ok := service.AsBusinessError(err)
		require.True(t, ok)
		assert.Equal(t, service.CodeValidation, busErr.Code)
		assert.Contains(t, busErr.Details, "password")
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("rename and change password", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Update", mock.Anything, mock.Anything).Return(nil)

		name := "New"
		next := "new-password"
		updated, err := newUserService(repo).UpdateProfile(context.Background(), actor, service.UpdateProfileInput{
			Name: &name, Password: &next, CurrentPassword: "old-password",
		})
		require.NoError(t, err)
		assert.Equal(t, "New", updated.Name)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(next)))
		assert.Equal(t, "Old", actor.Name)
	})
}

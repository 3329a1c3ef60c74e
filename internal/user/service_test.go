package user

import (
	"context"
	"errors"
	"testing"

	"github.com/AFFWORLDT/serverhyhpen-sub001/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, name, email, passwordHash, role string) (*User, error) {
	args := m.Called(ctx, name, email, passwordHash, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func TestService_Register(t *testing.T) {
	tests := []struct {
		name          string
		req           RegisterRequest
		setupMock     func(*MockRepository)
		expectedError error
	}{
		{
			name: "creates a member",
			req:  RegisterRequest{Name: "Mia", Email: "mia@gym.test", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("EmailExists", mock.Anything, "mia@gym.test").Return(false, nil)
				m.On("Create", mock.Anything, "Mia", "mia@gym.test", mock.Anything, auth.RoleMember).
					Return(&User{ID: 1, Name: "Mia", Email: "mia@gym.test", Role: auth.RoleMember}, nil)
			},
		},
		{
			name: "email taken",
			req:  RegisterRequest{Name: "Mia", Email: "taken@gym.test", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("EmailExists", mock.Anything, "taken@gym.test").Return(true, nil)
			},
			expectedError: ErrEmailExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)

			u, access, refresh, err := NewService(repo, "test-secret").Register(context.Background(), tt.req)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, u)
				assert.Empty(t, access)
				assert.Empty(t, refresh)
			} else {
				require.NoError(t, err)
				assert.Equal(t, auth.RoleMember, u.Role)
				assert.NotEmpty(t, access)
				assert.NotEmpty(t, refresh)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_Login(t *testing.T) {
	hash, _ := auth.HashPassword("password123")

	tests := []struct {
		name          string
		req           LoginRequest
		setupMock     func(*MockRepository)
		expectedError error
	}{
		{
			name: "valid credentials",
			req:  LoginRequest{Email: "coach@gym.test", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "coach@gym.test").
					Return(&User{ID: 2, Email: "coach@gym.test", PasswordHash: hash, Role: auth.RoleTrainer}, nil)
			},
		},
		{
			name: "wrong password",
			req:  LoginRequest{Email: "coach@gym.test", Password: "nope"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "coach@gym.test").
					Return(&User{ID: 2, Email: "coach@gym.test", PasswordHash: hash, Role: auth.RoleTrainer}, nil)
			},
			expectedError: ErrInvalidCredentials,
		},
		{
			name: "unknown email",
			req:  LoginRequest{Email: "ghost@gym.test", Password: "password123"},
			setupMock: func(m *MockRepository) {
				m.On("FindByEmail", mock.Anything, "ghost@gym.test").Return(nil, ErrUserNotFound)
			},
			expectedError: ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMock(repo)

			u, access, _, err := NewService(repo, "test-secret").Login(context.Background(), tt.req)
			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			claims, err := auth.ValidateToken(access, "test-secret")
			require.NoError(t, err)
			assert.Equal(t, auth.RoleTrainer, claims.Role)
			repo.AssertExpectations(t)
		})
	}
}

func TestService_RefreshToken(t *testing.T) {
	repo := new(MockRepository)
	// role changed since the refresh token was issued
	repo.On("FindByID", mock.Anything, 5).Return(&User{ID: 5, Email: "s@gym.test", Role: auth.RoleStaff}, nil)

	_, refresh, err := auth.GenerateTokens(5, "s@gym.test", auth.RoleMember, "test-secret", "test-secret")
	require.NoError(t, err)

	access, u, err := NewService(repo, "test-secret").RefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	assert.Equal(t, 5, u.ID)

	claims, err := auth.ValidateToken(access, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleStaff, claims.Role)
}

func TestService_GetByID_NotFound(t *testing.T) {
	repo := new(MockRepository)
	repo.On("FindByID", mock.Anything, 9).Return(nil, ErrUserNotFound)

	_, err := NewService(repo, "test-secret").GetByID(context.Background(), 9)
	assert.True(t, errors.Is(err, ErrUserNotFound))
}

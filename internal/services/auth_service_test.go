package services_test

import (
	"fmt"
	"testing"
	"time"

	"peerfinder/internal/models"
	"peerfinder/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(user *models.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(id uint) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(id uint, passwordHash string) error {
	args := m.Called(id, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateVerificationCode(id uint, code string) error {
	args := m.Called(id, code)
	return args.Error(0)
}

func (m *MockUserRepository) MarkVerified(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockPublisher records published events.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(routingKey string, body []byte) error {
	args := m.Called(routingKey, body)
	return args.Error(0)
}

func notFoundErr(email string) error {
	return fmt.Errorf("user with email %s: %w", email, models.ErrNotFound)
}

func TestAuthService_Register(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, "test_jwt_secret")

	user := &models.User{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DisplayName: "ada",
		Email:       "ada@example.com",
		Password:    "password123",
	}

	mockRepo.On("GetByEmail", user.Email).Return(nil, notFoundErr(user.Email)).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	err := authService.Register(user)
	assert.NoError(t, err)
	// Password must be stored hashed, never plaintext
	assert.NotEqual(t, "password123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	// A fresh account starts unverified with a six-digit code and no groups
	assert.False(t, user.Verified)
	assert.Len(t, user.VerificationCode, 6)
	assert.Empty(t, user.Groups)
	assert.Empty(t, user.OwnerOfGroups)
	mockRepo.AssertExpectations(t)

	// Email already in use
	mockRepo.On("GetByEmail", user.Email).Return(&models.User{ID: 1}, nil).Once()
	err = authService.Register(user)
	assert.Error(t, err)
	assert.ErrorIs(t, err, models.ErrConflict)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_Register_PublishesEvent(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	authService := services.NewAuthService(mockRepo, mockPub, "test_jwt_secret")

	user := &models.User{
		FirstName:   "Grace",
		LastName:    "Hopper",
		DisplayName: "grace",
		Email:       "grace@example.com",
		Password:    "password123",
	}

	mockRepo.On("GetByEmail", user.Email).Return(nil, notFoundErr(user.Email)).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()
	mockPub.On("Publish", "user.registered", mock.Anything).Return(nil).Once()

	err := authService.Register(user)
	assert.NoError(t, err)
	mockPub.AssertExpectations(t)
}

func TestAuthService_Login(t *testing.T) {
	mockRepo := new(MockUserRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	user := &models.User{
		ID:          7,
		FirstName:   "Ada",
		LastName:    "Lovelace",
		DisplayName: "ada",
		Email:       "ada@example.com",
		Password:    string(hashedPassword),
		Groups:      models.IDList{3, 5},
	}

	// Successful login returns the account and a signed token
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	got, token, err := authService.Login(user.Email, "password123")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, token)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(testJWTSecret), nil
	})
	assert.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	assert.True(t, ok)
	assert.EqualValues(t, user.ID, claims["user_id"])
	assert.Equal(t, user.DisplayName, claims["display_name"])
	mockRepo.AssertExpectations(t)

	// Wrong password
	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	_, _, err = authService.Login(user.Email, "wrongpassword")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
	mockRepo.AssertExpectations(t)

	// Unknown email gets the same generic error
	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, notFoundErr("nobody@example.com")).Once()
	_, _, err = authService.Login("nobody@example.com", "password123")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	testJWTSecret := "test_jwt_secret"
	authService := services.NewAuthService(mockRepo, nil, testJWTSecret)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":      uint(7),
		"display_name": "ada",
		"exp":          jwt.TimeFunc().Add(time.Hour).Unix(),
	})
	validTokenString, _ := token.SignedString([]byte(testJWTSecret))

	claims, err := authService.ValidateToken(validTokenString)
	assert.NoError(t, err)
	assert.NotNil(t, claims)
	assert.EqualValues(t, 7, claims["user_id"])

	// Garbage token
	_, err = authService.ValidateToken("invalid.token.string")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")

	// Expired token
	expiredToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": uint(7),
		"exp":     jwt.TimeFunc().Add(-time.Hour).Unix(),
	})
	expiredTokenString, _ := expiredToken.SignedString([]byte(testJWTSecret))
	_, err = authService.ValidateToken(expiredTokenString)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
}

func TestAuthService_VerifyEmail(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, "test_jwt_secret")

	user := &models.User{ID: 7, Email: "ada@example.com", VerificationCode: "123456"}

	// Matching code marks verified
	mockRepo.On("GetByID", uint(7)).Return(user, nil).Once()
	mockRepo.On("MarkVerified", uint(7)).Return(nil).Once()
	assert.NoError(t, authService.VerifyEmail(7, "123456"))
	mockRepo.AssertExpectations(t)

	// Mismatched code is a validation error
	mockRepo.On("GetByID", uint(7)).Return(user, nil).Once()
	err := authService.VerifyEmail(7, "000000")
	assert.ErrorIs(t, err, models.ErrValidation)
	mockRepo.AssertExpectations(t)

	// Unknown user propagates not-found
	mockRepo.On("GetByID", uint(99)).Return(nil, fmt.Errorf("user 99: %w", models.ErrNotFound)).Once()
	err = authService.VerifyEmail(99, "123456")
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ResendVerification(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockPub := new(MockPublisher)
	authService := services.NewAuthService(mockRepo, mockPub, "test_jwt_secret")

	user := &models.User{ID: 7, Email: "ada@example.com", DisplayName: "ada", VerificationCode: "123456"}

	mockRepo.On("GetByID", uint(7)).Return(user, nil).Once()
	mockRepo.On("UpdateVerificationCode", uint(7), mock.AnythingOfType("string")).Return(nil).Once()
	mockPub.On("Publish", "user.verification_resent", mock.Anything).Return(nil).Once()

	assert.NoError(t, authService.ResendVerification(7))
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestAuthService_ForgotPassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, "test_jwt_secret")

	user := &models.User{ID: 7, Email: "ada@example.com", DisplayName: "ada"}

	mockRepo.On("GetByEmail", user.Email).Return(user, nil).Once()
	mockRepo.On("UpdateVerificationCode", uint(7), mock.AnythingOfType("string")).Return(nil).Once()
	userID, err := authService.ForgotPassword(user.Email)
	assert.NoError(t, err)
	assert.Equal(t, uint(7), userID)
	mockRepo.AssertExpectations(t)

	// Unknown email is not-found
	mockRepo.On("GetByEmail", "nobody@example.com").Return(nil, notFoundErr("nobody@example.com")).Once()
	_, err = authService.ForgotPassword("nobody@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, nil, "test_jwt_secret")

	mockRepo.On("UpdatePassword", uint(7), mock.MatchedBy(func(hash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte("newpassword")) == nil
	})).Return(nil).Once()

	assert.NoError(t, authService.ChangePassword(7, "newpassword"))
	mockRepo.AssertExpectations(t)

	// Too-short password is rejected before touching the store
	err := authService.ChangePassword(7, "abc")
	assert.ErrorIs(t, err, models.ErrValidation)
	mockRepo.AssertExpectations(t)
}

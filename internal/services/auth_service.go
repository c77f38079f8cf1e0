package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"peerfinder/internal/events"
	"peerfinder/internal/models"
	"peerfinder/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles business logic for accounts: registration, login,
// email verification and password recovery.
type AuthService struct {
	userRepo   repositories.UserRepository
	publisher  EventPublisher
	jwtSecret  []byte
	tokenDurat time.Duration // Duration for which JWT is valid
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, publisher EventPublisher, jwtSecret string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		publisher:  publisher,
		jwtSecret:  []byte(jwtSecret),
		tokenDurat: 24 * time.Hour,
	}
}

// generateVerificationCode returns a random six-digit code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// Register creates a new account with a hashed password and an initial
// verification code, then raises a user.registered event so the mail
// consumer can deliver the code. user.ID is populated on success.
func (s *AuthService) Register(user *models.User) error {
	if _, err := s.userRepo.GetByEmail(user.Email); err == nil {
		return fmt.Errorf("email %s already in use: %w", user.Email, models.ErrConflict)
	} else if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	code, err := generateVerificationCode()
	if err != nil {
		return err
	}
	user.VerificationCode = code
	user.Verified = false
	user.Groups = models.IDList{}
	user.OwnerOfGroups = models.IDList{}

	if err := s.userRepo.Create(user); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	publishEvent(s.publisher, events.UserRegistered, events.AccountEvent{
		UserID:           user.ID,
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		VerificationCode: code,
	})
	return nil
}

// Login authenticates a user and returns the account plus a signed JWT.
func (s *AuthService) Login(email, password string) (*models.User, string, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		// Do not reveal whether the email exists
		return nil, "", fmt.Errorf("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("invalid email or password")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":      user.ID,
		"display_name": user.DisplayName,
		"exp":          time.Now().Add(s.tokenDurat).Unix(),
		"iat":          time.Now().Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user, tokenString, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		log.Printf("Token validation error: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// VerifyEmail checks the submitted code against the stored one.
func (s *AuthService) VerifyEmail(userID uint, code string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if code == "" || user.VerificationCode != code {
		return fmt.Errorf("verification code does not match: %w", models.ErrValidation)
	}
	if err := s.userRepo.MarkVerified(userID); err != nil {
		return fmt.Errorf("failed to mark user verified: %w", err)
	}
	return nil
}

// ResendVerification reissues the verification code and raises an event so
// the mail consumer sends it again.
func (s *AuthService) ResendVerification(userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	code, err := generateVerificationCode()
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdateVerificationCode(userID, code); err != nil {
		return err
	}

	publishEvent(s.publisher, events.VerificationResent, events.AccountEvent{
		UserID:           user.ID,
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		VerificationCode: code,
	})
	return nil
}

// ForgotPassword reissues the verification code for a password reset and
// returns the account id the frontend continues the flow with.
func (s *AuthService) ForgotPassword(email string) (uint, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return 0, err
	}
	code, err := generateVerificationCode()
	if err != nil {
		return 0, err
	}
	if err := s.userRepo.UpdateVerificationCode(user.ID, code); err != nil {
		return 0, err
	}

	publishEvent(s.publisher, events.PasswordResetCode, events.AccountEvent{
		UserID:           user.ID,
		Email:            user.Email,
		DisplayName:      user.DisplayName,
		VerificationCode: code,
	})
	return user.ID, nil
}

// ChangePassword replaces the stored hash with one for the new password.
func (s *AuthService) ChangePassword(userID uint, newPassword string) error {
	if len(newPassword) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", models.ErrValidation)
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(userID, string(hashedPassword)); err != nil {
		return err
	}
	return nil
}

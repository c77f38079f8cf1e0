package handlers

import (
	"errors"
	"fmt"
	"log"

	"peerfinder/internal/models"
	"peerfinder/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for accounts.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the account routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Post("/verifyemail", h.HandleVerifyEmail)
	router.Post("/resendverificationemail", h.HandleResendVerification)
	router.Post("/forgotpasswordverification", h.HandleForgotPassword)
	router.Post("/changepassword", h.HandleChangePassword)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	FirstName   string `json:"FirstName" validate:"required,max=100"`
	LastName    string `json:"LastName" validate:"required,max=100"`
	DisplayName string `json:"DisplayName" validate:"required,min=2,max=100"`
	Email       string `json:"Email" validate:"required,email"`
	Password    string `json:"Password" validate:"required,min=6"`
}

// HandleRegister handles new account registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"UserId": -1,
			"error":  "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"UserId": -1,
			"error":  "Validation failed",
			"errors": errorMessages,
		})
	}

	user := models.User{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Password:    req.Password,
	}
	if err := h.authService.Register(&user); err != nil {
		log.Printf("Error registering user: %v", err)
		if errors.Is(err, models.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"UserId": -1,
				"error":  "Email is already in use",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"UserId": -1,
			"error":  "Could not register user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"UserId": user.ID,
		"error":  "",
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"Email" validate:"required,email"`
	Password string `json:"Password" validate:"required"`
}

// HandleLogin handles login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"UserId": -1,
			"error":  "Invalid request body",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"UserId": -1,
			"error":  "Email and Password are required",
		})
	}

	user, token, err := h.authService.Login(req.Email, req.Password)
	if err != nil {
		log.Printf("Error during login for %s: %v", req.Email, err)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"UserId": -1,
			"error":  "Invalid Email or Password",
		})
	}

	return c.JSON(fiber.Map{
		"UserId":      user.ID,
		"FirstName":   user.FirstName,
		"LastName":    user.LastName,
		"DisplayName": user.DisplayName,
		"Group":       user.Groups,
		"Token":       token,
		"error":       "",
	})
}

// VerifyEmailRequest represents the request body for email verification.
type VerifyEmailRequest struct {
	UserID                uint   `json:"UserId" validate:"required"`
	InputVerificationCode string `json:"InputVerificationCode" validate:"required"`
}

// HandleVerifyEmail checks a submitted verification code.
func (h *AuthHandler) HandleVerifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId and InputVerificationCode are required",
		})
	}

	if err := h.authService.VerifyEmail(req.UserID, req.InputVerificationCode); err != nil {
		log.Printf("Error verifying email for user %d: %v", req.UserID, err)
		if errors.Is(err, models.ErrValidation) {
			return respondError(c, err, "Verification code does not match")
		}
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}

// ResendVerificationRequest represents the request body for a code reissue.
type ResendVerificationRequest struct {
	UserID uint `json:"UserId" validate:"required"`
}

// HandleResendVerification reissues and re-sends the verification code.
func (h *AuthHandler) HandleResendVerification(c *fiber.Ctx) error {
	var req ResendVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId is required",
		})
	}

	if err := h.authService.ResendVerification(req.UserID); err != nil {
		log.Printf("Error resending verification for user %d: %v", req.UserID, err)
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{"error": ""})
}

// ForgotPasswordRequest represents the request body for password recovery.
type ForgotPasswordRequest struct {
	Email string `json:"Email" validate:"required,email"`
}

// HandleForgotPassword starts the password reset flow for an email address.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email is required",
		})
	}

	userID, err := h.authService.ForgotPassword(req.Email)
	if err != nil {
		log.Printf("Error starting password reset for %s: %v", req.Email, err)
		if errors.Is(err, models.ErrNotFound) {
			return respondError(c, err, "There is no account associated with this email")
		}
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{
		"UserId": userID,
		"error":  "",
	})
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	UserID   uint   `json:"UserId" validate:"required"`
	Password string `json:"Password" validate:"required,min=6"`
}

// HandleChangePassword replaces the account password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := h.validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "UserId and Password are required",
		})
	}

	if err := h.authService.ChangePassword(req.UserID, req.Password); err != nil {
		log.Printf("Error changing password for user %d: %v", req.UserID, err)
		return respondError(c, err, "")
	}

	return c.JSON(fiber.Map{
		"message": "Password updated successfully",
	})
}

package handlers

import (
	"errors"
	"time"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
	cfg         *config.Config
}

func NewAuthHandler(authService *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := bind(c, &req, "All fields are required"); err != nil {
		return respondError(c, err, "")
	}

	resp, err := h.authService.Register(c.UserContext(), &req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			return fail(c, fiber.StatusBadRequest, "All fields are required")
		}
		return respondError(c, err, "Failed to register user")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := bind(c, &req, "Email and code are required"); err != nil {
		return respondError(c, err, "")
	}

	if err := h.authService.VerifyEmail(&req); err != nil {
		if errors.Is(err, services.ErrInvalidCode) {
			return fail(c, fiber.StatusBadRequest, "Invalid or expired verification code")
		}
		return respondError(c, err, "Failed to verify email")
	}
	return c.JSON(dto.MessageResponse{Message: "Email verified successfully"})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req, "Email and password are required"); err != nil {
		return respondError(c, err, "")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		return respondError(c, err, "Failed to login")
	}

	c.Cookie(h.sessionCookie(resp.Token, resp.ExpiresAt))
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	sessionID, err := principal.GetSessionID(c)
	if err != nil {
		return respondError(c, errUnauthorized, "")
	}

	if err := h.authService.Logout(sessionID); err != nil {
		return respondError(c, err, "Failed to logout")
	}

	c.Cookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(dto.MessageResponse{Message: "Logged out successfully"})
}

// ForgotPassword answers the same way whether or not the email exists.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := bind(c, &req, "Email is required"); err != nil {
		return respondError(c, err, "")
	}

	if err := h.authService.ForgotPassword(c.UserContext(), &req); err != nil {
		return respondError(c, err, "Failed to initiate password reset")
	}
	return c.JSON(dto.MessageResponse{Message: "If the email exists, a reset code has been sent"})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := bind(c, &req, "All fields are required"); err != nil {
		return respondError(c, err, "")
	}

	if err := h.authService.ResetPassword(&req); err != nil {
		if errors.Is(err, services.ErrInvalidCode) {
			return fail(c, fiber.StatusBadRequest, "Invalid or expired reset code")
		}
		return respondError(c, err, "Failed to reset password")
	}
	return c.JSON(dto.MessageResponse{Message: "Password reset successfully"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	user, err := h.authService.GetProfile(userID)
	if err != nil {
		return respondError(c, err, "Failed to get user")
	}
	return c.JSON(user)
}

func (h *AuthHandler) UpdateMe(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.UpdateProfileRequest
	if err := bind(c, &req, "Invalid profile data"); err != nil {
		return respondError(c, err, "")
	}

	user, err := h.authService.UpdateProfile(userID, &req)
	if err != nil {
		return respondError(c, err, "Failed to update user")
	}
	return c.JSON(user)
}

func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.DeleteAccountRequest
	if err := bind(c, &req, "Password is required"); err != nil {
		return respondError(c, err, "")
	}

	if err := h.authService.DeleteAccount(userID, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return fail(c, fiber.StatusUnauthorized, "Incorrect password. Please try again.")
		}
		return respondError(c, err, "Failed to delete account")
	}

	c.Cookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(dto.MessageResponse{Message: "Account deleted successfully"})
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}

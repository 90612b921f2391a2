package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	db      *gorm.DB
	cfg     *config.Config
	mailer  mail.Mailer
	clock   clock.Clock
	metrics *metrics.Collector
}

func NewAuthService(db *gorm.DB, cfg *config.Config, mailer mail.Mailer, clk clock.Clock, m *metrics.Collector) *AuthService {
	return &AuthService{
		db:      db,
		cfg:     cfg,
		mailer:  mailer,
		clock:   clk,
		metrics: m,
	}
}

// bcrypt only hashes the first 72 bytes and rejects anything longer.
const maxPasswordBytes = 72

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" || email == "" || req.Password == "" || len(req.Password) > maxPasswordBytes {
		return nil, ErrValidation
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, err
	}
	expiry := s.clock.Now().Add(s.cfg.CodeTTL)

	user := models.User{
		Name:               name,
		Email:              email,
		Password:           string(hash),
		Role:               s.roleFor(email),
		VerificationCode:   &code,
		VerificationExpiry: &expiry,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	msg, err := mail.VerificationEmail(user.Email, user.Name, code, s.cfg.CodeTTL)
	deliver(ctx, s.mailer, s.metrics, msg, err, "user_id", user.ID.String())

	slog.Info("user registered", "user_id", user.ID.String())
	return &dto.RegisterResponse{
		Message: "User registered successfully. Please check your email for verification code.",
		UserID:  user.ID,
	}, nil
}

func (s *AuthService) roleFor(email string) string {
	for _, admin := range s.cfg.AdminEmailList() {
		if admin == email {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}

// VerifyEmail consumes a verification code. Every failure mode returns
// ErrInvalidCode and leaves the user unchanged.
func (s *AuthService) VerifyEmail(req *dto.VerifyEmailRequest) error {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if !codeMatches(user.VerificationCode, user.VerificationExpiry, req.Code, s.clock.Now()) {
		return ErrInvalidCode
	}

	err := s.db.Model(&user).Updates(map[string]interface{}{
		"email_verified":      true,
		"verification_code":   nil,
		"verification_expiry": nil,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	return nil
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.LoginResponse, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	session := models.Session{
		UserID:    user.ID,
		ExpiresAt: s.clock.Now().Add(s.cfg.SessionExpiry),
	}
	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	token, err := s.signSession(&user, &session)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Message:   "Login successful",
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		User:      ToUserResponse(&user),
	}, nil
}

func (s *AuthService) signSession(user *models.User, session *models.Session) (string, error) {
	claims := jwt.MapClaims{
		"sub": user.ID.String(),
		"sid": session.ID.String(),
		"iat": s.clock.Now().Unix(),
		"exp": session.ExpiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Authenticate resolves a token's session to its user. Revoked, expired and
// foreign sessions all yield ErrSessionInvalid.
func (s *AuthService) Authenticate(sessionID, userID uuid.UUID) (*models.User, error) {
	var session models.Session
	if err := s.db.Preload("User").First(&session, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if session.UserID != userID || !session.Active(s.clock.Now()) {
		return nil, ErrSessionInvalid
	}
	return &session.User, nil
}

func (s *AuthService) Logout(sessionID uuid.UUID) error {
	return s.db.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("revoked", true).Error
}

// ForgotPassword issues a reset code when the email belongs to a user. It
// reports success either way so callers cannot probe for accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, req *dto.ForgotPasswordRequest) error {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	expiry := s.clock.Now().Add(s.cfg.CodeTTL)

	err = s.db.Model(&user).Updates(map[string]interface{}{
		"reset_code":   code,
		"reset_expiry": expiry,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store reset code: %w", err)
	}

	msg, err := mail.PasswordResetEmail(user.Email, user.Name, code, s.cfg.CodeTTL)
	deliver(ctx, s.mailer, s.metrics, msg, err, "user_id", user.ID.String())
	return nil
}

// ResetPassword consumes a reset code, replaces the password hash and revokes
// every session the user still holds.
func (s *AuthService) ResetPassword(req *dto.ResetPasswordRequest) error {
	if len(req.NewPassword) > maxPasswordBytes {
		return ErrValidation
	}

	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to load user: %w", err)
	}

	if !codeMatches(user.ResetCode, user.ResetExpiry, req.Code, s.clock.Now()) {
		return ErrInvalidCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&user).Updates(map[string]interface{}{
			"password":     string(hash),
			"reset_code":   nil,
			"reset_expiry": nil,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		return tx.Model(&models.Session{}).
			Where("user_id = ? AND revoked = ?", user.ID, false).
			Update("revoked", true).Error
	})
}

func (s *AuthService) GetProfile(userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *AuthService) UpdateProfile(userID uuid.UUID, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrValidation
		}
		updates["name"] = name
	}
	if req.FacebookLinked != nil {
		updates["facebook_linked"] = *req.FacebookLinked
	}
	if req.FacebookID != nil {
		updates["facebook_id"] = *req.FacebookID
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.GetProfile(userID)
}

// DeleteAccount checks the password and removes the user with everything
// they own in one transaction.
func (s *AuthService) DeleteAccount(userID uuid.UUID, password string) error {
	user, err := s.findUser(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		lists := tx.Model(&models.List{}).Select("id").Where("user_id = ?", userID)
		orders := tx.Model(&models.Order{}).Select("id").Where("user_id = ?", userID)

		steps := []*gorm.DB{
			tx.Where("list_id IN (?)", lists).Delete(&models.ListItem{}),
			tx.Where("user_id = ?", userID).Delete(&models.List{}),
			tx.Where("order_id IN (?)", orders).Delete(&models.OrderItem{}),
			tx.Where("order_id IN (?)", orders).Delete(&models.Payment{}),
			tx.Where("user_id = ?", userID).Delete(&models.Order{}),
			tx.Where("user_id = ?", userID).Delete(&models.Message{}),
			tx.Where("user_id = ?", userID).Delete(&models.Session{}),
		}
		for _, step := range steps {
			if step.Error != nil {
				return fmt.Errorf("failed to delete account data: %w", step.Error)
			}
		}
		return tx.Delete(user).Error
	})
}

func (s *AuthService) findUser(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// ToUserResponse strips credentials and pending codes from a user.
func ToUserResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             user.ID,
		Name:           user.Name,
		Email:          user.Email,
		Role:           user.Role,
		EmailVerified:  user.EmailVerified,
		FacebookLinked: user.FacebookLinked,
		FacebookID:     user.FacebookID,
		CreatedAt:      user.CreatedAt,
	}
}


package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "alarmclock/backend/internal/errors"
	"alarmclock/backend/internal/model"
	"alarmclock/backend/internal/repository"
)

type AuthService struct {
	userRepo  *repository.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
	seed      model.Preferences
}

// NewAuthService hands every new user a copy of seed as their preferences.
func NewAuthService(
	userRepo *repository.UserRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	seed model.Preferences,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		seed:      seed,
	}
}

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// PreferencesInput carries a partial preferences edit.
type PreferencesInput struct {
	WeekStart     *string              `json:"weekStart"`
	AlarmDefaults *model.AlarmDefaults `json:"alarmDefaults"`
	// ResetAlarmDefaults drops the user's own defaults in favor of the policy.
	ResetAlarmDefaults bool `json:"resetAlarmDefaults"`
}

// Register creates the user with the seeded preferences. A non-empty
// weekStart overrides the seed.
func (s *AuthService) Register(ctx context.Context, email, password, weekStart string) (*AuthResult, *apperrors.APIError) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" {
		return nil, apperrors.BadRequest("invalid_email", "email is required")
	}
	if len(password) < 6 {
		return nil, apperrors.BadRequest("invalid_password", "password must be at least 6 characters")
	}

	prefs := s.seedPreferences()
	if strings.TrimSpace(weekStart) != "" {
		prefs.WeekStart = weekStart
	}
	if err := prefs.Normalize(); err != nil {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidPreferences, err.Error())
	}

	_, err := s.userRepo.GetByEmail(ctx, normalizedEmail)
	if err == nil {
		return nil, apperrors.Conflict("email_exists", "email already registered", nil)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal("failed to query user")
	}

	passwordHashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("failed to secure password")
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        normalizedEmail,
		PasswordHash: string(passwordHashBytes),
		Preferences:  prefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, &user); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, apperrors.Conflict("email_exists", "email already registered", nil)
		}
		return nil, apperrors.Internal("failed to create user")
	}

	token, apiErr := s.issueToken(user)
	if apiErr != nil {
		return nil, apiErr
	}

	user.PasswordHash = ""
	return &AuthResult{
		Token: token,
		User:  user,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, *apperrors.APIError) {
	normalizedEmail := strings.ToLower(strings.TrimSpace(email))
	if normalizedEmail == "" || password == "" {
		return nil, apperrors.BadRequest("invalid_credentials", "email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, normalizedEmail)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to query user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.Unauthorized("invalid email or password")
	}

	token, apiErr := s.issueToken(*user)
	if apiErr != nil {
		return nil, apiErr
	}

	user.PasswordHash = ""
	return &AuthResult{
		Token: token,
		User:  *user,
	}, nil
}

func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", apperrors.Unauthorized("invalid token")
	}

	if claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}

	return claims.Subject, nil
}

// Authenticate resolves a bearer token to its user. Tokens of removed users
// are rejected.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*model.User, *apperrors.APIError) {
	userID, apiErr := s.ParseToken(tokenString)
	if apiErr != nil {
		return nil, apiErr
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to query user")
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *AuthService) UpdatePreferences(ctx context.Context, user *model.User, input PreferencesInput) (*model.User, *apperrors.APIError) {
	prefs := user.Preferences
	if input.WeekStart != nil {
		prefs.WeekStart = *input.WeekStart
	}
	switch {
	case input.ResetAlarmDefaults:
		prefs.AlarmDefaults = nil
	case input.AlarmDefaults != nil:
		d := *input.AlarmDefaults
		prefs.AlarmDefaults = &d
	}
	if err := prefs.Normalize(); err != nil {
		return nil, apperrors.BadRequest(apperrors.CodeInvalidPreferences, err.Error())
	}

	now := time.Now().UTC()
	err := s.userRepo.UpdatePreferences(ctx, user.ID, prefs, now)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("user no longer exists")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to update preferences")
	}

	updated := *user
	updated.Preferences = prefs
	updated.UpdatedAt = now
	return &updated, nil
}

func (s *AuthService) seedPreferences() model.Preferences {
	prefs := s.seed
	if s.seed.AlarmDefaults != nil {
		d := *s.seed.AlarmDefaults
		prefs.AlarmDefaults = &d
	}
	return prefs
}

func (s *AuthService) issueToken(user model.User) (string, *apperrors.APIError) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", apperrors.Internal("failed to sign token")
	}
	return signed, nil
}

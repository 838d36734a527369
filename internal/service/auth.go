package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"

	"symposium/internal/dto"
	"symposium/internal/model"
	"symposium/internal/repo"
)

type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, req dto.RegisterUserRequest) (*AuthResult, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := &model.User{
		ID:           newID(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        req.Phone,
		College:      req.College,
		Department:   req.Department,
		Year:         req.Year,
		Role:         model.RoleParticipant,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, fail(ErrInvalidState, "user with email %s already exists", u.Email)
		}
		return nil, err
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID).Msg("user registered")
	s.notify(dto.NotificationMessage{Kind: dto.NotifyWelcome, Email: u.Email, Name: u.Name})
	return &AuthResult{Token: token, User: u}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fail(ErrUnauthorized, "invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fail(ErrUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return nil, fail(ErrUnauthorized, "account is deactivated")
	}

	token, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: u}, nil
}

func (s *Service) issueToken(u *model.User) (string, error) {
	now := s.now()
	claims := Claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate resolves a bearer token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	var claims Claims
	// Expiry is checked against the service clock below.
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil || claims.Subject == "" || !claims.Role.Valid() {
		return nil, fail(ErrUnauthorized, "not authorized, token failed")
	}
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, fail(ErrUnauthorized, "not authorized, token expired")
	}

	u, err := s.repo.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fail(ErrUnauthorized, "not authorized, user not found")
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, fail(ErrUnauthorized, "account is deactivated")
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	return u, classify(err, "user")
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, req dto.UpdateProfileRequest) (*model.User, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, classify(err, "user")
	}
	if req.Name != nil {
		u.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.College != nil {
		u.College = *req.College
	}
	if req.Department != nil {
		u.Department = *req.Department
	}
	if req.Year != nil {
		u.Year = *req.Year
	}
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, classify(err, "user")
	}
	return u, nil
}

func (s *Service) UpdatePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return classify(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return fail(ErrUnauthorized, "current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = s.now()
	return classify(s.repo.UpdateUser(ctx, u), "user")
}

func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// ForgotPassword stores a fresh reset token for the account and mails it.
// Unknown and deactivated emails succeed silently so the endpoint does not
// reveal which addresses are registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive {
		return nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)
	expires := s.now().Add(s.cfg.ResetTTL)

	u.ResetTokenHash = hashResetToken(token)
	u.ResetTokenExpiresAt = &expires
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return classify(err, "user")
	}

	s.log.Info().Str("user_id", u.ID).Time("expires_at", expires).Msg("password reset requested")
	s.notify(dto.NotificationMessage{
		Kind:  dto.NotifyPasswordReset,
		Email: u.Email,
		Name:  u.Name,
		Link:  s.cfg.ResetURL + token,
	})
	return nil
}

// ResetPassword spends a reset token, sets the new password and signs the
// user in.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (*AuthResult, error) {
	u, err := s.repo.GetUserByResetToken(ctx, hashResetToken(token))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fail(ErrValidation, "invalid or expired reset token")
		}
		return nil, err
	}
	if u.ResetTokenExpiresAt == nil || !s.now().Before(*u.ResetTokenExpiresAt) {
		return nil, fail(ErrValidation, "invalid or expired reset token")
	}
	if !u.IsActive {
		return nil, fail(ErrUnauthorized, "account is deactivated")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.ResetTokenHash = ""
	u.ResetTokenExpiresAt = nil
	u.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, u); err != nil {
		return nil, classify(err, "user")
	}

	signed, err := s.issueToken(u)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("user_id", u.ID).Msg("password reset")
	return &AuthResult{Token: signed, User: u}, nil
}

func hashResetToken(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

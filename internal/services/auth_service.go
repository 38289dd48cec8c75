package services

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/argus-sec/argus/internal/config"
	"github.com/argus-sec/argus/internal/models"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenClaims are the signed claims carried by both access and refresh tokens.
type TokenClaims struct {
	UserID    uint   `json:"uid"`
	Role      string `json:"role"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly minted access and refresh token.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthService issues, verifies and rotates signed credentials. Exactly one
// refresh token is valid per principal at any time: issuing a new pair
// overwrites the stored one, which revokes whatever was issued before.
type AuthService struct {
	db  *gorm.DB
	cfg config.Config
}

func NewAuthService(db *gorm.DB, cfg config.Config) *AuthService {
	return &AuthService{db: db, cfg: cfg}
}

// Register creates a principal. The duplicate check keys on email alone.
func (s *AuthService) Register(name, email, password, role string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	if role == "" {
		role = models.RoleUser
	}
	if !models.ValidRole(role) {
		return nil, ErrInvalidRole
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	user := &models.User{
		UUID:    uuid.New().String(),
		Name:    name,
		Email:   email,
		Role:    role,
		Enabled: true,
	}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Login authenticates by email and password and issues a fresh token pair.
// All failure modes collapse to ErrInvalidCredentials for the caller.
func (s *AuthService) Login(email, password string) (*models.User, TokenPair, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !user.Enabled || !user.CheckPassword(password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.IssuePair(&user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(&user).Update("last_login", now).Error; err != nil {
		return nil, TokenPair{}, err
	}

	return &user, pair, nil
}

// IssuePair mints an access/refresh pair and persists the refresh token as
// the principal's sole valid refresh credential. This is the rotation point.
func (s *AuthService) IssuePair(user *models.User) (TokenPair, error) {
	access, accessExp, err := s.signToken(user, tokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.signToken(user, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.db.Model(&models.User{}).
		Where("id = ?", user.ID).
		Update("refresh_token", refresh).Error; err != nil {
		return TokenPair{}, err
	}
	user.RefreshToken = refresh

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token's signature and expiry and returns
// its claims. A token whose signature fails is never partially trusted.
func (s *AuthService) VerifyAccess(token string) (*TokenClaims, error) {
	return s.parseToken(token, tokenTypeAccess)
}

// Rotate exchanges a refresh token for a fresh pair. The presented token must
// match the stored one byte-for-byte; a stale token from before a previous
// rotation fails with ErrTokenRevoked. The swap is a conditional update so
// two concurrent rotations cannot both succeed.
func (s *AuthService) Rotate(refreshToken string) (*models.User, TokenPair, error) {
	claims, err := s.parseToken(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, TokenPair{}, ErrTokenInvalid
	}

	var user models.User
	if err := s.db.First(&user, claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, TokenPair{}, ErrTokenInvalid
		}
		return nil, TokenPair{}, err
	}
	if !user.Enabled {
		return nil, TokenPair{}, ErrTokenInvalid
	}

	access, accessExp, err := s.signToken(&user, tokenTypeAccess, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, TokenPair{}, err
	}
	refresh, refreshExp, err := s.signToken(&user, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, TokenPair{}, err
	}

	res := s.db.Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", user.ID, refreshToken).
		Update("refresh_token", refresh)
	if res.Error != nil {
		return nil, TokenPair{}, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, TokenPair{}, ErrTokenRevoked
	}
	user.RefreshToken = refresh

	return &user, TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Revoke clears the stored refresh token, ending the ability to rotate
// without re-authenticating.
func (s *AuthService) Revoke(userID uint) error {
	return s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", "").Error
}

// GetUserByID loads a principal by primary key.
func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// SweepExpiredRefreshTokens clears stored refresh tokens that no longer parse
// or have expired, so dead credentials do not linger in the store. Returns
// the number of principals cleaned up.
func (s *AuthService) SweepExpiredRefreshTokens() (int, error) {
	var users []models.User
	if err := s.db.Where("refresh_token <> ''").Find(&users).Error; err != nil {
		return 0, err
	}

	swept := 0
	for _, user := range users {
		if _, err := s.parseToken(user.RefreshToken, tokenTypeRefresh); err == nil {
			continue
		}
		res := s.db.Model(&models.User{}).
			Where("id = ? AND refresh_token = ?", user.ID, user.RefreshToken).
			Update("refresh_token", "")
		if res.Error != nil {
			return swept, res.Error
		}
		if res.RowsAffected > 0 {
			swept++
		}
	}
	return swept, nil
}

func (s *AuthService) signToken(user *models.User, tokenType string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	claims := TokenClaims{
		UserID:    user.ID,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *AuthService) parseToken(raw, wantType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

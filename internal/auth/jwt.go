package auth

import (
	"errors"
	"time"

	"uppypro/internal/config"
	apperrors "uppypro/internal/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ===========================================================================
// JWT Service
// Verifies access tokens issued by the identity provider (HS256, Supabase style).
// Sign is only used by the seed script and tests.
// ===========================================================================

// defaultTTL lifetime of tokens minted by Sign when the caller sets no expiry
const defaultTTL = time.Hour

// Claims identity-provider access token claims
type Claims struct {
	// UserID parsed from sub
	UserID uuid.UUID `json:"-"`

	Email string `json:"email"`

	// Role identity-provider role ("authenticated"), not the tenant role
	Role string `json:"role"`

	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`

	jwt.RegisteredClaims
}

// FullName display name from user_metadata, empty when absent
func (c *Claims) FullName() string {
	if c.UserMetadata == nil {
		return ""
	}
	for _, key := range []string{"full_name", "name"} {
		if v, ok := c.UserMetadata[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// JWTService verifies and signs tokens
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTService creates a JWT service
func NewJWTService(cfg config.AuthConfig) *JWTService {
	return &JWTService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// ValidateAccessToken validates the token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.Email == "" {
		return nil, apperrors.ErrInvalidToken
	}
	claims.UserID = userID

	return claims, nil
}

// Sign mints an HS256 token with the configured issuer and audience
func (s *JWTService) Sign(claims Claims) (string, error) {
	now := time.Now()

	if claims.Subject == "" {
		claims.Subject = claims.UserID.String()
	}
	if claims.Role == "" {
		claims.Role = "authenticated"
	}
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(defaultTTL))
	}
	if claims.Issuer == "" && s.issuer != "" {
		claims.Issuer = s.issuer
	}
	if len(claims.Audience) == 0 && s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

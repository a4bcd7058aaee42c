package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crewdesk/crewdesk/pkg/authz"
)

// Token types. Refresh tokens are only accepted by the refresh
// endpoint; presenting one as an access token is rejected outright.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the JWT payload for both token types.
type Claims struct {
	UserID    int64  `json:"uid"`
	TenantID  int64  `json:"tid"`
	Role      string `json:"role"`
	SessionID string `json:"sid"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenIssuer signs and parses the JWTs used for sessions.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenIssuer creates a token issuer. The secret must be at least
// 32 bytes; config validation enforces that before we get here.
func NewTokenIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// AccessTTL returns the configured access token lifetime.
func (ti *TokenIssuer) AccessTTL() time.Duration {
	return ti.accessTTL
}

// Issue signs a token pair for the principal.
func (ti *TokenIssuer) Issue(p *authz.Principal) (*TokenPair, error) {
	access, err := ti.sign(p, TokenTypeAccess, ti.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := ti.sign(p, TokenTypeRefresh, ti.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(ti.accessTTL.Seconds()),
	}, nil
}

// IssueAccess signs a fresh access token for an existing session.
func (ti *TokenIssuer) IssueAccess(p *authz.Principal) (string, error) {
	return ti.sign(p, TokenTypeAccess, ti.accessTTL)
}

func (ti *TokenIssuer) sign(p *authz.Principal, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    p.UserID,
		TenantID:  p.TenantID,
		Role:      string(p.Role),
		SessionID: p.SessionID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

// Parse validates a token of the expected type and returns its claims.
// Expired tokens map to TokenExpired, everything else structural to
// InvalidToken, and a type mismatch to InvalidTokenType.
func (ti *TokenIssuer) Parse(tokenString, expectedType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return ti.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, authz.ErrTokenExpired
		}
		return nil, authz.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, authz.ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, authz.ErrInvalidTokenType
	}
	if !authz.Role(claims.Role).Valid() {
		return nil, authz.ErrInvalidToken
	}
	return claims, nil
}

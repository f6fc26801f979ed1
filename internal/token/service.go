// Package token issues and verifies the signed, time-bounded credentials used
// by the account service.  Access tokens authorize individual requests;
// refresh tokens are exchanged for a new pair.  The two kinds are signed with
// different secrets so that leaking one secret cannot forge the other kind.
// Verification is pure: it never consults the credential store.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind distinguishes access tokens from refresh tokens.
type Kind string

const (
	Access  Kind = "access"
	Refresh Kind = "refresh"
)

var (
	// ErrInvalidToken covers malformed tokens, bad signatures, unexpected
	// algorithms and kind mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the exp claim has passed.
	ErrExpiredToken = errors.New("token expired")
)

// Config carries the signing secrets and lifetimes of both token kinds.
type Config struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Claims is the payload of both token kinds.  Email is only set on access
// tokens.
type Claims struct {
	Kind  Kind   `json:"typ"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject of the token.
func (c *Claims) UserID() string { return c.Subject }

// Issued is a signed token together with its expiry.
type Issued struct {
	Token string
	Exp   time.Time
}

// Service signs and verifies HS256 JWTs.
type Service struct {
	cfg Config
	now func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("token secrets are required")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Service{cfg: cfg, now: time.Now}, nil
}

// IssueAccessToken signs a short-lived access token for the user.
func (s *Service) IssueAccessToken(userID, email string) (Issued, error) {
	return s.issue(Access, userID, email)
}

// IssueRefreshToken signs a long-lived refresh token for the user.
func (s *Service) IssueRefreshToken(userID string) (Issued, error) {
	return s.issue(Refresh, userID, "")
}

// Pair is an access token and a refresh token minted together.
type Pair struct {
	Access  Issued
	Refresh Issued
}

// IssuePair signs both tokens for the user.
func (s *Service) IssuePair(userID, email string) (Pair, error) {
	access, err := s.IssueAccessToken(userID, email)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := s.IssueRefreshToken(userID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func (s *Service) issue(kind Kind, userID, email string) (Issued, error) {
	now := s.now().UTC()
	exp := now.Add(s.ttl(kind))
	claims := Claims{
		Kind:  kind,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			// jti keeps two tokens minted in the same second distinct
			ID: uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret(kind))
	if err != nil {
		return Issued{}, err
	}
	return Issued{Token: signed, Exp: exp}, nil
}

// Verify checks the signature, algorithm, expiry and kind of raw and
// returns its claims.  Expired tokens yield ErrExpiredToken; every other
// failure yields ErrInvalidToken.
func (s *Service) Verify(raw string, kind Kind) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret(kind), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !tok.Valid || claims.Kind != kind || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Service) secret(kind Kind) []byte {
	if kind == Refresh {
		return []byte(s.cfg.RefreshSecret)
	}
	return []byte(s.cfg.AccessSecret)
}

func (s *Service) ttl(kind Kind) time.Duration {
	if kind == Refresh {
		return s.cfg.RefreshTTL
	}
	return s.cfg.AccessTTL
}

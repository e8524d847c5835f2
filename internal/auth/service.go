// Package auth guards mutating routes with a rider token. The rider
// exchanges a passphrase, checked against a bcrypt hash, for a JWT.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const riderSubject = "rider"

var (
	ErrAuthDisabled       = errors.New("auth disabled: no rider passphrase configured")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("token invalid")
)

type Service struct {
	secret         []byte
	passphraseHash []byte
	ttl            time.Duration
	now            func() time.Time
}

type Claims struct {
	Rider string `json:"rider"`
	jwt.RegisteredClaims
}

func NewService(secret, passphraseHash string, ttl time.Duration) *Service {
	return &Service{
		secret:         []byte(secret),
		passphraseHash: []byte(passphraseHash),
		ttl:            ttl,
		now:            time.Now,
	}
}

// Enabled reports whether a passphrase hash is configured. Without one the
// service runs in single-device local mode and every route is open.
func (s *Service) Enabled() bool {
	return len(s.passphraseHash) > 0
}

func (s *Service) IssueToken(passphrase string) (TokenResponse, error) {
	if !s.Enabled() {
		return TokenResponse{}, ErrAuthDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.passphraseHash, []byte(passphrase)); err != nil {
		return TokenResponse{}, ErrInvalidCredentials
	}

	token, err := s.signToken(riderSubject, s.ttl)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

func (s *Service) ValidateToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Rider != riderSubject {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) signToken(rider string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Rider: rider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rider,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

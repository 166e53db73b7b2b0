// Package auth implements the placeholder login: any well-formed credentials
// receive a signed, expiring bearer token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

var validate = validator.New(validator.WithRequiredStructEnabled())

type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Validate returns per-field messages, or nil when the credentials are usable.
func (c Credentials) Validate() map[string]string {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"credentials": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Email" && fe.Tag() == "email":
			out["email"] = "Invalid email format"
		case fe.Field() == "Email":
			out["email"] = "Email is required"
		default:
			out["password"] = "Password is required"
		}
	}

	return out
}

type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now

	return &c
}

func (i *Issuer) Issue(subject string) (Token, error) {
	now := i.now()
	exp := now.Add(i.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}

	return Token{Value: signed, ExpiresAt: exp.Truncate(time.Second)}, nil
}

func (i *Issuer) Verify(raw string) (*Claims, error) {
	var rc jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(raw, &rc, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c := &Claims{Subject: rc.Subject, TokenID: rc.ID}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}

	return c, nil
}

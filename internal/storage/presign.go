// Stox Gateway - API Gateway for Image and Commerce Backends
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stox-gateway

package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrPresignInvalid is returned for a token that does not grant the key.
var ErrPresignInvalid = errors.New("invalid presigned token")

// presignClaims binds a token to exactly one object key.
type presignClaims struct {
	Key string `json:"key"`
	jwt.RegisteredClaims
}

// Presigner issues and checks read tokens for /objects/{key}.
//
// Tokens are HS256 JWTs. They carry the object key and an expiry and are
// stateless: a token cannot be revoked before it expires.
type Presigner struct {
	secret  []byte
	baseURL string
	now     func() time.Time
}

// NewPresigner creates a presigner. baseURL is the externally visible
// gateway origin, for example "https://gateway.example.com".
func NewPresigner(secret, baseURL string) (*Presigner, error) {
	if secret == "" {
		return nil, errors.New("presign secret is required")
	}
	return &Presigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// Token signs a read grant for key valid for ttl.
func (p *Presigner) Token(key string, ttl time.Duration) (string, error) {
	now := p.now()
	claims := &presignClaims{
		Key: key,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign presign token: %w", err)
	}
	return signed, nil
}

// URL returns the presigned read URL for key.
func (p *Presigner) URL(key string, ttl time.Duration) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	token, err := p.Token(key, ttl)
	if err != nil {
		return "", err
	}
	return p.baseURL + "/objects/" + key + "?token=" + url.QueryEscape(token), nil
}

// Verify checks that token grants read access to key right now.
func (p *Presigner) Verify(key, token string) error {
	claims := &presignClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithTimeFunc(p.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPresignInvalid, err)
	}
	if !parsed.Valid || claims.Key != key {
		return ErrPresignInvalid
	}
	return nil
}

package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

type urlClaims struct {
	jwt.RegisteredClaims
	Read  bool `json:"r,omitempty"`
	Write bool `json:"w,omitempty"`
}

// URLGrant is what a signed URL allows its bearer to do.
type URLGrant struct {
	Key   string
	Read  bool
	Write bool
}

// URLSigner issues signed URLs for backends without native presigning.
// The URL points at baseURL with the grant carried as a JWT query parameter.
type URLSigner struct {
	baseURL string
	secret  []byte
}

func NewURLSigner(baseURL string, secret []byte) *URLSigner {
	return &URLSigner{baseURL: baseURL, secret: secret}
}

func (s *URLSigner) SignURL(_ context.Context, key string, readable, writable bool, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, urlClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
		Read:  readable,
		Write: writable,
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}
	return s.baseURL + "?" + url.Values{"token": {signed}}.Encode(), nil
}

// VerifyURL checks a URL produced by SignURL and returns its grant.
func (s *URLSigner) VerifyURL(raw string) (URLGrant, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return URLGrant{}, fmt.Errorf("%w: %v", common.ErrorInvalidToken, err)
	}
	claims := &urlClaims{}
	if err := parse(u.Query().Get("token"), s.secret, claims); err != nil {
		return URLGrant{}, err
	}
	return URLGrant{Key: claims.Subject, Read: claims.Read, Write: claims.Write}, nil
}

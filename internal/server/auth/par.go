package auth

import (
	"fmt"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/dmitrijs2005/gophdrive/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

type accessTokenClaims struct {
	jwt.RegisteredClaims
	ACL acl.EffectiveACL `json:"acl"`
}

// AccessTokenSigner signs and parses pre-authorized request tokens.
type AccessTokenSigner struct {
	secret []byte
}

func NewAccessTokenSigner(secret []byte) *AccessTokenSigner {
	return &AccessTokenSigner{secret: secret}
}

func (s *AccessTokenSigner) Sign(tok models.AccessToken) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tok.DriveUID,
			ExpiresAt: jwt.NewNumericDate(tok.Expires),
		},
		ACL: tok.ACL,
	})
	return token.SignedString(s.secret)
}

// Parse returns the token's content. Expired tokens fail with
// common.ErrTokenExpired.
func (s *AccessTokenSigner) Parse(tokenString string) (models.AccessToken, error) {
	claims := &accessTokenClaims{}
	if err := parse(tokenString, s.secret, claims); err != nil {
		return models.AccessToken{}, err
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return models.AccessToken{}, fmt.Errorf("%w: incomplete access token", common.ErrorInvalidToken)
	}
	return models.AccessToken{
		DriveUID: claims.Subject,
		ACL:      claims.ACL,
		Expires:  claims.ExpiresAt.Time,
	}, nil
}

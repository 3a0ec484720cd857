// Package auth verifies caller credentials and signs the capability tokens
// (pre-authorized requests and signed URLs) the storage layer hands out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophdrive/internal/common"
	"github.com/dmitrijs2005/gophdrive/internal/server/acl"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is a verified caller.
type Identity struct {
	UserGUID    string
	Identifiers []string
}

// NewIdentity returns an identity carrying the user identifier plus extra ones.
func NewIdentity(userGUID string, extra ...string) Identity {
	ids := append([]string{acl.UserIdentifier(userGUID)}, extra...)
	return Identity{UserGUID: userGUID, Identifiers: ids}
}

func (i Identity) Authenticated() bool { return i.UserGUID != "" }

// Verifier turns an authorization token into an identity. resource is the
// fingerprint of what the caller is trying to reach.
type Verifier interface {
	Verify(ctx context.Context, token, resource string) (Identity, error)
}

// Claims are the claims of a user authorization token. An empty Scope
// authorizes any resource.
type Claims struct {
	jwt.RegisteredClaims
	UserID      string   `json:"uid"`
	Identifiers []string `json:"ids,omitempty"`
	Scope       []string `json:"scope,omitempty"`
}

func GenerateToken(userID string, identifiers, scope []string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		UserID:      userID,
		Identifiers: identifiers,
		Scope:       scope,
	})

	return token.SignedString(secretKey)
}

// parse verifies signature and expiry of tokenString into claims.
func parse(tokenString string, secretKey []byte, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrorInvalidToken, err)
	}

	if !token.Valid {
		return common.ErrorInvalidToken
	}
	return nil
}

// JWTVerifier verifies HS256 user tokens.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, token, resource string) (Identity, error) {
	claims := &Claims{}
	if err := parse(token, v.secret, claims); err != nil {
		return Identity{}, err
	}
	if claims.UserID == "" {
		return Identity{}, fmt.Errorf("%w: no subject", common.ErrorInvalidToken)
	}
	if len(claims.Scope) > 0 && !slices.Contains(claims.Scope, resource) {
		return Identity{}, fmt.Errorf("%w: token not valid for %q", common.ErrorPermission, resource)
	}
	return NewIdentity(claims.UserID, claims.Identifiers...), nil
}

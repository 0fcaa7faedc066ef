package helper

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

const (
	AccessTokenTTL  = 30 * time.Minute
	RefreshTokenTTL = 72 * time.Hour
)

// Claims is the public subset of a user embedded in session tokens.
// Password hashes and liked-article lists never appear here.
type Claims struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Admin            bool   `json:"admin"`
	CanPost          bool   `json:"can_post"`
	Verified         bool   `json:"verified"`
	AccountCreatedAt int64  `json:"account_created_at"`
	jwt.RegisteredClaims
}

type Auth struct {
	AccessSecret  string
	RefreshSecret string
}

func SetupAuth(accessSecret, refreshSecret string) Auth {
	return Auth{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
	}
}

func (a Auth) IssueAccessToken(claims Claims) (string, error) {
	return a.issue(claims, AccessTokenTTL, a.AccessSecret)
}

func (a Auth) IssueRefreshToken(claims Claims) (string, error) {
	return a.issue(claims, RefreshTokenTTL, a.RefreshSecret)
}

func (a Auth) issue(claims Claims, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.New("unable to sign the token")
	}
	return tokenStr, nil
}

func (a Auth) VerifyAccessToken(tokenStr string) (Claims, error) {
	return verify(tokenStr, a.AccessSecret)
}

func (a Auth) VerifyRefreshToken(tokenStr string) (Claims, error) {
	return verify(tokenStr, a.RefreshSecret)
}

func verify(tokenStr, secret string) (Claims, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return Claims{}, ErrTokenInvalid
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !token.Valid {
		return Claims{}, ErrTokenInvalid
	}
	return *claims, nil
}

// Decode extracts claims without checking the signature. Only for reading
// back a token this service just issued itself, never for external input.
func (a Auth) Decode(tokenStr string) (Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return Claims{}, ErrTokenInvalid
	}
	return *claims, nil
}

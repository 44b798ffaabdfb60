package user

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/escola/core"
)

var (
	resetAudience = "escola.password_reset"

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// resetKey binds a token to the current password and last login of usr,
// so it stops working once either changes.
func resetKey(usr User, secret string) []byte {
	var lastLogin string
	if usr.LastLogin.Valid {
		lastLogin = strconv.FormatInt(usr.LastLogin.Time.Unix(), 10)
	}
	key := make([]byte, 0, len(secret)+len(usr.PasswordHash)+len(lastLogin))
	key = append(key, secret...)
	key = append(key, usr.PasswordHash...)
	key = append(key, lastLogin...)
	return key
}

// MakeResetToken returns a signed password reset token for usr, valid for timeout.
func MakeResetToken(usr User, secret string, timeout time.Duration) (string, error) {
	now := core.NowFunc()
	claims := jwt.RegisteredClaims{
		Subject:   usr.Email,
		Audience:  jwt.ClaimStrings{resetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(timeout)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(resetKey(usr, secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// tokenEmail returns the email a token was issued for, without checking its signature.
func tokenEmail(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	claims := new(jwt.RegisteredClaims)
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// verifyResetToken checks that token was issued for usr and has not expired.
func verifyResetToken(usr User, token, secret string) error {
	claims := new(jwt.RegisteredClaims)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return resetKey(usr, secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if claims.Subject != usr.Email || !claims.VerifyAudience(resetAudience, true) {
		return ErrInvalidToken
	}
	return nil
}

package util

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// ActorClaims is what the gateway reads out of a backend-issued token.
type ActorClaims struct {
	UserID   int64
	Name     string
	Username string
	Expires  time.Time
}

// ParseActorClaims decodes token without checking its signature. The
// backend verifies every forwarded request; the gateway only needs to know
// who is acting so mutations can be journaled. Expired tokens are refused
// early to save a round trip.
func ParseActorClaims(token string, now time.Time) (*ActorClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	out := &ActorClaims{
		UserID:   firstInt(claims, "uId", "id", "sub"),
		Name:     firstString(claims, "uName", "name"),
		Username: firstString(claims, "uUsername", "username", "preferred_username"),
	}
	if exp != nil {
		out.Expires = exp.Time
		if !now.Before(exp.Time) {
			return nil, ErrExpiredToken
		}
	}
	if out.Name == "" {
		out.Name = out.Username
	}
	if out.UserID == 0 && out.Name == "" {
		return nil, fmt.Errorf("%w: no user claims", ErrInvalidToken)
	}
	return out, nil
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, k := range keys {
		if v, ok := claims[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// firstInt accepts numeric claims as JSON numbers or strings.
func firstInt(claims jwt.MapClaims, keys ...string) int64 {
	for _, k := range keys {
		switch v := claims[k].(type) {
		case float64:
			if v != 0 {
				return int64(v)
			}
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n != 0 {
				return n
			}
		}
	}
	return 0
}

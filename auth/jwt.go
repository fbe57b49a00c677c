package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
)

const issuer = "payoutclick"

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Type   string `json:"type"` // access or refresh
	jwt.RegisteredClaims
}

func newToken(userID, email, role, typ string, ttl time.Duration, secret string, now time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   userID,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func GenerateTokenPair(cfg *config.Config, userID, email, role string) (accessToken, refreshToken string, err error) {
	now := time.Now()
	accessToken, err = newToken(userID, email, role, tokenAccess, cfg.JWTAccessExpiry, cfg.JWTSecret, now)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = newToken(userID, email, role, tokenRefresh, cfg.JWTRefreshExpiry, cfg.JWTRefreshSecret, now)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

func parse(tokenString, secret, typ string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Type != typ {
		return nil, errors.New("wrong token type, want " + typ)
	}
	return claims, nil
}

func ValidateAccessToken(cfg *config.Config, tokenString string) (*Claims, error) {
	return parse(tokenString, cfg.JWTSecret, tokenAccess)
}

func ValidateRefreshToken(cfg *config.Config, tokenString string) (*Claims, error) {
	return parse(tokenString, cfg.JWTRefreshSecret, tokenRefresh)
}

func RefreshTokens(cfg *config.Config, refreshTokenString string) (newAccessToken, newRefreshToken string, err error) {
	claims, err := ValidateRefreshToken(cfg, refreshTokenString)
	if err != nil {
		return "", "", err
	}
	return GenerateTokenPair(cfg, claims.UserID, claims.Email, claims.Role)
}

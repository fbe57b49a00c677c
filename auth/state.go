package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Pawankshetri11/payoutclickmain-sub001/referral"
)

const stateAudience = "referral-state"

type stateClaims struct {
	Code string `json:"code"`
	jwt.RegisteredClaims
}

// StateSigner carries a referral code across an identity-provider redirect
// as a short-lived signed token. The issue time travels with the code and
// is used to tell brand-new profiles from returning users.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue normalizes code and signs it. Malformed codes are rejected here so a
// bad code never reaches the provider round trip.
func (s *StateSigner) Issue(code string) (string, error) {
	normalized, err := referral.NormalizeCode(code)
	if err != nil {
		return "", err
	}
	now := s.now()
	claims := stateClaims{
		Code: normalized,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{stateAudience},
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks the signature and expiry and returns the staged code.
func (s *StateSigner) Verify(state string) (referral.StagedReferral, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(stateAudience),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return referral.StagedReferral{}, fmt.Errorf("%w: %w", referral.ErrInvalidState, err)
	}
	if claims.IssuedAt == nil {
		return referral.StagedReferral{}, referral.ErrInvalidState
	}
	return referral.StagedReferral{Code: claims.Code, StagedAt: claims.IssuedAt.Time}, nil
}

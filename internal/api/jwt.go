package api

import (
	crand "crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ericogr/skirmish/internal/constants"
	"github.com/ericogr/skirmish/internal/game"
	"github.com/ericogr/skirmish/internal/logging"
)

var (
	ErrTokenInvalid = errors.New("side token is invalid")
	ErrTokenExpired = errors.New("side token expired")
)

// sideClaims binds a bearer to one side of one battle.
type sideClaims struct {
	jwt.RegisteredClaims
	BattleID string      `json:"battle_id"`
	Side     game.SideID `json:"side"`
}

// TokenIssuer signs and verifies the per-side tokens handed out when a
// battle starts.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer signing with secret. An empty secret
// generates an in-memory one, which is fine for development but makes
// tokens unusable across restarts.
func NewTokenIssuer(secret string, ttl time.Duration) (*TokenIssuer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := crand.Read(key); err != nil {
			return nil, errors.New("failed to generate dev token secret")
		}
		logging.Warn("no token secret configured, using a random one", logging.Fields{"var": constants.EnvTokenSecret})
	}
	if ttl <= 0 {
		ttl = constants.DefaultTokenTTL
	}
	return &TokenIssuer{secret: key, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for side of battleID.
func (t *TokenIssuer) Issue(battleID string, side game.SideID) (string, error) {
	now := t.now()
	claims := sideClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    constants.TokenIssuer,
			Subject:   string(side),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		BattleID: battleID,
		Side:     side,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign side token: %w", err)
	}
	return signed, nil
}

// Parse verifies token and returns its claims.
func (t *TokenIssuer) Parse(token string) (*sideClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	var claims sideClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(constants.TokenIssuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.BattleID == "" || !claims.Side.Valid() {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}

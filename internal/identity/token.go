// internal/identity/token.go
//
// Player tokens.
// A token binds a bearer to one player of one game: claims gid (game),
// pid (player) and tid (team at join time), signed HS256.
// The team claim is informational; the engine always re-resolves the
// player's team from the game itself.

package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the lifetime of a player token when none is configured.
const DefaultTTL = 24 * time.Hour

// ErrInvalidToken is returned for missing, malformed, expired or
// wrongly signed tokens.
var ErrInvalidToken = errors.New("identity: invalid token")

// Claims identify a player within a game.
type Claims struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
}

// Issuer signs and verifies player tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A zero ttl selects DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs c and returns the token with its expiry.
func (i *Issuer) Issue(c Claims) (string, time.Time, error) {
	if c.GameID == "" || c.PlayerID == "" {
		return "", time.Time{}, errors.New("identity: game and player are required")
	}
	now := i.now()
	exp := now.Add(i.ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"gid": c.GameID,
		"pid": c.PlayerID,
		"tid": c.TeamID,
		"exp": exp.Unix(),
		"iat": now.Unix(),
	})
	ss, err := t.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("identity: sign: %w", err)
	}
	return ss, exp, nil
}

// Verify checks the signature and expiry of token and returns its claims.
func (i *Issuer) Verify(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrInvalidToken
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	gid, _ := claims["gid"].(string)
	pid, _ := claims["pid"].(string)
	tid, _ := claims["tid"].(string)
	if gid == "" || pid == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{GameID: gid, PlayerID: pid, TeamID: tid}, nil
}

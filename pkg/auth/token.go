package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gamehub/gamehub-backend/pkg/config"
	"github.com/gamehub/gamehub-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	jwtSigningMethod = jwt.SigningMethodHS256

	errMissingSecret = errors.New("jwt secret is required")
)

// MintAccessToken signs an HS256 access token for payload, valid for the
// configured number of minutes from now.
func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkSigningConfig(cfg); err != nil {
		return "", err
	}
	if err := payload.validate(); err != nil {
		return "", err
	}

	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute

	claims := AccessTokenClaims{
		UserID:   payload.UserID,
		Role:     payload.Role,
		PlayerID: payload.PlayerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   fmt.Sprint(payload.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry.
func ParseAccessToken(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return parse(cfg, tokenString)
}

// ParseAccessTokenAllowExpired verifies signature and issuer but skips the
// time based claims, so refresh can still read the jti of a lapsed token.
func ParseAccessTokenAllowExpired(cfg config.JWTConfig, tokenString string) (*AccessTokenClaims, error) {
	return parse(cfg, tokenString, jwt.WithoutClaimsValidation())
}

func parse(cfg config.JWTConfig, tokenString string, extra ...jwt.ParserOption) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errMissingSecret
	}

	opts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	}, extra...)

	claims := &AccessTokenClaims{}
	if _, err := jwt.NewParser(opts...).ParseWithClaims(tokenString, claims, keyFunc(cfg.Secret)); err != nil {
		return nil, err
	}
	if err := claims.validateShape(); err != nil {
		return nil, err
	}
	return claims, nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if token.Method != jwtSigningMethod {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}
}

func checkSigningConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errMissingSecret
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return errors.New("jwt expiration minutes must be positive")
	}
	return nil
}

func (p AccessTokenPayload) validate() error {
	if p.UserID <= 0 {
		return errors.New("user id is required")
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid user role %q", p.Role)
	}
	if p.Role == enums.UserRolePlayer && p.PlayerID == nil {
		return errors.New("player tokens require a player id")
	}
	return nil
}

// validateShape rejects signed tokens whose custom claims could not have been
// minted here, e.g. a player token without a player id.
func (c *AccessTokenClaims) validateShape() error {
	return AccessTokenPayload{UserID: c.UserID, Role: c.Role, PlayerID: c.PlayerID}.validate()
}

// Package hmac accepts API keys that are HS256-signed JWTs. The "sub" claim
// identifies the key holder; an optional "competitions" claim scopes it.
package hmac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/osvaldoandrade/repozip/pkg/auth"

	"github.com/golang-jwt/jwt/v5"
)

type Config struct {
	Secret    string `json:"secret"`
	Issuer    string `json:"issuer,omitempty"`
	Audience  string `json:"audience,omitempty"`
	ClockSkew int    `json:"clockSkewSeconds,omitempty"`
}

// KeyClaims is the JWT body of an API key.
type KeyClaims struct {
	Competitions []string `json:"competitions,omitempty"`
	jwt.RegisteredClaims
}

type Validator struct {
	secret []byte
	parser *jwt.Parser
	issuer string
}

func New(cfg Config) (*Validator, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("hmac auth: secret is required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(time.Duration(cfg.ClockSkew) * time.Second),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Validator{secret: []byte(cfg.Secret), parser: jwt.NewParser(opts...), issuer: cfg.Issuer}, nil
}

func NewValidatorFromJSON(raw json.RawMessage) (auth.Validator, error) {
	var cfg Config
	if len(raw) == 0 {
		return nil, errors.New("hmac auth: missing config")
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("hmac auth: invalid config: %w", err)
	}
	return New(cfg)
}

func (v *Validator) Validate(tokenString string) (*auth.Claims, error) {
	var kc KeyClaims
	token, err := v.parser.ParseWithClaims(strings.TrimSpace(tokenString), &kc, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, auth.ErrInvalidToken
	}
	if strings.TrimSpace(kc.Subject) == "" {
		return nil, fmt.Errorf("%w: missing sub", auth.ErrInvalidToken)
	}

	out := &auth.Claims{
		Subject:      kc.Subject,
		Issuer:       kc.Issuer,
		Audience:     kc.Audience,
		Competitions: kc.Competitions,
		Raw:          map[string]any{"jti": kc.ID},
	}
	if kc.ExpiresAt != nil {
		out.ExpiresAt = kc.ExpiresAt.Time
	}
	if kc.IssuedAt != nil {
		out.IssuedAt = kc.IssuedAt.Time
	}
	return out, nil
}

// Issue signs an API key for subject. A zero ttl issues a key that never
// expires.
func (v *Validator) Issue(subject string, competitions []string, ttl time.Duration) (string, error) {
	now := time.Now()
	kc := KeyClaims{
		Competitions: competitions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			Issuer:   v.issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		kc.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, kc).SignedString(v.secret)
}

func init() {
	auth.RegisterProvider("hmac", NewValidatorFromJSON)
}

package static

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/osvaldoandrade/repozip/pkg/auth"

	"github.com/zeebo/blake3"
)

// Key is one accepted API key.
type Key struct {
	Token        string   `json:"token"`
	Subject      string   `json:"subject,omitempty"`
	Competitions []string `json:"competitions,omitempty"`
}

// validatorConfig accepts a bare token string, a single Key object, or
// {"tokens": [...], "keys": [...]}.
type validatorConfig struct {
	Key
	Tokens []string `json:"tokens,omitempty"`
	Keys   []Key    `json:"keys,omitempty"`
}

type validator struct {
	keys map[string]Key
}

func NewValidatorFromJSON(raw json.RawMessage) (auth.Validator, error) {
	raw = json.RawMessage(strings.TrimSpace(string(raw)))
	if len(raw) == 0 {
		return nil, errors.New("static auth: missing config")
	}
	var cfg validatorConfig
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &cfg.Token); err != nil {
			return nil, fmt.Errorf("static auth: invalid config: %w", err)
		}
	} else if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("static auth: invalid config: %w", err)
	}

	all := append([]Key{}, cfg.Keys...)
	if cfg.Token != "" {
		all = append(all, cfg.Key)
	}
	for _, t := range cfg.Tokens {
		all = append(all, Key{Token: t})
	}
	return NewValidator(all...)
}

// NewValidator accepts exactly the given keys. Keys without a subject get
// one derived from the token.
func NewValidator(keys ...Key) (auth.Validator, error) {
	v := &validator{keys: make(map[string]Key, len(keys))}
	for _, k := range keys {
		k.Token = strings.TrimSpace(k.Token)
		if k.Token == "" {
			continue
		}
		k.Subject = strings.TrimSpace(k.Subject)
		if k.Subject == "" {
			k.Subject = SubjectFor(k.Token)
		}
		v.keys[k.Token] = k
	}
	if len(v.keys) == 0 {
		return nil, errors.New("static auth: at least one token is required")
	}
	return v, nil
}

// SubjectFor derives a stable subject that does not reveal the token.
func SubjectFor(token string) string {
	sum := blake3.Sum256([]byte(token))
	return "key-" + hex.EncodeToString(sum[:6])
}

func (v *validator) Validate(token string) (*auth.Claims, error) {
	k, ok := v.keys[strings.TrimSpace(token)]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Claims{
		Subject:      k.Subject,
		Issuer:       "static",
		Competitions: k.Competitions,
		Raw:          map[string]any{},
	}, nil
}

func init() {
	auth.RegisterProvider("static", NewValidatorFromJSON)
}

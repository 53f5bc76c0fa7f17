package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-langganan/internal/common"
)

const roleClaim = "role"

// Claims is the subset of a verified token the API relies on.
type Claims struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the token carries the admin role.
func (c Claims) IsAdmin() bool {
	return c.Role == common.RoleAdmin
}

// Verifier checks bearer tokens minted by the hosted auth provider with a
// shared HMAC secret.
type Verifier struct {
	secret []byte
	policy claimsPolicy
	now    func() time.Time
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	ClockSkew time.Duration
	Now       func() time.Time
}

// NewVerifier constructs a Verifier. The secret is required.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	skew := cfg.ClockSkew
	if skew <= 0 {
		skew = 30 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		policy: claimsPolicy{
			issuer:    cfg.Issuer,
			audience:  cfg.Audience,
			skew:      skew,
			algorithm: jwa.HS256,
		},
		now: now,
	}, nil
}

// Verify parses and validates token, returning its claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, unauthorized(errNoToken)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, unauthorized(err)
	}
	if algorithm != v.policy.algorithm {
		return Claims{}, unauthorized(fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, v.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, unauthorized(err)
	}
	if err := v.policy.check(parsed, v.now()); err != nil {
		return Claims{}, unauthorized(err)
	}
	if parsed.Subject() == "" {
		return Claims{}, unauthorized(errors.New("auth: token has no subject"))
	}
	claims := Claims{UserID: parsed.Subject()}
	if raw, ok := parsed.Get(roleClaim); ok {
		if role, ok := raw.(string); ok {
			claims.Role = role
		}
	}
	return claims, nil
}

// Sign mints a token for local development and tests. Production tokens come
// from the auth provider.
func (v *Verifier) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := v.now()
	builder := jwt.NewBuilder().
		Subject(claims.UserID).
		IssuedAt(now).
		NotBefore(now).
		Expiration(now.Add(ttl))
	if v.policy.issuer != "" {
		builder = builder.Issuer(v.policy.issuer)
	}
	if v.policy.audience != "" {
		builder = builder.Audience([]string{v.policy.audience})
	}
	if claims.Role != "" {
		builder = builder.Claim(roleClaim, claims.Role)
	}
	tok, err := builder.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(v.policy.algorithm, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// claimsPolicy holds the registered-claim requirements every token must meet.
type claimsPolicy struct {
	issuer    string
	audience  string
	skew      time.Duration
	algorithm jwa.SignatureAlgorithm
}

func (p claimsPolicy) check(tok jwt.Token, now time.Time) error {
	if tok == nil {
		return errors.New("auth: token is nil")
	}
	opts := []jwt.ValidateOption{
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
	}
	if p.skew > 0 {
		opts = append(opts, jwt.WithAcceptableSkew(p.skew))
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}
	return jwt.Validate(tok, opts...)
}

func unauthorized(err error) *common.AppError {
	return common.NewAppError("UNAUTHORIZED", "missing or invalid token", http.StatusUnauthorized, err)
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) == 0 {
		return "", errors.New("auth: token contains no signatures")
	}
	var algorithm jwa.SignatureAlgorithm
	for _, sig := range signatures {
		headers := sig.ProtectedHeaders()
		if headers == nil {
			return "", errors.New("auth: token missing protected headers")
		}
		alg := headers.Algorithm()
		if alg == "" || alg == jwa.NoSignature {
			return "", errors.New("auth: token missing algorithm")
		}
		if algorithm == "" {
			algorithm = alg
		} else if algorithm != alg {
			return "", errors.New("auth: mixed token algorithms detected")
		}
	}
	return algorithm, nil
}

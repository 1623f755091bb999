package verifier

import (
	"context"
	"crypto/rsa"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/fedgrant/internal/domain/repository"
	"github.com/dropDatabas3/fedgrant/internal/grant"
)

// AssertionProvider is the provider name identities are linked under when
// they come from signed assertions.
const AssertionProvider = "assertion"

// AssertionConfig configures an AssertionVerifier. Exactly one of
// HMACSecret and PublicKey must be set.
type AssertionConfig struct {
	Issuer   string
	Audience string

	HMACSecret []byte
	PublicKey  *rsa.PublicKey

	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// AssertionVerifier accepts a JWT whose iss, aud and exp check out and whose
// sub is linked to a local user.
type AssertionVerifier struct {
	cfg        AssertionConfig
	identities repository.IdentityRepository
	parser     *jwtv5.Parser
	now        func() time.Time
}

func NewAssertionVerifier(cfg AssertionConfig, identities repository.IdentityRepository) (*AssertionVerifier, error) {
	if cfg.Issuer == "" || cfg.Audience == "" {
		return nil, grant.ConfigurationError("assertion verifier needs issuer and audience")
	}
	if (len(cfg.HMACSecret) == 0) == (cfg.PublicKey == nil) {
		return nil, grant.ConfigurationError("assertion verifier needs exactly one of hmac secret or public key")
	}
	v := &AssertionVerifier{cfg: cfg, identities: identities, now: time.Now}
	v.parser = jwtv5.NewParser(
		jwtv5.WithValidMethods(v.methods()),
		jwtv5.WithIssuer(cfg.Issuer),
		jwtv5.WithAudience(cfg.Audience),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithLeeway(cfg.Leeway),
		jwtv5.WithTimeFunc(func() time.Time { return v.now() }),
	)
	return v, nil
}

func (v *AssertionVerifier) methods() []string {
	if v.cfg.PublicKey != nil {
		return []string{jwtv5.SigningMethodRS256.Alg()}
	}
	return []string{jwtv5.SigningMethodHS256.Alg()}
}

func (v *AssertionVerifier) key(*jwtv5.Token) (any, error) {
	if v.cfg.PublicKey != nil {
		return v.cfg.PublicKey, nil
	}
	return v.cfg.HMACSecret, nil
}

// Verify ignores profile; the assertion is self-contained. Any parse or
// claim failure is a rejection.
func (v *AssertionVerifier) Verify(ctx context.Context, token string, _ *grant.Profile) (string, error) {
	claims := &jwtv5.RegisteredClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, v.key); err != nil {
		return "", fmt.Errorf("%w: %v", grant.ErrRejected, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: assertion has no subject", grant.ErrRejected)
	}
	return resolve(ctx, v.identities, AssertionProvider, claims.Subject)
}

package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrUnknownKID  = errors.New("jwtx: unknown kid")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Signer signs session claims into compact JWTs.
type Signer interface {
	KID() string
	Sign(Claims) (string, error)
}

// Verifier validates a JWT and gives back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSASigner signs tokens with an Ed25519 private key.
type EdDSASigner struct {
	kid string
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// GenerateSigner creates a signer with a fresh Ed25519 keypair. Keys are
// ephemeral: restarting the process invalidates outstanding tokens, which is
// acceptable for session tokens with an hour TTL.
func GenerateSigner(kid string) (*EdDSASigner, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate Ed25519 key: %w", err)
	}
	return &EdDSASigner{kid: kid, key: priv, pub: pub}, nil
}

// NewSignerFromPEM loads an Ed25519 private key in PKCS8 PEM form.
func NewSignerFromPEM(kid string, pemKey []byte) (*EdDSASigner, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}

	return &EdDSASigner{
		kid: kid,
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

// PrivateKeyPEM exports the private key in PKCS8 PEM form, the inverse of
// NewSignerFromPEM.
func (s *EdDSASigner) PrivateKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(s.key)
	if err != nil {
		return nil, fmt.Errorf("jwtx: marshal PKCS8: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func (s *EdDSASigner) KID() string { return s.kid }

// Sign takes the claims and turns them into a signed JWT string.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.key)
}

// PublicKey exposes the verification half for building a Verifier.
func (s *EdDSASigner) PublicKey() ed25519.PublicKey { return s.pub }

// EdDSAVerifier validates JWTs signed using EdDSA (Ed25519).
type EdDSAVerifier struct {
	keys   map[string]ed25519.PublicKey
	issuer string
}

// NewVerifier builds a verifier from one or more signers' public keys.
func NewVerifier(issuer string, signers ...*EdDSASigner) *EdDSAVerifier {
	keys := make(map[string]ed25519.PublicKey, len(signers))
	for _, s := range signers {
		keys[s.KID()] = s.PublicKey()
	}
	return &EdDSAVerifier{keys: keys, issuer: issuer}
}

// Verify validates the JWT string and returns its parsed Claims.
func (v *EdDSAVerifier) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("jwtx: missing kid")
		}
		pub, ok := v.keys[kid]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("jwtx: parse or verify: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// Package receipt issues and verifies signed booking receipts (EdDSA JWTs).
package receipt

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/vsinha/shipcheckout/pkg/domain/errors"
)

// Config defines how receipts are signed and verified
type Config struct {
	Issuer   string
	Audience string
	Key      ed25519.PrivateKey
	TTL      time.Duration
	Now      func() time.Time
}

// Receipt is the booking summary embedded in the token
type Receipt struct {
	TransactionID      string
	ConfirmationNumber string
	ServiceCode        string
	Carrier            string
	Total              string
	Currency           string
	PickupDate         string
	PaymentMethod      string
}

// Claims captures validated receipt claims
type Claims struct {
	Receipt
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	JWTID     string
}

// receiptClaims is the internal claims type used for JWT encoding.
type receiptClaims struct {
	jwt.RegisteredClaims
	ConfirmationNumber string `json:"confirmation_number"`
	ServiceCode        string `json:"service_code"`
	Carrier            string `json:"carrier"`
	Total              string `json:"total"`
	Currency           string `json:"currency"`
	PickupDate         string `json:"pickup_date"`
	PaymentMethod      string `json:"payment_method"`
}

// Signer issues and verifies receipts with one key pair
type Signer struct {
	cfg Config
	pub ed25519.PublicKey
}

// NewSigner validates the configuration
func NewSigner(cfg Config) (*Signer, error) {
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)
	if cfg.Issuer == "" {
		return nil, errors.New("receipt issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("receipt audience is required")
	}
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("receipt private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("receipt ttl must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Signer{cfg: cfg, pub: cfg.Key.Public().(ed25519.PublicKey)}, nil
}

// PublicKey returns the verification key
func (s *Signer) PublicKey() ed25519.PublicKey {
	return s.pub
}

// Sign encodes the receipt as a compact JWT
func (s *Signer) Sign(r Receipt) (string, error) {
	if strings.TrimSpace(r.TransactionID) == "" || strings.TrimSpace(r.ConfirmationNumber) == "" {
		return "", errors.New("receipt requires a transaction id and confirmation number")
	}
	now := s.cfg.Now().UTC()
	claims := receiptClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   r.TransactionID,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TTL)),
			ID:        uuid.NewString(),
		},
		ConfirmationNumber: r.ConfirmationNumber,
		ServiceCode:        r.ServiceCode,
		Carrier:            r.Carrier,
		Total:              r.Total,
		Currency:           r.Currency,
		PickupDate:         r.PickupDate,
		PaymentMethod:      r.PaymentMethod,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.cfg.Key)
	if err != nil {
		return "", fmt.Errorf("sign receipt: %w", err)
	}
	return token, nil
}

// Verify checks signature, issuer, audience and expiry and returns the receipt claims
func (s *Signer) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipt token is required")
	}

	var parsed receiptClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return s.pub, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	if parsed.Issuer != s.cfg.Issuer {
		return Claims{}, apperrors.WithMetadata(apperrors.CodeReceiptInvalid, "receipt issuer mismatch",
			map[string]string{"Field": "issuer"})
	}
	if !audienceContains(parsed.Audience, s.cfg.Audience) {
		return Claims{}, apperrors.WithMetadata(apperrors.CodeReceiptInvalid, "receipt audience mismatch",
			map[string]string{"Field": "audience"})
	}
	if parsed.Subject == "" || parsed.ConfirmationNumber == "" {
		return Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipt is missing its booking reference")
	}
	if parsed.ExpiresAt == nil {
		return Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipt exp is required")
	}

	now := s.cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return Claims{}, apperrors.New(apperrors.CodeReceiptExpired, "receipt is expired")
	}
	if parsed.NotBefore != nil && now.Before(parsed.NotBefore.Time) {
		return Claims{}, apperrors.New(apperrors.CodeReceiptInvalid, "receipt not active yet")
	}

	claims := Claims{
		Receipt: Receipt{
			TransactionID:      parsed.Subject,
			ConfirmationNumber: parsed.ConfirmationNumber,
			ServiceCode:        parsed.ServiceCode,
			Carrier:            parsed.Carrier,
			Total:              parsed.Total,
			Currency:           parsed.Currency,
			PickupDate:         parsed.PickupDate,
			PaymentMethod:      parsed.PaymentMethod,
		},
		Issuer:    parsed.Issuer,
		Audience:  []string(parsed.Audience),
		ExpiresAt: exp,
		JWTID:     parsed.ID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// GenerateKey returns a new key pair, both base64 encoded
func GenerateKey() (privateKey, publicKey string, err error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ed25519 key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(priv), base64.StdEncoding.EncodeToString(pub), nil
}

// DecodePrivateKey accepts a base64 private key or 32-byte seed
func DecodePrivateKey(value string) (ed25519.PrivateKey, error) {
	keyBytes, err := decodeBase64(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decode receipt private key: %w", err)
	}
	switch len(keyBytes) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(keyBytes), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(keyBytes), nil
	default:
		return nil, fmt.Errorf("receipt private key must be %d bytes or a %d byte seed", ed25519.PrivateKeySize, ed25519.SeedSize)
	}
}

// mapJWTError translates jwt library errors to domain errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeReceiptInvalid, "receipt signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeReceiptInvalid, "receipt alg is invalid")
	}
	return apperrors.New(apperrors.CodeReceiptInvalid, "receipt is invalid")
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}

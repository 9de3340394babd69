package builder

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/luminacare/checkout/internal/config"
	"github.com/luminacare/checkout/internal/environment"
	paymentdomain "github.com/luminacare/checkout/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg config.Config
	Log *zap.Logger
}

// Builder assembles processor order payloads. Live requests are signed by
// encrypting the serialized payload with the processor's public key; when
// encryption is unavailable or fails, the payload is base64-encoded plain and
// the request is flagged as non-encrypted so the degradation is observable.
type Builder struct {
	baseURL string
	log     *zap.Logger
}

func NewBuilder(p Params) paymentdomain.Builder {
	return &Builder{
		baseURL: strings.TrimRight(p.Cfg.BaseURL, "/"),
		log:     p.Log.Named("payment.builder"),
	}
}

func (b *Builder) BuildRequest(intent paymentdomain.Intent, creds paymentdomain.Credentials) (*paymentdomain.Request, error) {
	orderID := strings.TrimSpace(intent.OrderID)
	if orderID == "" {
		return nil, paymentdomain.ErrMissingOrderID
	}
	amount, err := normalizeAmount(intent.Amount)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(creds.Signature) == "" {
		// The environment was already resolved; building without signature
		// material for it must fail rather than silently downgrade.
		return nil, paymentdomain.ErrMissingSignature
	}

	currency := strings.ToUpper(strings.TrimSpace(intent.Currency))
	if currency == "" {
		currency = "RON"
	}

	createdAt := intent.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	payload := paymentdomain.OrderPayload{
		OrderID:     orderID,
		Amount:      amount,
		Currency:    currency,
		Description: strings.TrimSpace(intent.Description),
		Account:     creds.Signature,
		Billing:     intent.Customer,
		Shipping:    intent.Customer,
		NotifyURL:   b.baseURL + "/api/payments/card/webhook",
		ReturnURL:   b.baseURL + "/checkout/confirmation?orderId=" + orderID,
		Timestamp:   createdAt.Unix(),
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("serialize order payload: %w", err)
	}

	signature, encrypted := b.sign(intent.Environment, creds, serialized, orderID)

	return &paymentdomain.Request{
		Environment: intent.Environment,
		OrderID:     orderID,
		Payload:     payload,
		Signature:   signature,
		Encrypted:   encrypted,
	}, nil
}

// sign produces the transport signature. Sandbox never encrypts; live
// encrypts when a public key is configured and falls back to the opaque
// base64 form on any failure.
func (b *Builder) sign(env environment.Environment, creds paymentdomain.Credentials, serialized []byte, orderID string) (string, bool) {
	if env == environment.Live && strings.TrimSpace(creds.PublicKeyPEM) != "" {
		ciphertext, err := encryptWithPublicKey(creds.PublicKeyPEM, serialized)
		if err == nil {
			return base64.StdEncoding.EncodeToString(ciphertext), true
		}
		b.log.Warn("payload encryption failed, falling back to opaque signature",
			zap.String("order_id", orderID),
			zap.Error(err))
	}
	return base64.StdEncoding.EncodeToString(serialized), false
}

func encryptWithPublicKey(pemData string, plaintext []byte) ([]byte, error) {
	block, _ := pem.Decode([]byte(pemData))
	if block == nil {
		return nil, errors.New("no PEM block in public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}

	// OAEP bounds a single block at k-2*hLen-2 bytes; the order payload is
	// larger, so encrypt in blocks and concatenate the fixed-size ciphertexts.
	hash := sha256.New()
	maxChunk := rsaKey.Size() - 2*hash.Size() - 2
	if maxChunk <= 0 {
		return nil, errors.New("public key too small for payload encryption")
	}

	var out []byte
	for len(plaintext) > 0 {
		chunk := plaintext
		if len(chunk) > maxChunk {
			chunk = chunk[:maxChunk]
		}
		ciphertext, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, rsaKey, chunk, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, ciphertext...)
		plaintext = plaintext[len(chunk):]
	}
	return out, nil
}

// normalizeAmount turns caller-supplied amounts ("50", "50.0", 50) into the
// processor's fixed-point two-decimal form.
func normalizeAmount(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", paymentdomain.ErrMissingAmount
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", paymentdomain.ErrInvalidAmount
	}
	// ParseFloat accepts "NaN" and "Inf"; neither survives the <= 0 check
	// (NaN compares false to everything), so reject them explicitly.
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		return "", paymentdomain.ErrInvalidAmount
	}
	return strconv.FormatFloat(value, 'f', 2, 64), nil
}

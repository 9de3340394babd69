package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

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

// Gateway performs the single outbound initiation POST. The processor is not
// contractually consistent about its response shape across sandbox and live,
// so the Content-Type decides between a JSON redirect status and a raw HTML
// document (the processor's own 3-D Secure form). No retries: initiation is
// not safely retryable, a fresh order id is required for another attempt.
type Gateway struct {
	client     *http.Client
	sandboxURL string
	liveURL    string
	log        *zap.Logger
}

func NewGateway(p Params) paymentdomain.Gateway {
	return &Gateway{
		client:     &http.Client{Timeout: p.Cfg.InitiateTimeout},
		sandboxURL: p.Cfg.Card.SandboxURL,
		liveURL:    p.Cfg.Card.LiveURL,
		log:        p.Log.Named("payment.gateway"),
	}
}

type initiationEnvelope struct {
	Order     paymentdomain.OrderPayload `json:"order"`
	Signature string                     `json:"signature"`
	Encrypted bool                       `json:"encrypted"`
}

type initiationStatus struct {
	Status      string `json:"status"`
	PaymentURL  string `json:"paymentUrl"`
	RedirectURL string `json:"redirectUrl"`
	URL         string `json:"url"`
}

func (g *Gateway) Initiate(ctx context.Context, req *paymentdomain.Request) (*paymentdomain.Outcome, error) {
	endpoint := g.sandboxURL
	if req.Environment == environment.Live {
		endpoint = g.liveURL
	}

	body, err := json.Marshal(initiationEnvelope{
		Order:     req.Payload,
		Signature: req.Signature,
		Encrypted: req.Encrypted,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/html")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, &paymentdomain.GatewayError{StatusCode: 0, Reason: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &paymentdomain.GatewayError{StatusCode: resp.StatusCode, Reason: "read response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Warn("processor rejected initiation",
			zap.String("order_id", req.OrderID),
			zap.Int("status", resp.StatusCode))
		return nil, &paymentdomain.GatewayError{StatusCode: resp.StatusCode, Reason: "processor returned non-success status"}
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	switch {
	case strings.Contains(contentType, "application/json"):
		return g.classifyJSON(req, resp.StatusCode, raw)
	case strings.Contains(contentType, "text/html"):
		return g.classifyHTML(req, resp.StatusCode, raw)
	default:
		return nil, &paymentdomain.GatewayError{StatusCode: resp.StatusCode, Reason: "unexpected content type " + contentType}
	}
}

func (g *Gateway) classifyJSON(req *paymentdomain.Request, status int, raw []byte) (*paymentdomain.Outcome, error) {
	var parsed initiationStatus
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &paymentdomain.GatewayError{StatusCode: status, Reason: "malformed JSON response"}
	}

	paymentURL := firstNonEmpty(parsed.PaymentURL, parsed.RedirectURL, parsed.URL)
	if paymentURL == "" {
		return nil, &paymentdomain.GatewayError{StatusCode: status, Reason: "JSON response missing redirect URL"}
	}

	return &paymentdomain.Outcome{
		Kind:        paymentdomain.OutcomeRedirect,
		PaymentURL:  paymentURL,
		Environment: req.Environment,
	}, nil
}

func (g *Gateway) classifyHTML(req *paymentdomain.Request, status int, raw []byte) (*paymentdomain.Outcome, error) {
	html := string(raw)
	if !strings.Contains(strings.ToLower(html), "<form") {
		return nil, &paymentdomain.GatewayError{StatusCode: status, Reason: "HTML response missing form"}
	}

	return &paymentdomain.Outcome{
		Kind:        paymentdomain.OutcomeHTMLForm,
		HTML:        html,
		Environment: req.Environment,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/luminacare/checkout/internal/account/domain"
	accountrepo "github.com/luminacare/checkout/internal/account/repository"
	"github.com/luminacare/checkout/internal/config"
	confirmdomain "github.com/luminacare/checkout/internal/confirm/domain"
	confirmrepo "github.com/luminacare/checkout/internal/confirm/repository"
	confirmservice "github.com/luminacare/checkout/internal/confirm/service"
	"github.com/luminacare/checkout/internal/environment"
	notifdomain "github.com/luminacare/checkout/internal/notification/domain"
	notifrepo "github.com/luminacare/checkout/internal/notification/repository"
	notifservice "github.com/luminacare/checkout/internal/notification/service"
	orderdomain "github.com/luminacare/checkout/internal/order/domain"
	"github.com/luminacare/checkout/internal/payment/builder"
	"github.com/luminacare/checkout/internal/payment/gateway"
	paymentservice "github.com/luminacare/checkout/internal/payment/service"
	emailprovider "github.com/luminacare/checkout/internal/providers/email"
	"github.com/luminacare/checkout/internal/recovery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type capturedMail struct {
	to      []string
	subject string
	body    string
}

type captureEmail struct {
	sent []capturedMail
}

func (f *captureEmail) Send(_ context.Context, to []string, subject string, htmlBody string) (emailprovider.Receipt, error) {
	f.sent = append(f.sent, capturedMail{to: to, subject: subject, body: htmlBody})
	return emailprovider.Receipt{DeliveryID: "D-1"}, nil
}

type testEnv struct {
	engine *gin.Engine
	mail   *captureEmail
	db     *gorm.DB
}

func testConfig() config.Config {
	return config.Config{
		HTTPAddr:         ":0",
		BaseURL:          "http://localhost:8080",
		ProductionDomain: "luminacare.ro",
		StagingMarker:    "preview",
		AdminEmail:       "admin@luminacare.ro",
		Card: config.CardConfig{
			SandboxSignature: "sandbox-sig",
			SandboxAPIKey:    "sandbox-key",
		},
		InitiateTimeout:    5 * time.Second,
		RecoveryTierBudget: 2 * time.Second,
		RemoteTierBudget:   5 * time.Second,
	}
}

func newTestEnv(t *testing.T, cfg config.Config, policy config.NotifyPolicy) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&accountdomain.AccountOrder{},
		&notifdomain.EventRecord{},
		&confirmdomain.ConfirmationDispatch{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	accounts := accountrepo.Provide(db)
	mail := &captureEmail{}

	dispatcher := confirmservice.NewDispatcher(confirmservice.Params{
		Cfg:    cfg,
		Log:    log,
		Policy: config.NewStaticNotifyPolicyHolder(policy),
		Email:  mail,
		Dedup:  confirmrepo.Provide(db),
	})
	notSvc := notifservice.NewService(notifservice.Params{
		Cfg:        cfg,
		Log:        log,
		Repo:       notifrepo.Provide(db, node),
		Accounts:   accounts,
		Dispatcher: dispatcher,
	})
	paySvc := paymentservice.NewService(paymentservice.Params{
		Cfg:      cfg,
		Log:      log,
		Resolver: environment.NewResolver(cfg, log),
		Builder:  builder.NewBuilder(builder.Params{Cfg: cfg, Log: log}),
		Gateway:  gateway.NewGateway(gateway.Params{Cfg: cfg, Log: log}),
	})
	cascade := recovery.NewCascade(recovery.Params{Cfg: cfg, Log: log, Repo: accounts})

	engine := NewEngine(log, nil)
	NewServer(ServerParams{
		Gin:             engine,
		Cfg:             cfg,
		Log:             log,
		PaymentSvc:      paySvc,
		Cascade:         cascade,
		NotificationSvc: notSvc,
		Dispatcher:      dispatcher,
		Accounts:        accounts,
	})

	return &testEnv{engine: engine, mail: mail, db: db}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func verifiedOrder(orderID string) map[string]any {
	return map[string]any{
		"orderNumber":            orderID,
		"customerName":           "Ana Popescu",
		"customerEmail":          "ana@gmail.com",
		"customerPhone":          "+40700000000",
		"customerAddress":        "Str. Florilor 1",
		"customerCity":           "Cluj-Napoca",
		"customerCounty":         "Cluj",
		"totalAmount":            "50.00",
		"paymentMethod":          "card",
		"isVerifiedCustomerData": true,
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	cases := []struct {
		name   string
		method string
		body   any
	}{
		{"get without body", http.MethodGet, nil},
		{"invalid json", http.MethodPost, `{not json`},
		{"empty body", http.MethodPost, ""},
		{"missing identifiers", http.MethodPost, map[string]any{"status": "confirmed"}},
		{"null fields", http.MethodPost, map[string]any{"paymentId": nil, "orderId": nil}},
		{"unexpected method", http.MethodPut, map[string]any{"paymentId": "T", "orderId": "O"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(t, tc.method, "/api/payments/card/webhook", tc.body)
			require.Equal(t, http.StatusOK, w.Code)
			out := decodeJSON(t, w)
			require.EqualValues(t, 0, out["errorCode"])
			require.Equal(t, "success", out["message"])
		})
	}
}

func TestInitiateValidationError(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	w := env.do(t, http.MethodPost, "/api/payments/card/initiate", map[string]any{
		"amount": "50.00",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInitiateSandboxRedirect(t *testing.T) {
	processor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"paymentUrl":"https://sandbox.cardgateway.example/pay/abc"}`))
	}))
	defer processor.Close()

	cfg := testConfig()
	cfg.Card.SandboxURL = processor.URL
	env := newTestEnv(t, cfg, config.DefaultNotifyPolicy())

	w := env.do(t, http.MethodPost, "/api/payments/card/initiate", map[string]any{
		"orderId":  "LC-1700000000000",
		"amount":   "50.00",
		"currency": "RON",
		"customerInfo": map[string]any{
			"firstName": "Ana", "lastName": "Popescu", "email": "ana@gmail.com",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON(t, w)
	require.Equal(t, true, out["success"])
	require.Equal(t, "https://sandbox.cardgateway.example/pay/abc", out["paymentUrl"])
	require.Equal(t, "sandbox", out["environment"])
	require.Equal(t, "LC-1700000000000", out["orderId"])
}

func TestInitiateHTMLPassthrough(t *testing.T) {
	processor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><form action="/3ds"></form></body></html>`))
	}))
	defer processor.Close()

	cfg := testConfig()
	cfg.Card.SandboxURL = processor.URL
	env := newTestEnv(t, cfg, config.DefaultNotifyPolicy())

	w := env.do(t, http.MethodPost, "/api/payments/card/initiate", map[string]any{
		"orderId": "LC-1700000000000",
		"amount":  "50.00",
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "<form")
}

// Scenario: the order survives only in the browser's single-slot store. The
// cascade resolves it from there and confirmation reaches both the customer
// and the admin.
func TestRecoverFromSecondarySlotAndConfirm(t *testing.T) {
	policy := config.DefaultNotifyPolicy()
	policy.PlaceholderDomains = []string{"placeholder.local"}
	env := newTestEnv(t, testConfig(), policy)

	order := verifiedOrder("LC-1700000000000")
	order["customerEmail"] = "test@example.com"

	w := env.do(t, http.MethodPost, "/api/orders/recover", map[string]any{
		"orderId":   "LC-1700000000000",
		"lastOrder": order,
	})
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON(t, w)
	require.Equal(t, true, out["success"])
	require.Equal(t, "secondary", out["tier"])

	recovered := out["orderData"].(map[string]any)
	w = env.do(t, http.MethodPost, "/api/orders/confirm", map[string]any{"order": recovered})
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeJSON(t, w)
	require.Equal(t, true, out["customerEmailSent"])
	require.Equal(t, true, out["adminEmailSent"])
	require.Equal(t, false, out["isBackupNotification"])

	require.Len(t, env.mail.sent, 2)
	require.Equal(t, []string{"test@example.com"}, env.mail.sent[0].to)
	require.Equal(t, []string{"admin@luminacare.ro"}, env.mail.sent[1].to)
}

// Scenario: nothing survived anywhere. Recovery answers success:false, and
// the degraded confirmation still produces an admin-only backup alert.
func TestRecoveryMissDegradesToBackupNotification(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	w := env.do(t, http.MethodPost, "/api/orders/recover", map[string]any{
		"orderId": "LC-1700000000000",
	})
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON(t, w)
	require.Equal(t, false, out["success"])
	require.Nil(t, out["orderData"])

	w = env.do(t, http.MethodPost, "/api/orders/confirm", map[string]any{
		"order": map[string]any{"orderNumber": "LC-1700000000000"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	out = decodeJSON(t, w)
	require.Equal(t, true, out["isBackupNotification"])
	require.Equal(t, false, out["customerEmailSent"])

	require.Len(t, env.mail.sent, 1)
	require.Equal(t, []string{"admin@luminacare.ro"}, env.mail.sent[0].to)
	require.Contains(t, env.mail.sent[0].subject, "BACKUP")
}

// Scenario: the processor redelivers the same confirmed callback. Both
// deliveries are acknowledged with success and the side effects run once.
func TestWebhookRedeliveryIsAcknowledgedOnce(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	w := env.do(t, http.MethodPost, "/api/orders", verifiedOrder("LC-1700000000000"))
	require.Equal(t, http.StatusOK, w.Code)

	callback := map[string]any{
		"paymentId": "TXN-777",
		"orderId":   "LC-1700000000000",
		"status":    "confirmed",
		"amount":    "50.00",
	}
	for i := 0; i < 2; i++ {
		w = env.do(t, http.MethodPost, "/api/payments/card/webhook", callback)
		require.Equal(t, http.StatusOK, w.Code)
		out := decodeJSON(t, w)
		require.EqualValues(t, 0, out["errorCode"])
		require.Equal(t, "success", out["message"])
	}

	// one customer email and one admin email despite two deliveries
	require.Len(t, env.mail.sent, 2)

	var stored accountdomain.AccountOrder
	require.NoError(t, env.db.First(&stored, "order_number = ?", "LC-1700000000000").Error)
	require.Equal(t, accountdomain.StatusPaid, stored.Status)
}

// A confirmed callback without entitlement fields must not wipe the
// entitlement the order save recorded.
func TestWebhookKeepsStoredEntitlement(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	order := verifiedOrder("LC-1700000000000")
	order["entityType"] = "emblem"
	order["ownerId"] = "user-42"
	w := env.do(t, http.MethodPost, "/api/orders", order)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/payments/card/webhook", map[string]any{
		"paymentId": "TXN-778",
		"orderId":   "LC-1700000000000",
		"status":    "confirmed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var stored accountdomain.AccountOrder
	require.NoError(t, env.db.First(&stored, "order_number = ?", "LC-1700000000000").Error)
	require.Equal(t, accountdomain.StatusPaid, stored.Status)
	require.Equal(t, "emblem", stored.EntityType)
	require.Equal(t, "user-42", stored.OwnerID)
}

func TestRemoteRecoveryEndpoint(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	w := env.do(t, http.MethodPost, "/api/orders", verifiedOrder("LC-1700000000000"))
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/orders/recover/LC-1700000000000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON(t, w)
	require.Equal(t, true, out["success"])
	require.Equal(t, "remote", out["tier"])

	data := out["orderData"].(map[string]any)
	require.Equal(t, "Ana Popescu", data["customerName"])

	// unknown order is a valid miss, not an error
	w = env.do(t, http.MethodGet, "/api/orders/recover/LC-9999999999999", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, false, decodeJSON(t, w)["success"])
}

func TestRecoverFromCookieTier(t *testing.T) {
	env := newTestEnv(t, testConfig(), config.DefaultNotifyPolicy())

	rec := orderdomain.Record{
		OrderNumber:            "LC-1700000000000",
		CustomerName:           "Ana Popescu",
		CustomerEmail:          "ana@gmail.com",
		TotalAmount:            "50.00",
		IsVerifiedCustomerData: true,
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{"orderId": "LC-1700000000000"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/orders/recover", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: lastOrderCookie, Value: base64.StdEncoding.EncodeToString(raw)})
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON(t, w)
	require.Equal(t, true, out["success"])
	require.Equal(t, "cookie", out["tier"])
}

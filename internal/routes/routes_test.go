package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock/testclock"
	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail/mailmock"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/payments"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/payments/paymentmock"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
)

type apiFixture struct {
	app     *fiber.App
	db      *gorm.DB
	clock   *testclock.Clock
	gateway *paymentmock.MockGateway

	mu   sync.Mutex
	sent []mail.Email
}

func newAPIFixture(c *qt.C) *apiFixture {
	ctrl := gomock.NewController(c.TB)
	db, err := database.Open("sqlite", "file::memory:")
	c.Assert(err, qt.IsNil)
	c.Assert(database.Migrate(db), qt.IsNil)
	c.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		JWTSecret:       "test-secret",
		SessionExpiry:   24 * time.Hour,
		CodeTTL:         15 * time.Minute,
		PaymentCurrency: "usd",
		Recommender:     "popularity",
		AdminToken:      "admin-secret",
		CORSOrigins:     "*",
		APIRateLimit:    1000,
		AuthRateLimit:   1000,
	}

	// Tokens are checked against the wall clock by the JWT middleware.
	f := &apiFixture{
		db:      db,
		clock:   testclock.NewClock(time.Now()),
		gateway: paymentmock.NewMockGateway(ctrl),
	}
	mailer := mailmock.NewMockMailer(ctrl)
	mailer.EXPECT().Send(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, e mail.Email) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sent = append(f.sent, e)
			return nil
		})

	m := metrics.NewCollector()
	popularity := services.NewPopularityRecommender(db)
	f.app = NewApp(Deps{
		Config:          cfg,
		Auth:            services.NewAuthService(db, cfg, mailer, f.clock, m),
		Catalog:         services.NewCatalogService(db),
		Lists:           services.NewListService(db),
		Orders:          services.NewOrderService(db, f.clock, m),
		Payments:        services.NewPaymentService(db, cfg, f.gateway, mailer, m),
		Messages:        services.NewMessageService(db, f.clock),
		Recommendations: services.NewRecommendationService(db, popularity, nil, m),
		Ping:            func() error { return nil },
		Metrics:         m,
		Registry:        metrics.NewRegistry(m),
	})
	return f
}

type request struct {
	method string
	path   string
	body   interface{}
	token  string
	header map[string]string
	cookie *http.Cookie
}

func (f *apiFixture) do(c *qt.C, r request) (*http.Response, []byte) {
	var body io.Reader
	if r.body != nil {
		b, err := json.Marshal(r.body)
		c.Assert(err, qt.IsNil)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set("Content-Type", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	if r.cookie != nil {
		req.AddCookie(r.cookie)
	}

	resp, err := f.app.Test(req, -1)
	c.Assert(err, qt.IsNil)
	out, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	resp.Body.Close()
	return resp, out
}

func (f *apiFixture) lastCode(c *qt.C) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.Assert(f.sent, qt.Not(qt.HasLen), 0)
	// Templates render the code as the only six-digit run in the body.
	html := f.sent[len(f.sent)-1].HTML
	for i := 0; i+6 <= len(html); i++ {
		if isDigits(html[i:i+6]) && (i+6 == len(html) || !isDigits(html[i+6:i+7])) && (i == 0 || !isDigits(html[i-1:i])) {
			return html[i : i+6]
		}
	}
	c.Fatalf("no code in %q", html)
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func decodeError(c *qt.C, body []byte) dto.ErrorResponse {
	var e dto.ErrorResponse
	c.Assert(json.Unmarshal(body, &e), qt.IsNil)
	return e
}

// signIn registers, verifies and logs in email, returning the login body.
func (f *apiFixture) signIn(c *qt.C, email string) (dto.LoginResponse, *http.Cookie) {
	resp, _ := f.do(c, request{method: "POST", path: "/api/auth/register", body: dto.RegisterRequest{
		Name: "Shopper", Email: email, Password: "secret123",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)

	resp, _ = f.do(c, request{method: "POST", path: "/api/auth/verify-email", body: dto.VerifyEmailRequest{
		Email: email, Code: f.lastCode(c),
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	resp, body := f.do(c, request{method: "POST", path: "/api/auth/login", body: dto.LoginRequest{
		Email: email, Password: "secret123",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var login dto.LoginResponse
	c.Assert(json.Unmarshal(body, &login), qt.IsNil)

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "session" {
			cookie = ck
		}
	}
	c.Assert(cookie, qt.Not(qt.IsNil))
	c.Assert(cookie.HttpOnly, qt.IsTrue)
	return login, cookie
}

func TestAuthFlow(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)

	resp, body := f.do(c, request{method: "POST", path: "/api/auth/register", body: dto.RegisterRequest{
		Name: "Alice", Email: "alice@example.com", Password: "secret123",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	var reg dto.RegisterResponse
	c.Assert(json.Unmarshal(body, &reg), qt.IsNil)
	code := f.lastCode(c)

	resp, body = f.do(c, request{method: "POST", path: "/api/auth/register", body: dto.RegisterRequest{
		Name: "Alice", Email: "ALICE@example.com", Password: "other",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Email already in use")

	resp, body = f.do(c, request{method: "POST", path: "/api/auth/login", body: dto.LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Please verify your email before logging in")

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	resp, body = f.do(c, request{method: "POST", path: "/api/auth/verify-email", body: dto.VerifyEmailRequest{
		Email: "alice@example.com", Code: wrong,
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Invalid or expired verification code")

	resp, _ = f.do(c, request{method: "POST", path: "/api/auth/verify-email", body: dto.VerifyEmailRequest{
		Email: "alice@example.com", Code: code,
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	resp, body = f.do(c, request{method: "POST", path: "/api/auth/login", body: dto.LoginRequest{
		Email: "alice@example.com", Password: "wrong",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Invalid credentials")

	resp, body = f.do(c, request{method: "POST", path: "/api/auth/login", body: dto.LoginRequest{
		Email: "alice@example.com", Password: "secret123",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var login dto.LoginResponse
	c.Assert(json.Unmarshal(body, &login), qt.IsNil)
	c.Assert(login.User.ID, qt.Equals, reg.UserID)
	c.Assert(login.User.EmailVerified, qt.IsTrue)
	c.Assert(string(body), qt.Not(qt.Contains), "password")

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == "session" {
			cookie = ck
		}
	}
	c.Assert(cookie, qt.Not(qt.IsNil))

	resp, body = f.do(c, request{method: "GET", path: "/api/auth/me", token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var me dto.UserResponse
	c.Assert(json.Unmarshal(body, &me), qt.IsNil)
	c.Assert(me.Email, qt.Equals, "alice@example.com")

	resp, _ = f.do(c, request{method: "GET", path: "/api/auth/me", cookie: cookie})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	resp, _ = f.do(c, request{method: "POST", path: "/api/auth/logout", token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	resp, body = f.do(c, request{method: "GET", path: "/api/auth/me", token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Unauthorized")
}

func TestSessionExpires(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)
	login, _ := f.signIn(c, "bob@example.com")

	resp, _ := f.do(c, request{method: "GET", path: "/api/lists", token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	// The token itself is still valid; the session row behind it is not.
	f.clock.Advance(25 * time.Hour)
	resp, _ = f.do(c, request{method: "GET", path: "/api/lists", token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusUnauthorized)
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)
	f.signIn(c, "carol@example.com")

	for _, email := range []string{"carol@example.com", "nobody@example.com"} {
		resp, body := f.do(c, request{method: "POST", path: "/api/auth/forgot-password", body: dto.ForgotPasswordRequest{Email: email}})
		c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
		c.Assert(string(body), qt.Contains, "If the email exists, a reset code has been sent")
	}

	resp, _ := f.do(c, request{method: "POST", path: "/api/auth/reset-password", body: dto.ResetPasswordRequest{
		Email: "carol@example.com", Code: f.lastCode(c), NewPassword: "newsecret",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	resp, _ = f.do(c, request{method: "POST", path: "/api/auth/login", body: dto.LoginRequest{
		Email: "carol@example.com", Password: "newsecret",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
}

func TestValidationDetails(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)

	resp, body := f.do(c, request{method: "POST", path: "/api/auth/register", body: map[string]string{
		"name": "Dan", "email": "not-an-email", "password": "x",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	e := decodeError(c, body)
	c.Assert(e.Error, qt.Equals, "All fields are required")
	c.Assert(e.Details, qt.DeepEquals, []dto.FieldError{{Field: "email", Rule: "email"}})

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	raw, err := f.app.Test(req, -1)
	c.Assert(err, qt.IsNil)
	c.Assert(raw.StatusCode, qt.Equals, http.StatusBadRequest)
}

func TestCheckout(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)
	admin := map[string]string{"X-Admin-Token": "admin-secret"}

	var apples, bread models.Product
	resp, body := f.do(c, request{method: "POST", path: "/api/admin/products", header: admin, body: map[string]interface{}{
		"name": "Organic Apples", "price": "4.99", "stock": 10,
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	c.Assert(json.Unmarshal(body, &apples), qt.IsNil)
	resp, body = f.do(c, request{method: "POST", path: "/api/admin/products", header: admin, body: map[string]interface{}{
		"name": "Whole Wheat Bread", "price": "5.49", "stock": 5,
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	c.Assert(json.Unmarshal(body, &bread), qt.IsNil)

	login, _ := f.signIn(c, "erin@example.com")

	// A plain user cannot reach the admin routes.
	resp, _ = f.do(c, request{method: "POST", path: "/api/admin/faqs", token: login.Token, body: dto.CreateFAQRequest{
		Question: "Q", Answer: "A",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusForbidden)

	resp, body = f.do(c, request{method: "POST", path: "/api/orders", token: login.Token, body: dto.CreateOrderRequest{}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Order must contain items")

	resp, body = f.do(c, request{method: "POST", path: "/api/orders", token: login.Token, body: dto.CreateOrderRequest{
		Items: []dto.OrderLineRequest{{ProductID: bread.ID, Quantity: 6}},
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Insufficient stock for Whole Wheat Bread")

	resp, body = f.do(c, request{method: "POST", path: "/api/orders", token: login.Token, body: dto.CreateOrderRequest{
		Items: []dto.OrderLineRequest{{ProductID: apples.ID, Quantity: 2}, {ProductID: bread.ID, Quantity: 1}},
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	var order dto.OrderResponse
	c.Assert(json.Unmarshal(body, &order), qt.IsNil)
	c.Assert(order.Total.Equal(decimal.RequireFromString("15.47")), qt.IsTrue)
	c.Assert(order.Status, qt.Equals, models.StatusPending)

	f.gateway.EXPECT().
		CreateIntent(gomock.Any(), int64(1547), "usd", gomock.Any()).
		Return(&payments.Intent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: "requires_payment_method"}, nil)
	resp, body = f.do(c, request{method: "POST", path: "/api/create-payment-intent", token: login.Token, body: dto.PaymentRequest{OrderID: order.ID}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var intent dto.PaymentIntentResponse
	c.Assert(json.Unmarshal(body, &intent), qt.IsNil)
	c.Assert(intent.ClientSecret, qt.Equals, "pi_1_secret")

	f.gateway.EXPECT().GetIntent(gomock.Any(), "pi_1").
		Return(&payments.Intent{ID: "pi_1", Status: payments.StatusSucceeded}, nil)
	resp, body = f.do(c, request{method: "POST", path: "/api/payments/confirm", token: login.Token, body: dto.PaymentRequest{OrderID: order.ID}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var confirmed dto.ConfirmPaymentResponse
	c.Assert(json.Unmarshal(body, &confirmed), qt.IsNil)
	c.Assert(confirmed.Payment.Status, qt.Equals, models.StatusCompleted)

	resp, body = f.do(c, request{method: "GET", path: "/api/products/" + apples.ID.String()})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var reloaded models.Product
	c.Assert(json.Unmarshal(body, &reloaded), qt.IsNil)
	c.Assert(reloaded.Stock, qt.Equals, 8)

	resp, body = f.do(c, request{method: "GET", path: "/api/products/trending"})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var trending []models.Product
	c.Assert(json.Unmarshal(body, &trending), qt.IsNil)
	c.Assert(trending, qt.HasLen, 2)

	// Other users see nothing of erin's order.
	other, _ := f.signIn(c, "frank@example.com")
	resp, body = f.do(c, request{method: "GET", path: "/api/orders/" + order.ID.String(), token: other.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Order not found")
}

func TestListRoutes(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)
	login, cookie := f.signIn(c, "gina@example.com")

	resp, body := f.do(c, request{method: "POST", path: "/api/lists", cookie: cookie, body: dto.CreateListRequest{Title: "Weekly"}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	var list models.List
	c.Assert(json.Unmarshal(body, &list), qt.IsNil)

	resp, body = f.do(c, request{method: "POST", path: "/api/lists/" + list.ID.String() + "/items", token: login.Token, body: map[string]interface{}{
		"name": "Eggs", "quantity": "12", "unit": "pcs",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusCreated)
	var item models.ListItem
	c.Assert(json.Unmarshal(body, &item), qt.IsNil)

	resp, body = f.do(c, request{method: "PATCH", path: "/api/lists/items/" + item.ID.String(), token: login.Token, body: map[string]string{
		"status": "completed",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(string(body), qt.Contains, `"status":"completed"`)

	resp, body = f.do(c, request{method: "PATCH", path: "/api/lists/items/" + item.ID.String(), token: login.Token, body: map[string]string{
		"status": "bought",
	}})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, body).Details, qt.DeepEquals, []dto.FieldError{{Field: "status", Rule: "oneof"}})

	resp, body = f.do(c, request{method: "GET", path: "/api/lists/not-a-uuid", token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNotFound)
	c.Assert(decodeError(c, body).Error, qt.Equals, "List not found")

	resp, _ = f.do(c, request{method: "DELETE", path: "/api/lists/" + list.ID.String(), token: login.Token})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusNoContent)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)
	f.gateway.EXPECT().ParseWebhook(gomock.Any(), "t=1,v1=bad").Return(nil, payments.ErrWebhookSignature)

	resp, body := f.do(c, request{method: "POST", path: "/api/webhooks/stripe",
		header: map[string]string{"Stripe-Signature": "t=1,v1=bad"},
		body:   map[string]string{"type": "payment_intent.succeeded"},
	})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusBadRequest)
	c.Assert(decodeError(c, body).Error, qt.Equals, "Invalid webhook signature")
}

func TestHealthAndMetrics(t *testing.T) {
	c := qt.New(t)
	f := newAPIFixture(c)

	resp, body := f.do(c, request{method: "GET", path: "/api/health"})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	var health dto.HealthResponse
	c.Assert(json.Unmarshal(body, &health), qt.IsNil)
	c.Assert(health.DB, qt.Equals, "ok")
	c.Assert(resp.Header.Get("X-Frame-Options"), qt.Equals, "DENY")

	resp, body = f.do(c, request{method: "GET", path: "/metrics"})
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)
	c.Assert(string(body), qt.Contains, `smartshop_http_request_duration_seconds_count{method="GET",route="/api/health",status="200"} 1`)
}

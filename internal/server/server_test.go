package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jetsocket/backend/internal/broker"
	"github.com/jetsocket/backend/internal/config"
	"github.com/jetsocket/backend/internal/database/dbtest"
	"github.com/jetsocket/backend/internal/models"
	"github.com/jetsocket/backend/internal/payments"
	"github.com/jetsocket/backend/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type fakeProcessor struct {
	err error
}

func (f *fakeProcessor) Configured() bool { return true }

func (f *fakeProcessor) CreateCheckout(_ context.Context, p payments.CheckoutParams) (*payments.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &payments.Session{URL: "https://pay.example/checkout/" + p.VariantID, ID: "chk_" + p.UserID}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		JWTExpireHours: 1,
		RateLimit:      10000,
		ClientURL:      "http://localhost:3000",
		EncryptionKey:  "test-encryption-key",
		Payments: config.PaymentsConfig{
			WebhookSecret: webhookSecret,
			HobbyPlanID:   "100",
			StartupPlanID: "200",
			ScalePlanID:   "300",
		},
	}
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T, mutate func(*server.Deps)) *testServer {
	t.Helper()
	db := dbtest.New(t)
	deps := server.Deps{Config: testConfig(), DB: db, Processor: &fakeProcessor{}}
	if mutate != nil {
		mutate(&deps)
	}
	app, err := server.New(deps)
	require.NoError(t, err)
	return &testServer{app: app, db: db}
}

type response struct {
	Status int
	Body   map[string]interface{}
	Raw    []byte
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case []byte:
			reader = bytes.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) response {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{Status: resp.StatusCode, Raw: raw}
	_ = json.Unmarshal(raw, &out.Body)
	return out
}

func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	res := s.do(t, "POST", "/api/auth/signup", "", fiber.Map{"email": email, "password": "password123"})
	require.Equal(t, fiber.StatusCreated, res.Status, string(res.Raw))
	return res.Body["token"].(string)
}

func data(t *testing.T, res response) map[string]interface{} {
	t.Helper()
	d, ok := res.Body["data"].(map[string]interface{})
	require.True(t, ok, "data object in %s", res.Raw)
	return d
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, nil)

	res := s.do(t, "GET", "/health", "", nil)
	assert.Equal(t, 200, res.Status)
	assert.Equal(t, "healthy", res.Body["status"])

	res = s.do(t, "GET", "/metrics", "", nil)
	assert.Equal(t, 200, res.Status)
	assert.Contains(t, string(res.Raw), "jetsocket_http_requests_total")
}

func TestApplicationsRequireAuth(t *testing.T) {
	s := newServer(t, nil)
	res := s.do(t, "GET", "/api/applications", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)
	assert.Equal(t, false, res.Body["success"])
}

func TestApplicationLifecycle(t *testing.T) {
	s := newServer(t, nil)
	token := s.signup(t, "owner@example.com")

	// Zero applications is an empty list, not an error.
	res := s.do(t, "GET", "/api/dashboard/apps", token, nil)
	require.Equal(t, 200, res.Status)
	assert.Equal(t, []interface{}{}, res.Body["data"])

	res = s.do(t, "POST", "/api/applications", token, fiber.Map{"name": "Chat", "plan": "startup"})
	require.Equal(t, fiber.StatusCreated, res.Status, string(res.Raw))
	app := data(t, res)
	id := app["id"].(string)
	assert.Len(t, app["key"], 32)
	assert.Len(t, app["secret"], 64)

	res = s.do(t, "POST", "/api/applications", token, fiber.Map{"name": "Second"})
	assert.Equal(t, fiber.StatusForbidden, res.Status)
	var count int64
	require.NoError(t, s.db.Model(&models.Application{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	res = s.do(t, "PATCH", "/api/applications/"+id, token, fiber.Map{"enabled": false})
	require.Equal(t, 200, res.Status, string(res.Raw))
	updated := data(t, res)
	assert.Equal(t, false, updated["enabled"])
	assert.Equal(t, "Chat", updated["name"])

	res = s.do(t, "PUT", "/api/applications/"+id, token, fiber.Map{"name": "  "})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	res = s.do(t, "GET", "/api/applications?status=inactive", token, nil)
	require.Equal(t, 200, res.Status)
	assert.Len(t, res.Body["data"], 1)
	counts := res.Body["counts"].(map[string]interface{})
	assert.EqualValues(t, 1, counts["inactive"])

	res = s.do(t, "GET", "/api/applications/"+id, token, nil)
	require.Equal(t, 200, res.Status)
	metrics := data(t, res)["metrics"].(map[string]interface{})
	assert.EqualValues(t, 0, metrics["connected"])

	res = s.do(t, "GET", "/api/dashboard", token, nil)
	require.Equal(t, 200, res.Status)
	display := data(t, res)["display"].(map[string]interface{})
	assert.Equal(t, true, display["synthetic"])

	res = s.do(t, "DELETE", "/api/applications/"+id, token, nil)
	require.Equal(t, 200, res.Status)
	res = s.do(t, "GET", "/api/applications/"+id, token, nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	// Modifying calls are audited with the application id.
	var logs []models.AuditLog
	require.NoError(t, s.db.Where("entity_type = ?", "application").Order("id").Find(&logs).Error)
	require.Len(t, logs, 3)
	assert.Equal(t, models.AuditActionCreate, logs[0].Action)
	assert.Equal(t, id, logs[0].EntityID)
	assert.Equal(t, models.AuditActionDelete, logs[2].Action)
}

func TestApplicationOwnership(t *testing.T) {
	s := newServer(t, nil)
	owner := s.signup(t, "owner@example.com")
	other := s.signup(t, "other@example.com")

	res := s.do(t, "POST", "/api/applications", owner, fiber.Map{})
	require.Equal(t, fiber.StatusCreated, res.Status)
	id := data(t, res)["id"].(string)

	for _, tc := range []struct{ method, path string }{
		{"GET", "/api/applications/" + id},
		{"PATCH", "/api/applications/" + id},
		{"DELETE", "/api/applications/" + id},
		{"GET", "/api/applications/" + id + "/snippets"},
	} {
		res := s.do(t, tc.method, tc.path, other, fiber.Map{"enabled": false})
		assert.Equal(t, fiber.StatusNotFound, res.Status, "%s %s", tc.method, tc.path)
	}

	res = s.do(t, "GET", "/api/applications", other, nil)
	require.Equal(t, 200, res.Status)
	assert.Empty(t, res.Body["data"])
	assert.NotContains(t, string(res.Raw), "secret")
}

func TestCreateApplicationUnknownPlan(t *testing.T) {
	s := newServer(t, nil)
	token := s.signup(t, "owner@example.com")

	res := s.do(t, "POST", "/api/applications", token, fiber.Map{"plan": "platinum"})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestLoginAndLogout(t *testing.T) {
	s := newServer(t, nil)
	s.signup(t, "dev@example.com")

	res := s.do(t, "POST", "/api/auth/login", "", fiber.Map{"email": "DEV@example.com", "password": "password123"})
	require.Equal(t, 200, res.Status, string(res.Raw))
	token := res.Body["token"].(string)

	res = s.do(t, "GET", "/api/auth/me", token, nil)
	require.Equal(t, 200, res.Status)
	user := res.Body["user"].(map[string]interface{})
	assert.Equal(t, "dev@example.com", user["email"])
	assert.NotContains(t, string(res.Raw), "password")

	res = s.do(t, "POST", "/api/auth/logout", token, nil)
	assert.Equal(t, 200, res.Status)

	var audited int64
	require.NoError(t, s.db.Model(&models.AuditLog{}).Where("action IN ?", []string{"login", "logout"}).Count(&audited).Error)
	assert.EqualValues(t, 2, audited)
}

func TestLoginThrottle(t *testing.T) {
	s := newServer(t, nil)
	s.signup(t, "dev@example.com")

	for i := 0; i < 5; i++ {
		res := s.do(t, "POST", "/api/auth/login", "", fiber.Map{"email": "dev@example.com", "password": "wrong-password"})
		require.Equal(t, fiber.StatusUnauthorized, res.Status)
	}
	res := s.do(t, "POST", "/api/auth/login", "", fiber.Map{"email": "dev@example.com", "password": "password123"})
	assert.Equal(t, fiber.StatusTooManyRequests, res.Status)
}

func TestCheckout(t *testing.T) {
	s := newServer(t, nil)
	token := s.signup(t, "buyer@example.com")

	res := s.do(t, "POST", "/api/checkout", token, fiber.Map{"plan": "scale"})
	require.Equal(t, 200, res.Status, string(res.Raw))
	assert.Equal(t, "https://pay.example/checkout/300", data(t, res)["url"])

	res = s.do(t, "POST", "/api/checkout", token, fiber.Map{"plan": "nope"})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestCheckout_ProcessorError(t *testing.T) {
	s := newServer(t, func(d *server.Deps) {
		d.Processor = &fakeProcessor{err: &payments.ProcessorError{StatusCode: 422, Message: "The store is in test mode."}}
	})
	token := s.signup(t, "buyer@example.com")

	res := s.do(t, "POST", "/api/checkout", token, fiber.Map{"plan": "hobby"})
	assert.Equal(t, fiber.StatusBadGateway, res.Status)
	assert.Equal(t, "The store is in test mode.", res.Body["message"])
}

func webhookRequest(body []byte, signature string) *http.Request {
	req := httptest.NewRequest("POST", "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", signature)
	return req
}

func TestPaymentWebhook(t *testing.T) {
	s := newServer(t, nil)
	s.signup(t, "buyer@example.com")
	var user models.User
	require.NoError(t, s.db.Where("email = ?", "buyer@example.com").First(&user).Error)

	body, err := json.Marshal(fiber.Map{
		"meta": fiber.Map{"event_name": "subscription_created", "custom_data": fiber.Map{"user_id": strconv.Itoa(int(user.ID))}},
		"data": fiber.Map{"id": "1", "type": "subscriptions", "attributes": fiber.Map{"customer_id": 55, "variant_id": 200}},
	})
	require.NoError(t, err)

	res := s.send(t, webhookRequest(body, "deadbeef"))
	assert.Equal(t, fiber.StatusUnauthorized, res.Status)
	require.NoError(t, s.db.First(&user, user.ID).Error)
	assert.Nil(t, user.SubscriptionStatus, "rejected webhook changes nothing")

	res = s.send(t, webhookRequest(body, payments.Sign(webhookSecret, body)))
	require.Equal(t, 200, res.Status, string(res.Raw))
	require.NoError(t, s.db.First(&user, user.ID).Error)
	require.NotNil(t, user.SubscriptionStatus)
	assert.Equal(t, models.SubscriptionStatusActive, *user.SubscriptionStatus)
	require.NotNil(t, user.SubscriptionPlan)
	assert.Equal(t, "startup", *user.SubscriptionPlan)
}

func TestAdminRoutes(t *testing.T) {
	s := newServer(t, nil)
	token := s.signup(t, "dev@example.com")

	res := s.do(t, "GET", "/api/admin/stats", token, nil)
	assert.Equal(t, fiber.StatusForbidden, res.Status)

	require.NoError(t, s.db.Model(&models.User{}).Where("email = ?", "dev@example.com").Update("is_admin", true).Error)

	res = s.do(t, "GET", "/api/admin/stats", token, nil)
	require.Equal(t, 200, res.Status, string(res.Raw))
	assert.EqualValues(t, 1, data(t, res)["users"])

	res = s.do(t, "GET", "/api/admin/users?limit=10", token, nil)
	require.Equal(t, 200, res.Status)
	meta := res.Body["meta"].(map[string]interface{})
	assert.EqualValues(t, 1, meta["total"])

	res = s.do(t, "GET", "/api/admin/users/9999", token, nil)
	assert.Equal(t, fiber.StatusNotFound, res.Status)

	ownerToken := s.signup(t, "owner@example.com")
	res = s.do(t, "POST", "/api/applications", ownerToken, fiber.Map{"name": "Prod"})
	require.Equal(t, fiber.StatusCreated, res.Status, string(res.Raw))
	secret := data(t, res)["secret"].(string)
	require.NotEmpty(t, secret)

	var owner models.User
	require.NoError(t, s.db.Where("email = ?", "owner@example.com").First(&owner).Error)
	res = s.do(t, "GET", "/api/admin/users/"+strconv.Itoa(int(owner.ID)), token, nil)
	require.Equal(t, 200, res.Status, string(res.Raw))
	app := data(t, res)["application"].(map[string]interface{})
	assert.Equal(t, "Prod", app["name"])
	assert.NotContains(t, app, "secret")
	assert.NotContains(t, string(res.Raw), secret, "the owner's secret is not shown to admins")

	res = s.do(t, "GET", "/api/admin/audit?date_from=bad", token, nil)
	assert.Equal(t, fiber.StatusBadRequest, res.Status)
}

func TestPublicRoutes(t *testing.T) {
	s := newServer(t, nil)

	res := s.do(t, "GET", "/api/public/landing", "", nil)
	require.Equal(t, 200, res.Status)
	assert.Len(t, data(t, res)["faqs"], 4)

	res = s.do(t, "GET", "/api/public/pricing", "", nil)
	require.Equal(t, 200, res.Status)
	plans := data(t, res)["plans"].([]interface{})
	require.Len(t, plans, 3)
	assert.Equal(t, []interface{}{"hobby", "startup", "scale"}, data(t, res)["subscription_plan_ids"])
	for _, p := range plans {
		assert.NotContains(t, p, "ProcessorPlanID", "processor ids are not exposed")
	}

	res = s.do(t, "POST", "/api/public/contact", "", fiber.Map{"name": "Ada", "email": "bad", "message": "hi"})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	res = s.do(t, "POST", "/api/public/contact", "", fiber.Map{"name": "Ada", "email": "ada@example.com", "message": "hi"})
	assert.Equal(t, fiber.StatusCreated, res.Status)
}

func TestBrokerTooling(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	fake := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte("{}"))
	}))
	defer fake.Close()
	u, err := url.Parse(fake.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	unconfigured := newServer(t, nil)
	token := unconfigured.signup(t, "dev@example.com")
	res := unconfigured.do(t, "POST", "/api/applications", token, fiber.Map{})
	require.Equal(t, fiber.StatusCreated, res.Status)
	id := data(t, res)["id"].(string)
	res = unconfigured.do(t, "POST", "/api/applications/"+id+"/test-event", token, fiber.Map{"channel": "c", "event": "e"})
	assert.Equal(t, fiber.StatusServiceUnavailable, res.Status)

	s := newServer(t, func(d *server.Deps) {
		d.Broker = broker.NewClient(config.BrokerConfig{Host: u.Hostname(), Port: port, Scheme: "http"})
	})
	token = s.signup(t, "dev@example.com")
	res = s.do(t, "POST", "/api/applications", token, fiber.Map{})
	require.Equal(t, fiber.StatusCreated, res.Status)
	id = data(t, res)["id"].(string)

	res = s.do(t, "POST", "/api/applications/"+id+"/test-event", token,
		fiber.Map{"channel": "my-channel", "event": "my-event", "data": fiber.Map{"message": "hello"}})
	require.Equal(t, 200, res.Status, string(res.Raw))
	assert.Equal(t, "/apps/"+id+"/events", gotPath)
	assert.Equal(t, "my-event", gotBody["name"])
	assert.JSONEq(t, `{"message":"hello"}`, gotBody["data"].(string))

	res = s.do(t, "POST", "/api/applications/"+id+"/test-event", token, fiber.Map{"event": "my-event"})
	assert.Equal(t, fiber.StatusBadRequest, res.Status)

	res = s.do(t, "GET", "/api/applications/"+id+"/snippets", token, nil)
	require.Equal(t, 200, res.Status)
	assert.Contains(t, res.Body["websocket_url"], "/app/")
}

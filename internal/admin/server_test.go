package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vidoma-bot/internal/config"
)

type fakeController struct {
	running  bool
	notified []string
	chatID   int64
}

func (c *fakeController) Start(ctx context.Context) { c.running = true }
func (c *fakeController) Stop()                     { c.running = false }
func (c *fakeController) Running() bool             { return c.running }

func (c *fakeController) NotifyOrderStatus(ctx context.Context, chatID int64, crmOrderID, status string) error {
	c.chatID = chatID
	c.notified = append(c.notified, crmOrderID+":"+status)
	return nil
}

func newTestServer(controller *fakeController) *Server {
	return NewServer(context.Background(), config.AdminConfig{
		ListenAddr: ":0",
		Token:      "secret",
	}, nil, controller, zap.NewNop())
}

func TestAdminAPIRequiresToken(t *testing.T) {
	server := newTestServer(&fakeController{})

	req := httptest.NewRequest(http.MethodGet, "/api/bot/status", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAPIAcceptsHeaderToken(t *testing.T) {
	server := newTestServer(&fakeController{running: true})

	req := httptest.NewRequest(http.MethodGet, "/api/bot/status", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"running":true}`, rec.Body.String())
}

func TestAdminAPIAcceptsBearerToken(t *testing.T) {
	server := newTestServer(&fakeController{})

	req := httptest.NewRequest(http.MethodGet, "/api/bot/status", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBotStopEndpoint(t *testing.T) {
	controller := &fakeController{running: true}
	server := newTestServer(controller)

	req := httptest.NewRequest(http.MethodPost, "/api/bot/stop", nil)
	req.Header.Set("X-Admin-Token", "secret")
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, controller.running)
}

func TestCRMWebhookRelaysStatus(t *testing.T) {
	controller := &fakeController{}
	server := newTestServer(controller)

	body := `{"token":"secret","externalId":"200","orderId":"9001","status":"Відправлено"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(200), controller.chatID)
	assert.Equal(t, []string{"9001:Відправлено"}, controller.notified)
}

func TestCRMWebhookRejectsBadToken(t *testing.T) {
	controller := &fakeController{}
	server := newTestServer(controller)

	body := `{"token":"wrong","externalId":"200","orderId":"9001","status":"Відправлено"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, controller.notified)
}

func TestCRMWebhookRequiresFields(t *testing.T) {
	controller := &fakeController{}
	server := newTestServer(controller)

	body := `{"token":"secret","orderId":"9001"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/crm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

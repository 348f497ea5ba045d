package routes

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	config "github.com/xtocast/contest-voting-go/config"
	testutil "github.com/xtocast/contest-voting-go/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter() *gin.Engine {
	cfg := &config.Config{
		PaystackSecretKey: "sk_test_routes",
		JWTSecret:         "test-secret",
	}
	r := gin.New()
	SetupRoutes(r, cfg, testutil.NewFakeStore())
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := testRouter()

	w := testutil.PerformRequest(r, "GET", "/health", nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if w.Body.String() != "OK" {
		t.Errorf("unexpected health body %q", w.Body.String())
	}
}

// A GET against the webhook route must come back 405, not 404: the path
// exists, only the method is wrong.
func TestWebhookWrongMethod(t *testing.T) {
	r := testRouter()

	w := testutil.PerformRequest(r, "GET", "/payments/webhook", nil, nil)
	testutil.AssertStatus(t, w, http.StatusMethodNotAllowed)

	var resp struct {
		Message string `json:"message"`
	}
	testutil.AssertJSON(t, w, &resp)
	if resp.Message != "Method not allowed" {
		t.Errorf("unexpected message %q", resp.Message)
	}
}

func TestTransactionsRequireAuth(t *testing.T) {
	r := testRouter()

	w := testutil.PerformRequest(r, "GET", "/transactions", nil, nil)
	testutil.AssertStatus(t, w, http.StatusUnauthorized)
}

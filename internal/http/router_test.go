package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	httpH "github.com/yungbote/coursecommerce-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursecommerce-backend/internal/http/middleware"
	"github.com/yungbote/coursecommerce-backend/internal/observability"
	"github.com/yungbote/coursecommerce-backend/internal/platform/logger"
)

func TestRouterGuardsAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(RouterConfig{
		Log:            logger.Nop(),
		Metrics:        observability.New(),
		ServiceAuth:    httpMW.NewServiceAuth(logger.Nop(), "secret", "processor"),
		HealthHandler:  httpH.NewHealthHandler(nil),
		ContentHandler: httpH.NewContentHandler(nil, nil),
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthcheck: want=200 got=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/courses/"+uuid.NewString()+"/access?user_id="+uuid.NewString(), nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: want=401 got=%d", rec.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "cdn",
		Issuer:    "processor",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/courses/not-a-uuid/access?user_id="+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad course id: want=400 got=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: want=200 got=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `cc_api_requests_total{method="GET",route="/healthcheck",status="200"}`) {
		t.Fatalf("metrics missing healthcheck sample:\n%s", rec.Body.String())
	}
}

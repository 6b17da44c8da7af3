package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("router-test-secret")

type fakeProducts struct{}

func (fakeProducts) GetAll(context.Context, int, int) ([]model.Product, error) {
	return []model.Product{}, nil
}

func (fakeProducts) GetByID(context.Context, uuid.UUID) (*model.Product, error) {
	return nil, model.ErrProductNotFound
}

type fakeOrders struct{ listed []uuid.UUID }

func (f *fakeOrders) GetByID(context.Context, uuid.UUID, uuid.UUID) (*model.OrderResponse, error) {
	return nil, model.ErrOrderNotFound
}

func (f *fakeOrders) List(_ context.Context, userID uuid.UUID, _, _ int) ([]model.Order, error) {
	f.listed = append(f.listed, userID)
	return nil, nil
}

func (f *fakeOrders) Cancel(context.Context, uuid.UUID, uuid.UUID) error { return nil }

type fakeCheckout struct{ calls int }

func (f *fakeCheckout) Checkout(context.Context, model.Customer, *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	f.calls++
	return &model.CheckoutResponse{OrderID: uuid.New(), CheckoutURL: "https://checkout.example.com/x"}, nil
}

func (f *fakeCheckout) Recheckout(context.Context, model.Customer, uuid.UUID) (*model.CheckoutResponse, error) {
	return nil, model.ErrOrderNotFound
}

type fakeReconciler struct{ calls int }

func (f *fakeReconciler) HandleWebhook(context.Context, []byte, string) (*model.ReconcileResult, error) {
	f.calls++
	return &model.ReconcileResult{Outcome: model.OutcomeIgnored}, nil
}

func (f *fakeReconciler) Settle(context.Context, string) (*model.ReconcileResult, error) {
	return nil, nil
}

type fakeAdmin struct{ created int }

func (f *fakeAdmin) Create(context.Context, *model.ProductInput) (*model.Product, error) {
	f.created++
	return &model.Product{ID: uuid.New()}, nil
}

func (f *fakeAdmin) Update(context.Context, uuid.UUID, *model.ProductInput) (*model.Product, error) {
	return nil, model.ErrProductNotFound
}

func (f *fakeAdmin) Delete(context.Context, uuid.UUID) error { return nil }

type fakeUploader struct{ calls int }

func (f *fakeUploader) PresignUpload(_ context.Context, owner uuid.UUID, req model.UploadRequest) (*model.UploadTicket, error) {
	f.calls++
	return &model.UploadTicket{Path: "products/" + owner.String() + "/" + req.Filename, Method: http.MethodPut}, nil
}

type pingOK struct{}

func (pingOK) Ping(context.Context) error { return nil }

type denyAfter struct{ remaining int }

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	if d.remaining <= 0 {
		return false, nil
	}
	d.remaining--
	return true, nil
}

type fixture struct {
	handler    http.Handler
	orders     *fakeOrders
	checkout   *fakeCheckout
	reconciler *fakeReconciler
	admin      *fakeAdmin
	uploads    *fakeUploader
}

func newFixture(limit int) *fixture {
	return buildFixture(limit, false)
}

func buildFixture(limit int, withUploads bool) *fixture {
	logger := zerolog.Nop()
	f := &fixture{orders: &fakeOrders{}, checkout: &fakeCheckout{}, reconciler: &fakeReconciler{}, admin: &fakeAdmin{}, uploads: &fakeUploader{}}
	h := Handlers{
		Health:       handler.NewHealthHandler(pingOK{}, logger),
		Product:      handler.NewProductHandler(fakeProducts{}, logger),
		AdminProduct: handler.NewAdminProductHandler(f.admin, logger),
		Order:        handler.NewOrderHandler(f.orders, logger),
		Checkout:     handler.NewCheckoutHandler(f.checkout, logger),
		Webhook:      handler.NewWebhookHandler(f.reconciler, logger),
	}
	if withUploads {
		h.Upload = handler.NewUploadHandler(f.uploads, logger)
	}
	f.handler = New(h, Options{
		JWTSecret:       testSecret,
		AllowedOrigins:  []string{"https://shop.example.com"},
		CheckoutLimiter: &denyAfter{remaining: limit},
	}, logger)
	return f
}

func bearer(t *testing.T, userID uuid.UUID) string {
	return bearerWithRole(t, userID, "")
}

func bearerWithRole(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Email:       "ada@example.com",
		AppMetadata: middleware.AppMetadata{Role: role},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	s, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + s
}

func TestRouter_PublicRoutes(t *testing.T) {
	f := newFixture(10)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{name: "Health", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "Products", method: http.MethodGet, path: "/api/products", expectedStatus: http.StatusOK},
		{name: "Product not found", method: http.MethodGet, path: "/api/products/" + uuid.NewString(), expectedStatus: http.StatusNotFound},
		{name: "Webhook needs no token", method: http.MethodPost, path: "/api/webhooks/paychangu", expectedStatus: http.StatusOK},
		{name: "Unknown route", method: http.MethodGet, path: "/api/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{}`)))
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
	assert.Equal(t, 1, f.reconciler.calls)
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	f := newFixture(10)

	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/checkout"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/" + uuid.NewString()},
		{http.MethodPost, "/api/orders/" + uuid.NewString() + "/checkout"},
		{http.MethodPost, "/api/orders/" + uuid.NewString() + "/cancel"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, httptest.NewRequest(route.method, route.path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
	assert.Zero(t, f.checkout.calls)
	assert.Empty(t, f.orders.listed)
}

func TestRouter_AuthenticatedCaller(t *testing.T) {
	f := newFixture(10)
	userID := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", bearer(t, userID))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []uuid.UUID{userID}, f.orders.listed)
}

func TestRouter_CheckoutIsRateLimited(t *testing.T) {
	f := newFixture(2)
	auth := bearer(t, uuid.New())
	body := `{"items":[{"id":"` + uuid.NewString() + `","quantity":1}]}`

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(body))
		req.Header.Set("Authorization", auth)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, f.checkout.calls)
}

func TestRouter_UploadsDisabled(t *testing.T) {
	f := newFixture(10)

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", strings.NewReader(`{}`))
	req.Header.Set("Authorization", bearerWithRole(t, uuid.New(), model.RoleAdmin))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	uploadBody := `{"filename":"basket.jpg","contentType":"image/jpeg","size":1024}`
	productBody := `{"name":"Basket","slug":"woven-basket","price":10}`

	tests := []struct {
		name           string
		role           string
		anonymous      bool
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{name: "Admin creates product", role: model.RoleAdmin, method: http.MethodPost, path: "/api/admin/products", body: productBody, expectedStatus: http.StatusCreated},
		{name: "Customer cannot create product", method: http.MethodPost, path: "/api/admin/products", body: productBody, expectedStatus: http.StatusForbidden},
		{name: "Anonymous cannot create product", anonymous: true, method: http.MethodPost, path: "/api/admin/products", body: productBody, expectedStatus: http.StatusUnauthorized},
		{name: "Customer cannot delete product", method: http.MethodDelete, path: "/api/admin/products/" + uuid.NewString(), expectedStatus: http.StatusForbidden},
		{name: "Admin deletes product", role: model.RoleAdmin, method: http.MethodDelete, path: "/api/admin/products/" + uuid.NewString(), expectedStatus: http.StatusNoContent},
		{name: "Admin updates missing product", role: model.RoleAdmin, method: http.MethodPut, path: "/api/admin/products/" + uuid.NewString(), body: productBody, expectedStatus: http.StatusNotFound},
		{name: "Admin presigns upload", role: model.RoleAdmin, method: http.MethodPost, path: "/api/uploads", body: uploadBody, expectedStatus: http.StatusOK},
		{name: "Customer cannot presign upload", method: http.MethodPost, path: "/api/uploads", body: uploadBody, expectedStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := buildFixture(10, true)

			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if !tt.anonymous {
				req.Header.Set("Authorization", bearerWithRole(t, uuid.New(), tt.role))
			}
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusForbidden || tt.expectedStatus == http.StatusUnauthorized {
				assert.Zero(t, f.admin.created)
				assert.Zero(t, f.uploads.calls)
			}
		})
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newFixture(10)

	req := httptest.NewRequest(http.MethodOptions, "/api/checkout", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

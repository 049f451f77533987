package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"storefront/internal/middleware"
	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockCatalogService is a mock implementation of CatalogService.
type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogService) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) CreateProduct(ctx context.Context, req *model.CreateProductRequest) (*model.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogService) CreateVariant(ctx context.Context, productID uuid.UUID, req *model.CreateVariantRequest) (*model.Variant, error) {
	args := m.Called(ctx, productID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Variant), args.Error(1)
}

func (m *MockCatalogService) UpdateVariant(ctx context.Context, variantID uuid.UUID, req *model.UpdateVariantRequest) (*model.Variant, error) {
	args := m.Called(ctx, variantID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Variant), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) View(ctx context.Context, id model.Identity) (*model.CartView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartView), args.Error(1)
}

func (m *MockCartService) AddLine(ctx context.Context, id model.Identity, variantID uuid.UUID, qty int) (*model.CartLine, error) {
	args := m.Called(ctx, id, variantID, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartService) UpdateLine(ctx context.Context, id model.Identity, lineID uuid.UUID, qty int) (*model.CartLine, error) {
	args := m.Called(ctx, id, lineID, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartService) RemoveLine(ctx context.Context, id model.Identity, lineID uuid.UUID) error {
	args := m.Called(ctx, id, lineID)
	return args.Error(0)
}

func (m *MockCartService) Clear(ctx context.Context, id model.Identity) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCartService) MergeOnLogin(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	args := m.Called(ctx, sessionToken, userID)
	return args.Error(0)
}

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Prefill(ctx context.Context, id model.Identity) (*model.CheckoutDetails, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutDetails), args.Error(1)
}

func (m *MockCheckoutService) Start(ctx context.Context, id model.Identity, details model.CheckoutDetails) (*model.CheckoutSummary, error) {
	args := m.Called(ctx, id, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutSummary), args.Error(1)
}

func (m *MockCheckoutService) Summary(ctx context.Context, id model.Identity) (*model.CheckoutSummary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutSummary), args.Error(1)
}

func (m *MockCheckoutService) Confirm(ctx context.Context, id model.Identity) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockCheckoutService) AdoptDraft(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	return m.Called(ctx, sessionToken, userID).Error(0)
}

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) List(ctx context.Context, id model.Identity, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, id, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderService) Get(ctx context.Context, id model.Identity, orderID uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*model.StatusChange, error) {
	args := m.Called(ctx, orderID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StatusChange), args.Error(1)
}

func (m *MockOrderService) BatchUpdateStatus(ctx context.Context, orderIDs []uuid.UUID, status string) ([]model.StatusChange, error) {
	args := m.Called(ctx, orderIDs, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusChange), args.Error(1)
}

func (m *MockOrderService) MarkPaid(ctx context.Context, orderIDs []uuid.UUID) ([]model.StatusChange, error) {
	args := m.Called(ctx, orderIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StatusChange), args.Error(1)
}

// MockAccountService is a mock implementation of AccountService.
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccountService) Login(ctx context.Context, req *model.LoginRequest, sessionToken string) (*model.LoginResponse, error) {
	args := m.Called(ctx, req, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.LoginResponse), args.Error(1)
}

const testSession = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

var visitor = model.SessionIdentity(testSession)

// serve mounts h on pattern and sends one request as visitor.
func serve(method, pattern, target, body string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(middleware.WithIdentity(req.Context(), visitor, testSession))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// serveForm posts form values to pattern as visitor.
func serveForm(pattern, target, form string, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Post(pattern, h)

	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req = req.WithContext(middleware.WithIdentity(req.Context(), visitor, testSession))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

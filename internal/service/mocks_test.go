package service

import (
	"context"
	"time"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - repositories are mocked, so these are never reached
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// committingTx expects a single successful commit.
func committingTx(ctx context.Context) *MockTx {
	tx := new(MockTx)
	tx.On("Commit", ctx).Return(nil)
	return tx
}

// rollingBackTx expects a single rollback.
func rollingBackTx(ctx context.Context) *MockTx {
	tx := new(MockTx)
	tx.On("Rollback", ctx).Return(nil)
	return tx
}

func beginTx(args mock.Arguments) (pgx.Tx, error) {
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockProductRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetVariant(ctx context.Context, id uuid.UUID) (*model.Variant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Variant), args.Error(1)
}

func (m *MockProductRepository) LockVariant(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Variant, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Variant), args.Error(1)
}

func (m *MockProductRepository) LockVariants(ctx context.Context, tx pgx.Tx, ids []uuid.UUID) ([]model.Variant, error) {
	args := m.Called(ctx, tx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Variant), args.Error(1)
}

func (m *MockProductRepository) DecrementStock(ctx context.Context, tx pgx.Tx, id uuid.UUID, qty int) (bool, error) {
	args := m.Called(ctx, tx, id, qty)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) SlugExists(ctx context.Context, tx pgx.Tx, slug string) (bool, error) {
	args := m.Called(ctx, tx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) SKUExists(ctx context.Context, tx pgx.Tx, sku string) (bool, error) {
	args := m.Called(ctx, tx, sku)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductRepository) CreateProduct(ctx context.Context, tx pgx.Tx, product *model.Product) error {
	return m.Called(ctx, tx, product).Error(0)
}

func (m *MockProductRepository) CreateVariant(ctx context.Context, tx pgx.Tx, variant *model.Variant) error {
	return m.Called(ctx, tx, variant).Error(0)
}

func (m *MockProductRepository) UpdateVariant(ctx context.Context, tx pgx.Tx, variant *model.Variant) error {
	return m.Called(ctx, tx, variant).Error(0)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) cart(args mock.Arguments) (*model.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Cart), args.Error(1)
}

func (m *MockCartRepository) lines(args mock.Arguments) ([]model.CartLine, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) line(args mock.Arguments) (*model.CartLine, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockCartRepository) FindByIdentity(ctx context.Context, id model.Identity) (*model.Cart, error) {
	return m.cart(m.Called(ctx, id))
}

func (m *MockCartRepository) GetOrCreate(ctx context.Context, tx pgx.Tx, id model.Identity) (*model.Cart, error) {
	return m.cart(m.Called(ctx, tx, id))
}

func (m *MockCartRepository) LockByIdentity(ctx context.Context, tx pgx.Tx, id model.Identity) (*model.Cart, error) {
	return m.cart(m.Called(ctx, tx, id))
}

func (m *MockCartRepository) LockForLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) (*model.Cart, error) {
	return m.cart(m.Called(ctx, tx, lineID))
}

func (m *MockCartRepository) GetLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) (*model.CartLine, error) {
	return m.line(m.Called(ctx, tx, lineID))
}

func (m *MockCartRepository) ListLines(ctx context.Context, cartID uuid.UUID) ([]model.CartLine, error) {
	return m.lines(m.Called(ctx, cartID))
}

func (m *MockCartRepository) ListLinesTx(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) ([]model.CartLine, error) {
	return m.lines(m.Called(ctx, tx, cartID))
}

func (m *MockCartRepository) SetQuantity(ctx context.Context, tx pgx.Tx, cartID, variantID uuid.UUID, qty int) (*model.CartLine, error) {
	return m.line(m.Called(ctx, tx, cartID, variantID, qty))
}

func (m *MockCartRepository) UpdateLineQuantity(ctx context.Context, tx pgx.Tx, lineID uuid.UUID, qty int) error {
	return m.Called(ctx, tx, lineID, qty).Error(0)
}

func (m *MockCartRepository) DeleteLine(ctx context.Context, tx pgx.Tx, lineID uuid.UUID) error {
	return m.Called(ctx, tx, lineID).Error(0)
}

func (m *MockCartRepository) ClearLines(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	return m.Called(ctx, tx, cartID).Error(0)
}

func (m *MockCartRepository) AssignToUser(ctx context.Context, tx pgx.Tx, cartID, userID uuid.UUID) error {
	return m.Called(ctx, tx, cartID, userID).Error(0)
}

func (m *MockCartRepository) DeleteCart(ctx context.Context, tx pgx.Tx, cartID uuid.UUID) error {
	return m.Called(ctx, tx, cartID).Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	return m.Called(ctx, tx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderLines(ctx context.Context, tx pgx.Tx, lines []model.OrderLine) error {
	return m.Called(ctx, tx, lines).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByIdentity(ctx context.Context, id model.Identity, limit, offset int) ([]model.Order, error) {
	args := m.Called(ctx, id, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.OrderStatus) (model.OrderStatus, error) {
	args := m.Called(ctx, tx, id, status)
	return args.Get(0).(model.OrderStatus), args.Error(1)
}

func (m *MockOrderRepository) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, paidAt time.Time) (model.OrderStatus, error) {
	args := m.Called(ctx, tx, id, paidAt)
	return args.Get(0).(model.OrderStatus), args.Error(1)
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return beginTx(m.Called(ctx))
}

func (m *MockUserRepository) Create(ctx context.Context, tx pgx.Tx, user *model.User) error {
	return m.Called(ctx, tx, user).Error(0)
}

func (m *MockUserRepository) CreateProfile(ctx context.Context, tx pgx.Tx, profile *model.Profile) error {
	return m.Called(ctx, tx, profile).Error(0)
}

func (m *MockUserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

// MockDraftStore is a mock implementation of session.DraftStore.
type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) Save(ctx context.Context, key string, details model.CheckoutDetails, ttl time.Duration) error {
	return m.Called(ctx, key, details, ttl).Error(0)
}

func (m *MockDraftStore) Load(ctx context.Context, key string) (*model.CheckoutDetails, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutDetails), args.Error(1)
}

func (m *MockDraftStore) Discard(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// MockNotifier is a mock implementation of notify.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderPlaced(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockNotifier) OrderStatusChanged(ctx context.Context, change model.StatusChange) error {
	return m.Called(ctx, change).Error(0)
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
	return m.Called(ctx, id, lineID).Error(0)
}

func (m *MockCartService) Clear(ctx context.Context, id model.Identity) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCartService) MergeOnLogin(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	return m.Called(ctx, sessionToken, userID).Error(0)
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

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

package service

import (
	"context"
	"errors"
	"testing"

	"storefront/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testVariant(stock int) *model.Variant {
	return &model.Variant{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		Color:           strPtr("Blue"),
		Size:            strPtr("M"),
		SKU:             "LINEN-SHIRT-BLUE-M",
		Stock:           stock,
		PriceAdjustment: decimal.Zero,
		ProductName:     "Linen Shirt",
		ProductSlug:     "linen-shirt",
		BasePrice:       decimal.RequireFromString("50.00"),
		DiscountPercent: 10,
	}
}

func sessionCart(token string) *model.Cart {
	return &model.Cart{ID: uuid.New(), SessionToken: &token}
}

func newTestCartService() (CartService, *MockCartRepository, *MockProductRepository) {
	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	return NewCartService(carts, products, nil, zerolog.Nop()), carts, products
}

func TestCartService_AddLine_NewLine(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	id := model.SessionIdentity("tok")
	cart := sessionCart("tok")
	variant := testVariant(5)
	line := &model.CartLine{ID: uuid.New(), CartID: cart.ID, VariantID: variant.ID, Quantity: 3, Variant: *variant}
	tx := committingTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("GetOrCreate", ctx, tx, id).Return(cart, nil)
	products.On("LockVariant", ctx, tx, variant.ID).Return(variant, nil)
	carts.On("ListLinesTx", ctx, tx, cart.ID).Return([]model.CartLine{}, nil)
	carts.On("SetQuantity", ctx, tx, cart.ID, variant.ID, 3).Return(line, nil)

	got, err := svc.AddLine(ctx, id, variant.ID, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	carts.AssertExpectations(t)
	products.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestCartService_AddLine_AccumulatesExistingQuantity(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	userID := uuid.New()
	id := model.UserIdentity(userID)
	cart := &model.Cart{ID: uuid.New(), UserID: &userID}
	variant := testVariant(10)
	existing := model.CartLine{ID: uuid.New(), CartID: cart.ID, VariantID: variant.ID, Quantity: 4}
	tx := committingTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("GetOrCreate", ctx, tx, id).Return(cart, nil)
	products.On("LockVariant", ctx, tx, variant.ID).Return(variant, nil)
	carts.On("ListLinesTx", ctx, tx, cart.ID).Return([]model.CartLine{existing}, nil)
	carts.On("SetQuantity", ctx, tx, cart.ID, variant.ID, 6).
		Return(&model.CartLine{ID: existing.ID, VariantID: variant.ID, Quantity: 6}, nil)

	got, err := svc.AddLine(ctx, id, variant.ID, 2)

	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity)
	carts.AssertExpectations(t)
}

func TestCartService_AddLine_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	id := model.SessionIdentity("tok")
	cart := sessionCart("tok")
	variant := testVariant(5)
	existing := model.CartLine{ID: uuid.New(), CartID: cart.ID, VariantID: variant.ID, Quantity: 3}
	tx := rollingBackTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("GetOrCreate", ctx, tx, id).Return(cart, nil)
	products.On("LockVariant", ctx, tx, variant.ID).Return(variant, nil)
	carts.On("ListLinesTx", ctx, tx, cart.ID).Return([]model.CartLine{existing}, nil)

	got, err := svc.AddLine(ctx, id, variant.ID, 3)

	require.Error(t, err)
	assert.Nil(t, got)

	var conflict *model.StockConflictError
	require.ErrorAs(t, err, &conflict)
	require.Len(t, conflict.Violations, 1)
	assert.Equal(t, 3, conflict.Violations[0].Requested)
	assert.Equal(t, 2, conflict.Violations[0].Available)
	assert.Equal(t, "Linen Shirt (Blue/M)", conflict.Violations[0].Name)
	assert.Contains(t, err.Error(), "2 remaining")

	carts.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	tx.AssertExpectations(t)
}

func TestCartService_AddLine_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		id      model.Identity
		qty     int
		wantErr error
	}{
		{name: "zero quantity", id: model.SessionIdentity("tok"), qty: 0, wantErr: model.ErrInvalidQuantity},
		{name: "negative quantity", id: model.SessionIdentity("tok"), qty: -2, wantErr: model.ErrInvalidQuantity},
		{name: "no identity", id: model.Identity{}, qty: 1, wantErr: model.ErrMissingIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, carts, _ := newTestCartService()

			got, err := svc.AddLine(ctx, tt.id, uuid.New(), tt.qty)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, got)
			carts.AssertNotCalled(t, "BeginTx", mock.Anything)
		})
	}
}

func TestCartService_AddLine_UnknownVariant(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	id := model.SessionIdentity("tok")
	cart := sessionCart("tok")
	variantID := uuid.New()
	tx := rollingBackTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("GetOrCreate", ctx, tx, id).Return(cart, nil)
	products.On("LockVariant", ctx, tx, variantID).Return(nil, nil)

	_, err := svc.AddLine(ctx, id, variantID, 1)

	assert.ErrorIs(t, err, model.ErrVariantNotFound)
	tx.AssertExpectations(t)
}

func TestCartService_AddLine_DatabaseError(t *testing.T) {
	ctx := context.Background()
	svc, carts, _ := newTestCartService()

	id := model.SessionIdentity("tok")
	tx := rollingBackTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("GetOrCreate", ctx, tx, id).Return(nil, errors.New("connection reset"))

	_, err := svc.AddLine(ctx, id, uuid.New(), 1)

	require.Error(t, err)
	assert.Equal(t, model.KindInternal, model.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
	tx.AssertExpectations(t)
}

func TestCartService_UpdateLine(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	id := model.SessionIdentity("tok")
	cart := sessionCart("tok")
	variant := testVariant(8)
	line := &model.CartLine{ID: uuid.New(), CartID: cart.ID, VariantID: variant.ID, Quantity: 2}
	tx := committingTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("LockForLine", ctx, tx, line.ID).Return(cart, nil)
	carts.On("GetLine", ctx, tx, line.ID).Return(line, nil)
	products.On("LockVariant", ctx, tx, variant.ID).Return(variant, nil)
	carts.On("UpdateLineQuantity", ctx, tx, line.ID, 8).Return(nil)

	got, err := svc.UpdateLine(ctx, id, line.ID, 8)

	require.NoError(t, err)
	assert.Equal(t, 8, got.Quantity)
	assert.Equal(t, variant.SKU, got.Variant.SKU)
	carts.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestCartService_UpdateLine_ExceedsStock(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	id := model.SessionIdentity("tok")
	cart := sessionCart("tok")
	variant := testVariant(4)
	line := &model.CartLine{ID: uuid.New(), CartID: cart.ID, VariantID: variant.ID, Quantity: 2}
	tx := rollingBackTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("LockForLine", ctx, tx, line.ID).Return(cart, nil)
	carts.On("GetLine", ctx, tx, line.ID).Return(line, nil)
	products.On("LockVariant", ctx, tx, variant.ID).Return(variant, nil)

	_, err := svc.UpdateLine(ctx, id, line.ID, 5)

	var conflict *model.StockConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 4, conflict.Violations[0].Available)
	assert.Equal(t, 5, conflict.Violations[0].Requested)
	carts.AssertNotCalled(t, "UpdateLineQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCartService_UpdateLine_NotOwner(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	cart := sessionCart("someone-else")
	lineID := uuid.New()
	tx := rollingBackTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("LockForLine", ctx, tx, lineID).Return(cart, nil)

	_, err := svc.UpdateLine(ctx, model.SessionIdentity("tok"), lineID, 1)

	assert.ErrorIs(t, err, model.ErrNotLineOwner)
	assert.Equal(t, model.KindForbidden, model.KindOf(err))
	products.AssertNotCalled(t, "LockVariant", mock.Anything, mock.Anything, mock.Anything)
}

func TestCartService_UpdateLine_Rejections(t *testing.T) {
	ctx := context.Background()

	t.Run("quantity below one", func(t *testing.T) {
		svc, carts, _ := newTestCartService()

		_, err := svc.UpdateLine(ctx, model.SessionIdentity("tok"), uuid.New(), 0)

		assert.ErrorIs(t, err, model.ErrInvalidQuantity)
		carts.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("unknown line", func(t *testing.T) {
		svc, carts, _ := newTestCartService()
		lineID := uuid.New()
		tx := rollingBackTx(ctx)

		carts.On("BeginTx", ctx).Return(tx, nil)
		carts.On("LockForLine", ctx, tx, lineID).Return(nil, nil)

		_, err := svc.UpdateLine(ctx, model.SessionIdentity("tok"), lineID, 2)

		assert.ErrorIs(t, err, model.ErrCartLineNotFound)
	})
}

func TestCartService_RemoveLine(t *testing.T) {
	ctx := context.Background()

	t.Run("owner removes line", func(t *testing.T) {
		svc, carts, _ := newTestCartService()
		userID := uuid.New()
		cart := &model.Cart{ID: uuid.New(), UserID: &userID}
		line := &model.CartLine{ID: uuid.New(), CartID: cart.ID}
		tx := committingTx(ctx)

		carts.On("BeginTx", ctx).Return(tx, nil)
		carts.On("LockForLine", ctx, tx, line.ID).Return(cart, nil)
		carts.On("GetLine", ctx, tx, line.ID).Return(line, nil)
		carts.On("DeleteLine", ctx, tx, line.ID).Return(nil)

		err := svc.RemoveLine(ctx, model.UserIdentity(userID), line.ID)

		require.NoError(t, err)
		carts.AssertExpectations(t)
	})

	t.Run("other user is refused", func(t *testing.T) {
		svc, carts, _ := newTestCartService()
		owner := uuid.New()
		cart := &model.Cart{ID: uuid.New(), UserID: &owner}
		lineID := uuid.New()
		tx := rollingBackTx(ctx)

		carts.On("BeginTx", ctx).Return(tx, nil)
		carts.On("LockForLine", ctx, tx, lineID).Return(cart, nil)

		err := svc.RemoveLine(ctx, model.UserIdentity(uuid.New()), lineID)

		assert.ErrorIs(t, err, model.ErrNotLineOwner)
		carts.AssertNotCalled(t, "DeleteLine", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCartService_View(t *testing.T) {
	ctx := context.Background()

	t.Run("no cart yields empty view", func(t *testing.T) {
		svc, carts, _ := newTestCartService()
		id := model.SessionIdentity("tok")
		carts.On("FindByIdentity", ctx, id).Return(nil, nil)

		view, err := svc.View(ctx, id)

		require.NoError(t, err)
		assert.Nil(t, view.CartID)
		assert.Empty(t, view.Lines)
		assert.True(t, view.Total.IsZero())
	})

	t.Run("lines are priced live", func(t *testing.T) {
		svc, carts, _ := newTestCartService()
		id := model.SessionIdentity("tok")
		cart := sessionCart("tok")
		variant := testVariant(9)
		lines := []model.CartLine{{ID: uuid.New(), CartID: cart.ID, VariantID: variant.ID, Quantity: 2, Variant: *variant}}

		carts.On("FindByIdentity", ctx, id).Return(cart, nil)
		carts.On("ListLines", ctx, cart.ID).Return(lines, nil)

		view, err := svc.View(ctx, id)

		require.NoError(t, err)
		require.Len(t, view.Lines, 1)
		assert.Equal(t, "45", view.Lines[0].UnitPrice.String())
		assert.Equal(t, "90", view.Total.String())
		assert.Equal(t, 2, view.ItemCount)
	})

	t.Run("anonymous visitor without token", func(t *testing.T) {
		svc, carts, _ := newTestCartService()

		view, err := svc.View(ctx, model.Identity{})

		require.NoError(t, err)
		assert.Empty(t, view.Lines)
		carts.AssertNotCalled(t, "FindByIdentity", mock.Anything, mock.Anything)
	})
}

func TestCartService_Clear(t *testing.T) {
	ctx := context.Background()
	svc, carts, _ := newTestCartService()

	id := model.SessionIdentity("tok")
	cart := sessionCart("tok")
	tx := committingTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("LockByIdentity", ctx, tx, id).Return(cart, nil)
	carts.On("ClearLines", ctx, tx, cart.ID).Return(nil)

	require.NoError(t, svc.Clear(ctx, id))
	carts.AssertExpectations(t)
}

func TestCartService_MergeOnLogin_AssignsCart(t *testing.T) {
	ctx := context.Background()
	svc, carts, _ := newTestCartService()

	userID := uuid.New()
	anon := sessionCart("tok")
	tx := committingTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("LockByIdentity", ctx, tx, model.SessionIdentity("tok")).Return(anon, nil)
	carts.On("LockByIdentity", ctx, tx, model.UserIdentity(userID)).Return(nil, nil)
	carts.On("AssignToUser", ctx, tx, anon.ID, userID).Return(nil)

	require.NoError(t, svc.MergeOnLogin(ctx, "tok", userID))
	carts.AssertExpectations(t)
}

func TestCartService_MergeOnLogin_MergesIntoExistingCart(t *testing.T) {
	ctx := context.Background()
	svc, carts, products := newTestCartService()

	userID := uuid.New()
	anon := sessionCart("tok")
	owned := &model.Cart{ID: uuid.New(), UserID: &userID}

	plenty := testVariant(10)
	scarce := testVariant(3)
	anonLines := []model.CartLine{
		{ID: uuid.New(), CartID: anon.ID, VariantID: plenty.ID, Quantity: 2},
		{ID: uuid.New(), CartID: anon.ID, VariantID: scarce.ID, Quantity: 5},
	}
	ownedLines := []model.CartLine{
		{ID: uuid.New(), CartID: owned.ID, VariantID: scarce.ID, Quantity: 1},
	}
	tx := committingTx(ctx)

	carts.On("BeginTx", ctx).Return(tx, nil)
	carts.On("LockByIdentity", ctx, tx, model.SessionIdentity("tok")).Return(anon, nil)
	carts.On("LockByIdentity", ctx, tx, model.UserIdentity(userID)).Return(owned, nil)
	carts.On("ListLinesTx", ctx, tx, anon.ID).Return(anonLines, nil)
	carts.On("ListLinesTx", ctx, tx, owned.ID).Return(ownedLines, nil)
	products.On("LockVariants", ctx, tx, sortedIDs([]uuid.UUID{plenty.ID, scarce.ID})).
		Return([]model.Variant{*plenty, *scarce}, nil)
	carts.On("SetQuantity", ctx, tx, owned.ID, plenty.ID, 2).Return(&model.CartLine{}, nil)
	carts.On("SetQuantity", ctx, tx, owned.ID, scarce.ID, 3).Return(&model.CartLine{}, nil)
	carts.On("DeleteCart", ctx, tx, anon.ID).Return(nil)

	require.NoError(t, svc.MergeOnLogin(ctx, "tok", userID))
	carts.AssertExpectations(t)
	products.AssertExpectations(t)
}

func TestCartService_MergeOnLogin_NothingToMerge(t *testing.T) {
	ctx := context.Background()

	t.Run("no session token", func(t *testing.T) {
		svc, carts, _ := newTestCartService()

		require.NoError(t, svc.MergeOnLogin(ctx, "", uuid.New()))
		carts.AssertNotCalled(t, "BeginTx", mock.Anything)
	})

	t.Run("no anonymous cart", func(t *testing.T) {
		svc, carts, _ := newTestCartService()
		tx := committingTx(ctx)

		carts.On("BeginTx", ctx).Return(tx, nil)
		carts.On("LockByIdentity", ctx, tx, model.SessionIdentity("tok")).Return(nil, nil)

		require.NoError(t, svc.MergeOnLogin(ctx, "tok", uuid.New()))
		carts.AssertNotCalled(t, "AssignToUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

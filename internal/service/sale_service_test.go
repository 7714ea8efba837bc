package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"
	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"
	"github.com/eoivo/embala-fest-sub001/internal/repository/repotest"
	"github.com/eoivo/embala-fest-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	*registerFixture
	sales     service.SaleService
	products  *repotest.Products
	consumers *repotest.Consumers
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	rf := newRegisterFixture(t)
	products := repotest.NewProducts()
	consumers := repotest.NewConsumers()
	return &saleFixture{
		registerFixture: rf,
		sales:           service.NewSaleService(rf.sales, rf.svc, products, consumers),
		products:        products,
		consumers:       consumers,
	}
}

func (f *saleFixture) product(t *testing.T, sku, price string, stock int) uuid.UUID {
	t.Helper()
	p := &model.Product{SKU: sku, Name: "Product " + sku, SalePrice: d(price), Stock: stock, Active: true}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p.ID
}

func (f *saleFixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func saleReq(method string, items ...dto.SaleItemRequest) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{Items: items, PaymentMethod: method}
}

func item(id uuid.UUID, qty int) dto.SaleItemRequest {
	return dto.SaleItemRequest{ProductID: id.String(), Quantity: qty}
}

func TestCreateSale_AttachesToOpenRegisterAndDecrementsStock(t *testing.T) {
	f := newSaleFixture(t)
	regID := f.open(t, "100")
	cups := f.product(t, "CUP-50", "2.50", 10)
	plates := f.product(t, "PLT-10", "7.00", 5)

	resp, err := f.sales.Create(context.Background(), f.operator, saleReq("pix", item(cups, 4), item(plates, 1)))
	require.NoError(t, err)

	assert.Equal(t, regID.String(), resp.RegisterID)
	assert.Equal(t, "completed", resp.Status)
	assertDecimal(t, "17", resp.Total)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "Product CUP-50", resp.Items[0].Product)
	assertDecimal(t, "10", resp.Items[0].Subtotal)
	assert.Equal(t, 6, f.stockOf(t, cups))
	assert.Equal(t, 4, f.stockOf(t, plates))

	sum, err := f.svc.Summarize(context.Background(), f.operator)
	require.NoError(t, err)
	assertDecimal(t, "17", sum.Current.ByPaymentMethod.Pix)
	assertDecimal(t, "117", sum.Current.RunningBalance)
}

func TestCreateSale_WithoutOpenRegisterIsNotFound(t *testing.T) {
	f := newSaleFixture(t)
	cups := f.product(t, "CUP-50", "2.50", 10)

	_, err := f.sales.Create(context.Background(), f.operator, saleReq("cash", item(cups, 1)))
	assert.ErrorIs(t, err, apierror.ErrNotFound)
	assert.Equal(t, 10, f.stockOf(t, cups))
}

func TestCreateSale_Validation(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "0")
	cups := f.product(t, "CUP-50", "2.50", 10)

	cases := map[string]dto.CreateSaleRequest{
		"unknown method": saleReq("voucher", item(cups, 1)),
		"no items":       saleReq("cash"),
		"zero quantity":  saleReq("cash", item(cups, 0)),
		"bad product id": {PaymentMethod: "cash", Items: []dto.SaleItemRequest{{ProductID: "x", Quantity: 1}}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.sales.Create(context.Background(), f.operator, req)
			assert.ErrorIs(t, err, apierror.ErrValidation)
		})
	}
}

func TestCreateSale_InactiveProductIsValidation(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "0")
	cups := f.product(t, "CUP-50", "2.50", 10)
	require.NoError(t, f.products.SetActive(context.Background(), cups, false))

	_, err := f.sales.Create(context.Background(), f.operator, saleReq("cash", item(cups, 1)))
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestCreateSale_InsufficientStockIsConflict(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "0")
	cups := f.product(t, "CUP-50", "2.50", 2)

	_, err := f.sales.Create(context.Background(), f.operator, saleReq("cash", item(cups, 3)))
	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.Equal(t, 2, f.stockOf(t, cups))
}

func TestCreateSale_UnknownConsumerIsNotFound(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "0")
	cups := f.product(t, "CUP-50", "2.50", 2)
	ghost := uuid.New().String()

	req := saleReq("cash", item(cups, 1))
	req.ConsumerID = &ghost
	_, err := f.sales.Create(context.Background(), f.operator, req)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

// closedAfterLookup lets the register lookup succeed and then closes the
// register, the way an auto-close firing can between lookup and insert.
type closedAfterLookup struct {
	service.RegisterService
	regs *repotest.Registers
}

func (c closedAfterLookup) FindOpen(ctx context.Context, operatorID uuid.UUID) (*model.Register, error) {
	reg, err := c.RegisterService.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	err = c.regs.Close(ctx, reg.ID, repository.CloseParams{
		FinalBalance: reg.InitialBalance,
		ClosedAt:     time.Now(),
		ClosedByID:   uuid.New(),
		ClosingNotes: model.AutoCloseNote,
	})
	return reg, err
}

func TestCreateSale_RegisterClosedBeforeInsertIsConflict(t *testing.T) {
	f := newSaleFixture(t)
	regID := f.open(t, "100")
	cups := f.product(t, "CUP-50", "2.50", 10)
	svc := service.NewSaleService(f.registerFixture.sales, closedAfterLookup{f.svc, f.regs}, f.products, f.consumers)

	_, err := svc.Create(context.Background(), f.operator, saleReq("cash", item(cups, 2)))
	assert.ErrorIs(t, err, apierror.ErrConflict)

	assert.Equal(t, 10, f.stockOf(t, cups))
	got, ok := f.regs.Get(regID)
	require.True(t, ok)
	assert.Empty(t, got.Sales)
}

func TestCancelSale_RestoresStockAndDropsFromTotals(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "100")
	cups := f.product(t, "CUP-50", "2.50", 10)
	created, err := f.sales.Create(context.Background(), f.operator, saleReq("cash", item(cups, 4)))
	require.NoError(t, err)

	cancelled, err := f.sales.Cancel(context.Background(), uuid.MustParse(created.ID), dto.CancelSaleRequest{Reason: "customer gave up"})
	require.NoError(t, err)

	assert.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	assert.Equal(t, "customer gave up", *cancelled.CancelReason)
	assert.Equal(t, 10, f.stockOf(t, cups))

	sum, err := f.svc.Summarize(context.Background(), f.operator)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Current.SalesCount)
	assertDecimal(t, "100", sum.Current.RunningBalance)

	_, err = f.sales.Cancel(context.Background(), uuid.MustParse(created.ID), dto.CancelSaleRequest{Reason: "again"})
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestCancelSale_ClosedRegisterIsConflict(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "100")
	cups := f.product(t, "CUP-50", "2.50", 10)
	created, err := f.sales.Create(context.Background(), f.operator, saleReq("cash", item(cups, 2)))
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), f.operator, closeReq("105", managerEmail, goodPassword))
	require.NoError(t, err)

	_, err = f.sales.Cancel(context.Background(), uuid.MustParse(created.ID), dto.CancelSaleRequest{Reason: "too late"})
	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.Equal(t, 8, f.stockOf(t, cups))
}

func TestCancelSale_UnknownSaleIsNotFound(t *testing.T) {
	f := newSaleFixture(t)

	_, err := f.sales.Cancel(context.Background(), uuid.New(), dto.CancelSaleRequest{Reason: "nope"})
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestListCurrent_ReturnsOnlyOpenRegisterSales(t *testing.T) {
	f := newSaleFixture(t)
	f.open(t, "0")
	cups := f.product(t, "CUP-50", "1.00", 100)
	_, err := f.sales.Create(context.Background(), f.operator, saleReq("cash", item(cups, 1)))
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), f.operator, closeReq("1", managerEmail, goodPassword))
	require.NoError(t, err)

	f.open(t, "0")
	_, err = f.sales.Create(context.Background(), f.operator, saleReq("debit", item(cups, 2)))
	require.NoError(t, err)

	list, err := f.sales.ListCurrent(context.Background(), f.operator)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "debit", list[0].PaymentMethod)
}

package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"
	"github.com/eoivo/embala-fest-sub001/internal/config"
	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository/repotest"
	"github.com/eoivo/embala-fest-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	managerEmail = "manager@embalafest.com"
	cashierEmail = "cashier@embalafest.com"
	goodPassword = "correct-horse"
)

var testCfg = &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1, JWTRefreshHours: 2}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func seedUser(t *testing.T, users *repotest.Users, email, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(goodPassword), bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{Name: role, Email: email, PasswordHash: string(hash), Role: role, Active: true}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

type registerFixture struct {
	svc      service.RegisterService
	regs     *repotest.Registers
	sales    *repotest.Sales
	users    *repotest.Users
	manager  *model.User
	operator uuid.UUID
}

func newRegisterFixture(t *testing.T) *registerFixture {
	t.Helper()
	users := repotest.NewUsers()
	sales := repotest.NewSales()
	regs := repotest.NewRegisters(sales)
	f := &registerFixture{
		svc:      service.NewRegisterService(regs, service.NewAuthService(users, testCfg)),
		regs:     regs,
		sales:    sales,
		users:    users,
		manager:  seedUser(t, users, managerEmail, model.RoleManager),
		operator: seedUser(t, users, cashierEmail, model.RoleCashier).ID,
	}
	return f
}

func (f *registerFixture) open(t *testing.T, balance string) uuid.UUID {
	t.Helper()
	resp, err := f.svc.Open(context.Background(), f.operator, dto.OpenRegisterRequest{InitialBalance: d(balance)})
	require.NoError(t, err)
	return uuid.MustParse(resp.ID)
}

func (f *registerFixture) seedSale(registerID uuid.UUID, total string, method model.PaymentMethod, status model.SaleStatus) {
	f.sales.Seed(model.Sale{
		RegisterID:    registerID,
		OperatorID:    f.operator,
		Total:         d(total),
		PaymentMethod: method,
		Status:        status,
		CreatedAt:     time.Now(),
	})
}

func closeReq(final, email, password string) dto.CloseRegisterRequest {
	return dto.CloseRegisterRequest{
		FinalBalance:       d(final),
		ManagerCredentials: dto.ManagerCredentials{Email: email, Password: password},
	}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func TestOpen_CreatesOpenRegister(t *testing.T) {
	f := newRegisterFixture(t)

	resp, err := f.svc.Open(context.Background(), f.operator, dto.OpenRegisterRequest{InitialBalance: d("100")})
	require.NoError(t, err)

	assert.Equal(t, "open", resp.Status)
	assert.Equal(t, f.operator.String(), resp.OperatorID)
	assertDecimal(t, "100", resp.InitialBalance)
	assert.Nil(t, resp.FinalBalance)
	assert.Nil(t, resp.ClosedAt)
	assert.Empty(t, resp.Sales)
	assert.Empty(t, resp.CashWithdrawals)
}

func TestOpen_SecondOpenIsConflict(t *testing.T) {
	f := newRegisterFixture(t)
	first := f.open(t, "100")

	_, err := f.svc.Open(context.Background(), f.operator, dto.OpenRegisterRequest{InitialBalance: d("50")})
	require.Error(t, err)
	assert.ErrorIs(t, err, apierror.ErrConflict)

	// the first register is untouched
	reg, ok := f.regs.Get(first)
	require.True(t, ok)
	assert.True(t, reg.IsOpen())
	assertDecimal(t, "100", reg.InitialBalance)
}

func TestOpen_NegativeBalanceIsValidationAndPersistsNothing(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.svc.Open(context.Background(), f.operator, dto.OpenRegisterRequest{InitialBalance: d("-1")})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = f.svc.FindOpen(context.Background(), f.operator)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestOpen_AllowedAgainAfterClose(t *testing.T) {
	f := newRegisterFixture(t)
	first := f.open(t, "100")
	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", managerEmail, goodPassword))
	require.NoError(t, err)

	second := f.open(t, "80")
	assert.NotEqual(t, first, second)
}

// ── Close ────────────────────────────────────────────────────────────────────

func TestClose_WithManagerCredentials(t *testing.T) {
	f := newRegisterFixture(t)
	id := f.open(t, "100")

	resp, err := f.svc.Close(context.Background(), f.operator, closeReq("180", managerEmail, goodPassword))
	require.NoError(t, err)

	assert.Equal(t, "closed", resp.Status)
	require.NotNil(t, resp.FinalBalance)
	assertDecimal(t, "180", *resp.FinalBalance)
	require.NotNil(t, resp.ClosedBy)
	assert.Equal(t, f.manager.ID.String(), *resp.ClosedBy)
	require.NotNil(t, resp.ClosedAt)

	reg, _ := f.regs.Get(id)
	assert.Equal(t, model.RegisterClosed, reg.Status)
	assertDecimal(t, "100", reg.InitialBalance)
}

func TestClose_WrongPasswordIsAuthenticationAndLeavesRegisterOpen(t *testing.T) {
	f := newRegisterFixture(t)
	id := f.open(t, "100")

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", managerEmail, "wrong"))
	assert.ErrorIs(t, err, apierror.ErrAuthentication)

	reg, _ := f.regs.Get(id)
	assert.True(t, reg.IsOpen())
	assert.Nil(t, reg.FinalBalance)
}

func TestClose_UnknownEmailIsAuthentication(t *testing.T) {
	f := newRegisterFixture(t)
	f.open(t, "100")

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", "nobody@embalafest.com", goodPassword))
	assert.ErrorIs(t, err, apierror.ErrAuthentication)
}

func TestClose_InactiveManagerIsAuthentication(t *testing.T) {
	f := newRegisterFixture(t)
	f.open(t, "100")
	require.NoError(t, f.users.SetActive(context.Background(), f.manager.ID, false))

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", managerEmail, goodPassword))
	assert.ErrorIs(t, err, apierror.ErrAuthentication)
}

func TestClose_CashierCredentialsAreAuthorization(t *testing.T) {
	f := newRegisterFixture(t)
	id := f.open(t, "100")

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", cashierEmail, goodPassword))
	assert.ErrorIs(t, err, apierror.ErrAuthorization)

	reg, _ := f.regs.Get(id)
	assert.True(t, reg.IsOpen())
}

func TestClose_WithoutOpenRegisterIsNotFound(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", managerEmail, goodPassword))
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestClose_TwiceIsNotFound(t *testing.T) {
	f := newRegisterFixture(t)
	f.open(t, "100")

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("100", managerEmail, goodPassword))
	require.NoError(t, err)
	_, err = f.svc.Close(context.Background(), f.operator, closeReq("100", managerEmail, goodPassword))
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestClose_NegativeFinalBalanceIsValidation(t *testing.T) {
	f := newRegisterFixture(t)
	id := f.open(t, "100")

	_, err := f.svc.Close(context.Background(), f.operator, closeReq("-5", managerEmail, goodPassword))
	assert.ErrorIs(t, err, apierror.ErrValidation)

	reg, _ := f.regs.Get(id)
	assert.True(t, reg.IsOpen())
}

// ── Withdrawals ──────────────────────────────────────────────────────────────

func TestAddWithdrawal_AppendsWithoutTouchingBalances(t *testing.T) {
	f := newRegisterFixture(t)
	id := f.open(t, "100")

	resp, err := f.svc.AddWithdrawal(context.Background(), f.operator, dto.WithdrawalRequest{Amount: d("20"), Reason: "change for supplier"})
	require.NoError(t, err)
	require.Len(t, resp.CashWithdrawals, 1)
	assertDecimal(t, "20", resp.CashWithdrawals[0].Amount)
	assert.Equal(t, "change for supplier", resp.CashWithdrawals[0].Reason)
	assertDecimal(t, "100", resp.InitialBalance)
	assert.Nil(t, resp.FinalBalance)

	_, err = f.svc.AddWithdrawal(context.Background(), f.operator, dto.WithdrawalRequest{Amount: d("5"), Reason: "coffee"})
	require.NoError(t, err)

	reg, _ := f.regs.Get(id)
	assert.Len(t, reg.CashWithdrawals, 2)
	assertDecimal(t, "25", reg.WithdrawalsTotal())
}

func TestAddWithdrawal_Validation(t *testing.T) {
	f := newRegisterFixture(t)
	f.open(t, "100")

	_, err := f.svc.AddWithdrawal(context.Background(), f.operator, dto.WithdrawalRequest{Amount: d("-1"), Reason: "x"})
	assert.ErrorIs(t, err, apierror.ErrValidation)

	_, err = f.svc.AddWithdrawal(context.Background(), f.operator, dto.WithdrawalRequest{Amount: d("1"), Reason: "   "})
	assert.ErrorIs(t, err, apierror.ErrValidation)
}

func TestAddWithdrawal_WithoutOpenRegisterIsNotFound(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.svc.AddWithdrawal(context.Background(), f.operator, dto.WithdrawalRequest{Amount: d("1"), Reason: "x"})
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

// ── Summaries ────────────────────────────────────────────────────────────────

func TestSummarize_AggregatesCompletedSalesByMethod(t *testing.T) {
	f := newRegisterFixture(t)
	id := f.open(t, "100")
	f.seedSale(id, "50", model.PaymentCash, model.SaleCompleted)
	f.seedSale(id, "30", model.PaymentPix, model.SaleCompleted)
	f.seedSale(id, "20", model.PaymentCredit, model.SaleCancelled)
	f.seedSale(id, "10", model.PaymentMethod("voucher"), model.SaleCompleted)
	_, err := f.svc.AddWithdrawal(context.Background(), f.operator, dto.WithdrawalRequest{Amount: d("15"), Reason: "bank deposit"})
	require.NoError(t, err)

	resp, err := f.svc.Summarize(context.Background(), f.operator)
	require.NoError(t, err)

	cur := resp.Current
	assert.Equal(t, 3, cur.SalesCount)
	assertDecimal(t, "90", cur.SalesTotal)
	assertDecimal(t, "190", cur.RunningBalance)
	assertDecimal(t, "50", cur.ByPaymentMethod.Cash)
	assertDecimal(t, "30", cur.ByPaymentMethod.Pix)
	assertDecimal(t, "0", cur.ByPaymentMethod.Credit)
	assertDecimal(t, "0", cur.ByPaymentMethod.Debit)
	assertDecimal(t, "15", cur.WithdrawalsTotal)
	assert.Nil(t, resp.Previous)
}

func TestSummarize_IncludesLastClosedRegister(t *testing.T) {
	f := newRegisterFixture(t)
	first := f.open(t, "100")
	f.seedSale(first, "40", model.PaymentDebit, model.SaleCompleted)
	_, err := f.svc.Close(context.Background(), f.operator, closeReq("140", managerEmail, goodPassword))
	require.NoError(t, err)
	f.open(t, "60")

	resp, err := f.svc.Summarize(context.Background(), f.operator)
	require.NoError(t, err)

	assertDecimal(t, "60", resp.Current.RunningBalance)
	require.NotNil(t, resp.Previous)
	assert.Equal(t, first.String(), resp.Previous.RegisterID)
	assertDecimal(t, "40", resp.Previous.ByPaymentMethod.Debit)
	require.NotNil(t, resp.Previous.FinalBalance)
	assertDecimal(t, "140", *resp.Previous.FinalBalance)
}

func TestSummarize_WithoutOpenRegisterIsNotFound(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.svc.Summarize(context.Background(), f.operator)
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	_, err = f.svc.Current(context.Background(), f.operator)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

func TestHistory_ListsClosedRegistersNewestFirst(t *testing.T) {
	f := newRegisterFixture(t)
	first := f.open(t, "10")
	_, err := f.svc.Close(context.Background(), f.operator, closeReq("10", managerEmail, goodPassword))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second := f.open(t, "20")
	_, err = f.svc.Close(context.Background(), f.operator, closeReq("20", managerEmail, goodPassword))
	require.NoError(t, err)
	f.open(t, "30")

	resp, err := f.svc.History(context.Background(), f.operator, dto.RegisterHistoryFilter{Page: 1, Limit: 10})
	require.NoError(t, err)

	assert.EqualValues(t, 2, resp.Total)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, second.String(), resp.Data[0].RegisterID)
	assert.Equal(t, first.String(), resp.Data[1].RegisterID)
}

func TestGet_UnknownRegisterIsNotFound(t *testing.T) {
	f := newRegisterFixture(t)

	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

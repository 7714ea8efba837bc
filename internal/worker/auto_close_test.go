package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"
	"github.com/eoivo/embala-fest-sub001/internal/repository/repotest"
	"github.com/eoivo/embala-fest-sub001/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeMail struct {
	mu   sync.Mutex
	sent []worker.EmailJobPayload
	err  error
}

func (f *fakeMail) EnqueueEmail(_ context.Context, p worker.EmailJobPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, p)
	return nil
}

type autoCloseFixture struct {
	regs  *repotest.Registers
	sales *repotest.Sales
	users *repotest.Users
	admin *model.User
	job   *worker.AutoCloseJob
	at    time.Time
}

func newAutoCloseFixture(t *testing.T, withAdmin bool) *autoCloseFixture {
	t.Helper()
	sales := repotest.NewSales()
	f := &autoCloseFixture{
		regs:  repotest.NewRegisters(sales),
		sales: sales,
		users: repotest.NewUsers(),
		at:    time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC),
	}
	if withAdmin {
		f.admin = &model.User{Name: "Admin", Email: "admin@embalafest.com", Role: model.RoleAdmin, Active: true}
		require.NoError(t, f.users.Create(context.Background(), f.admin))
	}
	f.job = &worker.AutoCloseJob{
		Registers: f.regs,
		Users:     f.users,
		StoreName: "EmbalaFest",
		Now:       func() time.Time { return f.at },
	}
	return f
}

func (f *autoCloseFixture) openRegister(initial string) model.Register {
	return f.regs.Seed(model.Register{
		OperatorID:     uuid.New(),
		InitialBalance: d(initial),
		Status:         model.RegisterOpen,
		OpenedAt:       f.at.Add(-8 * time.Hour),
	})
}

func (f *autoCloseFixture) sale(reg model.Register, total string, method model.PaymentMethod, status model.SaleStatus) {
	f.sales.Seed(model.Sale{
		RegisterID:    reg.ID,
		OperatorID:    reg.OperatorID,
		Total:         d(total),
		PaymentMethod: method,
		Status:        status,
		CreatedAt:     f.at.Add(-time.Hour),
	})
}

func TestAutoClose_FinalBalanceIsInitialPlusCompletedSales(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	reg := f.openRegister("100")
	f.sale(reg, "50", model.PaymentCash, model.SaleCompleted)
	f.sale(reg, "30", model.PaymentPix, model.SaleCompleted)
	f.sale(reg, "45", model.PaymentDebit, model.SaleCancelled)
	require.NoError(t, f.regs.AddWithdrawal(context.Background(), &model.CashWithdrawal{
		RegisterID: reg.ID, Amount: d("20"), Reason: "bank deposit",
	}))

	res, err := f.job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Closed)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, []uuid.UUID{reg.ID}, res.ClosedIDs)

	got, ok := f.regs.Get(reg.ID)
	require.True(t, ok)
	assert.Equal(t, model.RegisterClosed, got.Status)
	require.NotNil(t, got.FinalBalance)
	// withdrawals do not reduce the derived balance
	assert.True(t, d("180").Equal(*got.FinalBalance), "final balance %s", got.FinalBalance)
	assert.Equal(t, model.AutoCloseNote, got.ClosingNotes)
	require.NotNil(t, got.ClosedByID)
	assert.Equal(t, f.admin.ID, *got.ClosedByID)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, f.at.Equal(*got.ClosedAt))
}

func TestAutoClose_NoOpenRegistersIsNoOp(t *testing.T) {
	f := newAutoCloseFixture(t, false)
	mail := &fakeMail{}
	f.job.Mail = mail

	res, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Closed)
	assert.Zero(t, res.Failed)
	assert.Empty(t, mail.sent)
}

func TestAutoClose_NoAdminAbortsWithoutClosing(t *testing.T) {
	f := newAutoCloseFixture(t, false)
	reg := f.openRegister("10")
	inactive := &model.User{Name: "Old", Email: "old@embalafest.com", Role: model.RoleAdmin, Active: false}
	require.NoError(t, f.users.Create(context.Background(), inactive))

	_, err := f.job.Run(context.Background())
	assert.ErrorIs(t, err, worker.ErrNoAdmin)

	got, _ := f.regs.Get(reg.ID)
	assert.True(t, got.IsOpen())
}

func TestAutoClose_FailureOnOneRegisterDoesNotStopOthers(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	a := f.openRegister("10")
	b := f.openRegister("20")
	c := f.openRegister("30")
	f.regs.CloseErr[b.ID] = errors.New("connection reset")

	res, err := f.job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Closed)
	assert.Equal(t, 1, res.Failed)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, c.ID}, res.ClosedIDs)

	gotB, _ := f.regs.Get(b.ID)
	assert.True(t, gotB.IsOpen())
	for _, id := range []uuid.UUID{a.ID, c.ID} {
		got, _ := f.regs.Get(id)
		assert.False(t, got.IsOpen())
	}
}

func TestAutoClose_ListFailureIsReturned(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	f.regs.ListOpenErr = errors.New("db down")

	_, err := f.job.Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, worker.ErrNoAdmin)
}

func TestAutoClose_SecondRunFindsNothing(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	f.openRegister("10")

	first, err := f.job.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Closed)

	second, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second.Closed)
}

func TestAutoClose_LaterSaleCannotAttachToClosedRegister(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	reg := f.openRegister("100")
	f.sale(reg, "10", model.PaymentCash, model.SaleCompleted)

	_, err := f.job.Run(context.Background())
	require.NoError(t, err)

	late := &model.Sale{RegisterID: reg.ID, OperatorID: reg.OperatorID, Total: d("5"), PaymentMethod: model.PaymentCash, Status: model.SaleCompleted}
	assert.ErrorIs(t, f.sales.Create(context.Background(), nil, late), repository.ErrRegisterClosed)

	got, _ := f.regs.Get(reg.ID)
	require.NotNil(t, got.FinalBalance)
	assert.True(t, d("110").Equal(*got.FinalBalance))
	assert.Len(t, got.Sales, 1)
}

func TestAutoClose_EnqueuesSummaryWithReports(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	reg := f.openRegister("100")
	f.sale(reg, "25", model.PaymentCredit, model.SaleCompleted)
	mail := &fakeMail{}
	f.job.Mail = mail
	f.job.ReportDir = t.TempDir()

	_, err := f.job.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, mail.sent, 1)
	sent := mail.sent[0]
	assert.Equal(t, f.admin.Email, sent.ToEmail)
	assert.Contains(t, sent.Subject, "1 register(s)")
	assert.Contains(t, sent.Body, "final 125.00")
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, f.job.ReportDir, filepath.Dir(sent.Attachments[0]))
	info, err := os.Stat(sent.Attachments[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestAutoClose_EnqueueFailureDoesNotFailRun(t *testing.T) {
	f := newAutoCloseFixture(t, true)
	f.openRegister("10")
	f.job.Mail = &fakeMail{err: errors.New("redis unavailable")}

	res, err := f.job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Closed)
}

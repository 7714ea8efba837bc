package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/apierror"
	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"

	"github.com/google/uuid"
)

type RegisterService interface {
	Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenRegisterRequest) (*dto.RegisterResponse, error)
	Close(ctx context.Context, operatorID uuid.UUID, req dto.CloseRegisterRequest) (*dto.RegisterResponse, error)
	AddWithdrawal(ctx context.Context, operatorID uuid.UUID, req dto.WithdrawalRequest) (*dto.RegisterResponse, error)
	Current(ctx context.Context, operatorID uuid.UUID) (*dto.CurrentRegisterResponse, error)
	History(ctx context.Context, operatorID uuid.UUID, filter dto.RegisterHistoryFilter) (*dto.RegisterHistoryResponse, error)
	Summarize(ctx context.Context, operatorID uuid.UUID) (*dto.DashboardResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Register, error)
	// FindOpen is called by SaleService to attach a sale to the operator's register
	FindOpen(ctx context.Context, operatorID uuid.UUID) (*model.Register, error)
}

type registerService struct {
	repo repository.RegisterRepository
	auth Authenticator
	now  func() time.Time
}

func NewRegisterService(repo repository.RegisterRepository, auth Authenticator) RegisterService {
	return &registerService{repo: repo, auth: auth, now: time.Now}
}

// ── Open ──────────────────────────────────────────────────────────────────────

func (s *registerService) Open(ctx context.Context, operatorID uuid.UUID, req dto.OpenRegisterRequest) (*dto.RegisterResponse, error) {
	if req.InitialBalance.IsNegative() {
		return nil, apierror.Validation("initialBalance must not be negative")
	}

	// Guard: one open register per operator. The partial unique index
	// catches the race this check cannot.
	if _, err := s.repo.FindOpenByOperator(ctx, operatorID); err == nil {
		return nil, apierror.Conflict("operator already has an open register")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	reg := &model.Register{
		OperatorID:     operatorID,
		InitialBalance: req.InitialBalance,
		Status:         model.RegisterOpen,
		OpenedAt:       s.now(),
	}
	if err := s.repo.Create(ctx, reg); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apierror.Conflict("operator already has an open register")
		}
		return nil, err
	}

	resp := registerToResponse(reg)
	return &resp, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────
// Manual close trusts the declared finalBalance; the auto-close job derives
// it from the attached sales instead.

func (s *registerService) Close(ctx context.Context, operatorID uuid.UUID, req dto.CloseRegisterRequest) (*dto.RegisterResponse, error) {
	if req.FinalBalance.IsNegative() {
		return nil, apierror.Validation("finalBalance must not be negative")
	}

	authorizer, err := s.auth.Authenticate(ctx, req.ManagerCredentials.Email, req.ManagerCredentials.Password)
	if err != nil {
		return nil, err
	}
	if !authorizer.CanAuthorizeClose() {
		return nil, apierror.Authorization("only a manager or admin can close a register")
	}

	reg, err := s.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	closedAt := s.now()
	params := repository.CloseParams{
		FinalBalance: req.FinalBalance,
		ClosedAt:     closedAt,
		ClosedByID:   authorizer.ID,
		ClosingNotes: strings.TrimSpace(req.ClosingNotes),
	}
	if err := s.repo.Close(ctx, reg.ID, params); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("no open register for this operator")
		}
		return nil, err
	}

	applyClose(reg, params)
	resp := registerToResponse(reg)
	return &resp, nil
}

// ── AddWithdrawal ─────────────────────────────────────────────────────────────
// Withdrawals are appended, never edited; balances are not touched.

func (s *registerService) AddWithdrawal(ctx context.Context, operatorID uuid.UUID, req dto.WithdrawalRequest) (*dto.RegisterResponse, error) {
	if req.Amount.IsNegative() {
		return nil, apierror.Validation("amount must not be negative")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apierror.Validation("reason is required")
	}

	reg, err := s.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}

	w := &model.CashWithdrawal{
		RegisterID: reg.ID,
		Amount:     req.Amount,
		Reason:     reason,
		CreatedAt:  s.now(),
	}
	if err := s.repo.AddWithdrawal(ctx, w); err != nil {
		return nil, err
	}
	reg.CashWithdrawals = append(reg.CashWithdrawals, *w)

	resp := registerToResponse(reg)
	return &resp, nil
}

// ── Queries ───────────────────────────────────────────────────────────────────

func (s *registerService) Current(ctx context.Context, operatorID uuid.UUID) (*dto.CurrentRegisterResponse, error) {
	reg, err := s.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	return &dto.CurrentRegisterResponse{
		Register: registerToResponse(reg),
		Summary:  summarize(reg),
	}, nil
}

func (s *registerService) History(ctx context.Context, operatorID uuid.UUID, filter dto.RegisterHistoryFilter) (*dto.RegisterHistoryResponse, error) {
	regs, total, err := s.repo.ListClosedByOperator(ctx, operatorID, filter.Page, filter.Limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.RegisterSummary, len(regs))
	for i := range regs {
		data[i] = summarize(&regs[i])
	}
	return &dto.RegisterHistoryResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// Summarize returns the running view of the open register next to the most
// recently closed one.
func (s *registerService) Summarize(ctx context.Context, operatorID uuid.UUID) (*dto.DashboardResponse, error) {
	current, err := s.FindOpen(ctx, operatorID)
	if err != nil {
		return nil, err
	}
	resp := &dto.DashboardResponse{Current: summarize(current)}

	last, err := s.repo.FindLastClosedByOperator(ctx, operatorID)
	switch {
	case err == nil:
		prev := summarize(last)
		resp.Previous = &prev
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return resp, nil
}

func (s *registerService) Get(ctx context.Context, id uuid.UUID) (*model.Register, error) {
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("register not found")
		}
		return nil, err
	}
	return reg, nil
}

func (s *registerService) FindOpen(ctx context.Context, operatorID uuid.UUID) (*model.Register, error) {
	reg, err := s.repo.FindOpenByOperator(ctx, operatorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierror.NotFound("no open register for this operator")
		}
		return nil, err
	}
	return reg, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func applyClose(reg *model.Register, p repository.CloseParams) {
	final := p.FinalBalance
	closedAt := p.ClosedAt
	closedBy := p.ClosedByID
	reg.FinalBalance = &final
	reg.Status = model.RegisterClosed
	reg.ClosedAt = &closedAt
	reg.ClosedByID = &closedBy
	reg.ClosingNotes = p.ClosingNotes
}

func summarize(reg *model.Register) dto.RegisterSummary {
	totals := reg.SaleTotals()

	var byMethod dto.PaymentTotals
	for method, amount := range totals.ByMethod {
		switch method {
		case model.PaymentCash:
			byMethod.Cash = amount
		case model.PaymentCredit:
			byMethod.Credit = amount
		case model.PaymentDebit:
			byMethod.Debit = amount
		case model.PaymentPix:
			byMethod.Pix = amount
		}
	}

	return dto.RegisterSummary{
		RegisterID:       reg.ID.String(),
		Status:           string(reg.Status),
		InitialBalance:   reg.InitialBalance,
		SalesTotal:       totals.Total,
		RunningBalance:   reg.InitialBalance.Add(totals.Total),
		SalesCount:       totals.Count,
		ByPaymentMethod:  byMethod,
		WithdrawalsTotal: reg.WithdrawalsTotal(),
		FinalBalance:     reg.FinalBalance,
		OpenedAt:         formatTime(reg.OpenedAt),
		ClosedAt:         formatTimePtr(reg.ClosedAt),
	}
}

func registerToResponse(reg *model.Register) dto.RegisterResponse {
	resp := dto.RegisterResponse{
		ID:              reg.ID.String(),
		OperatorID:      reg.OperatorID.String(),
		InitialBalance:  reg.InitialBalance,
		FinalBalance:    reg.FinalBalance,
		Status:          string(reg.Status),
		OpenedAt:        formatTime(reg.OpenedAt),
		ClosedAt:        formatTimePtr(reg.ClosedAt),
		ClosingNotes:    reg.ClosingNotes,
		Sales:           make([]string, len(reg.Sales)),
		CashWithdrawals: make([]dto.WithdrawalResponse, len(reg.CashWithdrawals)),
	}
	if reg.ClosedByID != nil {
		id := reg.ClosedByID.String()
		resp.ClosedBy = &id
	}
	for i, sale := range reg.Sales {
		resp.Sales[i] = sale.ID.String()
	}
	for i, w := range reg.CashWithdrawals {
		resp.CashWithdrawals[i] = dto.WithdrawalResponse{
			ID:        w.ID.String(),
			Amount:    w.Amount,
			Reason:    w.Reason,
			CreatedAt: formatTime(w.CreatedAt),
		}
	}
	return resp
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenRegisterRequest struct {
	InitialBalance decimal.Decimal `json:"initialBalance" validate:"min=0"`
}

type ManagerCredentials struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CloseRegisterRequest struct {
	FinalBalance       decimal.Decimal    `json:"finalBalance"       validate:"min=0"`
	ManagerCredentials ManagerCredentials `json:"managerCredentials"`
	ClosingNotes       string             `json:"closingNotes"       validate:"max=500"`
}

type WithdrawalRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"min=0"`
	Reason string          `json:"reason" validate:"required,max=255"`
}

// RegisterHistoryFilter is bound from the query string of GET /register/history.
type RegisterHistoryFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1,max=10000"`
	Limit int `form:"limit,default=20" validate:"min=1,max=100"`
}

type AutoCloseSetRequest struct {
	Hours   *int `json:"hours"   validate:"required,min=0,max=23"`
	Minutes *int `json:"minutes" validate:"required,min=0,max=59"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type WithdrawalResponse struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
	CreatedAt string          `json:"createdAt"`
}

type RegisterResponse struct {
	ID              string               `json:"id"`
	OperatorID      string               `json:"operator"`
	InitialBalance  decimal.Decimal      `json:"initialBalance"`
	FinalBalance    *decimal.Decimal     `json:"finalBalance"`
	Status          string               `json:"status"`
	OpenedAt        string               `json:"openedAt"`
	ClosedAt        *string              `json:"closedAt"`
	ClosedBy        *string              `json:"closedBy"`
	ClosingNotes    string               `json:"closingNotes"`
	Sales           []string             `json:"sales"`
	CashWithdrawals []WithdrawalResponse `json:"cashWithdrawals"`
}

// PaymentTotals holds completed-sale subtotals for each known payment method.
type PaymentTotals struct {
	Cash   decimal.Decimal `json:"cash"`
	Credit decimal.Decimal `json:"credit"`
	Debit  decimal.Decimal `json:"debit"`
	Pix    decimal.Decimal `json:"pix"`
}

type RegisterSummary struct {
	RegisterID       string           `json:"registerId"`
	Status           string           `json:"status"`
	InitialBalance   decimal.Decimal  `json:"initialBalance"`
	SalesTotal       decimal.Decimal  `json:"salesTotal"`
	RunningBalance   decimal.Decimal  `json:"runningBalance"` // initialBalance + salesTotal
	SalesCount       int              `json:"salesCount"`
	ByPaymentMethod  PaymentTotals    `json:"byPaymentMethod"`
	WithdrawalsTotal decimal.Decimal  `json:"withdrawalsTotal"`
	FinalBalance     *decimal.Decimal `json:"finalBalance"`
	OpenedAt         string           `json:"openedAt"`
	ClosedAt         *string          `json:"closedAt"`
}

type CurrentRegisterResponse struct {
	Register RegisterResponse `json:"register"`
	Summary  RegisterSummary  `json:"summary"`
}

type DashboardResponse struct {
	Current  RegisterSummary  `json:"current"`
	Previous *RegisterSummary `json:"previous"`
}

type RegisterHistoryResponse struct {
	Data  []RegisterSummary `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type AutoCloseInfoResponse struct {
	Schedule    string  `json:"schedule"`
	Description string  `json:"description"`
	IsActive    bool    `json:"isActive"`
	NextRun     *string `json:"nextRun,omitempty"`
}

type AutoCloseSetResponse struct {
	Schedule    string `json:"schedule"`
	Description string `json:"description"`
}

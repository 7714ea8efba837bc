// Package repotest provides in-memory repository implementations for unit
// tests. They copy on every read and write so callers can mutate what they
// get back without touching stored state, the way rows behave.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	_ repository.RegisterRepository = (*Registers)(nil)
	_ repository.UserRepository     = (*Users)(nil)
	_ repository.SettingRepository  = (*Settings)(nil)
	_ repository.SaleRepository     = (*Sales)(nil)
	_ repository.ProductRepository  = (*Products)(nil)
	_ repository.ConsumerRepository = (*Consumers)(nil)
	_ repository.SupplierRepository = (*Suppliers)(nil)
)

// ── Registers ────────────────────────────────────────────────────────────────

// Registers mimics the registers table, its partial unique index and the
// cash_withdrawals ledger. Sales are read from the attached *Sales, if any.
type Registers struct {
	mu          sync.Mutex
	regs        map[uuid.UUID]model.Register
	withdrawals []model.CashWithdrawal
	Sales       *Sales

	// CloseErr and FindErr inject failures for specific register ids.
	CloseErr map[uuid.UUID]error
	FindErr  map[uuid.UUID]error
	// ListOpenErr fails ListOpen.
	ListOpenErr error
}

func NewRegisters(sales *Sales) *Registers {
	r := &Registers{
		regs:     make(map[uuid.UUID]model.Register),
		Sales:    sales,
		CloseErr: make(map[uuid.UUID]error),
		FindErr:  make(map[uuid.UUID]error),
	}
	if sales != nil {
		sales.registers = r
	}
	return r
}

// isOpen reports whether id names a stored open register.
func (r *Registers) isOpen(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	return ok && reg.IsOpen()
}

// Seed stores reg as-is, assigning an id when missing.
func (r *Registers) Seed(reg model.Register) model.Register {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	reg.Sales, reg.CashWithdrawals = nil, nil
	r.regs[reg.ID] = reg
	return reg
}

func (r *Registers) Create(_ context.Context, reg *model.Register) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reg.IsOpen() {
		for _, existing := range r.regs {
			if existing.OperatorID == reg.OperatorID && existing.IsOpen() {
				return repository.ErrDuplicate
			}
		}
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	stored := *reg
	stored.Sales, stored.CashWithdrawals = nil, nil
	r.regs[reg.ID] = stored
	return nil
}

// assemble returns a detached copy with sales and withdrawals attached.
// Callers hold r.mu.
func (r *Registers) assemble(reg model.Register) *model.Register {
	out := reg
	if reg.FinalBalance != nil {
		fb := *reg.FinalBalance
		out.FinalBalance = &fb
	}
	out.Sales = nil
	if r.Sales != nil {
		out.Sales, _ = r.Sales.ListByRegister(context.Background(), reg.ID)
		sort.Slice(out.Sales, func(i, j int) bool { return out.Sales[i].CreatedAt.Before(out.Sales[j].CreatedAt) })
	}
	out.CashWithdrawals = nil
	for _, w := range r.withdrawals {
		if w.RegisterID == reg.ID {
			out.CashWithdrawals = append(out.CashWithdrawals, w)
		}
	}
	return &out
}

func (r *Registers) FindByID(_ context.Context, id uuid.UUID) (*model.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FindErr[id]; err != nil {
		return nil, err
	}
	reg, ok := r.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.assemble(reg), nil
}

func (r *Registers) FindOpenByOperator(_ context.Context, operatorID uuid.UUID) (*model.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.regs {
		if reg.OperatorID == operatorID && reg.IsOpen() {
			return r.assemble(reg), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Registers) FindLastClosedByOperator(_ context.Context, operatorID uuid.UUID) (*model.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *model.Register
	for _, reg := range r.regs {
		if reg.OperatorID != operatorID || reg.IsOpen() || reg.ClosedAt == nil {
			continue
		}
		if last == nil || reg.ClosedAt.After(*last.ClosedAt) {
			last = r.assemble(reg)
		}
	}
	if last == nil {
		return nil, repository.ErrNotFound
	}
	return last, nil
}

func (r *Registers) ListOpen(_ context.Context) ([]model.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListOpenErr != nil {
		return nil, r.ListOpenErr
	}
	var out []model.Register
	for _, reg := range r.regs {
		if reg.IsOpen() {
			out = append(out, *r.assemble(reg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (r *Registers) ListClosedByOperator(_ context.Context, operatorID uuid.UUID, page, limit int) ([]model.Register, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Register
	for _, reg := range r.regs {
		if reg.OperatorID == operatorID && !reg.IsOpen() {
			all = append(all, *r.assemble(reg))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClosedAt.After(*all[j].ClosedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (r *Registers) Close(_ context.Context, id uuid.UUID, p repository.CloseParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.CloseErr[id]; err != nil {
		return err
	}
	reg, ok := r.regs[id]
	if !ok || !reg.IsOpen() {
		return repository.ErrNotFound
	}
	r.regs[id] = applyClose(reg, p)
	return nil
}

// Settle runs under r.mu, which stands in for the row lock.
func (r *Registers) Settle(_ context.Context, id uuid.UUID, settle func(reg *model.Register) repository.CloseParams) (*model.Register, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FindErr[id]; err != nil {
		return nil, err
	}
	reg, ok := r.regs[id]
	if !ok || !reg.IsOpen() {
		return nil, repository.ErrNotFound
	}
	p := settle(r.assemble(reg))
	if err := r.CloseErr[id]; err != nil {
		return nil, err
	}
	closed := applyClose(reg, p)
	r.regs[id] = closed
	return r.assemble(closed), nil
}

func applyClose(reg model.Register, p repository.CloseParams) model.Register {
	fb, closedAt, closedBy := p.FinalBalance, p.ClosedAt, p.ClosedByID
	reg.FinalBalance = &fb
	reg.Status = model.RegisterClosed
	reg.ClosedAt = &closedAt
	reg.ClosedByID = &closedBy
	reg.ClosingNotes = p.ClosingNotes
	return reg
}

func (r *Registers) AddWithdrawal(_ context.Context, w *model.CashWithdrawal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.withdrawals = append(r.withdrawals, *w)
	return nil
}

// Get returns the stored register for assertions.
func (r *Registers) Get(id uuid.UUID) (model.Register, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.regs[id]
	if !ok {
		return reg, false
	}
	return *r.assemble(reg), true
}

// ── Users ────────────────────────────────────────────────────────────────────

type Users struct {
	mu    sync.Mutex
	users map[uuid.UUID]model.User
}

func NewUsers() *Users { return &Users{users: make(map[uuid.UUID]model.User)} }

func (r *Users) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	r.users[u.ID] = *u
	return nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Users) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *Users) FindFirstActiveByRole(_ context.Context, role string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first *model.User
	for _, u := range r.users {
		if u.Role != role || !u.Active {
			continue
		}
		if first == nil || u.CreatedAt.Before(first.CreatedAt) {
			c := u
			first = &c
		}
	}
	if first == nil {
		return nil, repository.ErrNotFound
	}
	return first, nil
}

func (r *Users) List(_ context.Context, includeInactive bool) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.User
	for _, u := range r.users {
		if includeInactive || u.Active {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Users) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.users {
		if id != u.ID && strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicate
		}
	}
	r.users[u.ID] = *u
	return nil
}

func (r *Users) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = active
	r.users[id] = u
	return nil
}

// ── Settings ─────────────────────────────────────────────────────────────────

type Settings struct {
	mu     sync.Mutex
	values map[string]string
	SetErr error
}

func NewSettings() *Settings { return &Settings{values: make(map[string]string)} }

func (r *Settings) Get(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (r *Settings) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SetErr != nil {
		return r.SetErr
	}
	r.values[key] = value
	return nil
}

// ── Sales ────────────────────────────────────────────────────────────────────

// Sales rejects Create for registers that the linked *Registers does not
// hold open. Seed bypasses that check.
type Sales struct {
	mu        sync.Mutex
	sales     map[uuid.UUID]model.Sale
	registers *Registers
}

func NewSales() *Sales { return &Sales{sales: make(map[uuid.UUID]model.Sale)} }

// Seed stores s as-is, assigning an id when missing.
func (r *Sales) Seed(s model.Sale) model.Sale {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sales[s.ID] = s
	return s
}

func (r *Sales) DB() *gorm.DB { return nil }

func (r *Sales) Create(_ context.Context, _ *gorm.DB, s *model.Sale) error {
	// Checked before taking r.mu: Registers locks its own mutex before ours.
	if r.registers != nil && !r.registers.isOpen(s.RegisterID) {
		return repository.ErrRegisterClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Items {
		if s.Items[i].ID == uuid.Nil {
			s.Items[i].ID = uuid.New()
		}
		s.Items[i].SaleID = s.ID
	}
	stored := *s
	stored.Items = append([]model.SaleItem(nil), s.Items...)
	r.sales[s.ID] = stored
	return nil
}

func (r *Sales) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.Items = append([]model.SaleItem(nil), s.Items...)
	return &s, nil
}

func (r *Sales) ListByRegister(_ context.Context, registerID uuid.UUID) ([]model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Sale
	for _, s := range r.sales {
		if s.RegisterID == registerID {
			s.Items = append([]model.SaleItem(nil), s.Items...)
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *Sales) MarkCancelled(_ context.Context, _ *gorm.DB, id uuid.UUID, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok || !s.IsCompleted() {
		return repository.ErrNotFound
	}
	s.Status = model.SaleCancelled
	s.CancelReason = &reason
	s.CancelledAt = &at
	r.sales[id] = s
	return nil
}

// ── Products ─────────────────────────────────────────────────────────────────

type Products struct {
	mu       sync.Mutex
	products map[uuid.UUID]model.Product
}

func NewProducts() *Products { return &Products{products: make(map[uuid.UUID]model.Product)} }

func (r *Products) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.SKU == p.SKU {
			return repository.ErrDuplicate
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = *p
	return nil
}

func (r *Products) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *Products) List(_ context.Context, filter dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		if filter.Active != "all" && p.Active == (filter.Active == "false") {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Name)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r *Products) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = *p
	return nil
}

func (r *Products) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Active = active
	r.products[id] = p
	return nil
}

func (r *Products) AdjustStockTx(_ context.Context, _ *gorm.DB, id uuid.UUID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.Stock+delta < 0 {
		return repository.ErrInsufficientStock
	}
	p.Stock += delta
	r.products[id] = p
	return nil
}

// ── Consumers ────────────────────────────────────────────────────────────────

type Consumers struct {
	mu        sync.Mutex
	consumers map[uuid.UUID]model.Consumer
}

func NewConsumers() *Consumers { return &Consumers{consumers: make(map[uuid.UUID]model.Consumer)} }

func (r *Consumers) Create(_ context.Context, c *model.Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.CPF != nil {
		for _, existing := range r.consumers {
			if existing.CPF != nil && *existing.CPF == *c.CPF {
				return repository.ErrDuplicate
			}
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.consumers[c.ID] = *c
	return nil
}

func (r *Consumers) FindByID(_ context.Context, id uuid.UUID) (*model.Consumer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.consumers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *Consumers) Search(_ context.Context, term string, limit int) ([]model.Consumer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Consumer
	for _, c := range r.consumers {
		if term == "" || strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Consumers) Update(_ context.Context, c *model.Consumer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumers[c.ID] = *c
	return nil
}

func (r *Consumers) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.consumers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.consumers, id)
	return nil
}

// ── Suppliers ────────────────────────────────────────────────────────────────

type Suppliers struct {
	mu        sync.Mutex
	suppliers map[uuid.UUID]model.Supplier
}

func NewSuppliers() *Suppliers { return &Suppliers{suppliers: make(map[uuid.UUID]model.Supplier)} }

func (r *Suppliers) Create(_ context.Context, s *model.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.suppliers {
		if existing.CNPJ == s.CNPJ {
			return repository.ErrDuplicate
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.suppliers[s.ID] = *s
	return nil
}

func (r *Suppliers) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *Suppliers) List(_ context.Context, includeInactive bool) ([]model.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Supplier
	for _, s := range r.suppliers {
		if includeInactive || s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Suppliers) Update(_ context.Context, s *model.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppliers[s.ID] = *s
	return nil
}

func (r *Suppliers) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.suppliers[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Active = active
	r.suppliers[id] = s
	return nil
}

package infra

// pdf.go: register closing report using go-pdf/fpdf.
// A4 page with:
//   - Store name header
//   - Register id, operator, open/close timestamps, closed-by
//   - Balances (initial, sales, withdrawals, final)
//   - Per-payment-method subtotals
//   - Sales table (time, method, status, total)
//   - Withdrawal table (time, reason, amount)

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/eoivo/embala-fest-sub001/internal/model"

	"github.com/go-pdf/fpdf"
)

var methodLabels = map[model.PaymentMethod]string{
	model.PaymentCash:   "Cash",
	model.PaymentCredit: "Credit card",
	model.PaymentDebit:  "Debit card",
	model.PaymentPix:    "Pix",
}

// RenderRegisterReport writes the closing report for reg to w.
// reg must have Sales, CashWithdrawals and Operator/ClosedBy preloaded.
func RenderRegisterReport(w io.Writer, storeName string, reg *model.Register) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, storeName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "Register closing report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// ── Register info ────────────────────────────────────────────────────────
	label := contentW * 0.35
	value := contentW * 0.65
	row := func(k, v string) {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(label, 6, k, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(value, 6, v, "", 1, "L", false, 0, "")
	}

	row("Register", reg.ID.String())
	row("Operator", userLabel(reg.Operator, reg.OperatorID.String()))
	row("Status", string(reg.Status))
	row("Opened at", reg.OpenedAt.Format("02/01/2006 15:04"))
	if reg.ClosedAt != nil {
		row("Closed at", reg.ClosedAt.Format("02/01/2006 15:04"))
	}
	if reg.ClosedByID != nil {
		row("Closed by", userLabel(reg.ClosedBy, reg.ClosedByID.String()))
	}
	if reg.ClosingNotes != "" {
		row("Notes", reg.ClosingNotes)
	}
	pdf.Ln(3)

	// ── Balances ─────────────────────────────────────────────────────────────
	totals := reg.SaleTotals()
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Balances", "B", 1, "L", false, 0, "")
	row("Initial balance", "R$ "+reg.InitialBalance.StringFixed(2))
	row("Sales total", fmt.Sprintf("R$ %s (%d sales)", totals.Total.StringFixed(2), totals.Count))
	row("Withdrawals", "R$ "+reg.WithdrawalsTotal().StringFixed(2))
	if reg.FinalBalance != nil {
		row("Final balance", "R$ "+reg.FinalBalance.StringFixed(2))
	} else {
		row("Running balance", "R$ "+reg.InitialBalance.Add(totals.Total).StringFixed(2))
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "By payment method", "B", 1, "L", false, 0, "")
	for _, m := range model.PaymentMethods {
		row(methodLabels[m], "R$ "+totals.ByMethod[m].StringFixed(2))
	}
	pdf.Ln(3)

	// ── Sales ────────────────────────────────────────────────────────────────
	col := []float64{contentW * 0.25, contentW * 0.25, contentW * 0.25, contentW * 0.25}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 7, "Sales", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col[0], 6, "Time", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col[1], 6, "Method", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col[2], 6, "Status", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col[3], 6, "Total", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, s := range reg.Sales {
		pdf.CellFormat(col[0], 5, s.CreatedAt.Format("15:04:05"), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[1], 5, string(s.PaymentMethod), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[2], 5, string(s.Status), "", 0, "L", false, 0, "")
		pdf.CellFormat(col[3], 5, "R$ "+s.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// ── Withdrawals ──────────────────────────────────────────────────────────
	if len(reg.CashWithdrawals) > 0 {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(contentW, 7, "Withdrawals", "B", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		for _, wd := range reg.CashWithdrawals {
			pdf.CellFormat(col[0], 5, wd.CreatedAt.Format("15:04:05"), "", 0, "L", false, 0, "")
			pdf.CellFormat(col[1]+col[2], 5, wd.Reason, "", 0, "L", false, 0, "")
			pdf.CellFormat(col[3], 5, "R$ "+wd.Amount.StringFixed(2), "", 1, "R", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render register report: %w", err)
	}
	return nil
}

// SaveRegisterReport renders the report into storagePath/register_{id}.pdf
// and returns the file path.
func SaveRegisterReport(storagePath, storeName string, reg *model.Register) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, fmt.Sprintf("register_%s.pdf", reg.ID))

	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("pdf: create file: %w", err)
	}
	if err := RenderRegisterReport(f, storeName, reg); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func userLabel(u *model.User, fallback string) string {
	if u == nil {
		return fallback
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}

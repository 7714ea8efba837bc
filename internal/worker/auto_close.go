package worker

// auto_close.go
// One firing of the daily auto-close: every register still open is closed
// with finalBalance = initialBalance + completed sales, attributed to the
// first active admin. Each register is handled on its own; one failure does
// not stop the rest.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/infra"
	"github.com/eoivo/embala-fest-sub001/internal/metrics"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNoAdmin aborts a firing when no active admin exists to own the closures.
var ErrNoAdmin = errors.New("auto_close: no active admin user")

// AutoCloseResult summarizes one firing.
type AutoCloseResult struct {
	Closed    int
	Failed    int
	ClosedIDs []uuid.UUID
}

// AutoCloseJob holds the dependencies of a firing. Mail and ReportDir are
// optional; without them no report is produced.
type AutoCloseJob struct {
	Registers repository.RegisterRepository
	Users     repository.UserRepository
	Mail      EmailEnqueuer
	ReportDir string
	StoreName string
	Now       func() time.Time
}

func (j *AutoCloseJob) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Run executes one firing.
func (j *AutoCloseJob) Run(ctx context.Context) (AutoCloseResult, error) {
	var res AutoCloseResult
	start := time.Now()

	open, err := j.Registers.ListOpen(ctx)
	if err != nil {
		log.Error().Err(err).Msg("auto_close: failed to list open registers")
		return res, fmt.Errorf("auto_close: list open registers: %w", err)
	}
	if len(open) == 0 {
		log.Info().Msg("auto_close: no open registers, nothing to do")
		metrics.RecordAutoCloseRun(0, 0, time.Since(start))
		return res, nil
	}

	admin, err := j.Users.FindFirstActiveByRole(ctx, model.RoleAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Error().Int("open", len(open)).Msg("auto_close: no active admin found, aborting")
			return res, ErrNoAdmin
		}
		log.Error().Err(err).Msg("auto_close: failed to resolve admin")
		return res, fmt.Errorf("auto_close: resolve admin: %w", err)
	}

	var closed []*model.Register
	for _, r := range open {
		reg, err := j.closeOne(ctx, r.ID, admin.ID)
		if err != nil {
			res.Failed++
			log.Error().Err(err).Str("register_id", r.ID.String()).Msg("auto_close: failed to close register")
			continue
		}
		res.Closed++
		res.ClosedIDs = append(res.ClosedIDs, reg.ID)
		closed = append(closed, reg)
	}

	log.Info().
		Int("closed", res.Closed).
		Int("failed", res.Failed).
		Str("admin", admin.Email).
		Msg("auto_close: firing completed")
	metrics.RecordAutoCloseRun(res.Closed, res.Failed, time.Since(start))

	j.notify(ctx, admin, closed, res)
	return res, nil
}

// closeOne derives the final balance under the register's row lock, so the
// total reflects every sale committed up to the close and no later sale can
// attach to it.
func (j *AutoCloseJob) closeOne(ctx context.Context, id, adminID uuid.UUID) (*model.Register, error) {
	closedAt := j.now()
	reg, err := j.Registers.Settle(ctx, id, func(reg *model.Register) repository.CloseParams {
		return repository.CloseParams{
			FinalBalance: reg.InitialBalance.Add(reg.SaleTotals().Total),
			ClosedAt:     closedAt,
			ClosedByID:   adminID,
			ClosingNotes: model.AutoCloseNote,
		}
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("register is no longer open")
		}
		return nil, fmt.Errorf("settle: %w", err)
	}
	return reg, nil
}

// notify mails the admin a summary. Report or enqueue failures are logged only;
// the registers are already closed.
func (j *AutoCloseJob) notify(ctx context.Context, admin *model.User, closed []*model.Register, res AutoCloseResult) {
	if j.Mail == nil || admin.Email == "" || len(closed) == 0 {
		return
	}

	var attachments []string
	if j.ReportDir != "" {
		for _, reg := range closed {
			path, err := infra.SaveRegisterReport(j.ReportDir, j.StoreName, reg)
			if err != nil {
				log.Warn().Err(err).Str("register_id", reg.ID.String()).Msg("auto_close: report not generated")
				continue
			}
			attachments = append(attachments, path)
		}
	}

	payload := EmailJobPayload{
		ToEmail:     admin.Email,
		Subject:     fmt.Sprintf("%s: %d register(s) closed automatically", j.StoreName, res.Closed),
		Body:        summaryBody(closed, res),
		Attachments: attachments,
	}
	if err := j.Mail.EnqueueEmail(ctx, payload); err != nil {
		log.Warn().Err(err).Msg("auto_close: failed to enqueue summary email")
	}
}

func summaryBody(closed []*model.Register, res AutoCloseResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Registers closed: %d\nFailures: %d\n\n", res.Closed, res.Failed)
	for _, reg := range closed {
		fmt.Fprintf(&b, "- %s: initial %s, final %s\n",
			reg.ID, reg.InitialBalance.StringFixed(2), reg.FinalBalance.StringFixed(2))
	}
	return b.String()
}

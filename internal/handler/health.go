package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/infra"
	"github.com/eoivo/embala-fest-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// MailStatus is the part of *infra.Mailer /health reports on.
type MailStatus interface {
	Configured() bool
	BreakerState() infra.BreakerState
}

// Health returns a JSON health check response.
// Checks DB and Redis connectivity and reports the email DLQ depth and the
// SMTP breaker. An open breaker degrades email only, so it does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, mail MailStatus) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		redisStatus := "connected"
		var dlq int64
		if rdb.Ping(ctx).Err() != nil {
			redisStatus = "error"
		} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueEmail); err == nil {
			dlq = n
		}

		status, body := healthReport(dbStatus, redisStatus, dlq, mail)
		c.JSON(status, body)
	}
}

// healthReport builds the /health response. Only database and redis failures
// fail the check.
func healthReport(dbStatus, redisStatus string, dlq int64, mail MailStatus) (int, gin.H) {
	smtpStatus := "disabled"
	if mail != nil && mail.Configured() {
		smtpStatus = mail.BreakerState().String()
	}

	status := http.StatusOK
	if dbStatus != "connected" || redisStatus != "connected" {
		status = http.StatusServiceUnavailable
	}
	return status, gin.H{
		"ok":        status == http.StatusOK,
		"database":  dbStatus,
		"redis":     redisStatus,
		"email_dlq": dlq,
		"smtp":      smtpStatus,
	}
}

package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eoivo/embala-fest-sub001/internal/config"
	"github.com/eoivo/embala-fest-sub001/internal/dto"
	"github.com/eoivo/embala-fest-sub001/internal/handler"
	"github.com/eoivo/embala-fest-sub001/internal/middleware"
	"github.com/eoivo/embala-fest-sub001/internal/model"
	"github.com/eoivo/embala-fest-sub001/internal/repository/repotest"
	"github.com/eoivo/embala-fest-sub001/internal/service"
	"github.com/eoivo/embala-fest-sub001/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const password = "correct-horse"

func init() { gin.SetMode(gin.TestMode) }

type noopRun struct{}

func (noopRun) Run(context.Context) (worker.AutoCloseResult, error) { return worker.AutoCloseResult{}, nil }

type testAPI struct {
	engine  *gin.Engine
	regs    *repotest.Registers
	tokens  map[string]string // role -> access token
	emails  map[string]string // role -> email
	manager *model.User
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	cfg := &config.Config{JWTSecret: "router-secret", JWTExpirationHours: 1, JWTRefreshHours: 2}

	users := repotest.NewUsers()
	sales := repotest.NewSales()
	regs := repotest.NewRegisters(sales)
	authSvc := service.NewAuthService(users, cfg)
	regSvc := service.NewRegisterService(regs, authSvc)

	scheduler := worker.NewAutoCloseScheduler(noopRun{}, repotest.NewSettings(), time.UTC, 23, 59)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		scheduler.Stop(ctx)
	})

	api := &testAPI{regs: regs, tokens: map[string]string{}, emails: map[string]string{}}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	for _, role := range []string{admin, manager, cashier} {
		u := &model.User{Name: role, Email: role + "@embalafest.com", PasswordHash: string(hash), Role: role, Active: true}
		require.NoError(t, users.Create(context.Background(), u))
		login, err := authSvc.Login(context.Background(), dto.LoginRequest{Email: u.Email, Password: password})
		require.NoError(t, err)
		api.tokens[role] = login.AccessToken
		api.emails[role] = u.Email
		if role == manager {
			api.manager = u
		}
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	g := r.Group("", middleware.JWTAuth(cfg.JWTSecret))
	anyRole := middleware.RequireRole(admin, manager, cashier)
	RegisterRoutes(g, handler.NewRegisterHandler(regSvc, "EmbalaFest"), anyRole, middleware.RequireRole(admin, manager))
	SettingsRoutes(g, handler.NewSettingsHandler(scheduler), anyRole, middleware.RequireRole(admin))
	api.engine = r
	return api
}

func (a *testAPI) do(t *testing.T, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok := a.tokens[role]; tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func closeBody(final float64, email, pw string) map[string]any {
	return map[string]any{
		"finalBalance":       final,
		"managerCredentials": map[string]string{"email": email, "password": pw},
	}
}

func TestRegisterRoutes_Lifecycle(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/register/open", cashier, map[string]any{"initialBalance": 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode[dto.RegisterResponse](t, w)
	assert.Equal(t, "open", opened.Status)
	assert.Nil(t, opened.FinalBalance)

	w = a.do(t, http.MethodPost, "/register/open", cashier, map[string]any{"initialBalance": 50})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPost, "/register/withdrawal", cashier, map[string]any{"amount": 20, "reason": "bank"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode[dto.RegisterResponse](t, w).CashWithdrawals, 1)

	w = a.do(t, http.MethodGet, "/register/current", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cur := decode[dto.CurrentRegisterResponse](t, w)
	assert.Equal(t, opened.ID, cur.Register.ID)
	assert.Equal(t, "100", cur.Summary.RunningBalance.String())

	w = a.do(t, http.MethodPost, "/register/close", cashier, closeBody(100, a.emails[manager], "wrong"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/register/close", cashier, closeBody(100, a.emails[cashier], password))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPost, "/register/close", cashier, closeBody(100, a.emails[manager], password))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	closed := decode[dto.RegisterResponse](t, w)
	assert.Equal(t, "closed", closed.Status)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, a.manager.ID.String(), *closed.ClosedBy)

	w = a.do(t, http.MethodGet, "/register/current", cashier, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/register/history", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	hist := decode[dto.RegisterHistoryResponse](t, w)
	assert.EqualValues(t, 1, hist.Total)
	assert.Equal(t, 20, hist.Limit)
}

func TestRegisterRoutes_RequestValidation(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/register/open", cashier, `{"initialBalance":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodPost, "/register/open", cashier, map[string]any{"initialBalance": -1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "initialBalance")

	w = a.do(t, http.MethodPost, "/register/close", cashier, map[string]any{"finalBalance": 10})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "managerCredentials.email")

	w = a.do(t, http.MethodGet, "/register/history?limit=500", cashier, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/register/history?page=9223372036854775807", cashier, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(t, http.MethodGet, "/register/history?page=10000", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decode[dto.RegisterHistoryResponse](t, w).Data)

	w = a.do(t, http.MethodGet, "/register/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRoutes_Report(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/register/open", cashier, map[string]any{"initialBalance": 10})
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[dto.RegisterResponse](t, w).ID

	assert.Equal(t, http.StatusForbidden, a.do(t, http.MethodGet, "/register/"+id+"/report", cashier, nil).Code)

	w = a.do(t, http.MethodGet, "/register/"+id+"/report", manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "register_"+id+".pdf")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/register/nope/report", manager, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/register/"+uuid.NewString()+"/report", manager, nil).Code)

	a.regs.FindErr[uuid.MustParse(id)] = errors.New("connection refused")
	w = a.do(t, http.MethodGet, "/register/"+id+"/report", manager, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestSettingsRoutes_AutoClose(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodGet, "/settings/auto-close", cashier, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "59 23 * * *", decode[dto.AutoCloseInfoResponse](t, w).Schedule)

	for _, role := range []string{cashier, manager} {
		w = a.do(t, http.MethodPut, "/settings/auto-close", role, map[string]int{"hours": 23, "minutes": 30})
		assert.Equal(t, http.StatusForbidden, w.Code, role)
	}

	w = a.do(t, http.MethodPut, "/settings/auto-close", admin, map[string]int{"hours": 23, "minutes": 30})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	set := decode[dto.AutoCloseSetResponse](t, w)
	assert.Equal(t, "30 23 * * *", set.Schedule)
	assert.Contains(t, set.Description, "23:30")

	w = a.do(t, http.MethodPut, "/settings/auto-close", admin, map[string]int{"hours": 24, "minutes": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = a.do(t, http.MethodPut, "/settings/auto-close", admin, map[string]int{"hours": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/settings/auto-close", admin, nil)
	assert.Equal(t, "30 23 * * *", decode[dto.AutoCloseInfoResponse](t, w).Schedule)
}

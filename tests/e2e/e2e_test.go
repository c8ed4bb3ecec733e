//go:build integration

package e2e

// End-to-end integration tests using real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./tests/e2e/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/zerofarias/varo-pos-sub000/internal/config"
	"github.com/zerofarias/varo-pos-sub000/internal/infra"
	"github.com/zerofarias/varo-pos-sub000/internal/model"
	"github.com/zerofarias/varo-pos-sub000/internal/router"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
	token  string // admin JWT

	branch   model.Branch
	register model.CashRegister
	cash     model.PaymentMethod
	account  model.PaymentMethod
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("varopos_test"),
		tcPostgres.WithUsername("varopos"),
		tcPostgres.WithPassword("varopos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx,
		testcontainers.WithImage("redis:7-alpine"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Port:               8000,
		Env:                "test",
		JWTSecret:          "test-secret-key",
		JWTExpirationHours: 8,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		AFIPSidecarURL:     "http://localhost:9999", // fiscal path not exercised here
		WorkerPoolSize:     1,
		TaxRatePct:         21,
		BusinessName:       "VaroPOS E2E",
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	env := &testEnv{db: db}

	// Seed the minimal operating dataset: branch, register, methods, admin.
	env.branch = model.Branch{ID: uuid.New(), Code: "001", Name: "Casa Central", Active: true}
	require.NoError(t, db.Create(&env.branch).Error)

	env.register = model.CashRegister{ID: uuid.New(), BranchID: env.branch.ID, Name: "Caja 1", Active: true}
	require.NoError(t, db.Create(&env.register).Error)

	env.cash = model.PaymentMethod{ID: uuid.New(), Code: "CASH", Name: "Cash", Kind: model.KindCash, Active: true}
	env.account = model.PaymentMethod{ID: uuid.New(), Code: "ACCOUNT", Name: "Customer account", Kind: model.KindAccount, Active: true}
	require.NoError(t, db.Create(&env.cash).Error)
	require.NoError(t, db.Create(&env.account).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("varopos2026"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := model.User{
		ID:           uuid.New(),
		Username:     "admin",
		Name:         "Admin E2E",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		BranchID:     env.branch.ID,
		Active:       true,
	}
	require.NoError(t, db.Create(&admin).Error)

	afipCB := infra.NewCircuitBreaker(infra.DefaultCBConfig())
	r := router.New(cfg, db, rdb, afipCB)
	env.server = httptest.NewServer(r)
	t.Cleanup(env.server.Close)

	loginResp := do(t, env.server, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": "admin", "password": "varopos2026"}),
		"",
	)
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)
	env.token = loginBody.AccessToken

	return env
}

func (env *testEnv) seedProduct(t *testing.T, name, sku string, price string, stock int) model.Product {
	t.Helper()
	p := model.Product{
		ID:          uuid.New(),
		SKU:         sku,
		Name:        name,
		ListPrice:   decimal.RequireFromString(price),
		StockGlobal: stock,
		ManageStock: true,
		Active:      true,
	}
	require.NoError(t, env.db.Create(&p).Error)
	return p
}

func (env *testEnv) openShift(t *testing.T, opening float64) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/shifts/open",
		jsonBody(t, map[string]any{"register_id": env.register.ID.String(), "opening_cash": opening}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var shift struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &shift)
	return shift.ID
}

func (env *testEnv) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var p model.Product
	require.NoError(t, env.db.First(&p, productID).Error)
	return p.StockGlobal
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_FullSaleCycle(t *testing.T) {
	env := setupTestEnv(t)
	product := env.seedProduct(t, "Gaseosa 500ml", "GAS-500", "250", 20)
	env.openShift(t, 1000)

	saleResp := do(t, env.server, "POST", "/v1/sales",
		jsonBody(t, map[string]any{
			"items":    []map[string]any{{"product_id": product.ID.String(), "quantity": 3}},
			"payments": []map[string]any{{"payment_method_id": env.cash.ID.String(), "amount": 750}},
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID     string `json:"id"`
		Number string `json:"number"`
		Status string `json:"status"`
		Total  string `json:"total"`
	}
	decodeJSON(t, saleResp, &sale)
	assert.Equal(t, "T-001-000001", sale.Number)
	assert.Equal(t, model.SaleCompleted, sale.Status)
	assert.Equal(t, 17, env.stockOf(t, product.ID))

	// The drawer advanced by the cash tendered.
	activeResp := do(t, env.server, "GET", "/v1/shifts/active", nil, env.token)
	require.Equal(t, http.StatusOK, activeResp.StatusCode)
	var active struct {
		ExpectedCash string `json:"expected_cash"`
	}
	decodeJSON(t, activeResp, &active)
	assert.Equal(t, "1750", active.ExpectedCash)

	listResp := do(t, env.server, "GET", "/v1/sales?status=all", nil, env.token)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	var list struct {
		Total int64 `json:"total"`
	}
	decodeJSON(t, listResp, &list)
	assert.Equal(t, int64(1), list.Total)
}

func TestE2E_CancelSaleRestoresStock(t *testing.T) {
	env := setupTestEnv(t)
	product := env.seedProduct(t, "Agua Mineral", "AGU-001", "100", 50)
	env.openShift(t, 500)

	saleResp := do(t, env.server, "POST", "/v1/sales",
		jsonBody(t, map[string]any{
			"items":    []map[string]any{{"product_id": product.ID.String(), "quantity": 2}},
			"payments": []map[string]any{{"payment_method_id": env.cash.ID.String(), "amount": 200}},
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID string `json:"id"`
	}
	decodeJSON(t, saleResp, &sale)
	require.Equal(t, 48, env.stockOf(t, product.ID))

	cancelResp := do(t, env.server, "DELETE", fmt.Sprintf("/v1/sales/%s", sale.ID),
		jsonBody(t, map[string]any{"reason": "cashier picked the wrong ticket"}),
		env.token,
	)
	require.Equal(t, http.StatusNoContent, cancelResp.StatusCode)
	cancelResp.Body.Close()

	assert.Equal(t, 50, env.stockOf(t, product.ID))

	getResp := do(t, env.server, "GET", fmt.Sprintf("/v1/sales/%s", sale.ID), nil, env.token)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	var got struct {
		Status string `json:"status"`
	}
	decodeJSON(t, getResp, &got)
	assert.Equal(t, model.SaleCancelled, got.Status)
}

func TestE2E_CreditNoteFullRefund(t *testing.T) {
	env := setupTestEnv(t)
	product := env.seedProduct(t, "Detergente", "DET-001", "2000", 10)
	env.openShift(t, 5000)

	saleResp := do(t, env.server, "POST", "/v1/sales",
		jsonBody(t, map[string]any{
			"items":    []map[string]any{{"product_id": product.ID.String(), "quantity": 1}},
			"payments": []map[string]any{{"payment_method_id": env.cash.ID.String(), "amount": 2000}},
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	var sale struct {
		ID string `json:"id"`
	}
	decodeJSON(t, saleResp, &sale)

	ncResp := do(t, env.server, "POST", fmt.Sprintf("/v1/sales/%s/credit-note", sale.ID),
		jsonBody(t, map[string]any{"reason": "defective unit"}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, ncResp.StatusCode)
	var nc struct {
		Number       string `json:"number"`
		IsCreditNote bool   `json:"is_credit_note"`
		Total        string `json:"total"`
	}
	decodeJSON(t, ncResp, &nc)
	assert.Equal(t, "NC-001-000002", nc.Number)
	assert.True(t, nc.IsCreditNote)
	assert.Equal(t, "-2000", nc.Total)

	assert.Equal(t, 10, env.stockOf(t, product.ID))

	getResp := do(t, env.server, "GET", fmt.Sprintf("/v1/sales/%s", sale.ID), nil, env.token)
	var got struct {
		Status string `json:"status"`
	}
	decodeJSON(t, getResp, &got)
	assert.Equal(t, model.SaleRefunded, got.Status)

	// A second credit note for the same sale is rejected.
	dupResp := do(t, env.server, "POST", fmt.Sprintf("/v1/sales/%s/credit-note", sale.ID),
		jsonBody(t, map[string]any{"reason": "double dip"}),
		env.token,
	)
	assert.Equal(t, http.StatusConflict, dupResp.StatusCode)
	dupResp.Body.Close()
}

func TestE2E_AccountSaleAndCustomerPayment(t *testing.T) {
	env := setupTestEnv(t)
	product := env.seedProduct(t, "Aceite 1l", "ACE-001", "3000", 10)
	env.openShift(t, 1000)

	customer := model.Customer{
		ID:           uuid.New(),
		Name:         "Perez SRL",
		CreditLimit:  decimal.NewFromInt(10000),
		BlockOnLimit: true,
		Active:       true,
	}
	require.NoError(t, env.db.Create(&customer).Error)

	saleResp := do(t, env.server, "POST", "/v1/sales",
		jsonBody(t, map[string]any{
			"customer_id": customer.ID.String(),
			"items":       []map[string]any{{"product_id": product.ID.String(), "quantity": 1}},
			"payments":    []map[string]any{{"payment_method_id": env.account.ID.String(), "amount": 3000}},
		}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, saleResp.StatusCode)
	saleResp.Body.Close()

	balanceResp := do(t, env.server, "GET", fmt.Sprintf("/v1/customers/%s/balance", customer.ID), nil, env.token)
	require.Equal(t, http.StatusOK, balanceResp.StatusCode)
	var balance struct {
		CurrentBalance string `json:"current_balance"`
	}
	decodeJSON(t, balanceResp, &balance)
	assert.Equal(t, "3000", balance.CurrentBalance)

	payResp := do(t, env.server, "POST", fmt.Sprintf("/v1/customers/%s/payments", customer.ID),
		jsonBody(t, map[string]any{"amount": 1200}),
		env.token,
	)
	require.Equal(t, http.StatusCreated, payResp.StatusCode)
	var pay struct {
		PreviousBalance string `json:"previous_balance"`
		NewBalance      string `json:"new_balance"`
	}
	decodeJSON(t, payResp, &pay)
	assert.Equal(t, "3000", pay.PreviousBalance)
	assert.Equal(t, "1800", pay.NewBalance)

	movsResp := do(t, env.server, "GET", fmt.Sprintf("/v1/customers/%s/movements", customer.ID), nil, env.token)
	require.Equal(t, http.StatusOK, movsResp.StatusCode)
	var movs []struct {
		Type string `json:"type"`
	}
	decodeJSON(t, movsResp, &movs)
	require.Len(t, movs, 2)
	assert.Equal(t, model.AccountDebit, movs[0].Type)
	assert.Equal(t, model.AccountCredit, movs[1].Type)
}

func TestE2E_NoOpenShiftRejectsSale(t *testing.T) {
	env := setupTestEnv(t)
	product := env.seedProduct(t, "Pan", "PAN-001", "100", 10)

	saleResp := do(t, env.server, "POST", "/v1/sales",
		jsonBody(t, map[string]any{
			"items":    []map[string]any{{"product_id": product.ID.String(), "quantity": 1}},
			"payments": []map[string]any{{"payment_method_id": env.cash.ID.String(), "amount": 100}},
		}),
		env.token,
	)
	require.Equal(t, http.StatusBadRequest, saleResp.StatusCode)
	var apiErr struct {
		Code string `json:"code"`
	}
	decodeJSON(t, saleResp, &apiErr)
	assert.Equal(t, "NO_OPEN_SHIFT", apiErr.Code)
	assert.Equal(t, 10, env.stockOf(t, product.ID))
}

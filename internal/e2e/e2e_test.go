package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/copperhq/copper/internal/clock"
	"github.com/copperhq/copper/internal/config"
	"github.com/copperhq/copper/internal/generator"
	"github.com/copperhq/copper/internal/observability"
	"github.com/copperhq/copper/internal/query"
	"github.com/copperhq/copper/internal/ratelimit"
	"github.com/copperhq/copper/internal/server"
	"github.com/copperhq/copper/internal/warehouse"
)

type testEnv struct {
	app       *fx.App
	server    *server.Server
	warehouse *warehouse.Manager
	baseURL   string
	httpSrv   *httptest.Server
}

var env *testEnv

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	setDefaultEnv()

	var err error
	env, err = startEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to start test environment:", err)
		os.Exit(1)
	}

	code := m.Run()
	env.shutdown()
	os.Exit(code)
}

func startEnv() (*testEnv, error) {
	var (
		srv *server.Server
		mgr *warehouse.Manager
	)

	app := fx.New(
		config.Module,
		observability.Module,
		clock.Module,
		generator.Module,
		warehouse.Module,
		query.Module,
		ratelimit.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv, &mgr),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, err
	}

	httpSrv := httptest.NewServer(srv.Engine())

	return &testEnv{
		app:       app,
		server:    srv,
		warehouse: mgr,
		baseURL:   httpSrv.URL,
		httpSrv:   httpSrv,
	}, nil
}

func (e *testEnv) shutdown() {
	if e == nil {
		return
	}
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.app != nil {
		_ = e.app.Stop(context.Background())
	}
}

func setDefaultEnv() {
	setEnvIfEmpty("ENVIRONMENT", "test")
	setEnvIfEmpty("LOG_LEVEL", "error")
	setEnvIfEmpty("OTEL_ENABLED", "false")
	setEnvIfEmpty("WAREHOUSE_PATH", "file:copper_e2e?mode=memory&cache=shared")
	setEnvIfEmpty("GENERATION_IDNS", "10")
	setEnvIfEmpty("GENERATION_CONTRACTS", "30")
	setEnvIfEmpty("GENERATION_TRANSACTIONS", "600")
}

func setEnvIfEmpty(key, value string) {
	if strings.TrimSpace(os.Getenv(key)) != "" {
		return
	}
	_ = os.Setenv(key, value)
}

// resetWarehouse rebuilds the canonical dataset so tests never see a
// previous test's regeneration.
func resetWarehouse(t *testing.T) {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/admin/regenerate", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reset warehouse failed: %d: %s", resp.StatusCode, string(body))
	}
}

func doJSON(t *testing.T, method, reqURL string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode json: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, reqURL, body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, data
}

func getData(t *testing.T, path string, out any) {
	t.Helper()
	resp, body := doJSON(t, http.MethodGet, env.baseURL+path, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d: %s", path, resp.StatusCode, string(body))
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("GET %s: decode envelope: %v", path, err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		t.Fatalf("GET %s: decode data: %v", path, err)
	}
}

func TestE2E_HealthCheck(t *testing.T) {
	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	var health struct {
		Status         string `json:"status"`
		WarehouseReady bool   `json:"warehouse_ready"`
	}
	if err := json.Unmarshal(body, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" || !health.WarehouseReady {
		t.Fatalf("expected ok/ready, got %+v", health)
	}
}

func TestE2E_TenantCatalogAndUnknownTenant(t *testing.T) {
	var tenants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	getData(t, "/api/v1/tenants", &tenants)
	if len(tenants) != 2 {
		t.Fatalf("expected 2 built-in tenants, got %d", len(tenants))
	}

	resp, body := doJSON(t, http.MethodGet, env.baseURL+"/api/v1/tenants/ghost_corp/portfolio", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tenant, got %d: %s", resp.StatusCode, string(body))
	}
	var errBody struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if errBody.Error.Type != "not_found" {
		t.Fatalf("expected not_found, got %q", errBody.Error.Type)
	}
}

func TestE2E_PortfolioMatchesWarehouse(t *testing.T) {
	resetWarehouse(t)

	var rows []struct {
		DeviceCategory string  `json:"device_category"`
		TotalRevenue   float64 `json:"total_revenue"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/portfolio", &rows)
	if len(rows) == 0 {
		t.Fatal("expected portfolio rows")
	}

	var served float64
	for _, row := range rows {
		served += row.TotalRevenue
	}

	var direct float64
	if err := env.warehouse.DB().Raw(
		"SELECT SUM(invoice_price * quantity) FROM transactions WHERE tenant_id = ?", "meddevice_corp",
	).Scan(&direct).Error; err != nil {
		t.Fatalf("query warehouse: %v", err)
	}
	if math.Abs(served-direct) > 1.0 {
		t.Fatalf("portfolio revenue %f diverges from warehouse %f", served, direct)
	}
}

func TestE2E_FilterNarrowsPortfolio(t *testing.T) {
	resetWarehouse(t)

	var all []struct {
		DeviceCategory string `json:"device_category"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/portfolio", &all)
	if len(all) == 0 {
		t.Fatal("expected portfolio rows")
	}
	category := all[0].DeviceCategory

	var filtered []struct {
		DeviceCategory string `json:"device_category"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/portfolio?device_category="+strings.ReplaceAll(category, " ", "+"), &filtered)
	if len(filtered) == 0 {
		t.Fatal("expected filtered rows")
	}
	for _, row := range filtered {
		if row.DeviceCategory != category {
			t.Fatalf("expected only %q rows, got %q", category, row.DeviceCategory)
		}
	}
	if len(filtered) >= len(all) {
		t.Fatalf("filter did not narrow: %d -> %d", len(all), len(filtered))
	}
}

func TestE2E_CustomerDrillDown(t *testing.T) {
	resetWarehouse(t)

	var dims struct {
		IDNs []struct {
			IDNID   string `json:"idn_id"`
			IDNName string `json:"idn_name"`
		} `json:"idns"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/dimensions", &dims)
	if len(dims.IDNs) == 0 {
		t.Fatal("expected idn options in dimensions")
	}

	var customers []struct {
		IDNID string `json:"idn_id"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/customers", &customers)
	if len(customers) == 0 {
		t.Fatal("expected customer rows")
	}

	var contracts []struct {
		ContractID string `json:"contract_id"`
		RiskStatus string `json:"risk_status"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/customers/"+customers[0].IDNID+"/contracts", &contracts)
	if len(contracts) == 0 {
		t.Fatalf("expected contracts for %s", customers[0].IDNID)
	}
	for _, contract := range contracts {
		if contract.RiskStatus == "" {
			t.Fatalf("contract %s has no risk status", contract.ContractID)
		}
	}
}

func TestE2E_TransactionsRespectLimit(t *testing.T) {
	resetWarehouse(t)

	var rows []struct {
		TransactionID   string `json:"transaction_id"`
		TransactionDate string `json:"transaction_date"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/transactions?limit=5", &rows)
	if len(rows) != 5 {
		t.Fatalf("expected 5 transactions, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].TransactionDate > rows[i-1].TransactionDate {
			t.Fatalf("transactions not ordered newest first at index %d", i)
		}
	}

	getData(t, "/api/v1/tenants/meddevice_corp/transactions", &rows)
	if len(rows) == 0 || len(rows) > 50 {
		t.Fatalf("expected default limit of 50, got %d rows", len(rows))
	}
}

func TestE2E_KPIsConsistentWithPortfolio(t *testing.T) {
	resetWarehouse(t)

	var kpis struct {
		TotalRevenue    float64 `json:"total_revenue"`
		ActiveContracts int64   `json:"active_contracts"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/kpis", &kpis)
	if kpis.TotalRevenue <= 0 {
		t.Fatalf("expected positive revenue, got %f", kpis.TotalRevenue)
	}

	var rows []struct {
		TotalRevenue float64 `json:"total_revenue"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/portfolio", &rows)
	var summed float64
	for _, row := range rows {
		summed += row.TotalRevenue
	}
	if math.Abs(kpis.TotalRevenue-summed) > 1.0 {
		t.Fatalf("kpi revenue %f diverges from portfolio %f", kpis.TotalRevenue, summed)
	}
}

func TestE2E_RegenerateIsDeterministic(t *testing.T) {
	rebuild := func() map[string]any {
		resp, body := doJSON(t, http.MethodPost, env.baseURL+"/api/v1/admin/regenerate",
			map[string]any{"seed": 123, "idns": 6, "contracts": 15, "transactions": 200})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("regenerate failed: %d: %s", resp.StatusCode, string(body))
		}
		var result struct {
			Data struct {
				RunID   string `json:"run_id"`
				Trigger string `json:"trigger"`
				Seed    int64  `json:"seed"`
				Tables  struct {
					Transactions int `json:"transactions"`
				} `json:"tables"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatalf("decode rebuild result: %v", err)
		}
		if result.Data.Trigger != "admin" || result.Data.Seed != 123 {
			t.Fatalf("unexpected rebuild provenance: %+v", result.Data)
		}
		if result.Data.Tables.Transactions != 200 {
			t.Fatalf("expected 200 transactions, got %d", result.Data.Tables.Transactions)
		}

		var kpis map[string]any
		getData(t, "/api/v1/tenants/meddevice_corp/kpis", &kpis)
		return kpis
	}

	first := rebuild()
	second := rebuild()
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Fatalf("same seed produced different kpis: %v vs %v", first, second)
	}

	resetWarehouse(t)
	var restored struct {
		TotalRevenue float64 `json:"total_revenue"`
	}
	getData(t, "/api/v1/tenants/meddevice_corp/kpis", &restored)
	if restored.TotalRevenue == 0 {
		t.Fatal("expected canonical dataset restored")
	}
}

func TestE2E_TenantIsolation(t *testing.T) {
	resetWarehouse(t)

	type kpiSet struct {
		TotalRevenue float64 `json:"total_revenue"`
	}
	var first, second kpiSet
	getData(t, "/api/v1/tenants/meddevice_corp/kpis", &first)
	getData(t, "/api/v1/tenants/orthotech_inc/kpis", &second)

	var total float64
	if err := env.warehouse.DB().Raw(
		"SELECT SUM(invoice_price * quantity) FROM transactions",
	).Scan(&total).Error; err != nil {
		t.Fatalf("query warehouse: %v", err)
	}
	if math.Abs(first.TotalRevenue+second.TotalRevenue-total) > 1.0 {
		t.Fatalf("tenant kpis %f + %f do not partition the warehouse total %f",
			first.TotalRevenue, second.TotalRevenue, total)
	}
}

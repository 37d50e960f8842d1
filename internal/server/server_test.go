package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/aman-zulfiqar/raydium-monitor/internal/flags"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/monitor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	"github.com/aman-zulfiqar/raydium-monitor/internal/token"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

type fakeCache struct {
	pools   []*models.PoolReport
	swaps   []*models.SwapReport
	pingErr error
	limits  []int64
}

func (f *fakeCache) AddRecentPool(context.Context, *models.PoolReport) error { return nil }
func (f *fakeCache) AddRecentSwap(context.Context, *models.SwapReport) error { return nil }

func (f *fakeCache) GetRecentPools(_ context.Context, limit int64) ([]*models.PoolReport, error) {
	f.limits = append(f.limits, limit)
	return f.pools, nil
}

func (f *fakeCache) GetRecentSwaps(_ context.Context, limit int64) ([]*models.SwapReport, error) {
	f.limits = append(f.limits, limit)
	return f.swaps, nil
}

func (f *fakeCache) Ping(context.Context) error { return f.pingErr }
func (f *fakeCache) Close() error               { return nil }

type fakePipeline struct {
	pool     *models.PoolReport
	swap     *models.SwapReport
	err      error
	token    *models.TokenInfo
	tokenErr error
}

func (f *fakePipeline) ProcessPoolCreation(context.Context, string) (*models.PoolReport, error) {
	return f.pool, f.err
}

func (f *fakePipeline) AnalyzeSwap(context.Context, string) (*models.SwapReport, error) {
	return f.swap, f.err
}

func (f *fakePipeline) Resolve(context.Context, string) (*models.TokenInfo, error) {
	return f.token, f.tokenErr
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestServer(t *testing.T, cache *fakeCache, p *fakePipeline, apiKey string) *Server {
	t.Helper()
	h := &Handlers{Pools: p, Swaps: p, Tokens: p, DevMode: true, Logger: quietLogger()}
	if cache != nil {
		h.Cache = cache
	}
	srv, err := NewServer(ServerDeps{
		Handlers: h,
		Config:   ServerConfig{Addr: ":0", APIKey: apiKey, AnalysisRate: 100, AnalysisBurst: 100},
	})
	require.NoError(t, err)
	return srv
}

func do(t *testing.T, srv *Server, path string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	return send(t, srv, http.MethodGet, path, "", headers...)
}

func send(t *testing.T, srv *Server, method, path, reqBody string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(reqBody))
	if reqBody != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var body map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func testSignature() string {
	var sig solana.Signature
	for i := range sig {
		sig[i] = byte(i + 1)
	}
	return sig.String()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeCache{pingErr: errors.New("down")}, &fakePipeline{}, "")

	rec, body := do(t, srv, "/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "down", body["cache"])
	assert.Equal(t, "disabled", body["store"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRecentPools(t *testing.T) {
	cache := &fakeCache{pools: []*models.PoolReport{{Signature: "a"}, {Signature: "b"}}}
	srv := newTestServer(t, cache, &fakePipeline{}, "")

	rec, body := do(t, srv, "/v1/pools/recent?limit=2")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["count"])
	assert.Equal(t, []int64{2}, cache.limits)

	for _, bad := range []string{"0", "abc", "101"} {
		rec, body = do(t, srv, "/v1/pools/recent?limit="+bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Equal(t, "invalid limit", body["error"])
	}
}

func TestRecentSwaps_DefaultLimitAndNoCache(t *testing.T) {
	cache := &fakeCache{swaps: []*models.SwapReport{{Signature: "s", Direction: models.SwapBuy}}}
	srv := newTestServer(t, cache, &fakePipeline{}, "")

	rec, _ := do(t, srv, "/v1/swaps/recent")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{20}, cache.limits)

	noCache := newTestServer(t, nil, &fakePipeline{}, "")
	rec, _ = do(t, noCache, "/v1/swaps/recent")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestToken(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	p := &fakePipeline{token: &models.TokenInfo{Mint: mint, Symbol: "RAY", Decimals: 6}}
	srv := newTestServer(t, nil, p, "")

	rec, body := do(t, srv, "/v1/tokens/"+mint)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "RAY", body["symbol"])

	rec, _ = do(t, srv, "/v1/tokens/not-a-mint")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p.token, p.tokenErr = nil, fmt.Errorf("%w: %s", token.ErrMetadataNotFound, mint)
	rec, _ = do(t, srv, "/v1/tokens/"+mint)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	p.tokenErr = errors.New("connection refused")
	rec, _ = do(t, srv, "/v1/tokens/"+mint)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPool(t *testing.T) {
	sig := testSignature()
	p := &fakePipeline{pool: &models.PoolReport{Signature: sig, Pool: "amm"}}
	srv := newTestServer(t, nil, p, "")

	rec, body := do(t, srv, "/v1/pools/"+sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "amm", body["pool"])

	rec, _ = do(t, srv, "/v1/pools/short")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisErrors(t *testing.T) {
	sig := testSignature()

	tests := []struct {
		name string
		err  error
		code int
	}{
		{"not found", &monitor.StageError{Stage: monitor.StageFetch, Signature: sig, Err: rpc.ErrTransactionNotFound}, http.StatusNotFound},
		{"malformed", &monitor.StageError{Stage: monitor.StageDecode, Signature: sig, Err: decoder.ErrMalformedPayload}, http.StatusUnprocessableEntity},
		{"layout", &monitor.StageError{Stage: monitor.StageLocate, Signature: sig, Err: monitor.ErrAccountLayout}, http.StatusUnprocessableEntity},
		{"transport", &monitor.StageError{Stage: monitor.StageFetch, Signature: sig, Err: errors.New("timeout")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, nil, &fakePipeline{err: tt.err}, "")
			rec, body := do(t, srv, "/v1/swaps/"+sig)
			assert.Equal(t, tt.code, rec.Code)
			details, ok := body["details"].(map[string]any)
			require.True(t, ok, "dev mode includes details")
			assert.Equal(t, tt.err.(*monitor.StageError).Stage, details["stage"])
		})
	}
}

func TestSwap_Unrecognized(t *testing.T) {
	srv := newTestServer(t, nil, &fakePipeline{}, "")
	rec, body := do(t, srv, "/v1/swaps/"+testSignature())
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "swap not recognized", body["error"])
}

func TestAPIKey(t *testing.T) {
	srv := newTestServer(t, nil, &fakePipeline{}, testAPIKey)

	rec, body := do(t, srv, "/v1/health")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing key")
	assert.EqualValues(t, http.StatusBadRequest, body["code"])

	rec, _ = do(t, srv, "/v1/health", "X-API-Key", "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, srv, "/v1/health", "X-API-Key", testAPIKey)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	p := &fakePipeline{pool: &models.PoolReport{}}
	h := &Handlers{Pools: p, Swaps: p, Tokens: p, Logger: quietLogger()}
	srv, err := NewServer(ServerDeps{Handlers: h, Config: ServerConfig{AnalysisRate: 0.001, AnalysisBurst: 1}})
	require.NoError(t, err)

	rec, _ := do(t, srv, "/v1/pools/"+testSignature())
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, srv, "/v1/pools/"+testSignature())
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, srv, "/v1/health")
	assert.Equal(t, http.StatusOK, rec.Code, "health is not rate limited")
}

func TestNotFound(t *testing.T) {
	srv := newTestServer(t, nil, &fakePipeline{}, "")
	rec, body := do(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", body["error"])
}

func TestNewServer_RequiresHandlers(t *testing.T) {
	_, err := NewServer(ServerDeps{})
	assert.Error(t, err)

	_, err = NewServer(ServerDeps{Handlers: &Handlers{}})
	assert.Error(t, err)
}

type memorySwitches map[string]*flags.Switch

func (m memorySwitches) Set(_ context.Context, key string, enabled bool) (*flags.Switch, error) {
	sw := &flags.Switch{Key: key, Enabled: enabled, UpdatedAt: time.Now().UTC()}
	m[key] = sw
	return sw, nil
}

func (m memorySwitches) Get(_ context.Context, key string) (*flags.Switch, error) {
	sw, ok := m[key]
	if !ok {
		return nil, flags.ErrNotFound
	}
	return sw, nil
}

func (m memorySwitches) List(context.Context) ([]*flags.Switch, error) {
	out := make([]*flags.Switch, 0, len(m))
	for _, sw := range m {
		out = append(out, sw)
	}
	return out, nil
}

func (m memorySwitches) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestSwitches(t *testing.T) {
	p := &fakePipeline{}
	h := &Handlers{Pools: p, Swaps: p, Tokens: p, Switches: memorySwitches{}, Logger: quietLogger()}
	srv, err := NewServer(ServerDeps{Handlers: h})
	require.NoError(t, err)

	rec, _ := do(t, srv, "/v1/switches/sink.store")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := send(t, srv, http.MethodPut, "/v1/switches/sink.store", `{"enabled":false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["enabled"])

	rec, _ = send(t, srv, http.MethodPut, "/v1/switches/sink.store", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "enabled is required")

	rec, _ = send(t, srv, http.MethodPut, "/v1/switches/BAD", `{"enabled":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, srv, "/v1/switches")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])

	rec, _ = send(t, srv, http.MethodDelete, "/v1/switches/sink.store", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, srv, "/v1/switches/sink.store")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwitches_NotRegisteredWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil, &fakePipeline{}, "")
	rec, _ := do(t, srv, "/v1/switches")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSwap_DeliversReport(t *testing.T) {
	sig := testSignature()
	p := &fakePipeline{swap: &models.SwapReport{Signature: sig, Direction: models.SwapSell}}

	var delivered []*models.SwapReport
	h := &Handlers{
		Pools:  p,
		Swaps:  p,
		Tokens: p,
		OnSwap: func(ctx context.Context, swap *models.SwapReport) {
			assert.NoError(t, ctx.Err())
			delivered = append(delivered, swap)
		},
		Logger: quietLogger(),
	}
	srv, err := NewServer(ServerDeps{Handlers: h})
	require.NoError(t, err)

	rec, _ := do(t, srv, "/v1/swaps/"+sig)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, delivered, 1)
	assert.Equal(t, sig, delivered[0].Signature)

	// unrecognized and failed analyses deliver nothing
	p.swap = nil
	rec, _ = do(t, srv, "/v1/swaps/"+sig)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	p.err = &monitor.StageError{Stage: monitor.StageFetch, Signature: sig, Err: rpc.ErrTransactionNotFound}
	rec, _ = do(t, srv, "/v1/swaps/"+sig)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Len(t, delivered, 1)
}

func TestHandlers_DefaultLoggerNotStored(t *testing.T) {
	h := &Handlers{}
	assert.NotNil(t, h.logger())
	assert.Nil(t, h.Logger)
}

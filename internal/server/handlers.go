package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aman-zulfiqar/raydium-monitor/internal/constants"
	"github.com/aman-zulfiqar/raydium-monitor/internal/decoder"
	"github.com/aman-zulfiqar/raydium-monitor/internal/extractor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/flags"
	"github.com/aman-zulfiqar/raydium-monitor/internal/models"
	"github.com/aman-zulfiqar/raydium-monitor/internal/monitor"
	"github.com/aman-zulfiqar/raydium-monitor/internal/rpc"
	"github.com/aman-zulfiqar/raydium-monitor/internal/storage"
	"github.com/aman-zulfiqar/raydium-monitor/internal/token"
	"github.com/gagliardetto/solana-go"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// PoolProcessor builds a pool report on demand
type PoolProcessor interface {
	ProcessPoolCreation(ctx context.Context, signature string) (*models.PoolReport, error)
}

// SwapAnalyzer builds a swap report on demand
type SwapAnalyzer interface {
	AnalyzeSwap(ctx context.Context, signature string) (*models.SwapReport, error)
}

// TokenResolver resolves mint metadata
type TokenResolver interface {
	Resolve(ctx context.Context, mint string) (*models.TokenInfo, error)
}

// SwitchStore persists runtime switches
type SwitchStore interface {
	Set(ctx context.Context, key string, enabled bool) (*flags.Switch, error)
	Get(ctx context.Context, key string) (*flags.Switch, error)
	List(ctx context.Context) ([]*flags.Switch, error)
	Delete(ctx context.Context, key string) error
}

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Cache    storage.ReportCache // Redis-backed recent reports (optional)
	Store    storage.ReportStore // ClickHouse persistence (optional, health only)
	Pools    PoolProcessor
	Swaps    SwapAnalyzer
	Tokens   TokenResolver
	Switches SwitchStore // Redis-backed runtime switches (optional)
	// OnSwap receives every swap report built on demand (optional)
	OnSwap   storage.SwapHandler
	DevMode  bool           // Enable detailed error responses in development
	Logger   *logrus.Logger // Structured logger
	Analysis time.Duration  // Timeout of on-demand analysis, default 30s
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// logger never writes to h; handlers run concurrently
func (h *Handlers) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}

func (h *Handlers) analysisTimeout() time.Duration {
	if h.Analysis <= 0 {
		return 30 * time.Second
	}
	return h.Analysis
}

// Health reports liveness and the reachability of optional backends
func (h *Handlers) Health(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{OK: true, Cache: "disabled", Store: "disabled"}
	if h.Cache != nil {
		resp.Cache = status(h.Cache.Ping(ctx))
	}
	if h.Store != nil {
		resp.Store = status(h.Store.Ping(ctx))
	}
	return c.JSON(http.StatusOK, resp)
}

func status(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}

// parseLimit reads the limit query parameter (default: 20, range: 1-MaxRecentReports)
func parseLimit(raw string) (int64, error) {
	if raw == "" {
		return 20, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if n < 1 || n > constants.MaxRecentReports {
		return 0, fmt.Errorf("min 1 max %d", constants.MaxRecentReports)
	}
	return int64(n), nil
}

// RecentPools returns the most recently created pools, newest first
func (h *Handlers) RecentPools(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentPools(ctx, limit)
	if err != nil {
		h.logger().WithError(err).Error("failed to get recent pools")
		return h.err(c, http.StatusInternalServerError, "failed to get pools", nil)
	}
	return c.JSON(http.StatusOK, ItemsResponse{Items: items, Count: len(items)})
}

// RecentSwaps returns the most recently analyzed swaps, newest first
func (h *Handlers) RecentSwaps(c echo.Context) error {
	if h.Cache == nil {
		return h.err(c, http.StatusServiceUnavailable, "cache is not configured", nil)
	}
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return h.err(c, http.StatusBadRequest, "invalid limit", map[string]any{"limit": err.Error()})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Cache.GetRecentSwaps(ctx, limit)
	if err != nil {
		h.logger().WithError(err).Error("failed to get recent swaps")
		return h.err(c, http.StatusInternalServerError, "failed to get swaps", nil)
	}
	return c.JSON(http.StatusOK, ItemsResponse{Items: items, Count: len(items)})
}

// Token resolves the metadata and decimals of a mint
func (h *Handlers) Token(c echo.Context) error {
	mint := strings.TrimSpace(c.Param("mint"))
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid mint", map[string]any{"mint": "must be a base58 public key"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	info, err := h.Tokens.Resolve(ctx, mint)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrMetadataNotFound), errors.Is(err, token.ErrMintDecode):
			return h.err(c, http.StatusNotFound, "token not found", map[string]any{"err": err.Error()})
		case errors.Is(err, token.ErrInvalidAddress):
			return h.err(c, http.StatusBadRequest, "invalid mint", nil)
		default:
			h.logger().WithError(err).WithField("mint", mint).Error("token resolve failed")
			return h.err(c, http.StatusBadGateway, "rpc error", map[string]any{"err": err.Error()})
		}
	}
	return c.JSON(http.StatusOK, info)
}

func validSignature(sig string) bool {
	_, err := solana.SignatureFromBase58(sig)
	return err == nil
}

// Pool analyzes an initialize2 transaction on demand
func (h *Handlers) Pool(c echo.Context) error {
	sig := strings.TrimSpace(c.Param("signature"))
	if !validSignature(sig) {
		return h.err(c, http.StatusBadRequest, "invalid signature", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.analysisTimeout())
	defer cancel()

	report, err := h.Pools.ProcessPoolCreation(ctx, sig)
	if err != nil {
		return h.analysisErr(c, sig, err)
	}
	return c.JSON(http.StatusOK, report)
}

// Swap analyzes a swapBaseIn transaction on demand
func (h *Handlers) Swap(c echo.Context) error {
	sig := strings.TrimSpace(c.Param("signature"))
	if !validSignature(sig) {
		return h.err(c, http.StatusBadRequest, "invalid signature", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), h.analysisTimeout())
	defer cancel()

	report, err := h.Swaps.AnalyzeSwap(ctx, sig)
	if err != nil {
		return h.analysisErr(c, sig, err)
	}
	if report == nil {
		return h.err(c, http.StatusUnprocessableEntity, "swap not recognized", nil)
	}
	if h.OnSwap != nil {
		// the request may be cancelled once the response is written
		h.OnSwap(context.WithoutCancel(ctx), report)
	}
	return c.JSON(http.StatusOK, report)
}

// analysisErr maps pipeline failures to status codes
func (h *Handlers) analysisErr(c echo.Context, sig string, err error) error {
	details := map[string]any{"err": err.Error()}
	var se *monitor.StageError
	if errors.As(err, &se) {
		details["stage"] = se.Stage
	}

	switch {
	case errors.Is(err, rpc.ErrTransactionNotFound):
		return h.err(c, http.StatusNotFound, "transaction not found", details)
	case errors.Is(err, decoder.ErrMalformedPayload),
		errors.Is(err, extractor.ErrNoMatchingInstruction),
		errors.Is(err, extractor.ErrProgramIDNotFound),
		errors.Is(err, extractor.ErrUnsupportedTransactionFormat),
		errors.Is(err, monitor.ErrAccountLayout),
		errors.Is(err, token.ErrMetadataNotFound),
		errors.Is(err, token.ErrMintDecode):
		return h.err(c, http.StatusUnprocessableEntity, "transaction could not be analyzed", details)
	default:
		h.logger().WithError(err).WithField("signature", sig).Error("analysis failed")
		return h.err(c, http.StatusBadGateway, "analysis failed", details)
	}
}

// SwitchesList returns every stored switch
func (h *Handlers) SwitchesList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Switches.List(ctx)
	if err != nil {
		h.logger().WithError(err).Error("failed to list switches")
		return h.err(c, http.StatusInternalServerError, "failed to list switches", nil)
	}
	return c.JSON(http.StatusOK, ItemsResponse{Items: items, Count: len(items)})
}

// SwitchGet returns one switch, 404 when it was never set
func (h *Handlers) SwitchGet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Switches.Get(ctx, key)
	if err != nil {
		if errors.Is(err, flags.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "switch not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchSet creates or updates a switch
func (h *Handlers) SwitchSet(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}

	var req SwitchRequest
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return h.err(c, http.StatusBadRequest, "invalid request body", map[string]any{"enabled": "required boolean"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Switches.Set(ctx, key, *req.Enabled)
	if err != nil {
		h.logger().WithError(err).WithField("key", key).Error("failed to set switch")
		return h.err(c, http.StatusInternalServerError, "failed to set switch", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// SwitchDelete removes a switch so its default applies again
func (h *Handlers) SwitchDelete(c echo.Context) error {
	key := c.Param("key")
	if err := flags.ValidateKey(key); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid key", nil)
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Switches.Delete(ctx, key); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete switch", nil)
	}
	return c.NoContent(http.StatusNoContent)
}

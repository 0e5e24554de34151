package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"StockPulse/internal/analysis"
	"StockPulse/internal/metrics"
	"StockPulse/internal/model"
	"StockPulse/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*model.CycleReport, error)
}

// Handler serves the stock endpoints.
type Handler struct {
	runner  CycleRunner
	store   store.Store
	metrics *metrics.Metrics
	logger  *zerolog.Logger
}

// NewHandler creates a Handler.
func NewHandler(runner CycleRunner, st store.Store, m *metrics.Metrics, logger *zerolog.Logger) *Handler {
	return &Handler{runner: runner, store: st, metrics: m, logger: logger}
}

// RegisterRoutes binds the handlers to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.Health)

	stocks := router.Group("/stocks")
	{
		stocks.POST("/fetch-historical", h.FetchHistorical)
		stocks.GET("", h.ListStocks)
		stocks.GET("/:ticker/history", h.History)
		stocks.GET("/:ticker/analysis", h.Analysis)
	}

	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Welcome to the StockPulse API!"})
}

// FetchHistorical runs an ingestion cycle. Individual symbol failures still answer
// 201; only a cycle that could not run is a server error.
func (h *Handler) FetchHistorical(c *gin.Context) {
	report, err := h.runner.RunCycle(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("ingestion cycle failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("error fetching stock data: %v", err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Historical stock data fetched and stored successfully.",
		"cycle_id": report.ID,
		"symbols":  report.Symbols,
	})
}

func (h *Handler) ListStocks(c *gin.Context) {
	symbols, err := h.store.AllSymbols(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list stocks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(symbols) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stocks found."})
		return
	}

	c.JSON(http.StatusOK, symbols)
}

// History returns every stored bar of a ticker in ascending date order.
func (h *Handler) History(c *gin.Context) {
	ticker := strings.ToUpper(c.Param("ticker"))
	ctx := c.Request.Context()

	sym, err := h.store.FindSymbol(ctx, ticker)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", ticker).Msg("find stock")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if sym == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Stock '%s' not found.", ticker)})
		return
	}

	bars, err := h.store.AllBars(ctx, sym.ID, true)
	if err != nil {
		h.logger.Error().Err(err).Str("symbol", ticker).Msg("load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Stock '%s' not found.", ticker)})
		return
	}

	out := make([]barResponse, len(bars))
	for i := range bars {
		out[i] = newBarResponse(&bars[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) Analysis(c *gin.Context) {
	ticker := strings.ToUpper(c.Param("ticker"))

	a, err := analysis.ForSymbol(c.Request.Context(), h.store, ticker)
	var insufficient *model.InsufficientDataError
	switch {
	case errors.Is(err, model.ErrSymbolNotFound), errors.As(err, &insufficient):
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("Stock '%s' not found or insufficient data for analysis.", ticker),
		})
		return
	case err != nil:
		h.logger.Error().Err(err).Str("symbol", ticker).Msg("analyze stock")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.AnalysisServed()
	c.JSON(http.StatusOK, a)
}

// barResponse renders a stored bar with a calendar date.
type barResponse struct {
	Date        string   `json:"date"`
	Open        float64  `json:"open"`
	High        float64  `json:"high"`
	Low         float64  `json:"low"`
	Close       float64  `json:"close"`
	Volume      int64    `json:"volume"`
	SMA20       *float64 `json:"sma_20"`
	DailyReturn *float64 `json:"daily_return"`
}

func newBarResponse(b *model.DailyBar) barResponse {
	return barResponse{
		Date:        b.Date.Format(model.DateLayout),
		Open:        b.Open,
		High:        b.High,
		Low:         b.Low,
		Close:       b.Close,
		Volume:      b.Volume,
		SMA20:       b.SMA20,
		DailyReturn: b.DailyReturn,
	}
}

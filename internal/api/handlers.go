package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/trade"
	"github.com/leonid6372/upbit-paper/internal/traderrs"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	_codesQuery = "codes"
	_pageQuery  = "page"
	_codeParam  = "code"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type tickersResponse struct {
	Status    ticker.Status             `json:"status"`
	UpdatedAt *time.Time                `json:"updated_at,omitempty"`
	Tickers   map[string]*domain.Ticker `json:"tickers"`
}

type orderRequest struct {
	Side     string           `json:"side" binding:"required"`
	Code     string           `json:"code" binding:"required"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    *decimal.Decimal `json:"price"`
}

type operationsResponse struct {
	Page       int64               `json:"page"`
	Pages      int64               `json:"pages"`
	Operations []*domain.Operation `json:"operations"`
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        s.registry.Cache().Status(),
		"subscribers":   s.registry.Subscribers(),
		"effective_set": len(s.registry.EffectiveSet()),
		"updated_at":    updatedAt(s.registry.Cache()),
	})
}

func (s *Server) getMarkets(c *gin.Context) {
	markets, err := s.catalog.List(c.Request.Context())
	if err != nil {
		log.Warn("failed to list markets", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse{Error: "upstream_unavailable", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, markets)
}

// getTickers reads the cache only: it never subscribes.
func (s *Server) getTickers(c *gin.Context) {
	cache := s.registry.Cache()

	res := tickersResponse{
		Status:    cache.Status(),
		UpdatedAt: updatedAt(cache),
	}

	if codes := splitCodes(c.Query(_codesQuery)); len(codes) > 0 {
		res.Tickers = cache.Select(codes)
	} else {
		all := cache.All()
		res.Tickers = make(map[string]*domain.Ticker, len(all))
		for _, t := range all {
			res.Tickers[t.Code] = t
		}
	}

	c.JSON(http.StatusOK, res)
}

func (s *Server) getTicker(c *gin.Context) {
	code := strings.ToUpper(c.Param(_codeParam))

	t, ok := s.registry.Cache().Latest(code)
	if !ok {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not_found", Message: "no snapshot for " + code})
		return
	}

	c.JSON(http.StatusOK, t)
}

func (s *Server) getPortfolio(c *gin.Context) {
	c.JSON(http.StatusOK, s.trade.Portfolio())
}

func (s *Server) getOperations(c *gin.Context) {
	page := int64(1)
	if raw := c.Query(_pageQuery); raw != "" {
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || p < 1 {
			c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_page"})
			return
		}

		page = p
	}

	operations, pages, err := s.trade.History(c.Request.Context(), page)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal"})
		return
	}

	c.JSON(http.StatusOK, operationsResponse{Page: page, Pages: pages, Operations: operations})
}

func (s *Server) placeOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid_request", Message: err.Error()})
		return
	}

	receipt, err := s.trade.Execute(c.Request.Context(), trade.Order{
		Side:     req.Side,
		Code:     req.Code,
		Quantity: req.Quantity,
		Price:    req.Price,
	})

	if err != nil {
		name := traderrs.Name(err)
		if name == "" {
			_ = c.Error(err)
			name = "internal"
		}

		c.JSON(orderErrorStatus(err), errorResponse{Error: name, Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

func orderErrorStatus(err error) int {
	switch {
	case errors.Is(err, traderrs.ErrPriceUnavailable),
		errors.Is(err, traderrs.ErrMarketsUnavailable),
		errors.Is(err, traderrs.ErrJournalUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, traderrs.ErrEmptyCode),
		errors.Is(err, traderrs.ErrUnknownSide),
		errors.Is(err, traderrs.ErrUnknownMarket):
		return http.StatusBadRequest
	case traderrs.Name(err) != "":
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func splitCodes(raw string) []string {
	var codes []string
	for _, code := range strings.Split(raw, ",") {
		if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
			codes = append(codes, code)
		}
	}

	return codes
}

func updatedAt(cache *ticker.Cache) *time.Time {
	at := cache.UpdatedAt()
	if at.IsZero() {
		return nil
	}

	return &at
}

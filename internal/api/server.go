// Package api exposes the ticker cache, the paper ledger and a live price stream over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leonid6372/upbit-paper/internal/catalog"
	"github.com/leonid6372/upbit-paper/internal/common/config"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/trade"
	"github.com/leonid6372/upbit-paper/pkg/errs"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
)

type Server struct {
	registry *ticker.Registry
	trade    *trade.Service
	catalog  *catalog.Catalog

	http *http.Server
}

func New(cfg *config.HTTP, registry *ticker.Registry, trade *trade.Service, catalog *catalog.Catalog) *Server {
	s := &Server{
		registry: registry,
		trade:    trade,
		catalog:  catalog,
	}

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.InitRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s
}

func (s *Server) InitRoutes() http.Handler {
	r := gin.New()

	r.Use(recoveryMiddleware(), accessLogMiddleware())

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/markets", s.getMarkets)
		v1.GET("/tickers", s.getTickers)
		v1.GET("/tickers/:code", s.getTicker)
		v1.GET("/portfolio", s.getPortfolio)
		v1.GET("/operations", s.getOperations)
		v1.POST("/orders", s.placeOrder)
		v1.GET("/stream", s.stream)
	}

	return r
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info("http server listening", zap.String("addr", s.http.Addr))

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errs.NewStack(err)
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

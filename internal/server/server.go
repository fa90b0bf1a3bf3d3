// Package server exposes the HTTP API for billing, top ups and config
// lifecycle actions.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	"github.com/smallbiznis/netbill/internal/config"
	"github.com/smallbiznis/netbill/internal/configaction"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	billingSvc      billingdomain.Service
	resellerSvc     resellerdomain.Service
	configActionSvc *configaction.Service
	ledgerRepo      ledgerdomain.Repository
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	BillingSvc      billingdomain.Service
	ResellerSvc     resellerdomain.Service
	ConfigActionSvc *configaction.Service
	LedgerRepo      ledgerdomain.Repository
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		billingSvc:      p.BillingSvc,
		resellerSvc:     p.ResellerSvc,
		configActionSvc: p.ConfigActionSvc,
		ledgerRepo:      p.LedgerRepo,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	v1.POST("/billing/charges", s.ChargeReseller)

	v1.POST("/resellers", s.CreateReseller)
	v1.GET("/resellers/:id", s.GetReseller)
	v1.POST("/resellers/:id/topup", s.TopUpReseller)
	v1.GET("/resellers/:id/snapshots", s.ListSnapshots)
	v1.GET("/resellers/:id/ledger", s.ListLedger)

	v1.GET("/configs/:id", s.GetConfig)
	v1.POST("/configs/:id/reset-traffic", s.ResetConfigTraffic)
	v1.DELETE("/configs/:id", s.DeleteConfig)
}

func run(lc fx.Lifecycle, cfg config.Config, srv *Server) {
	httpSrv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	})
}

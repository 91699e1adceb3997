package httphandlers

import (
	"net/url"

	"net/http/pprof"

	"github.com/gin-gonic/gin"

	"github.com/Ghravitee/dex-court-sub000/internal/agreementmanager"
	"github.com/Ghravitee/dex-court-sub000/internal/config"
	"github.com/Ghravitee/dex-court-sub000/internal/interfaces"
	"github.com/Ghravitee/dex-court-sub000/internal/orchestrator"
)

type HTTPHandler struct {
	manager       *agreementmanager.AgreementManager
	orchestrator  *orchestrator.Orchestrator
	config        *config.Config
	derivedConfig *config.DerivedConfig
	publicUrl     *url.URL
	log           interfaces.ILogger
}

func NewHTTPHandler(manager *agreementmanager.AgreementManager, orch *orchestrator.Orchestrator, cfg *config.Config, derivedCfg *config.DerivedConfig, publicUrl *url.URL, log interfaces.ILogger) *gin.Engine {
	handl := &HTTPHandler{
		manager:       manager,
		orchestrator:  orch,
		config:        cfg,
		derivedConfig: derivedCfg,
		publicUrl:     publicUrl,
		log:           log,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.GET("/healthcheck", handl.HealthCheck)
	r.GET("/config", handl.GetConfig)

	r.GET("/agreements", handl.GetAgreements)
	r.GET("/agreements/:ID", handl.GetAgreement)
	r.GET("/agreements/:ID/check", handl.CheckAction)
	r.GET("/agreements/:ID/flows/:action", handl.GetFlow)

	r.POST("/agreements", handl.CreateAgreement)
	r.POST("/agreements/:ID/watch", handl.WatchAgreement)
	r.DELETE("/agreements/:ID/watch", handl.UnwatchAgreement)
	r.POST("/agreements/:ID/actions/:action", handl.ExecuteAction)
	r.POST("/agreements/:ID/flows/:action/reset", handl.ResetFlow)

	r.GET("/transactions/:hash", handl.GetTransaction)

	r.Any("/debug/pprof/*action", gin.WrapF(pprof.Index))

	err := r.SetTrustedProxies(nil)
	if err != nil {
		panic(err)
	}

	return r
}

func (h *HTTPHandler) HealthCheck(ctx *gin.Context) {
	ctx.JSON(200, gin.H{
		"status":  "healthy",
		"version": config.BuildVersion,
	})
}

func (h *HTTPHandler) GetConfig(ctx *gin.Context) {
	ctx.JSON(200, ConfigResponse{
		Version:       config.BuildVersion,
		DerivedConfig: h.derivedConfig,
		Config:        h.config.GetSanitized(),
	})
}

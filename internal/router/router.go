package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-timetable-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Timetable *handler.TimetableHandler
	Generator *handler.TimetableGeneratorHandler
	Metrics   *handler.MetricsHandler
}

// Options carries the ambient settings of the engine.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
}

// New builds the gin engine with middleware, probes, docs and the timetable API.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(opts.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(apiPrefix(opts.APIPrefix))
	api.GET("/system/metrics", h.Metrics.Snapshot)

	timetable := api.Group("/timetable")
	timetable.GET("/periods", h.Timetable.Periods)
	timetable.POST("/validate", h.Timetable.Validate)
	timetable.POST("/entries", h.Timetable.Create)
	timetable.GET("/entries/:id", h.Timetable.Get)
	timetable.PATCH("/entries/:id/schedule", h.Timetable.Reschedule)
	timetable.PATCH("/entries/:id/assignment", h.Timetable.Reassign)
	timetable.DELETE("/entries/:id", h.Timetable.Cancel)

	sections := api.Group("/sections/:id/timetable")
	sections.GET("", h.Timetable.SectionTimetable)
	sections.GET("/export", h.Timetable.ExportSection)
	sections.POST("/generate", h.Generator.Generate)

	teachers := api.Group("/teachers/:id/timetable")
	teachers.GET("", h.Timetable.TeacherTimetable)
	teachers.GET("/export", h.Timetable.ExportTeacher)

	return r
}

func apiPrefix(raw string) string {
	prefix := "/" + strings.Trim(strings.TrimSpace(raw), "/")
	if prefix == "/" {
		return "/api/v1"
	}
	return prefix
}

package api

import (
	"net/http"

	"github.com/arencloud/s3lister/internal/config"
	"github.com/arencloud/s3lister/internal/logging"
	"github.com/arencloud/s3lister/internal/middleware"
	"github.com/arencloud/s3lister/internal/version"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

// Router wires the HTTP surface. buckets is the pre-configured storage client;
// store may be nil, in which case traces live only in memory.
func Router(cfg *config.Config, logger logging.Logger, buckets BucketLister, store TraceStore) *gin.Engine {
	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	m := newMetrics()
	tr := &tracer{ring: newTraceRing(cfg.TraceBuffer), store: store, logger: logger}
	z := logging.Zap(logger)

	r := gin.New()
	r.Use(
		requestid.New(),
		middleware.RequestLogger(z, "/health", "/metrics"),
		tr.middleware(),
		m.middleware(),
		middleware.Recoverer(z),
	)

	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(m.handler()))

	api := r.Group("/api")
	api.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "s3lister", "version": version.Version})
	})

	v1 := api.Group("/v1")
	registerBuckets(v1, &bucketsHandler{lister: buckets, metrics: m, logger: logger})
	v1.GET("/traces", tr.recent)
	v1.GET("/traces/:id", tr.get)
	lvl := gin.WrapH(logging.LevelHandler())
	v1.GET("/logs/level", lvl)
	v1.PUT("/logs/level", lvl)

	r.NoRoute(func(c *gin.Context) { respondError(c, http.StatusNotFound, "", "not found") })
	return r
}

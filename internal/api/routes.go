package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/tcg-signals/internal/api/handlers"
	"github.com/codyseavey/tcg-signals/internal/metrics"
	"github.com/codyseavey/tcg-signals/internal/services"
)

// Dependencies are the services the HTTP surface reads from. Identities may
// be nil when the identity store cannot list its bindings.
type Dependencies struct {
	Resolver    services.Resolver
	History     services.HistoryFetcher
	Evaluator   handlers.Evaluator
	Worker      *services.DatasetWorker
	Identities  services.IdentityLister
	SetHint     string
	CORSOrigins []string
}

func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestMetrics())

	config := cors.DefaultConfig()
	config.AllowOrigins = deps.CORSOrigins
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	cardHandler := handlers.NewCardHandler(deps.Resolver, deps.Evaluator, deps.SetHint)
	priceHandler := handlers.NewPriceHandler(deps.History)
	runHandler := handlers.NewRunHandler(deps.Worker)

	api := router.Group("/api")
	{
		cards := api.Group("/cards")
		{
			cards.GET("/resolve", cardHandler.ResolveCard)
			cards.POST("/evaluate", cardHandler.EvaluateCard)
			cards.GET("/:id/prices", priceHandler.GetCardPrices)
		}

		runs := api.Group("/runs")
		{
			runs.POST("", runHandler.CreateRun)
			runs.GET("", runHandler.ListRuns)
			runs.GET("/status", runHandler.GetStatus)
			runs.GET("/:id", runHandler.GetRun)
			runs.GET("/:id/rows", runHandler.GetRunRows)
		}

		if deps.Identities != nil {
			identityHandler := handlers.NewIdentityHandler(deps.Identities)
			api.GET("/identities", identityHandler.ListIdentities)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}

// requestMetrics records request counts and latency, labeled by route
// template rather than raw path.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

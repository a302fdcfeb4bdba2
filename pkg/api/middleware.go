package api

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/chenBenjamin97/repcounter/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

func panicRecovery(metricsManager *metrics.Manager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("http: panic serving %s: %v\n%s", ctx.Request.URL.Path, r, debug.Stack())
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				ctx.AbortWithStatus(http.StatusInternalServerError)
			}
		}()

		// handler call
		ctx.Next()
	}
}

func requestMetrics(metricsManager *metrics.Manager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func(begin time.Time) {
			metricsManager.HistRequestDuration.Observe(time.Since(begin).Seconds())
			metricsManager.CounterRequests.With(
				prometheus.Labels{
					"method": ctx.Request.Method,
					"status": strconv.Itoa(ctx.Writer.Status()),
				},
			).Inc()
		}(time.Now())

		ctx.Next()
	}
}

func logRequest() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		begin := time.Now()
		ctx.Next()
		log.Tracef(" ====> request [%s] path: [%s] status [%d] took [%s] [UA: %s]",
			ctx.Request.Method, ctx.Request.URL.Path, ctx.Writer.Status(), time.Since(begin), ctx.Request.UserAgent())
	}
}

package echoapi

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "podium", Name: "http_requests_total", Help: "Processed HTTP requests",
	}, []string{"method", "path", "status"})
	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "podium", Name: "http_request_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}

func metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			timer := prometheus.NewTimer(requestDuration)
			err := next(ctx)
			timer.ObserveDuration()

			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			// ctx.Path() is the route pattern, not the raw URL; keeps cardinality bounded
			requestsTotal.WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(status)).Inc()
			return err
		}
	}
}

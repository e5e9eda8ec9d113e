package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests no route matched, keeping raw paths out of label values.
const unmatchedRoute = "unmatched"

// MetricsMiddleware records settings API traffic per route template.
type MetricsMiddleware struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewMetricsMiddleware(requests *prometheus.CounterVec, latency *prometheus.HistogramVec) *MetricsMiddleware {
	return &MetricsMiddleware{requests: requests, latency: latency}
}

// CollectHTTPMetrics must run outside the logging middleware so that handler
// errors have already been rendered into the response status.
func (m *MetricsMiddleware) CollectHTTPMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			route := c.Path()
			if route == "" {
				route = unmatchedRoute
			}
			method := c.Request().Method
			m.requests.WithLabelValues(method, route, statusCode(c, err)).Inc()
			m.latency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// statusCode reports the status of a response that is still uncommitted when
// an error is on its way to echo's error handler.
func statusCode(c echo.Context, err error) string {
	if err != nil && !c.Response().Committed {
		if he, ok := err.(*echo.HTTPError); ok {
			return strconv.Itoa(he.Code)
		}
		return strconv.Itoa(http.StatusInternalServerError)
	}
	return strconv.Itoa(c.Response().Status)
}

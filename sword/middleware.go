package sword

import (
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "staging_http_requests_total",
			Help: "HTTP requests served by the SWORD endpoints",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "staging_http_request_duration_seconds",
			Help:    "HTTP request duration for the SWORD endpoints",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

var uuidSegment = regexp.MustCompile(`(?i)/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

// normalizePath collapses UUID path segments so metric cardinality
// stays bounded no matter how many providers and deposits exist.
func normalizePath(path string) string {
	return uuidSegment.ReplaceAllString(path, "/{uuid}")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// RequestLogger logs one line per request and feeds the Prometheus
// counters.
func RequestLogger(log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			elapsed := time.Since(start)
			path := normalizePath(r.URL.Path)
			log.Info("%s %s %d %s", r.Method, r.URL.Path, recorder.status, elapsed)
			httpRequestsTotal.WithLabelValues(r.Method, path,
				strconv.Itoa(recorder.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(elapsed.Seconds())
		})
	}
}

// OperatorAuth guards operator-only endpoints with a bearer token:
// an HS256 JWT signed with the secret named by secretEnv. Providers
// never see these endpoints; they are for network staff poking at
// deposit statements and access lists.
func OperatorAuth(secretEnv string, log *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := os.Getenv(secretEnv)
			if secret == "" {
				log.Error("operator endpoint hit but %s is not set", secretEnv)
				http.Error(w, "operator access is not configured", http.StatusForbidden)
				return
			}
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
				}
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				log.Warning("rejected operator token: %v", err)
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

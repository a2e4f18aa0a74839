package middleware

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/flexprice/billing/internal/cache"
	ierr "github.com/flexprice/billing/internal/errors"
	"github.com/flexprice/billing/internal/idempotency"
	"github.com/flexprice/billing/internal/logger"
	"github.com/flexprice/billing/internal/types"
	"github.com/gin-gonic/gin"
)

const (
	HeaderIdempotencyKey      = "Idempotency-Key"
	HeaderIdempotencyReplayed = "Idempotent-Replayed"
)

// idempotentResponse is what the cache holds per key. A nil body marks a request in flight.
type idempotentResponse struct {
	fingerprint string
	status      int
	contentType string
	body        []byte
}

type recordingWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored response of a POST that repeats an Idempotency-Key
// within ttl. Reusing a key with a different body is rejected. Only successful responses are
// stored, so a failed request can be retried with the same key.
func IdempotencyMiddleware(store cache.Cache, ttl time.Duration, log *logger.Logger) gin.HandlerFunc {
	gen := idempotency.NewGenerator()

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if err := types.ValidateTenantContext(ctx); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Idempotent requests must be scoped to a tenant").
				Mark(ierr.ErrValidation))
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Failed to read request body").
				Mark(ierr.ErrValidation))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		tenantID, route := types.GetTenantID(ctx), c.FullPath()
		cacheKey := cache.GenerateKey(cache.PrefixIdempotency, gen.RequestKey(tenantID, route, key))
		fingerprint := gen.Fingerprint(tenantID, route, body)

		span := cache.StartCacheSpan(ctx, "idempotency", "add", map[string]interface{}{"route": route})
		added := store.Add(ctx, cacheKey, &idempotentResponse{fingerprint: fingerprint}, ttl)
		cache.FinishSpan(span, added)

		if !added {
			stored, ok := store.Get(ctx, cacheKey)
			if !ok {
				// expired between Add and Get
				c.Error(inFlight(key))
				c.Abort()
				return
			}
			resp := stored.(*idempotentResponse)
			switch {
			case resp.fingerprint != fingerprint:
				c.Error(ierr.NewError("idempotency key reused").
					WithHintf("Idempotency key %s was already used with a different request", key).
					Mark(ierr.ErrConflict))
				c.Abort()
			case resp.body == nil:
				c.Error(inFlight(key))
				c.Abort()
			default:
				log.WithContext(ctx).Debugw("replaying idempotent response", "route", route, "status", resp.status)
				c.Header(HeaderIdempotencyReplayed, "true")
				c.Data(resp.status, resp.contentType, resp.body)
				c.Abort()
			}
			return
		}

		writer := &recordingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		status := writer.Status()
		if len(c.Errors) > 0 || status < 200 || status >= 300 {
			store.Delete(ctx, cacheKey)
			return
		}

		store.Set(ctx, cacheKey, &idempotentResponse{
			fingerprint: fingerprint,
			status:      status,
			contentType: writer.Header().Get("Content-Type"),
			body:        writer.buf.Bytes(),
		}, ttl)
	}
}

func inFlight(key string) error {
	return ierr.NewError("idempotent request in progress").
		WithHintf("A request with idempotency key %s is still being processed, please retry", key).
		Mark(ierr.ErrContention)
}

package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "moneypro/pkg/errors"
	"moneypro/pkg/logger"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	idempotencyMaxBody  = 1 << 20
	idempotencyPoll     = 100 * time.Millisecond
	idempotencyMaxPolls = 50
)

// IdempotencyMiddleware replays the first response for a repeated Idempotency-Key.
type IdempotencyMiddleware struct {
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewIdempotencyMiddleware constructs an IdempotencyMiddleware with a TTL.
func NewIdempotencyMiddleware(cache *redis.Client, ttl time.Duration, log logger.Logger) *IdempotencyMiddleware {
	return &IdempotencyMiddleware{
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// Require blocks duplicate POST/PUT/PATCH/DELETE requests with the same key.
// Keys are scoped to the authenticated user, so two users cannot collide.
func (m *IdempotencyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut &&
			r.Method != http.MethodPatch && r.Method != http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(idempotencyHeader)
		if key == "" {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key header required")
			return
		}
		if len(key) > 255 {
			jsonError(w, http.StatusBadRequest, "Idempotency-Key too long")
			return
		}

		scope := "anonymous"
		if userID, ok := UserIDFromContext(r.Context()); ok {
			scope = userID.String()
		}
		dataKey := fmt.Sprintf("idempotency:data:%s:%s:%s", scope, r.Method, key)
		lockKey := fmt.Sprintf("idempotency:lock:%s:%s:%s", scope, r.Method, key)

		if m.replayCached(w, r, dataKey) {
			m.logger.Debug("Idempotent replay", map[string]interface{}{"key": key, "path": r.URL.Path})
			return
		}

		requestID, _ := RequestIDFromContext(r.Context())
		if requestID == "" {
			requestID = "unknown"
		}

		ok, err := m.cache.SetNX(r.Context(), lockKey, requestID, m.ttl).Result()
		if err != nil {
			m.logger.Error("Idempotency lock failed", map[string]interface{}{
				"error": err.Error(),
				"key":   key,
			})
			jsonError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
			return
		}

		if !ok {
			// Another request holds the key; wait briefly for its response.
			if m.waitForResponse(w, r, dataKey) {
				return
			}
			m.logger.Warn("Idempotency key still in flight", map[string]interface{}{
				"key":        key,
				"request_id": requestID,
			})
			jsonError(w, http.StatusConflict, apperrors.ErrDuplicateRequest.Error())
			return
		}
		defer m.cache.Del(context.WithoutCancel(r.Context()), lockKey)

		cw := newCaptureWriter(w, idempotencyMaxBody)
		next.ServeHTTP(cw, r)

		if err := m.cacheResponse(r, dataKey, cw); err != nil {
			m.logger.Warn("Failed to cache idempotent response", map[string]interface{}{
				"error": err.Error(),
				"key":   key,
			})
		}
	})
}

func (m *IdempotencyMiddleware) waitForResponse(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	ticker := time.NewTicker(idempotencyPoll)
	defer ticker.Stop()

	for i := 0; i < idempotencyMaxPolls; i++ {
		select {
		case <-r.Context().Done():
			return false
		case <-ticker.C:
		}
		if m.replayCached(w, r, dataKey) {
			return true
		}
	}
	return false
}

type capturedResponse struct {
	Status  int               `json:"status"`
	Body    []byte            `json:"body"`
	Headers map[string]string `json:"headers"`
}

func (m *IdempotencyMiddleware) replayCached(w http.ResponseWriter, r *http.Request, dataKey string) bool {
	payload, err := m.cache.Get(r.Context(), dataKey).Bytes()
	if err != nil {
		return false
	}

	var cr capturedResponse
	if err := json.Unmarshal(payload, &cr); err != nil {
		return false
	}

	for k, v := range cr.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(cr.Status)
	_, _ = w.Write(cr.Body)
	return true
}

func (m *IdempotencyMiddleware) cacheResponse(r *http.Request, dataKey string, cw *captureWriter) error {
	// Server errors and truncated bodies are not replayed.
	if cw.status == 0 || cw.status >= http.StatusInternalServerError || cw.truncated {
		return nil
	}

	payload, err := json.Marshal(capturedResponse{
		Status:  cw.status,
		Body:    cw.buf,
		Headers: cw.headers,
	})
	if err != nil {
		return err
	}

	return m.cache.Set(context.WithoutCancel(r.Context()), dataKey, payload, m.ttl).Err()
}

type captureWriter struct {
	http.ResponseWriter
	buf       []byte
	limit     int
	status    int
	truncated bool
	headers   map[string]string
}

func newCaptureWriter(w http.ResponseWriter, limit int) *captureWriter {
	return &captureWriter{
		ResponseWriter: w,
		buf:            make([]byte, 0, 1024),
		limit:          limit,
		headers:        make(map[string]string),
	}
}

func (w *captureWriter) WriteHeader(statusCode int) {
	if w.status != 0 {
		return
	}
	w.status = statusCode
	for k, v := range w.ResponseWriter.Header() {
		if len(v) > 0 && k != "X-Request-Id" {
			w.headers[k] = v[0]
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *captureWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	if space := w.limit - len(w.buf); space >= len(p) {
		w.buf = append(w.buf, p...)
	} else {
		w.truncated = true
	}
	return w.ResponseWriter.Write(p)
}

package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"moneypro/internal/domain"
	"moneypro/pkg/logger"
)

// AuditRepository defines the interface for persisting audit logs.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// AuditMiddleware records admin requests. Writes happen off the request path.
type AuditMiddleware struct {
	repo    AuditRepository
	logger  logger.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewAuditMiddleware creates a new AuditMiddleware.
func NewAuditMiddleware(repo AuditRepository, log logger.Logger) *AuditMiddleware {
	return &AuditMiddleware{repo: repo, logger: log, timeout: 5 * time.Second}
}

// Audit records the request in the audit log once the handler returns.
func (m *AuditMiddleware) Audit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)

		entry := &domain.AuditLog{
			ID:         uuid.New(),
			Action:     r.Method + " " + routePath(r),
			ResourceID: mux.Vars(r)["id"],
			IPAddress:  clientIP(r),
			UserAgent:  r.UserAgent(),
			StatusCode: wrapped.statusCode,
			CreatedAt:  time.Now().UTC(),
		}
		if id, ok := UserIDFromContext(r.Context()); ok {
			entry.UserID = &id
		}
		entry.RequestID, _ = RequestIDFromContext(r.Context())

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			defer cancel()

			if err := m.repo.Create(ctx, entry); err != nil {
				m.logger.Error("Failed to create audit log", map[string]interface{}{
					"error":      err.Error(),
					"action":     entry.Action,
					"request_id": entry.RequestID,
				})
			}
		}()
	})
}

// Wait blocks until pending audit writes finish. Called during shutdown.
func (m *AuditMiddleware) Wait() {
	m.wg.Wait()
}

func routePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return r.URL.Path
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

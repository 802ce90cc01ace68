package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"wholesale/internal/domain"
	"wholesale/internal/metrics"
	"wholesale/internal/service"
)

const (
	sessionCookie = "wholesale_session"
	profileKey    = "profile"
)

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"method":     c.Request.Method,
			"url":        c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
			"remoteAddr": c.ClientIP(),
			"userAgent":  c.Request.UserAgent(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Info("request served")
	}
}

func requestMetrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.Request(route, strconv.Itoa(c.Writer.Status()))
	}
}

// sessionToken: заголовок Authorization: Bearer имеет приоритет над cookie
func sessionToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if v, err := c.Cookie(sessionCookie); err == nil {
		return v
	}
	return ""
}

// requireSession пускает только с действующей сессией; отклонённый или
// заблокированный профиль получает 403 и теряет cookie
func (s *Server) requireSession(c *gin.Context) {
	p, err := s.auth.Authenticate(c, sessionToken(c))
	if err != nil {
		if errors.Is(err, service.ErrUnauthenticated) || errors.Is(err, service.ErrForbidden) {
			c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
		}
		s.fail(c, err)
		return
	}
	c.Set(profileKey, p)
	c.Next()
}

func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := service.RequireRole(currentProfile(c), roles...); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func currentProfile(c *gin.Context) *domain.Profile {
	if v, ok := c.Get(profileKey); ok {
		if p, ok := v.(*domain.Profile); ok {
			return p
		}
	}
	return &domain.Profile{}
}

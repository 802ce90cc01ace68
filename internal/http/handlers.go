package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"wholesale/internal/domain"
	"wholesale/internal/media"
	"wholesale/internal/metrics"
	"wholesale/internal/notify"
	"wholesale/internal/repository"
	"wholesale/internal/service"
)

// Deps сервисы, которые обслуживает HTTP-слой
type Deps struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Products *service.ProductService
	Orders   *service.OrderService
	Riders   *notify.RiderChannel
	Media    *media.Store
	Metrics  *metrics.Metrics
}

type Server struct {
	engine   *gin.Engine
	auth     *service.AuthService
	profiles *service.ProfileService
	products *service.ProductService
	orders   *service.OrderService
	riders   *notify.RiderChannel
	media    *media.Store
	metrics  *metrics.Metrics
}

func NewServer(d Deps) *Server {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery(), requestMetrics(d.Metrics))
	s := &Server{
		engine:   r,
		auth:     d.Auth,
		profiles: d.Profiles,
		products: d.Products,
		orders:   d.Orders,
		riders:   d.Riders,
		media:    d.Media,
		metrics:  d.Metrics,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	if s.media != nil {
		s.engine.Static(media.URLPrefix, s.media.Dir())
	}

	v1 := s.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/signup", s.signUp)
		auth.POST("/signin", s.signIn)
		auth.POST("/signout", s.signOut)

		v1.GET("/catalog", s.catalog)

		session := v1.Group("", s.requireSession)
		session.GET("/me", s.getMe)
		session.PUT("/me", s.updateMe)
		session.GET("/orders/:id", s.getOrder)
		session.GET("/orders/:id/invoice.pdf", s.orderInvoice)

		customer := session.Group("", requireRole(domain.RoleCustomer))
		customer.POST("/orders", s.placeOrder)
		customer.GET("/orders", s.myOrders)

		delivery := session.Group("/delivery", requireRole(domain.RoleDelivery))
		delivery.GET("/orders", s.riderOrders)
		delivery.POST("/orders/:id/deliver", s.riderDeliver)
		delivery.GET("/alerts", s.riderAlerts)

		admin := session.Group("/admin", requireRole(domain.RoleAdmin))
		products := admin.Group("/products")
		products.POST("", s.createProduct)
		products.GET("", s.listProducts)
		products.GET("/:id", s.getProduct)
		products.PUT("/:id", s.updateProduct)
		products.DELETE("/:id", s.deleteProduct)
		products.POST("/:id/restock", s.restockProduct)
		products.GET("/:id/stock-logs", s.stockLogs)
		products.POST("/:id/image", s.uploadImage)

		orders := admin.Group("/orders")
		orders.GET("", s.dashboard)
		orders.GET("/export.xlsx", s.exportOrders)
		orders.POST("/:id/assign", s.assignRider)
		orders.POST("/:id/deliver", s.adminDeliver)
		orders.POST("/:id/cancel", s.cancelOrder)
		orders.POST("/:id/reject", s.rejectOrder)

		profiles := admin.Group("/profiles")
		profiles.GET("", s.listProfiles)
		profiles.PUT("/:id/status", s.setProfileStatus)
		profiles.PUT("/:id/role", s.setProfileRole)
	}
}

func parseID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// pathID разбирает :id; при ошибке ответ уже записан
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) fail(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, media.ErrUnsupportedType):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrDuplicate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wholesale/internal/domain"
	"wholesale/internal/repository"
)

const alertKeepAlive = 25 * time.Second

// @Summary Orders assigned to the rider
// @Tags delivery
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {array} domain.Order
// @Router /delivery/orders [get]
func (s *Server) riderOrders(c *gin.Context) {
	id := currentProfile(c).ID
	list, err := s.orders.ListOrders(c, repository.OrderFilter{
		DeliveryPersonID: &id,
		Status:           domain.OrderStatus(c.Query("status")),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Assignment alerts (server-sent events)
// @Description Emits "ready" once subscribed, then "assignment" with the fresh list of the rider's orders each time an order is shipped to them.
// @Tags delivery
// @Produce text/event-stream
// @Security BearerAuth
// @Success 200 {object} notify.Alert
// @Router /delivery/alerts [get]
func (s *Server) riderAlerts(c *gin.Context) {
	if s.riders == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "notifications are not configured"})
		return
	}
	rider := currentProfile(c).ID
	alerts, err := s.riders.Listen(c.Request.Context(), rider)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"rider_id": rider})
	c.Writer.Flush()

	ticker := time.NewTicker(alertKeepAlive)
	defer ticker.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case a, ok := <-alerts:
			if !ok {
				return false
			}
			c.SSEvent("assignment", a)
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
		}
		return true
	})
}

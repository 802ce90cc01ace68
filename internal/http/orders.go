package httpapi

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"wholesale/internal/domain"
	"wholesale/internal/export"
	"wholesale/internal/repository"
)

const (
	mimePDF  = "application/pdf"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type placeOrderReq struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int64     `json:"quantity"`
}

// @Summary Place order
// @Description Status is preorder when the product is out of stock, pending otherwise. Stock is not reserved.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body placeOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders [post]
func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.PlaceOrder(c, currentProfile(c).ID, req.ProductID, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Own orders, newest first
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) myOrders(c *gin.Context) {
	id := currentProfile(c).ID
	list, err := s.orders.ListOrders(c, repository.OrderFilter{UserID: &id})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// visibleOrder загружает заказ, если профиль вправе его видеть; чужой заказ — 404
func (s *Server) visibleOrder(c *gin.Context) (*domain.Order, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	o, err := s.orders.GetOrder(c, id)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	p := currentProfile(c)
	var visible bool
	switch p.Role {
	case domain.RoleAdmin:
		visible = true
	case domain.RoleDelivery:
		visible = o.AssignedTo(p.ID)
	default:
		visible = o.UserID == p.ID
	}
	if !visible {
		s.fail(c, repository.ErrNotFound)
		return nil, false
	}
	return o, true
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	o, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Order invoice
// @Tags orders
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {file} file
// @Failure 404 {object} map[string]string
// @Router /orders/{id}/invoice.pdf [get]
func (s *Server) orderInvoice(c *gin.Context) {
	o, ok := s.visibleOrder(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.InvoicePDF(&buf, *o); err != nil {
		s.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoice-`+o.ID.String()+`.pdf"`)
	c.Data(http.StatusOK, mimePDF, buf.Bytes())
}

// @Summary Admin dashboard
// @Description Sales and profit are computed over all orders; q filters only the returned list.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Product name contains"
// @Success 200 {object} service.Dashboard
// @Router /admin/orders [get]
func (s *Server) dashboard(c *gin.Context) {
	d, err := s.orders.Dashboard(c, c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary Export orders as a spreadsheet
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param q query string false "Product name contains"
// @Success 200 {file} file
// @Router /admin/orders/export.xlsx [get]
func (s *Server) exportOrders(c *gin.Context) {
	list, err := s.orders.ListOrders(c, repository.OrderFilter{ProductNameSubstring: c.Query("q")})
	if err != nil {
		s.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.OrdersXLSX(&buf, list); err != nil {
		s.fail(c, err)
		return
	}
	name := "orders-" + time.Now().UTC().Format("20060102") + ".xlsx"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, mimeXLSX, buf.Bytes())
}

type assignReq struct {
	RiderID uuid.UUID `json:"rider_id"`
}

// @Summary Assign rider
// @Description pending/preorder -> shipped. The rider is alerted over the change feed.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Param input body assignReq true "Rider"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/assign [post]
func (s *Server) assignRider(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	o, err := s.orders.AssignRider(c, id, req.RiderID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Mark delivered (admin)
// @Description Any non-terminal order. Fails with 409 when stock is insufficient.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/deliver [post]
func (s *Server) adminDeliver(c *gin.Context) {
	s.deliver(c)
}

// @Summary Mark delivered (rider)
// @Description Only a shipped order assigned to the calling rider. Fails with 409 when stock is insufficient.
// @Tags delivery
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /delivery/orders/{id}/deliver [post]
func (s *Server) riderDeliver(c *gin.Context) {
	s.deliver(c)
}

func (s *Server) deliver(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := s.orders.CompleteDelivery(c, id, *currentProfile(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Cancel order
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := s.orders.CancelOrder(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Reject order
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /admin/orders/{id}/reject [post]
func (s *Server) rejectOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := s.orders.RejectOrder(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

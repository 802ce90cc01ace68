package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"wholesale/internal/domain"
	"wholesale/internal/repository"
)

// @Summary Catalog with availability
// @Description quantity > 0 gives normal mode, otherwise preorder. Minimum order quantity applies in both.
// @Tags catalog
// @Produce json
// @Param q query string false "Name contains"
// @Param in_stock query bool false "Only products with stock"
// @Success 200 {array} service.CatalogItem
// @Router /catalog [get]
func (s *Server) catalog(c *gin.Context) {
	items, err := s.products.Catalog(c, productFilter(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func productFilter(c *gin.Context) repository.ProductFilter {
	return repository.ProductFilter{
		NameSubstring: c.Query("q"),
		InStockOnly:   c.Query("in_stock") == "true",
	}
}

type productReq struct {
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	Quantity    int64           `json:"quantity"`
	MinOrderQty int64           `json:"min_order_qty"`
}

// @Summary Create product
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Router /admin/products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Create(c, domain.Product{
		Name:        req.Name,
		Price:       req.Price,
		BuyPrice:    req.BuyPrice,
		Quantity:    req.Quantity,
		MinOrderQty: req.MinOrderQty,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary List products
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param q query string false "Name contains"
// @Param in_stock query bool false "Only products with stock"
// @Success 200 {array} domain.Product
// @Router /admin/products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c, productFilter(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary Get product by id
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Description Quantity in the body is ignored; stock changes only via restock and delivery.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := s.products.Update(c, domain.Product{
		ID:          id,
		Name:        req.Name,
		Price:       req.Price,
		BuyPrice:    req.BuyPrice,
		MinOrderQty: req.MinOrderQty,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags admin
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := s.products.Delete(c, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type restockReq struct {
	Quantity int64 `json:"quantity" binding:"required"`
}

// @Summary Add stock
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param input body restockReq true "Units to add"
// @Success 201 {object} domain.StockLog
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/products/{id}/restock [post]
func (s *Server) restockProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req restockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	entry, err := s.products.Restock(c, id, req.Quantity)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// @Summary Stock additions, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Success 200 {array} domain.StockLog
// @Failure 404 {object} map[string]string
// @Router /admin/products/{id}/stock-logs [get]
func (s *Server) stockLogs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	logs, err := s.products.StockLogs(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// @Summary Upload product image
// @Tags admin
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Product ID"
// @Param image formData file true "Image file"
// @Success 200 {object} domain.Product
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /admin/products/{id}/image [post]
func (s *Server) uploadImage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if s.media == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "media storage is not configured"})
		return
	}
	if _, err := s.products.GetByID(c, id); err != nil {
		s.fail(c, err)
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()
	url, err := s.media.Save(fh.Filename, f)
	if err != nil {
		s.fail(c, err)
		return
	}
	p, err := s.products.SetImage(c, id, url)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

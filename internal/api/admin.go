package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/models"
	"github.com/safar/go-storefront/internal/notify"
	"github.com/safar/go-storefront/internal/store"
	"github.com/safar/go-storefront/internal/validation"
)

const recentOrdersOnDashboard = 5

// validateProduct adds the checks the struct tags cannot express.
func validateProduct(in models.ProductInput) error {
	errs := validation.Errors{}
	if err := validation.Struct(in); err != nil {
		vErrs, ok := err.(validation.Errors)
		if !ok {
			return err
		}
		errs = vErrs
	}

	if in.Price.IsNegative() {
		errs["price"] = "must be 0 or more"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (h *handler) adminListProducts(c *gin.Context) {
	products, err := store.ListAllProducts(c.Request.Context(), h.db)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, products)
}

// adminGetProduct returns the product even when it is soft-deleted.
func (h *handler) adminGetProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := store.GetProduct(c.Request.Context(), h.db, id)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, product)
}

func (h *handler) adminCreateProduct(c *gin.Context) {
	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateProduct(in); err != nil {
		respondErr(c, err)
		return
	}

	product, err := store.CreateProduct(c.Request.Context(), h.db, in)
	if err != nil {
		notifier(c).Notify(notify.Failure("Error", "Failed to save product"))
		respondErr(c, err)
		return
	}

	requestLogger(c).Info("product created", "product_id", product.ID)
	notifier(c).Notify(notify.Success("Success", "Product created successfully"))
	respondJSON(c, http.StatusCreated, product)
}

func (h *handler) adminUpdateProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var in models.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validateProduct(in); err != nil {
		respondErr(c, err)
		return
	}

	product, err := store.UpdateProduct(c.Request.Context(), h.db, id, in)
	if err != nil {
		notifier(c).Notify(notify.Failure("Error", "Failed to save product"))
		respondErr(c, err)
		return
	}

	requestLogger(c).Info("product updated", "product_id", product.ID)
	notifier(c).Notify(notify.Success("Success", "Product updated successfully"))
	respondJSON(c, http.StatusOK, product)
}

func (h *handler) adminDeleteProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := store.SoftDeleteProduct(c.Request.Context(), h.db, id); err != nil {
		notifier(c).Notify(notify.Failure("Error", "Failed to delete product"))
		respondErr(c, err)
		return
	}

	requestLogger(c).Info("product deleted", "product_id", id)
	notifier(c).Notify(notify.Success("Success", "Product deleted successfully"))
	respondJSON(c, http.StatusOK, gin.H{"id": id, "is_deleted": true})
}

func (h *handler) adminListOrders(c *gin.Context) {
	page := queryInt(c, "page", 1, store.MaxPage)
	pageSize := queryInt(c, "page_size", 20, 100)

	result, err := store.ListAllOrders(c.Request.Context(), h.db, page, pageSize)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, result)
}

func (h *handler) adminStats(c *gin.Context) {
	stats, err := store.GetOrderStats(c.Request.Context(), h.db, recentOrdersOnDashboard)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, stats)
}

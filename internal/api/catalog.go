package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/store"
)

const defaultFeaturedLimit = 6

func (h *handler) listProducts(c *gin.Context) {
	products, err := store.ListActiveProducts(c.Request.Context(), h.db, store.ProductFilter{
		Category: c.Query("category"),
		Sort:     store.ParseProductSort(c.Query("sort")),
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, products)
}

func (h *handler) getProduct(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	product, err := store.GetActiveProduct(c.Request.Context(), h.db, id)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, product)
}

func (h *handler) listCategories(c *gin.Context) {
	categories, err := store.ListCategories(c.Request.Context(), h.db)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, categories)
}

func (h *handler) listFeatured(c *gin.Context) {
	limit := queryInt(c, "limit", defaultFeaturedLimit, 24)

	products, err := store.ListFeaturedProducts(c.Request.Context(), h.db, limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, products)
}

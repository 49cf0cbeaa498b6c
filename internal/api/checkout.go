package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/checkout"
)

func (h *handler) placeOrder(c *gin.Context) {
	var form checkout.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := c.Request.Context()

	// The snapshot read here is what the order is checked against.
	m := h.manager(c)
	if err := m.Refresh(ctx); err != nil {
		respondErr(c, err)
		return
	}

	receipt, err := h.checkout.Place(ctx, m, form, notifier(c))
	if h.metrics != nil {
		h.metrics.ObserveCheckout(err)
	}
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, receipt)
}

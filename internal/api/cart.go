package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/cart"
	"github.com/safar/go-storefront/internal/models"
)

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  *int  `json:"quantity"`
}

type updateCartRequest struct {
	Quantity int `json:"quantity"`
}

// manager binds a cart to the caller for the life of one request.
func (h *handler) manager(c *gin.Context) *cart.Manager {
	return cart.NewManager(h.carts, notifier(c), currentUserID(c))
}

func (h *handler) getCart(c *gin.Context) {
	m := h.manager(c)
	if err := m.Refresh(c.Request.Context()); err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, m.Snapshot())
}

func (h *handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	m := h.manager(c)
	err := m.Add(c.Request.Context(), models.Product{ID: req.ProductID}, quantity)
	h.observeCart("add", err)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, m.Snapshot())
}

func (h *handler) updateCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req updateCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	m := h.manager(c)
	ctx := c.Request.Context()

	if req.Quantity < 1 {
		// Ignored; the caller still gets the current cart back.
		if err := m.Refresh(ctx); err != nil {
			respondErr(c, err)
			return
		}
		respondJSON(c, http.StatusOK, m.Snapshot())
		return
	}

	err := m.UpdateQuantity(ctx, id, req.Quantity)
	h.observeCart("update", err)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, m.Snapshot())
}

func (h *handler) removeCartItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	m := h.manager(c)
	err := m.Remove(c.Request.Context(), id)
	h.observeCart("remove", err)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, m.Snapshot())
}

func (h *handler) clearCart(c *gin.Context) {
	m := h.manager(c)
	if m.UserID() == nil {
		respondErr(c, cart.ErrNotAuthenticated)
		return
	}

	err := m.Clear(c.Request.Context())
	h.observeCart("clear", err)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, m.Snapshot())
}

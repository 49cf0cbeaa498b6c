package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/safar/go-storefront/internal/store"
)

func (h *handler) listOrders(c *gin.Context) {
	userID := currentUserID(c)
	limit := queryInt(c, "limit", 10, 50)

	page, err := store.ListUserOrdersCursor(c.Request.Context(), h.db, *userID, c.Query("cursor"), limit)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, page)
}

func (h *handler) getOrder(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	order, err := store.GetUserOrder(c.Request.Context(), h.db, *currentUserID(c), id)
	if err != nil {
		respondErr(c, err)
		return
	}

	respondJSON(c, http.StatusOK, order)
}

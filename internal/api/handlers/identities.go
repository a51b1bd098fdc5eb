package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-signals/internal/services"
)

type IdentityHandler struct {
	lister services.IdentityLister
}

func NewIdentityHandler(lister services.IdentityLister) *IdentityHandler {
	return &IdentityHandler{
		lister: lister,
	}
}

// ListIdentities returns cached name -> catalog id bindings, ordered by name
func (h *IdentityHandler) ListIdentities(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return
	}

	identities, err := h.lister.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"identities": identities,
		"count":      len(identities),
	})
}

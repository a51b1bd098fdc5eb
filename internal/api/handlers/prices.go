package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-signals/internal/services"
)

type PriceHandler struct {
	history services.HistoryFetcher
}

func NewPriceHandler(history services.HistoryFetcher) *PriceHandler {
	return &PriceHandler{
		history: history,
	}
}

// GetCardPrices returns the Near Mint series for a catalog id, newest bucket
// first, with the features extracted from it. Pass buy_price to get a margin.
func (h *PriceHandler) GetCardPrices(c *gin.Context) {
	catalogID := c.Param("id")
	if catalogID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog id is required"})
		return
	}

	var query struct {
		BuyPrice *float64 `form:"buy_price"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buy_price must be a number"})
		return
	}

	history, err := h.history.GetHistory(c.Request.Context(), catalogID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	series, err := services.SelectNearMint(history)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"catalog_id": catalogID,
		"condition":  series.Condition,
		"variant":    series.Variant,
		"buckets":    series.Buckets,
	}
	if fv, err := services.ExtractFeatures(series.Buckets, query.BuyPrice); err == nil {
		resp["features"] = fv
		resp["decision"] = services.Decide(*fv, query.BuyPrice)
	}
	c.JSON(http.StatusOK, resp)
}

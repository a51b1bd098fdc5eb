package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/models"
	"github.com/codyseavey/tcg-signals/internal/services"
)

// Evaluator runs one card through the valuation pipeline.
type Evaluator interface {
	Evaluate(ctx context.Context, name string, buyPrice *float64) (*models.DatasetRow, error)
}

type CardHandler struct {
	resolver  services.Resolver
	evaluator Evaluator
	setHint   string
}

func NewCardHandler(resolver services.Resolver, evaluator Evaluator, setHint string) *CardHandler {
	return &CardHandler{
		resolver:  resolver,
		evaluator: evaluator,
		setHint:   setHint,
	}
}

// ResolveCard looks up the catalog id for a card name
func (h *CardHandler) ResolveCard(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'name' is required"})
		return
	}
	setHint := c.DefaultQuery("set_hint", h.setHint)

	catalogID, err := h.resolver.Resolve(c.Request.Context(), name, setHint)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":       name,
		"catalog_id": catalogID,
	})
}

type EvaluateRequest struct {
	Name     string   `json:"name" binding:"required"`
	BuyPrice *float64 `json:"buy_price"`
}

// EvaluateCard returns the dataset row for a single card. Omit buy_price
// (or send 0) for a pulled card.
func (h *CardHandler) EvaluateCard(c *gin.Context) {
	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if req.BuyPrice != nil && *req.BuyPrice < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "buy_price must not be negative"})
		return
	}

	row, err := h.evaluator.Evaluate(c.Request.Context(), name, req.BuyPrice)
	if err != nil {
		zap.L().Info("card evaluation failed", zap.String("card", name), zap.Error(err))
		c.JSON(statusForError(err), gin.H{
			"error":  err.Error(),
			"reason": services.SkipReason(err),
		})
		return
	}

	c.JSON(http.StatusOK, row)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/tcg-signals/internal/models"
	"github.com/codyseavey/tcg-signals/internal/services"
)

type RunHandler struct {
	worker *services.DatasetWorker
}

func NewRunHandler(worker *services.DatasetWorker) *RunHandler {
	return &RunHandler{
		worker: worker,
	}
}

type CreateRunRequest struct {
	Cards    []string `json:"cards" binding:"required"`
	BuyPrice *float64 `json:"buy_price"`
}

// CreateRun queues a dataset run over the posted card names
func (h *RunHandler) CreateRun(c *gin.Context) {
	var req CreateRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run, position, err := h.worker.Enqueue(services.RunRequest{
		Cards:    req.Cards,
		BuyPrice: req.BuyPrice,
		Trigger:  models.RunTriggerAPI,
	})
	if errors.Is(err, services.ErrNoCards) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run":            run,
		"queue_position": position,
	})
}

// ListRuns returns recent runs, newest first
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.worker.ListRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// GetStatus returns the worker queue and the current and last runs
func (h *RunHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.worker.GetStatus())
}

func (h *RunHandler) GetRun(c *gin.Context) {
	run, err := h.worker.GetRun(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetRunRows returns a run's rows in input order, as JSON or, with
// ?format=csv, as the dataset CSV.
func (h *RunHandler) GetRunRows(c *gin.Context) {
	runID := c.Param("id")
	run, err := h.worker.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	rows, err := h.worker.GetRows(runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="`+runID+`.csv"`)
		c.Status(http.StatusOK)
		sink, err := services.NewCSVSink(c.Writer)
		if err != nil {
			return
		}
		for _, row := range rows {
			if err := sink.WriteRow(row); err != nil {
				return
			}
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run":  run,
		"rows": rows,
	})
}

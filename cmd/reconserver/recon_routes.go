package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rawblock/ledgerrecon/pkg/models"
	"github.com/rawblock/ledgerrecon/pkg/recon"
	"github.com/rawblock/ledgerrecon/store"
)

// reconRequest is the body of POST /recon/run: two sides of canonical
// rows plus the tolerance/windowed-nm config to match them under.
type reconRequest struct {
	Left       []models.Row             `json:"left"`
	Right      []models.Row             `json:"right"`
	Tolerance  models.ToleranceConfig   `json:"tolerance"`
	WindowedNm models.WindowedNmConfig  `json:"windowedNm"`
}

// registerReconRoutes wires the reconciliation-engine HTTP surface. db
// may be nil, in which case runs are matched but not persisted.
func registerReconRoutes(r gin.IRouter, db *store.Store) {
	r.POST("/recon/run", func(c *gin.Context) {
		var req reconRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed recon request", "detail": err.Error()})
			return
		}

		result := recon.MatchWindowedNm(req.Left, req.Right, req.Tolerance, req.WindowedNm)

		resp := gin.H{"result": result}
		if db != nil {
			runID, err := db.SaveReconResult(context.Background(), len(req.Left), len(req.Right), result)
			if err != nil {
				log.Printf("Warning: failed to persist recon run: %v", err)
			} else {
				resp["runId"] = runID
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	r.GET("/recon/runs", func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusOK, gin.H{"runs": []store.RunSummary{}})
			return
		}
		runs, err := db.ListRuns(context.Background(), 50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	})
}

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/netbill/internal/billing/domain"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
)

type chargeRequest struct {
	ResellerID string `json:"reseller_id" binding:"required"`
	DryRun     bool   `json:"dry_run"`
	Force      bool   `json:"force"`
}

func (s *Server) ChargeReseller(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	resellerID, err := resellerdomain.ParseID(req.ResellerID)
	if err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	result, err := s.billingSvc.ChargeReseller(c.Request.Context(), resellerID, billingdomain.ChargeOptions{
		Source: billingdomain.SourceManual,
		Force:  req.Force,
		DryRun: req.DryRun,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListSnapshots(c *gin.Context) {
	resellerID, err := resellerdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	snapshots, err := s.billingSvc.Snapshots(c.Request.Context(), resellerID, queryLimit(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

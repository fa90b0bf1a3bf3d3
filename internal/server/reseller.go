package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	resellerdomain "github.com/smallbiznis/netbill/internal/reseller/domain"
)

type createResellerRequest struct {
	Name        string `json:"name" binding:"required"`
	BillingType string `json:"billing_type"`
	PricePerGB  int64  `json:"price_per_gb"`
	Balance     int64  `json:"balance"`
}

func (s *Server) CreateReseller(c *gin.Context) {
	var req createResellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	reseller := &resellerdomain.Reseller{
		Name:          req.Name,
		BillingType:   resellerdomain.BillingType(req.BillingType),
		WalletBalance: req.Balance,
		PricePerGB:    req.PricePerGB,
	}
	if err := s.resellerSvc.Create(c.Request.Context(), reseller); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, reseller)
}

func (s *Server) GetReseller(c *gin.Context) {
	resellerID, err := resellerdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	reseller, err := s.resellerSvc.Get(c.Request.Context(), resellerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, reseller)
}

type topUpRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

func (s *Server) TopUpReseller(c *gin.Context) {
	resellerID, err := resellerdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidAmount)
		return
	}

	result, err := s.resellerSvc.TopUp(c.Request.Context(), resellerID, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListLedger(c *gin.Context) {
	resellerID, err := resellerdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, resellerdomain.ErrInvalidID)
		return
	}

	entries, err := s.ledgerRepo.ListByReseller(c.Request.Context(), s.db, resellerID, queryLimit(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

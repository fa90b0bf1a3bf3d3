package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	configdomain "github.com/smallbiznis/netbill/internal/panelconfig/domain"
)

// GetConfig serves deleted configs too; the tombstone is the audit record
// of the final settled usage.
func (s *Server) GetConfig(c *gin.Context) {
	configID, err := configdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, configdomain.ErrInvalidID)
		return
	}

	cfg, err := s.configActionSvc.Get(c.Request.Context(), configID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (s *Server) ResetConfigTraffic(c *gin.Context) {
	configID, err := configdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, configdomain.ErrInvalidID)
		return
	}

	result, err := s.configActionSvc.ResetTraffic(c.Request.Context(), configID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) DeleteConfig(c *gin.Context) {
	configID, err := configdomain.ParseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, configdomain.ErrInvalidID)
		return
	}

	result, err := s.configActionSvc.DeleteConfig(c.Request.Context(), configID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dex-analytics-bot/internal/dex"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePredictVolume(c *gin.Context) {
	poolID := c.Param("poolId")
	if poolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "pool id required"})
		return
	}

	prediction, err := s.service.PredictVolume(c.Request.Context(), poolID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": prediction})
}

func (s *Server) handleIdentifyPatterns(c *gin.Context) {
	poolID := c.Param("poolId")
	if poolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "pool id required"})
		return
	}

	patterns, err := s.service.IdentifyPatterns(c.Request.Context(), poolID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": patterns})
}

func (s *Server) handleAnalyzeRegime(c *gin.Context) {
	poolID := c.Param("poolId")
	if poolID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "pool id required"})
		return
	}

	regime, err := s.service.AnalyzeMarketRegime(c.Request.Context(), poolID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": regime})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username and password required"})
		return
	}

	token, err := s.jwtManager.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// respondError maps upstream DEX API failures onto HTTP status codes:
// validation problems are the caller's fault, network and timeout failures
// surface as bad gateway.
func (s *Server) respondError(c *gin.Context, err error) {
	var apiErr *dex.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Kind {
		case dex.ErrKindValidation:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": apiErr.Message})
			return
		case dex.ErrKindNetwork, dex.ErrKindTimeout:
			s.logger.Error().Err(err).Msg("upstream DEX API failure")
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "upstream data source unavailable"})
			return
		}
	}

	s.logger.Error().Err(err).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
}

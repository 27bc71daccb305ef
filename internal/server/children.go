package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	childdomain "github.com/smallbiznis/familyhub/internal/child/domain"
)

func (s *Server) ListChildren(c *gin.Context) {
	resp, err := s.childSvc.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateChild(c *gin.Context) {
	var req childdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := currentUserID(c)
	// children reference the profile row
	if _, err := s.profileSvc.Get(c.Request.Context(), userID); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.childSvc.Add(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) UpdateChild(c *gin.Context) {
	id, ok := childIDParam(c)
	if !ok {
		return
	}

	var req childdomain.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.childSvc.Update(c.Request.Context(), currentUserID(c), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteChild(c *gin.Context) {
	id, ok := childIDParam(c)
	if !ok {
		return
	}

	if err := s.childSvc.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func childIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

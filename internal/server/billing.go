package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/smallbiznis/familyhub/internal/billing/domain"
)

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

func (s *Server) ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.billingSvc.ListPlans()})
}

func (s *Server) CreateCheckout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	planID := strings.TrimSpace(req.PlanID)
	if planID == "" {
		AbortWithError(c, newValidationError("plan_id", "invalid_plan", "plan_id is required"))
		return
	}

	url, err := s.billingSvc.CreateCheckout(c.Request.Context(), billingdomain.CheckoutRequest{
		UserID: currentUserID(c),
		Email:  currentUserEmail(c),
		PlanID: planID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GetSubscription returns data null when the caller never subscribed.
func (s *Server) GetSubscription(c *gin.Context) {
	resp, err := s.billingSvc.GetSubscription(c.Request.Context(), currentUserID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelSubscription(c *gin.Context) {
	if err := s.billingSvc.CancelSubscription(c.Request.Context(), currentUserID(c)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/internal/services"
)

type ServiceHandler struct {
	accessService *services.AccessService
}

func NewServiceHandler(accessService *services.AccessService) *ServiceHandler {
	return &ServiceHandler{accessService: accessService}
}

// Access runs the full access evaluation for a named service: credential,
// role, then source address against the service's whitelist. Everything the
// decision needs is extracted here and passed explicitly.
func (h *ServiceHandler) Access(c *gin.Context) {
	var token string
	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		token = strings.TrimPrefix(authHeader, "Bearer ")
	} else if cookie, err := c.Cookie("accessToken"); err == nil {
		token = cookie
	}

	decision := h.accessService.Decide(services.AccessRequest{
		Token:    token,
		Service:  c.Param("name"),
		SourceIP: c.ClientIP(),
	})

	if decision.Outcome == services.OutcomeGranted {
		c.JSON(http.StatusOK, gin.H{
			"message":  "Access granted to " + decision.Service,
			"decision": decision,
			"user": gin.H{
				"name":  decision.User.Name,
				"email": decision.User.Email,
				"role":  decision.User.Role,
			},
		})
		return
	}

	status := http.StatusForbidden
	message := "Access denied"
	switch decision.Reason {
	case services.ReasonUnauthenticated:
		status = http.StatusUnauthorized
		message = "Authentication required"
	case services.ReasonIPNotWhitelisted:
		message = "Your IP address is not whitelisted for this service"
	case services.ReasonInternal:
		status = http.StatusInternalServerError
		message = "Access evaluation failed"
	}

	c.JSON(status, gin.H{
		"error":    message,
		"decision": decision,
	})
}

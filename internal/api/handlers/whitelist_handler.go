package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/argus-sec/argus/internal/api/middleware"
	"github.com/argus-sec/argus/internal/services"
)

type WhitelistHandler struct {
	whitelistService *services.WhitelistService
}

func NewWhitelistHandler(whitelistService *services.WhitelistService) *WhitelistHandler {
	return &WhitelistHandler{whitelistService: whitelistService}
}

func (h *WhitelistHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	search := c.Query("search")
	service := c.Query("service")

	rules, total, err := h.whitelistService.List(page, limit, search, service)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch whitelist rules"})
		return
	}

	paginated(c, page, limit, len(rules), total, rules)
}

func (h *WhitelistHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	rule, err := h.whitelistService.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch whitelist rule"})
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *WhitelistHandler) Create(c *gin.Context) {
	var input services.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rule, err := h.whitelistService.Create(input, actor, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAddressSpec), errors.Is(err, services.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrDuplicateAddressSpec):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create whitelist rule"})
		}
		return
	}

	c.JSON(http.StatusCreated, rule)
}

func (h *WhitelistHandler) Update(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var input services.RuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rule, err := h.whitelistService.Update(uint(id), input, actor, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRuleNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidAddressSpec):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrDuplicateAddressSpec):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update whitelist rule"})
		}
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *WhitelistHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	actor := middleware.CurrentUser(c)
	if actor == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.whitelistService.Delete(uint(id), actor, c.ClientIP()); err != nil {
		if errors.Is(err, services.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete whitelist rule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Whitelist rule deleted"})
}

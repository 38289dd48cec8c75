package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Paginated is the list envelope shared by whitelist and audit listings.
type Paginated struct {
	Count int         `json:"count"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Pages int64       `json:"pages"`
	Data  interface{} `json:"data"`
}

func paginated(c *gin.Context, page, limit, count int, total int64, data interface{}) {
	pages := total / int64(limit)
	if total%int64(limit) != 0 {
		pages++
	}
	c.JSON(http.StatusOK, Paginated{
		Count: count,
		Total: total,
		Page:  page,
		Pages: pages,
		Data:  data,
	})
}

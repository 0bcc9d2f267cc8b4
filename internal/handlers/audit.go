package handlers

import (
	"net/http"
	"strconv"

	"github.com/heshen/BookStack-1/internal/models"
	"github.com/heshen/BookStack-1/internal/services"
	"github.com/heshen/BookStack-1/internal/store"

	"github.com/gin-gonic/gin"
)

// AuditHandler serves the admin view over recorded audit events.
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// ShowAuditLogsPage displays the audit log HTML page
func (h *AuditHandler) ShowAuditLogsPage(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := store.AuditLogQuery{
		EventType: models.EventType(c.Query("event_type")),
		Severity:  models.EventSeverity(c.Query("severity")),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
	}

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), query)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "error.html", gin.H{
			"error": "Failed to retrieve audit logs",
		})
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize != 0 {
		totalPages++
	}

	// Set by the admin middleware, used for the page header.
	user, _ := c.Get("user")

	c.HTML(http.StatusOK, "audit.html", gin.H{
		"user":       user,
		"logs":       logs,
		"page":       page,
		"pageSize":   pageSize,
		"total":      total,
		"totalPages": totalPages,
		"prevPage":   page - 1,
		"nextPage":   page + 1,
		"eventType":  c.Query("event_type"),
		"severity":   c.Query("severity"),
	})
}

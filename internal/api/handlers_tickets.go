package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gotrs-io/gotrs-helpdesk/internal/middleware"
	"github.com/gotrs-io/gotrs-helpdesk/internal/models"
	"github.com/gotrs-io/gotrs-helpdesk/internal/tickets"
)

type createTicketRequest struct {
	FolderPath string `json:"folder_path" binding:"required"`
	Query      string `json:"query" binding:"required"`
}

type updateStatusRequest struct {
	Status       models.TicketStatus `json:"status" binding:"required"`
	AdminComment string              `json:"admin_comment"`
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", tickets.ErrValidation, err)
}

// handleCreateTicket creates a ticket for the caller
func (r *Router) handleCreateTicket(c *gin.Context) {
	var req createTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.sendError(c, "Invalid ticket request", badRequest(err))
		return
	}
	t, err := r.tickets.Create(c.Request.Context(), middleware.GetIdentity(c), tickets.CreateInput{
		FolderPath: req.FolderPath,
		Query:      req.Query,
	})
	if err != nil {
		r.sendError(c, "Failed to create ticket", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Ticket created successfully", "ticket": t})
}

// handleListMyTickets lists the caller's tickets
func (r *Router) handleListMyTickets(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		r.sendError(c, "Invalid filter", err)
		return
	}
	list, err := r.tickets.ListMine(c.Request.Context(), middleware.GetIdentity(c), filter)
	if err != nil {
		r.sendError(c, "Failed to fetch tickets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": list})
}

// handleListAllTickets lists every ticket (admin)
func (r *Router) handleListAllTickets(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		r.sendError(c, "Invalid filter", err)
		return
	}
	list, err := r.tickets.ListAll(c.Request.Context(), middleware.GetIdentity(c), filter)
	if err != nil {
		r.sendError(c, "Failed to fetch tickets", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": list})
}

// handleGetTicket returns a single ticket
func (r *Router) handleGetTicket(c *gin.Context) {
	t, err := r.tickets.Get(c.Request.Context(), middleware.GetIdentity(c), c.Param("ticketNumber"))
	if err != nil {
		r.sendError(c, "Failed to fetch ticket", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ticket": t})
}

// handleUpdateStatus changes a ticket's status (admin)
func (r *Router) handleUpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.sendError(c, "Invalid status update", badRequest(err))
		return
	}
	t, err := r.tickets.UpdateStatus(c.Request.Context(), middleware.GetIdentity(c),
		c.Param("ticketNumber"), req.Status, req.AdminComment)
	if err != nil {
		r.sendError(c, "Failed to update ticket", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Ticket updated successfully", "ticket": t})
}

// handleAddComment appends a comment
func (r *Router) handleAddComment(c *gin.Context) {
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		r.sendError(c, "Invalid comment", badRequest(err))
		return
	}
	t, err := r.tickets.AddComment(c.Request.Context(), middleware.GetIdentity(c), c.Param("ticketNumber"), req.Text)
	if err != nil {
		r.sendError(c, "Failed to add comment", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment added successfully", "ticket": t})
}

// parseFilter reads filter, sort, startDate and endDate. Dates are RFC 3339
// timestamps or plain dates; a plain endDate covers the whole day.
func parseFilter(c *gin.Context) (models.TicketFilter, error) {
	f := models.TicketFilter{
		Filter: c.Query("filter"),
		Sort:   c.Query("sort"),
	}
	start, err := parseDate(c.Query("startDate"), false)
	if err != nil {
		return f, badRequest(fmt.Errorf("startDate: %w", err))
	}
	end, err := parseDate(c.Query("endDate"), true)
	if err != nil {
		return f, badRequest(fmt.Errorf("endDate: %w", err))
	}
	f.StartDate, f.EndDate = start, end
	return f, nil
}

func parseDate(v string, endOfDay bool) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", v)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
)

type createCauseRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Category     string `json:"category"`
	TargetAmount int64  `json:"target_amount"`
	Image        string `json:"image"`
	Deadline     string `json:"deadline"`
}

type updateCauseRequest struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	Category     *string `json:"category,omitempty"`
	TargetAmount *int64  `json:"target_amount,omitempty"`
	Image        *string `json:"image,omitempty"`
	Deadline     *string `json:"deadline,omitempty"`
	Status       *string `json:"status,omitempty"`
}

type progressRequest struct {
	Description string   `json:"description"`
	Images      []string `json:"images"`
	Status      *string  `json:"status,omitempty"`
}

// @Summary      List Causes
// @Tags         causes
// @Produce      json
// @Param        category  query  string  false  "Category"
// @Param        status    query  string  false  "Status"
// @Param        limit     query  int     false  "Limit"
// @Param        offset    query  int     false  "Offset"
// @Success      200  {object}  causedomain.ListResult
// @Router       /api/causes [get]
func (s *Server) ListCauses(c *gin.Context) {
	var query struct {
		pageQuery
		Category string `form:"category"`
		Status   string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	limit, offset, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.causeSvc.List(c.Request.Context(), causedomain.ListFilter{
		Category: strings.TrimSpace(query.Category),
		Status:   causedomain.CauseStatus(strings.TrimSpace(query.Status)),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Cause
// @Tags         causes
// @Produce      json
// @Param        id   path      string  true  "Cause ID"
// @Success      200  {object}  causedomain.CauseView
// @Router       /api/causes/{id} [get]
func (s *Server) GetCause(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.causeSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Cause Progress Updates
// @Tags         causes
// @Produce      json
// @Param        id   path      string  true  "Cause ID"
// @Success      200  {object}  []causedomain.ProgressUpdate
// @Router       /api/causes/{id}/progress [get]
func (s *Server) ListCauseProgress(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.causeSvc.ListProgressUpdates(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Create Cause
// @Tags         causes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createCauseRequest true "Create Cause Request"
// @Success      201  {object}  causedomain.Cause
// @Router       /api/causes [post]
func (s *Server) CreateCause(c *gin.Context) {
	identity, _ := identityFrom(c)

	var req createCauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.causeSvc.Create(c.Request.Context(), causedomain.CreateRequest{
		Title:        req.Title,
		Description:  req.Description,
		Category:     strings.TrimSpace(req.Category),
		TargetAmount: req.TargetAmount,
		Image:        strings.TrimSpace(req.Image),
		Deadline:     deadline,
		CreatedBy:    identity.UserID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// @Summary      Update Cause
// @Tags         causes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string              true  "Cause ID"
// @Param        request  body  updateCauseRequest  true  "Update Cause Request"
// @Success      200  {object}  causedomain.Cause
// @Router       /api/causes/{id} [put]
func (s *Server) UpdateCause(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateCauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := causedomain.UpdateRequest{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		TargetAmount: req.TargetAmount,
		Image:        req.Image,
		UpdatedBy:    identity.UserID,
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		update.Deadline = &deadline
	}
	if req.Status != nil {
		status := causedomain.CauseStatus(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	resp, err := s.causeSvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Cause
// @Description  Rejected while the cause has donations.
// @Tags         causes
// @Security     BearerAuth
// @Param        id   path  string  true  "Cause ID"
// @Success      200
// @Router       /api/causes/{id} [delete]
func (s *Server) DeleteCause(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.causeSvc.Delete(c.Request.Context(), id, identity.UserID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id}})
}

// @Summary      Add Cause Progress Update
// @Tags         causes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string           true  "Cause ID"
// @Param        request  body  progressRequest  true  "Progress Update"
// @Success      201  {object}  causedomain.ProgressUpdate
// @Router       /api/causes/{id}/progress [post]
func (s *Server) AddCauseProgress(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	progress := causedomain.ProgressRequest{
		Description: req.Description,
		Images:      req.Images,
		UpdatedBy:   identity.UserID,
	}
	if req.Status != nil {
		status := causedomain.CauseStatus(strings.TrimSpace(*req.Status))
		progress.Status = &status
	}

	resp, err := s.causeSvc.AddProgressUpdate(c.Request.Context(), id, progress)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func parseDeadline(value string) (time.Time, error) {
	deadline, err := parseOptionalTime(value, true)
	if err != nil || deadline == nil {
		return time.Time{}, causedomain.ErrInvalidDeadline
	}
	return *deadline, nil
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	transparencydomain "github.com/smallbiznis/donasi/internal/transparency/domain"
)

type attachmentRequest struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
	FileName string `json:"file_name"`
	FileType string `json:"file_type"`
}

type createTransparencyRequest struct {
	CauseID     string              `json:"cause_id"`
	Amount      int64               `json:"amount"`
	Date        string              `json:"date"`
	Description string              `json:"description"`
	Photos      []attachmentRequest `json:"photos"`
	Documents   []attachmentRequest `json:"documents"`
	Status      string              `json:"status"`
}

type updateTransparencyRequest struct {
	Amount      *int64              `json:"amount,omitempty"`
	Date        *string             `json:"date,omitempty"`
	Description *string             `json:"description,omitempty"`
	Photos      []attachmentRequest `json:"photos,omitempty"`
	Documents   []attachmentRequest `json:"documents,omitempty"`
	Status      *string             `json:"status,omitempty"`
}

// @Summary      List Published Transparency Reports of a Cause
// @Tags         transparency
// @Produce      json
// @Param        causeId  path  string  true  "Cause ID"
// @Success      200  {object}  transparencydomain.ListResult
// @Router       /api/transparency/cause/{causeId} [get]
func (s *Server) ListCauseTransparency(c *gin.Context) {
	causeID, err := parseIDParam(c, "causeId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transparencySvc.ListByCause(c.Request.Context(), causeID, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Transparency Reports
// @Tags         transparency
// @Produce      json
// @Security     BearerAuth
// @Param        cause_id  query  string  false  "Cause ID"
// @Param        status    query  string  false  "Status"
// @Param        from      query  string  false  "From"
// @Param        to        query  string  false  "To"
// @Success      200  {object}  transparencydomain.ListResult
// @Router       /api/transparency [get]
func (s *Server) ListTransparencyReports(c *gin.Context) {
	var query struct {
		pageQuery
		CauseID string `form:"cause_id"`
		Status  string `form:"status"`
		From    string `form:"from"`
		To      string `form:"to"`
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
	causeID, err := parseOptionalID("cause_id", query.CauseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "invalid from"))
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "invalid to"))
		return
	}

	resp, err := s.transparencySvc.List(c.Request.Context(), transparencydomain.ListFilter{
		CauseID:       causeID,
		Status:        transparencydomain.Status(strings.TrimSpace(query.Status)),
		IncludeDrafts: true,
		From:          from,
		To:            to,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Transparency Report
// @Tags         transparency
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Report ID"
// @Success      200  {object}  transparencydomain.TransparencyReport
// @Router       /api/transparency/{id} [get]
func (s *Server) GetTransparencyReport(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transparencySvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Create Transparency Report
// @Description  Publishing disburses the amount from the cause. Returns 422 when the
// @Description  amount exceeds the undisbursed funds.
// @Tags         transparency
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createTransparencyRequest true "Create Transparency Report"
// @Success      201  {object}  transparencydomain.TransparencyReport
// @Router       /api/transparency [post]
func (s *Server) CreateTransparencyReport(c *gin.Context) {
	identity, _ := identityFrom(c)

	var req createTransparencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	causeID, err := parseOptionalID("cause_id", req.CauseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if causeID == 0 {
		AbortWithError(c, newValidationError("cause_id", "required", "cause_id is required"))
		return
	}
	date, err := parseOptionalTime(req.Date, false)
	if err != nil {
		AbortWithError(c, transparencydomain.ErrInvalidDate)
		return
	}

	create := transparencydomain.CreateRequest{
		CauseID:     causeID,
		Amount:      req.Amount,
		Description: req.Description,
		Photos:      toAttachments(req.Photos),
		Documents:   toAttachments(req.Documents),
		Status:      transparencydomain.Status(strings.TrimSpace(req.Status)),
		ActorID:     identity.UserID,
	}
	if date != nil {
		create.Date = *date
	}

	resp, err := s.transparencySvc.Create(c.Request.Context(), create)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// @Summary      Update Transparency Report
// @Description  New attachments are appended. Amount and status changes adjust the
// @Description  cause's disbursed total by the difference.
// @Tags         transparency
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string                     true  "Report ID"
// @Param        request  body  updateTransparencyRequest  true  "Update Transparency Report"
// @Success      200  {object}  transparencydomain.TransparencyReport
// @Router       /api/transparency/{id} [put]
func (s *Server) UpdateTransparencyReport(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateTransparencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := transparencydomain.UpdateRequest{
		Amount:      req.Amount,
		Description: req.Description,
		Photos:      toAttachments(req.Photos),
		Documents:   toAttachments(req.Documents),
		ActorID:     identity.UserID,
	}
	if req.Date != nil {
		date, err := parseOptionalTime(*req.Date, false)
		if err != nil || date == nil {
			AbortWithError(c, transparencydomain.ErrInvalidDate)
			return
		}
		update.Date = date
	}
	if req.Status != nil {
		status := transparencydomain.Status(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	resp, err := s.transparencySvc.Update(c.Request.Context(), id, update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Delete Transparency Report
// @Tags         transparency
// @Security     BearerAuth
// @Param        id   path  string  true  "Report ID"
// @Success      200
// @Router       /api/transparency/{id} [delete]
func (s *Server) DeleteTransparencyReport(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.transparencySvc.Delete(c.Request.Context(), id, identity.UserID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": id}})
}

// @Summary      Remove Transparency Report Attachment
// @Tags         transparency
// @Produce      json
// @Security     BearerAuth
// @Param        id            path  string  true  "Report ID"
// @Param        kind          path  string  true  "photo or document"
// @Param        attachmentId  path  string  true  "Attachment ID"
// @Success      200  {object}  transparencydomain.TransparencyReport
// @Router       /api/transparency/{id}/attachments/{kind}/{attachmentId} [delete]
func (s *Server) RemoveTransparencyAttachment(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	kind := transparencydomain.AttachmentKind(strings.TrimSpace(c.Param("kind")))
	attachmentID := strings.TrimSpace(c.Param("attachmentId"))
	resp, err := s.transparencySvc.RemoveAttachment(c.Request.Context(), id, kind, attachmentID, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func toAttachments(items []attachmentRequest) []transparencydomain.Attachment {
	if len(items) == 0 {
		return nil
	}
	out := make([]transparencydomain.Attachment, 0, len(items))
	for _, item := range items {
		out = append(out, transparencydomain.Attachment{
			URL:      strings.TrimSpace(item.URL),
			PublicID: strings.TrimSpace(item.PublicID),
			FileName: strings.TrimSpace(item.FileName),
			FileType: strings.TrimSpace(item.FileType),
		})
	}
	return out
}


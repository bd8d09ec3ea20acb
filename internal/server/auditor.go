package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/donasi/internal/audit/domain"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
)

type markAuditedRequest struct {
	Status   string `json:"status"`
	Notes    string `json:"notes"`
	Document string `json:"document"`
}

type donationAuditDetail struct {
	Donation *donationdomain.Donation     `json:"donation"`
	Payments []paymentdomain.JournalEntry `json:"payments"`
}

type causeFilterQuery struct {
	Category    string `form:"category"`
	AuditStatus string `form:"audit_status"`
	From        string `form:"from"`
	To          string `form:"to"`
}

func (q causeFilterQuery) parse() (reportdomain.CauseFilter, error) {
	from, err := parseOptionalTime(q.From, false)
	if err != nil {
		return reportdomain.CauseFilter{}, newValidationError("from", "invalid_from", "invalid from")
	}
	to, err := parseOptionalTime(q.To, true)
	if err != nil {
		return reportdomain.CauseFilter{}, newValidationError("to", "invalid_to", "invalid to")
	}
	return reportdomain.CauseFilter{
		Category:    strings.TrimSpace(q.Category),
		AuditStatus: causedomain.AuditStatus(strings.TrimSpace(q.AuditStatus)),
		From:        from,
		To:          to,
	}, nil
}

// @Summary      Auditor Dashboard Stats
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  reportdomain.AuditorStats
// @Router       /api/auditor/stats [get]
func (s *Server) AuditorStats(c *gin.Context) {
	resp, err := s.reportSvc.AuditorStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Causes For Audit
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Param        category      query  string  false  "Category"
// @Param        audit_status  query  string  false  "Audit Status"
// @Param        from          query  string  false  "From"
// @Param        to            query  string  false  "To"
// @Success      200  {object}  []reportdomain.CauseAuditRow
// @Router       /api/auditor/causes [get]
func (s *Server) AuditorListCauses(c *gin.Context) {
	var query causeFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.CausesForAudit(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Cause Audit Detail
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Cause ID"
// @Success      200  {object}  reportdomain.CauseAuditDetail
// @Router       /api/auditor/causes/{id} [get]
func (s *Server) AuditorCauseDetail(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.CauseAuditDetail(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Donation Audit Detail
// @Description  The donation with every gateway notification received for its order.
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Donation ID"
// @Success      200  {object}  donationAuditDetail
// @Router       /api/auditor/donations/{id} [get]
func (s *Server) AuditorDonationDetail(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	donation, err := s.donationSvc.GetByID(ctx, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	payments, err := s.paymentSvc.Journal(ctx, donation.OrderID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": donationAuditDetail{Donation: donation, Payments: payments}})
}

// @Summary      Start Cause Audit
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Cause ID"
// @Success      200  {object}  causedomain.Cause
// @Router       /api/auditor/causes/{id}/start [put]
func (s *Server) StartCauseAudit(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.causeSvc.StartAudit(c.Request.Context(), id, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Record Cause Audit Decision
// @Description  status is audit_verified or audit_flagged. A decision is final.
// @Tags         auditor
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string              true  "Cause ID"
// @Param        request  body  markAuditedRequest  true  "Audit Decision"
// @Success      200  {object}  causedomain.Cause
// @Router       /api/auditor/causes/{id}/audit [put]
func (s *Server) MarkCauseAudited(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req markAuditedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.causeSvc.MarkAudited(c.Request.Context(), causedomain.MarkAuditedRequest{
		CauseID:     id,
		Decision:    auditDecision(req.Status),
		Notes:       req.Notes,
		ActorID:     identity.UserID,
		DocumentRef: strings.TrimSpace(req.Document),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Audit Logs
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Param        action       query  string  false  "Action"
// @Param        actor_id     query  string  false  "Actor ID"
// @Param        target_type  query  string  false  "Target Type"
// @Param        target_id    query  string  false  "Target ID"
// @Param        from         query  string  false  "From"
// @Param        to           query  string  false  "To"
// @Success      200  {object}  auditdomain.ListResult
// @Router       /api/auditor/logs [get]
func (s *Server) ListAuditLogs(c *gin.Context) {
	var query struct {
		pageQuery
		Action     string `form:"action"`
		ActorID    string `form:"actor_id"`
		TargetType string `form:"target_type"`
		TargetID   string `form:"target_id"`
		From       string `form:"from"`
		To         string `form:"to"`
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

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListFilter{
		Action:     strings.TrimSpace(query.Action),
		ActorID:    strings.TrimSpace(query.ActorID),
		TargetType: strings.TrimSpace(query.TargetType),
		TargetID:   strings.TrimSpace(query.TargetID),
		StartAt:    from,
		EndAt:      to,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Audit Report
// @Tags         auditor
// @Produce      json
// @Security     BearerAuth
// @Param        category      query  string  false  "Category"
// @Param        audit_status  query  string  false  "Audit Status"
// @Param        from          query  string  false  "From"
// @Param        to            query  string  false  "To"
// @Success      200  {object}  reportdomain.AuditReport
// @Router       /api/auditor/report [get]
func (s *Server) AuditReport(c *gin.Context) {
	identity, _ := identityFrom(c)

	var query causeFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.AuditReport(c.Request.Context(), filter, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// auditDecision accepts both the stored values and the short forms "verified" and "flagged".
func auditDecision(value string) causedomain.AuditStatus {
	switch value = strings.TrimSpace(value); value {
	case "verified":
		return causedomain.AuditStatusVerified
	case "flagged":
		return causedomain.AuditStatusFlagged
	default:
		return causedomain.AuditStatus(value)
	}
}

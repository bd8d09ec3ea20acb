package server

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type donationsFilterQuery struct {
	From    string `form:"from"`
	To      string `form:"to"`
	CauseID string `form:"cause_id"`
	Status  string `form:"status"`
}

func (q donationsFilterQuery) parse() (reportdomain.DonationsFilter, error) {
	from, err := parseOptionalTime(q.From, false)
	if err != nil {
		return reportdomain.DonationsFilter{}, newValidationError("from", "invalid_from", "invalid from")
	}
	to, err := parseOptionalTime(q.To, true)
	if err != nil {
		return reportdomain.DonationsFilter{}, newValidationError("to", "invalid_to", "invalid to")
	}
	causeID, err := parseOptionalID("cause_id", q.CauseID)
	if err != nil {
		return reportdomain.DonationsFilter{}, err
	}
	return reportdomain.DonationsFilter{
		From:    from,
		To:      to,
		CauseID: causeID,
		Status:  donationdomain.Status(strings.TrimSpace(q.Status)),
	}, nil
}

// @Summary      Donations Report
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        from      query  string  false  "From"
// @Param        to        query  string  false  "To"
// @Param        cause_id  query  string  false  "Cause ID"
// @Param        status    query  string  false  "Status"
// @Success      200  {object}  reportdomain.DonationsReport
// @Router       /api/reports/donations [get]
func (s *Server) DonationsReport(c *gin.Context) {
	identity, _ := identityFrom(c)

	var query donationsFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.DonationsReport(c.Request.Context(), filter, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Donor Report
// @Description  Admins can read any donor; donors only themselves.
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        donorId  path   string  true   "Donor ID"
// @Param        from     query  string  false  "From"
// @Param        to       query  string  false  "To"
// @Success      200  {object}  reportdomain.DonorReport
// @Router       /api/reports/donor/{donorId} [get]
func (s *Server) DonorReport(c *gin.Context) {
	identity, _ := identityFrom(c)
	donorID, err := parseIDParam(c, "donorId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !identity.HasRole(RoleAdmin) && donorID != identity.UserID {
		AbortWithError(c, ErrForbidden)
		return
	}

	var query donationsFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.DonorReport(c.Request.Context(), donorID, filter, identity.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Donors
// @Description  Distinct donors with at least one verified donation.
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  []string
// @Router       /api/reports/donors [get]
func (s *Server) ListDonors(c *gin.Context) {
	resp, err := s.reportSvc.Donors(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Report History
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        report_type   query  string  false  "all, donor or cause"
// @Param        generated_by  query  string  false  "Generated By"
// @Param        limit         query  int     false  "Limit"
// @Param        offset        query  int     false  "Offset"
// @Success      200  {object}  reportdomain.ReportLogList
// @Router       /api/reports/history [get]
func (s *Server) ReportHistory(c *gin.Context) {
	var query struct {
		pageQuery
		ReportType  string `form:"report_type"`
		GeneratedBy string `form:"generated_by"`
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
	generatedBy, err := parseOptionalID("generated_by", query.GeneratedBy)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.reportSvc.ReportHistory(c.Request.Context(), reportdomain.ReportLogFilter{
		ReportType:  reportdomain.ReportType(strings.TrimSpace(query.ReportType)),
		GeneratedBy: generatedBy,
		Limit:       limit,
		Offset:      offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Export Donations
// @Tags         reports
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security     BearerAuth
// @Param        from      query  string  false  "From"
// @Param        to        query  string  false  "To"
// @Param        cause_id  query  string  false  "Cause ID"
// @Param        status    query  string  false  "Status"
// @Success      200  {file}  file
// @Router       /api/reports/donations.xlsx [get]
func (s *Server) ExportDonations(c *gin.Context) {
	var query donationsFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	filter, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := s.reportSvc.ExportDonationsXLSX(c.Request.Context(), filter, &buf); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="donations.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	paymentdomain "github.com/smallbiznis/donasi/internal/payment/domain"
	"go.uber.org/zap"
)

type createDonationRequest struct {
	CauseID     string `json:"cause_id"`
	Amount      int64  `json:"amount"`
	IsAnonymous bool   `json:"is_anonymous"`
	Message     string `json:"message"`
}

type createDonationResponse struct {
	Donation *donationdomain.Donation    `json:"donation"`
	Payment  *paymentdomain.SnapResponse `json:"payment"`
}

type distributionRequest struct {
	Status string   `json:"distribution_status"`
	Note   string   `json:"distribution_note"`
	Proof  []string `json:"distribution_proof"`
}

// @Summary      Create Donation
// @Description  Creates a pending donation and opens a Snap checkout session for it. A
// @Description  checkout failure is logged and the donation is returned without payment data.
// @Tags         donations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body createDonationRequest true "Create Donation Request"
// @Success      201  {object}  createDonationResponse
// @Router       /api/donations [post]
func (s *Server) CreateDonation(c *gin.Context) {
	identity, _ := identityFrom(c)

	var req createDonationRequest
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

	ctx := c.Request.Context()
	donation, err := s.donationSvc.Create(ctx, donationdomain.CreateRequest{
		CauseID:     causeID,
		DonorID:     identity.UserID,
		Amount:      req.Amount,
		IsAnonymous: req.IsAnonymous,
		Message:     req.Message,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := createDonationResponse{Donation: donation}
	if s.checkout != nil {
		snapReq := paymentdomain.SnapRequest{
			OrderID:     donation.OrderID,
			GrossAmount: donation.Amount,
			ItemID:      donation.CauseID.String(),
		}
		if cause, err := s.causeSvc.GetByID(ctx, donation.CauseID); err == nil && cause != nil {
			snapReq.ItemName = "Donasi: " + cause.Title
		}

		session, err := s.checkout.CreateTransaction(ctx, snapReq)
		if err != nil {
			s.log.Warn("snap checkout failed",
				zap.String("order_id", donation.OrderID),
				zap.Error(err),
			)
		} else {
			if err := s.donationSvc.AttachPaymentToken(ctx, donation.ID, session.Token, session.RedirectURL); err != nil {
				s.log.Warn("failed to attach payment token",
					zap.String("order_id", donation.OrderID),
					zap.Error(err),
				)
			} else {
				donation.PaymentToken = &session.Token
				donation.RedirectURL = &session.RedirectURL
			}
			resp.Payment = session
		}
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

// @Summary      List My Donations
// @Tags         donations
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query  int  false  "Limit"
// @Param        offset  query  int  false  "Offset"
// @Success      200  {object}  donationdomain.ListResult
// @Router       /api/donations/my-donations [get]
func (s *Server) ListMyDonations(c *gin.Context) {
	identity, _ := identityFrom(c)

	var query pageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	limit, offset, err := query.parse()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.donationSvc.ListByDonor(c.Request.Context(), identity.UserID, limit, offset)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Get Donation
// @Description  Donors can only read their own donations.
// @Tags         donations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Donation ID"
// @Success      200  {object}  donationdomain.Donation
// @Router       /api/donations/{id} [get]
func (s *Server) GetDonation(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.donationSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !identity.HasRole(RoleAdmin, RoleAuditor) && resp.DonorID != identity.UserID {
		AbortWithError(c, ErrForbidden)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      List Donations
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status               query  string  false  "Status"
// @Param        distribution_status  query  string  false  "Distribution Status"
// @Param        cause_id             query  string  false  "Cause ID"
// @Param        from                 query  string  false  "From (RFC3339 or YYYY-MM-DD)"
// @Param        to                   query  string  false  "To (RFC3339 or YYYY-MM-DD)"
// @Success      200  {object}  donationdomain.ListResult
// @Router       /api/admin/donations [get]
// @Router       /api/auditor/donations [get]
func (s *Server) AdminListDonations(c *gin.Context) {
	var query struct {
		pageQuery
		Status             string `form:"status"`
		DistributionStatus string `form:"distribution_status"`
		CauseID            string `form:"cause_id"`
		From               string `form:"from"`
		To                 string `form:"to"`
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

	resp, err := s.donationSvc.List(c.Request.Context(), donationdomain.ListFilter{
		CauseID:            causeID,
		Status:             donationdomain.Status(strings.TrimSpace(query.Status)),
		DistributionStatus: donationdomain.DistributionStatus(strings.TrimSpace(query.DistributionStatus)),
		From:               from,
		To:                 to,
		Limit:              limit,
		Offset:             offset,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Verify Donation
// @Description  Manual verification. Returns 409 when the donation is already verified.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "Donation ID"
// @Success      200  {object}  donationdomain.Donation
// @Router       /api/admin/donations/{id}/verify [put]
func (s *Server) VerifyDonation(c *gin.Context) {
	identity, _ := identityFrom(c)
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actorID := identity.UserID
	resp, err := s.donationSvc.MarkVerified(c.Request.Context(), id, &actorID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Update Donation Distribution
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path  string               true  "Donation ID"
// @Param        request  body  distributionRequest  true  "Distribution"
// @Success      200  {object}  donationdomain.Donation
// @Router       /api/admin/donations/{id}/distribution [put]
func (s *Server) UpdateDonationDistribution(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req distributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.donationSvc.UpdateDistribution(c.Request.Context(), id, donationdomain.DistributionRequest{
		Status: donationdomain.DistributionStatus(strings.TrimSpace(req.Status)),
		Note:   req.Note,
		Proof:  req.Proof,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Donation Statistics
// @Tags         donations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  reportdomain.DonationOverview
// @Router       /api/donations/stats/overview [get]
func (s *Server) DonationStats(c *gin.Context) {
	resp, err := s.reportSvc.DonationOverview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// @Summary      Admin Dashboard Stats
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  reportdomain.DashboardStats
// @Router       /api/admin/stats [get]
func (s *Server) AdminStats(c *gin.Context) {
	resp, err := s.reportSvc.DashboardStats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")

	// Public
	api.GET("/causes", s.ListCauses)
	api.GET("/causes/:id", s.GetCause)
	api.GET("/causes/:id/progress", s.ListCauseProgress)
	api.GET("/transparency/cause/:causeId", s.ListCauseTransparency)
	api.POST("/midtrans/notification", s.MidtransNotification)

	auth := api.Group("", s.Authenticated())
	adminOnly := RequireRoles(RoleAdmin)
	oversight := RequireRoles(RoleAdmin, RoleAuditor)

	auth.POST("/causes", adminOnly, s.CreateCause)
	auth.PUT("/causes/:id", adminOnly, s.UpdateCause)
	auth.DELETE("/causes/:id", adminOnly, s.DeleteCause)
	auth.POST("/causes/:id/progress", adminOnly, s.AddCauseProgress)

	auth.POST("/donations", s.CreateDonation)
	auth.GET("/donations", oversight, s.AdminListDonations)
	auth.GET("/donations/my-donations", s.ListMyDonations)
	auth.GET("/donations/stats/overview", oversight, s.DonationStats)
	auth.GET("/donations/:id", s.GetDonation)

	admin := auth.Group("/admin", adminOnly)
	admin.GET("/donations", s.AdminListDonations)
	admin.PUT("/donations/:id/verify", s.VerifyDonation)
	admin.PUT("/donations/:id/distribution", s.UpdateDonationDistribution)
	admin.GET("/stats", s.AdminStats)

	transparency := auth.Group("/transparency", adminOnly)
	transparency.GET("", s.ListTransparencyReports)
	transparency.POST("", s.CreateTransparencyReport)
	transparency.GET("/:id", s.GetTransparencyReport)
	transparency.PUT("/:id", s.UpdateTransparencyReport)
	transparency.DELETE("/:id", s.DeleteTransparencyReport)
	transparency.DELETE("/:id/attachments/:kind/:attachmentId", s.RemoveTransparencyAttachment)

	auditor := auth.Group("/auditor", RequireRoles(RoleAuditor))
	auditor.GET("/stats", s.AuditorStats)
	auditor.GET("/causes", s.AuditorListCauses)
	auditor.GET("/causes/:id", s.AuditorCauseDetail)
	auditor.GET("/donations", s.AdminListDonations)
	auditor.GET("/donations/:id", s.AuditorDonationDetail)
	auditor.PUT("/causes/:id/start", s.StartCauseAudit)
	auditor.PUT("/causes/:id/audit", s.MarkCauseAudited)
	auditor.GET("/logs", s.ListAuditLogs)
	auditor.GET("/report", s.AuditReport)

	reports := auth.Group("/reports")
	reports.GET("/donations", adminOnly, s.DonationsReport)
	reports.GET("/donations.xlsx", adminOnly, s.ExportDonations)
	reports.GET("/donors", adminOnly, s.ListDonors)
	reports.GET("/history", adminOnly, s.ReportHistory)
	reports.GET("/donor/:donorId", s.DonorReport)
}

package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donasi/internal/cache"
	causedomain "github.com/smallbiznis/donasi/internal/cause/domain"
	"github.com/smallbiznis/donasi/internal/clock"
	"github.com/smallbiznis/donasi/internal/config"
	donationdomain "github.com/smallbiznis/donasi/internal/donation/domain"
	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dashboardKey    = "dashboard"
	auditorKey      = "auditor"
	recentLimit     = 5
	topCausesLimit  = 10
	monthsOfHistory = 6
	maxAuditCauses  = 500
	maxHistoryPage  = 100
)

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         reportdomain.Repository
	causeRepo    causedomain.Repository
	donationRepo donationdomain.Repository
	clock        clock.Clock
	ttl          time.Duration
	dashboard    cache.Cache[string, reportdomain.DashboardStats]
	auditor      cache.Cache[string, reportdomain.AuditorStats]
}

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Config       config.Config
	Repo         reportdomain.Repository
	CauseRepo    causedomain.Repository
	DonationRepo donationdomain.Repository
	Clock        clock.Clock `optional:"true"`
}

func NewService(p ServiceParam) reportdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	svc := &Service{
		db:           p.DB,
		log:          p.Log.Named("report.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		causeRepo:    p.CauseRepo,
		donationRepo: p.DonationRepo,
		clock:        clk,
		ttl:          p.Config.Report.StatsCacheTTL,
	}
	if svc.ttl > 0 {
		svc.dashboard = cache.NewTTLCache[string, reportdomain.DashboardStats](clk)
		svc.auditor = cache.NewTTLCache[string, reportdomain.AuditorStats](clk)
	} else {
		svc.dashboard = cache.NoopCache[string, reportdomain.DashboardStats]{}
		svc.auditor = cache.NoopCache[string, reportdomain.AuditorStats]{}
	}
	return svc
}

func (s *Service) InvalidateStats() {
	s.dashboard.Purge()
	s.auditor.Purge()
}

func (s *Service) DashboardStats(ctx context.Context) (reportdomain.DashboardStats, error) {
	if cached, ok := s.dashboard.Get(dashboardKey); ok {
		return cached, nil
	}

	now := s.clock.Now()
	all, err := s.repo.DonationTotals(ctx, s.db, reportdomain.DonationQuery{})
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	verified, err := s.repo.DonationTotals(ctx, s.db, verifiedQuery())
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	distributed, err := s.repo.DonationTotals(ctx, s.db, distributedQuery())
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	pending, err := s.repo.DonationTotals(ctx, s.db, reportdomain.DonationQuery{
		Statuses: []donationdomain.Status{donationdomain.StatusPending},
	})
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	donors, err := s.repo.DistinctDonors(ctx, s.db, reportdomain.DonationQuery{})
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	byStatus, err := s.repo.CountCausesByStatus(ctx, s.db)
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	recent, err := s.repo.DonationRows(ctx, s.db, reportdomain.DonationQuery{}, recentLimit)
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}
	byMonth, err := s.donationsByMonth(ctx, now)
	if err != nil {
		return reportdomain.DashboardStats{}, err
	}

	stats := reportdomain.DashboardStats{
		Overview: reportdomain.DashboardOverview{
			TotalDonations:    all.Count,
			TotalAmount:       verified.Amount,
			DistributedAmount: distributed.Amount,
			PendingAmount:     verified.Amount - distributed.Amount,
			ActiveCauses:      byStatus[causedomain.CauseStatusActive],
			TotalCauses:       sumCounts(byStatus),
			TotalDonors:       donors,
			PendingDonations:  pending.Count,
		},
		RecentDonations:  recent,
		DonationsByMonth: byMonth,
		GeneratedAt:      now,
	}
	s.dashboard.Set(dashboardKey, stats, s.ttl)
	return stats, nil
}

func (s *Service) AuditorStats(ctx context.Context) (reportdomain.AuditorStats, error) {
	if cached, ok := s.auditor.Get(auditorKey); ok {
		return cached, nil
	}

	now := s.clock.Now()
	byStatus, err := s.repo.CountCausesByStatus(ctx, s.db)
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	byAudit, err := s.repo.CountCausesByAuditStatus(ctx, s.db)
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	verified, err := s.repo.DonationTotals(ctx, s.db, verifiedQuery())
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	distributed, err := s.repo.DonationTotals(ctx, s.db, distributedQuery())
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	byMonth, err := s.donationsByMonth(ctx, now)
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	byCategory, err := s.repo.CategoryTotals(ctx, s.db, verifiedQuery())
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	top, err := s.repo.TopCauses(ctx, s.db, topCausesLimit)
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	rows, err := s.auditRows(ctx, top)
	if err != nil {
		return reportdomain.AuditorStats{}, err
	}
	if byCategory == nil {
		byCategory = []reportdomain.CategoryTotal{}
	}

	stats := reportdomain.AuditorStats{
		Overview: reportdomain.AuditorOverview{
			TotalCauses:         sumCounts(byStatus),
			ActiveCauses:        byStatus[causedomain.CauseStatusActive],
			TotalDonationAmount: verified.Amount,
			TotalDonationCount:  verified.Count,
			DistributedAmount:   distributed.Amount,
			DistributedCount:    distributed.Count,
			RemainingAmount:     verified.Amount - distributed.Amount,
			PendingAudit:        byAudit[causedomain.AuditStatusPending],
			InProgressAudit:     byAudit[causedomain.AuditStatusInProgress],
			VerifiedAudit:       byAudit[causedomain.AuditStatusVerified],
			FlaggedAudit:        byAudit[causedomain.AuditStatusFlagged],
		},
		DonationsByMonth:    byMonth,
		DonationsByCategory: byCategory,
		CausesAudit:         rows,
		GeneratedAt:         now,
	}
	s.auditor.Set(auditorKey, stats, s.ttl)
	return stats, nil
}

func (s *Service) CausesForAudit(ctx context.Context, filter reportdomain.CauseFilter) ([]reportdomain.CauseAuditRow, error) {
	causes, err := s.listCauses(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.auditRows(ctx, causes)
}

func (s *Service) CauseAuditDetail(ctx context.Context, causeID snowflake.ID) (reportdomain.CauseAuditDetail, error) {
	cause, err := s.causeRepo.FindByID(ctx, s.db, causeID)
	if err != nil {
		return reportdomain.CauseAuditDetail{}, err
	}
	if cause == nil {
		return reportdomain.CauseAuditDetail{}, reportdomain.ErrCauseNotFound
	}

	donations, _, err := s.donationRepo.List(ctx, s.db, donationdomain.ListFilter{CauseID: causeID, Limit: 500})
	if err != nil {
		return reportdomain.CauseAuditDetail{}, err
	}
	if donations == nil {
		donations = []donationdomain.Donation{}
	}
	totals, err := s.repo.CauseTotals(ctx, s.db, []snowflake.ID{causeID})
	if err != nil {
		return reportdomain.CauseAuditDetail{}, err
	}

	return reportdomain.CauseAuditDetail{
		Cause:     causedomain.NewCauseView(*cause, s.clock.Now()),
		Donations: donations,
		Stats:     finishTotals(causeID, totals[causeID]),
	}, nil
}

// DonationOverview summarises donations only. Distributed counts verified donations marked
// distributed or used.
func (s *Service) DonationOverview(ctx context.Context) (reportdomain.DonationOverview, error) {
	all, err := s.repo.DonationTotals(ctx, s.db, reportdomain.DonationQuery{})
	if err != nil {
		return reportdomain.DonationOverview{}, err
	}
	verified, err := s.repo.DonationTotals(ctx, s.db, verifiedQuery())
	if err != nil {
		return reportdomain.DonationOverview{}, err
	}
	distributed, err := s.repo.DonationTotals(ctx, s.db, distributedQuery())
	if err != nil {
		return reportdomain.DonationOverview{}, err
	}
	return reportdomain.DonationOverview{
		TotalDonations:    all.Count,
		VerifiedDonations: verified.Count,
		TotalAmount:       verified.Amount,
		DistributedAmount: distributed.Amount,
		PendingAmount:     verified.Amount - distributed.Amount,
	}, nil
}

func (s *Service) DonationsReport(ctx context.Context, filter reportdomain.DonationsFilter, generatedBy snowflake.ID) (reportdomain.DonationsReport, error) {
	if generatedBy == 0 {
		return reportdomain.DonationsReport{}, reportdomain.ErrMissingGenerator
	}
	rows, summary, err := s.donationRows(ctx, filter)
	if err != nil {
		return reportdomain.DonationsReport{}, err
	}

	reportType := reportdomain.ReportTypeAll
	if filter.CauseID != 0 {
		reportType = reportdomain.ReportTypeCause
	}
	if err := s.logReport(ctx, reportType, filter, summary, generatedBy); err != nil {
		return reportdomain.DonationsReport{}, err
	}
	return reportdomain.DonationsReport{Summary: summary, Donations: rows, Filters: filter}, nil
}

func (s *Service) DonorReport(ctx context.Context, donorID snowflake.ID, filter reportdomain.DonationsFilter, generatedBy snowflake.ID) (reportdomain.DonorReport, error) {
	if donorID == 0 {
		return reportdomain.DonorReport{}, reportdomain.ErrInvalidDonor
	}
	if generatedBy == 0 {
		return reportdomain.DonorReport{}, reportdomain.ErrMissingGenerator
	}
	filter.DonorID = donorID
	rows, summary, err := s.donationRows(ctx, filter)
	if err != nil {
		return reportdomain.DonorReport{}, err
	}
	if err := s.logReport(ctx, reportdomain.ReportTypeDonor, filter, summary, generatedBy); err != nil {
		return reportdomain.DonorReport{}, err
	}
	return reportdomain.DonorReport{DonorID: donorID, Summary: summary, Donations: rows, Filters: filter}, nil
}

func (s *Service) Donors(ctx context.Context) ([]snowflake.ID, error) {
	ids, err := s.repo.DonorIDs(ctx, s.db, verifiedQuery())
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []snowflake.ID{}
	}
	return ids, nil
}

func (s *Service) ReportHistory(ctx context.Context, filter reportdomain.ReportLogFilter) (reportdomain.ReportLogList, error) {
	switch filter.ReportType {
	case "", reportdomain.ReportTypeAll, reportdomain.ReportTypeDonor, reportdomain.ReportTypeCause:
	default:
		return reportdomain.ReportLogList{}, reportdomain.ErrInvalidReportType
	}
	if filter.Limit <= 0 || filter.Limit > maxHistoryPage {
		filter.Limit = maxHistoryPage
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := s.repo.ListReportLogs(ctx, s.db, filter)
	if err != nil {
		return reportdomain.ReportLogList{}, err
	}
	if items == nil {
		items = []reportdomain.ReportLog{}
	}
	return reportdomain.ReportLogList{Items: items, Total: total}, nil
}

func (s *Service) logReport(
	ctx context.Context,
	reportType reportdomain.ReportType,
	filter reportdomain.DonationsFilter,
	summary reportdomain.DonationsSummary,
	generatedBy snowflake.ID,
) error {
	entry := reportdomain.ReportLog{
		ID:                s.genID.Generate(),
		ReportType:        reportType,
		StartDate:         filter.From,
		EndDate:           filter.To,
		TotalAmount:       summary.TotalAmount,
		TotalTransactions: summary.TotalTransactions,
		GeneratedBy:       generatedBy,
		CreatedAt:         s.clock.Now(),
	}
	if filter.DonorID != 0 {
		donorID := filter.DonorID
		entry.DonorID = &donorID
	}
	if filter.CauseID != 0 {
		causeID := filter.CauseID
		entry.CauseID = &causeID
	}
	if err := s.repo.InsertReportLog(ctx, s.db, &entry); err != nil {
		s.log.Error("failed to record report generation",
			zap.String("report_type", string(reportType)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) AuditReport(ctx context.Context, filter reportdomain.CauseFilter, generatedBy snowflake.ID) (reportdomain.AuditReport, error) {
	rows, err := s.CausesForAudit(ctx, filter)
	if err != nil {
		return reportdomain.AuditReport{}, err
	}

	var summary reportdomain.AuditSummary
	for _, row := range rows {
		summary.TotalPrograms++
		summary.TotalAmount += row.CurrentAmount
		summary.DisbursedAmount += row.DisbursedAmount
		summary.DistributedAmount += row.DonationStats.TotalDistributed
		switch row.AuditStatus {
		case causedomain.AuditStatusVerified:
			summary.VerifiedCount++
		case causedomain.AuditStatusFlagged:
			summary.FlaggedCount++
		case causedomain.AuditStatusInProgress:
			summary.InProgressCount++
		default:
			summary.PendingCount++
		}
	}
	summary.RemainingAmount = summary.TotalAmount - summary.DisbursedAmount

	return reportdomain.AuditReport{
		Summary:     summary,
		Causes:      rows,
		Filters:     filter,
		GeneratedAt: s.clock.Now(),
		GeneratedBy: generatedBy,
	}, nil
}

func (s *Service) donationRows(ctx context.Context, filter reportdomain.DonationsFilter) ([]reportdomain.DonationRow, reportdomain.DonationsSummary, error) {
	query, err := donationQuery(filter)
	if err != nil {
		return nil, reportdomain.DonationsSummary{}, err
	}
	rows, err := s.repo.DonationRows(ctx, s.db, query, 0)
	if err != nil {
		return nil, reportdomain.DonationsSummary{}, err
	}

	summary := reportdomain.DonationsSummary{
		ByDistribution: map[string]int64{
			string(donationdomain.DistributionPending):     0,
			string(donationdomain.DistributionDistributed): 0,
			string(donationdomain.DistributionUsed):        0,
		},
	}
	for _, row := range rows {
		summary.TotalTransactions++
		summary.TotalAmount += row.Amount
		summary.ByDistribution[string(row.DistributionStatus)]++
	}
	return rows, summary, nil
}

func (s *Service) listCauses(ctx context.Context, filter reportdomain.CauseFilter) ([]causedomain.Cause, error) {
	category := strings.TrimSpace(filter.Category)
	if category != "" && !causedomain.IsValidCategory(category) {
		return nil, reportdomain.ErrInvalidCategory
	}
	if filter.AuditStatus != "" && !causedomain.IsValidAuditStatus(filter.AuditStatus) {
		return nil, reportdomain.ErrInvalidAuditStatus
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, reportdomain.ErrInvalidDateRange
	}

	causes, _, err := s.causeRepo.List(ctx, s.db, causedomain.ListFilter{
		Category:    category,
		AuditStatus: filter.AuditStatus,
		CreatedFrom: filter.From,
		CreatedTo:   filter.To,
		Limit:       maxAuditCauses,
	})
	return causes, err
}

func (s *Service) auditRows(ctx context.Context, causes []causedomain.Cause) ([]reportdomain.CauseAuditRow, error) {
	ids := make([]snowflake.ID, 0, len(causes))
	for _, cause := range causes {
		ids = append(ids, cause.ID)
	}
	totals, err := s.repo.CauseTotals(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]reportdomain.CauseAuditRow, 0, len(causes))
	for _, cause := range causes {
		rows = append(rows, reportdomain.CauseAuditRow{
			ID:                     cause.ID,
			Title:                  cause.Title,
			Category:               cause.Category,
			Status:                 cause.Status,
			CreatedBy:              cause.CreatedBy,
			CurrentAmount:          cause.CurrentAmount,
			DisbursedAmount:        cause.DisbursedAmount,
			RemainingFunds:         cause.RemainingDisbursement(),
			DisbursementPercentage: cause.DisbursementPercentage(),
			AuditStatus:            cause.AuditStatus,
			AuditedBy:              cause.AuditedBy,
			AuditedAt:              cause.AuditedAt,
			AuditNotes:             cause.AuditNotes,
			DonationStats:          finishTotals(cause.ID, totals[cause.ID]),
			CreatedAt:              cause.CreatedAt,
		})
	}
	return rows, nil
}

// donationsByMonth buckets verified donations from the start of the month six months ago.
func (s *Service) donationsByMonth(ctx context.Context, now time.Time) ([]reportdomain.MonthlyTotal, error) {
	now = now.UTC()
	since := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -monthsOfHistory, 0)
	query := verifiedQuery()
	query.From = &since

	amounts, err := s.repo.DatedAmounts(ctx, s.db, query)
	if err != nil {
		return nil, err
	}

	buckets := make(map[[2]int]*reportdomain.MonthlyTotal)
	for _, item := range amounts {
		at := item.CreatedAt.UTC()
		key := [2]int{at.Year(), int(at.Month())}
		bucket, ok := buckets[key]
		if !ok {
			bucket = &reportdomain.MonthlyTotal{Year: key[0], Month: key[1]}
			buckets[key] = bucket
		}
		bucket.Total += item.Amount
		bucket.Count++
	}

	out := make([]reportdomain.MonthlyTotal, 0, len(buckets))
	for _, bucket := range buckets {
		out = append(out, *bucket)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Month < out[j].Month
	})
	return out, nil
}

func donationQuery(filter reportdomain.DonationsFilter) (reportdomain.DonationQuery, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return reportdomain.DonationQuery{}, reportdomain.ErrInvalidDateRange
	}
	query := reportdomain.DonationQuery{
		CauseID: filter.CauseID,
		DonorID: filter.DonorID,
		From:    filter.From,
		To:      filter.To,
	}
	switch filter.Status {
	case "":
		query.Statuses = []donationdomain.Status{donationdomain.StatusVerified, donationdomain.StatusPending}
	case donationdomain.StatusPending, donationdomain.StatusVerified, donationdomain.StatusFailed, donationdomain.StatusExpired:
		query.Statuses = []donationdomain.Status{filter.Status}
	default:
		return reportdomain.DonationQuery{}, reportdomain.ErrInvalidStatus
	}
	return query, nil
}

func verifiedQuery() reportdomain.DonationQuery {
	return reportdomain.DonationQuery{Statuses: []donationdomain.Status{donationdomain.StatusVerified}}
}

func distributedQuery() reportdomain.DonationQuery {
	return reportdomain.DonationQuery{
		Statuses: []donationdomain.Status{donationdomain.StatusVerified},
		DistributionStatuses: []donationdomain.DistributionStatus{
			donationdomain.DistributionDistributed,
			donationdomain.DistributionUsed,
		},
	}
}

func finishTotals(causeID snowflake.ID, totals reportdomain.CauseTotals) reportdomain.CauseTotals {
	totals.CauseID = causeID
	totals.RemainingFunds = totals.TotalReceived - totals.TotalDistributed
	if totals.TotalReceived > 0 {
		totals.DistributionPercentage = (totals.TotalDistributed*100 + totals.TotalReceived/2) / totals.TotalReceived
	}
	return totals
}

func sumCounts[K comparable](counts map[K]int64) int64 {
	var total int64
	for _, count := range counts {
		total += count
	}
	return total
}

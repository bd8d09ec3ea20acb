package service

import (
	"context"
	"io"

	reportdomain "github.com/smallbiznis/donasi/internal/report/domain"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const donationsSheet = "Donations"

var donationsHeader = []string{
	"ID", "Order ID", "Date", "Donor", "Program", "Category", "Amount", "Status", "Distribution Status",
}

// ExportDonationsXLSX writes the donations report as a single-sheet workbook.
// Anonymous donors are written as "Anonymous".
func (s *Service) ExportDonationsXLSX(ctx context.Context, filter reportdomain.DonationsFilter, w io.Writer) error {
	rows, _, err := s.donationRows(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", donationsSheet); err != nil {
		return err
	}
	for i, h := range donationsHeader {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(donationsSheet, cell, h); err != nil {
			return err
		}
	}

	for i, row := range rows {
		donor := row.DonorID.String()
		if row.IsAnonymous {
			donor = "Anonymous"
		}
		values := []any{
			row.ID.String(),
			row.OrderID,
			row.Date.UTC().Format("2006-01-02 15:04:05"),
			donor,
			row.Program,
			row.Category,
			row.Amount,
			string(row.Status),
			string(row.DistributionStatus),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(donationsSheet, cell, &values); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(donationsSheet, "A", "B", 24)
	_ = f.SetColWidth(donationsSheet, "C", "C", 20)
	_ = f.SetColWidth(donationsSheet, "E", "E", 32)

	return f.Write(w)
}

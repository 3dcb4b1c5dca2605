package ledger

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
)

var exportHeader = []string{"Scheme", "Enrollment ID", "Date", "Type", "Description", "Amount", "Gold Grams", "Points"}

// ExportCSV writes a statement for every enrollment of the user: a header
// block, transaction rows grouped by scheme, and a summary block with one line
// per scheme plus a total.
func (s *Service) ExportCSV(ctx context.Context, userID uuid.UUID, now time.Time, w io.Writer) error {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return err
	}
	return WriteStatement(w, userID, now, rows)
}

func WriteStatement(w io.Writer, userID uuid.UUID, now time.Time, rows []ExportRow) error {
	cw := csv.NewWriter(w)

	cw.Write([]string{"Transaction Statement"})
	cw.Write([]string{"User ID", userID.String()})
	cw.Write([]string{"Generated At", now.UTC().Format(time.RFC3339)})
	cw.Write(nil)
	cw.Write(exportHeader)

	var schemes []string
	bySchemeTx := map[string][]Transaction{}
	var all []Transaction
	for _, row := range rows {
		if _, seen := bySchemeTx[row.SchemeName]; !seen {
			schemes = append(schemes, row.SchemeName)
		}
		bySchemeTx[row.SchemeName] = append(bySchemeTx[row.SchemeName], row.Transaction)
		all = append(all, row.Transaction)

		cw.Write([]string{
			row.SchemeName,
			row.EnrollmentID.String(),
			row.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			string(row.Type),
			row.Description,
			row.Amount.StringFixed(2),
			row.GoldGrams.String(),
			strconv.FormatInt(row.Points, 10),
		})
	}

	cw.Write(nil)
	cw.Write([]string{"Summary"})
	cw.Write([]string{"Scheme", "Deposited Amount", "Deposited Gold Grams", "Withdrawn Amount", "Withdrawn Gold Grams", "Points Earned", "Points Redeemed", "Net Points"})
	for _, name := range schemes {
		cw.Write(summaryLine(name, Summarize(bySchemeTx[name])))
	}
	cw.Write(summaryLine("Total", Summarize(all)))

	cw.Flush()
	return cw.Error()
}

func summaryLine(label string, s Summary) []string {
	return []string{
		label,
		s.DepositedAmount.StringFixed(2),
		s.DepositedGoldGrams.String(),
		s.WithdrawnAmount.StringFixed(2),
		s.WithdrawnGoldGrams.String(),
		strconv.FormatInt(s.PointsEarned, 10),
		strconv.FormatInt(s.PointsRedeemed+s.FeesCharged, 10),
		strconv.FormatInt(s.NetPoints, 10),
	}
}

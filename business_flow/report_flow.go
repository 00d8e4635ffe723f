package businessflow

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/repository"
	"github.com/amirphl/lurewatch/utils"
)

const (
	ReportRecentLimit   = 15
	ReportTopLocations  = 5
	reportFileTimestamp = "20060102_150405"
)

// ReportFlow builds the snapshot report and writes it as a spreadsheet
type ReportFlow interface {
	Build(ctx context.Context) (*models.Report, error)
	Export(ctx context.Context, dir string) (string, error)
}

type ReportFlowImpl struct {
	store *repository.Store
	now   func() time.Time
}

func NewReportFlow(store *repository.Store) ReportFlow {
	return &ReportFlowImpl{store: store, now: utils.UTCNow}
}

// SuccessRate is successful/total as a percentage rounded to two decimals, or 0 when total is 0
func SuccessRate(successful, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(successful)/float64(total)*100*100) / 100
}

// TopLocations counts values and returns the n most frequent
// Ties keep first-seen order; empty values count as Unknown
func TopLocations(values []string, n int) []models.LocationCount {
	index := make(map[string]int)
	var counts []models.LocationCount
	for _, v := range values {
		if v == "" {
			v = models.UnknownLocation
		}
		if i, ok := index[v]; ok {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, models.LocationCount{Name: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func (f *ReportFlowImpl) Build(ctx context.Context) (*models.Report, error) {
	rep := &models.Report{GeneratedAt: f.now()}
	var err error

	if rep.TargetsCount, err = f.store.Targets.Count(ctx, models.TargetFilter{}); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to count targets", err)
	}
	if rep.ClicksCount, err = f.store.Clicks.Count(ctx, models.ClickFilter{}); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to count clicks", err)
	}
	if rep.CredentialsCount, err = f.store.Credentials.Count(ctx, models.CredentialFilter{}); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to count submissions", err)
	}
	if rep.ResultsCount, err = f.store.Results.Count(ctx, models.ResultFilter{}); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to count results", err)
	}
	success := true
	if rep.SuccessfulResults, err = f.store.Results.Count(ctx, models.ResultFilter{Success: &success}); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to count successful results", err)
	}
	rep.SuccessRate = SuccessRate(rep.SuccessfulResults, rep.ResultsCount)

	if rep.Targets, err = f.store.Targets.ByFilter(ctx, models.TargetFilter{}, "id ASC", 0, 0); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to load targets", err)
	}
	if rep.RecentCredentials, err = f.store.Credentials.Recent(ctx, ReportRecentLimit); err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to load recent submissions", err)
	}

	locations, err := f.store.Credentials.Locations(ctx)
	if err != nil {
		return nil, NewBusinessError("REPORT_FAILED", "Failed to load submission locations", err)
	}
	countries := make([]string, 0, len(locations))
	cities := make([]string, 0, len(locations))
	for _, loc := range locations {
		countries = append(countries, loc.CountryOrUnknown())
		cities = append(cities, loc.CityOrUnknown())
	}
	rep.TopCountries = TopLocations(countries, ReportTopLocations)
	rep.TopCities = TopLocations(cities, ReportTopLocations)

	return rep, nil
}

// Export writes report_YYYYMMDD_HHMMSS.xlsx into dir and returns its path
func (f *ReportFlowImpl) Export(ctx context.Context, dir string) (string, error) {
	rep, err := f.Build(ctx)
	if err != nil {
		return "", err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	writeSummarySheet(xl, rep)
	writeTargetsSheet(xl, rep)
	writeCredentialsSheet(xl, rep)
	writeGeographySheet(xl, rep)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", NewBusinessError("EXCEL_WRITE_ERROR", "Failed to create report directory", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.xlsx", rep.GeneratedAt.Format(reportFileTimestamp)))
	if err := xl.SaveAs(path); err != nil {
		return "", NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	logger.FromContext(ctx).Info("report exported", zap.String("path", path))
	return path, nil
}

func writeRows(xl *excelize.File, sheet string, rows [][]any) {
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		_ = xl.SetSheetRow(sheet, cell, &row)
	}
}

func writeSummarySheet(xl *excelize.File, rep *models.Report) {
	xl.SetSheetName(xl.GetSheetName(0), "Summary")
	writeRows(xl, "Summary", [][]any{
		{"metric", "value"},
		{"generated_at", rep.GeneratedAt.Format(time.RFC3339)},
		{"targets", rep.TargetsCount},
		{"clicks", rep.ClicksCount},
		{"submissions", rep.CredentialsCount},
		{"probe_results", rep.ResultsCount},
		{"successful_probes", rep.SuccessfulResults},
		{"success_rate_percent", rep.SuccessRate},
	})
}

func writeTargetsSheet(xl *excelize.File, rep *models.Report) {
	_, _ = xl.NewSheet("Targets")
	rows := [][]any{{"id", "email", "url", "created_at"}}
	for _, t := range rep.Targets {
		rows = append(rows, []any{t.ID, t.Email, t.URL, t.CreatedAt.Format(time.RFC3339)})
	}
	writeRows(xl, "Targets", rows)
}

func writeCredentialsSheet(xl *excelize.File, rep *models.Report) {
	_, _ = xl.NewSheet("Credentials")
	emails := make(map[uint]string, len(rep.Targets))
	for _, t := range rep.Targets {
		emails[t.ID] = t.Email
	}
	rows := [][]any{{"id", "target", "email", "password_submitted", "ip", "country", "city", "token", "created_at"}}
	for _, c := range rep.RecentCredentials {
		loc := c.Location()
		rows = append(rows, []any{
			c.ID, TargetLabel(c.TargetID, emails), c.Email, c.PasswordSubmitted, c.IP,
			loc.CountryOrUnknown(), loc.CityOrUnknown(), c.TokenValue(), c.CreatedAt.Format(time.RFC3339),
		})
	}
	writeRows(xl, "Credentials", rows)
}

func writeGeographySheet(xl *excelize.File, rep *models.Report) {
	_, _ = xl.NewSheet("Geography")
	rows := [][]any{{"rank", "country", "count", "", "rank", "city", "count"}}
	for i := 0; i < max(len(rep.TopCountries), len(rep.TopCities)); i++ {
		row := make([]any, 7)
		if i < len(rep.TopCountries) {
			row[0], row[1], row[2] = i+1, rep.TopCountries[i].Name, rep.TopCountries[i].Count
		}
		if i < len(rep.TopCities) {
			row[4], row[5], row[6] = i+1, rep.TopCities[i].Name, rep.TopCities[i].Count
		}
		rows = append(rows, row)
	}
	writeRows(xl, "Geography", rows)
}

// TargetLabel renders a weak target reference, falling back to "unknown" for nil or orphaned ids
func TargetLabel(id *uint, emails map[uint]string) string {
	if id == nil {
		return "unknown"
	}
	if email, ok := emails[*id]; ok {
		return email
	}
	return "unknown"
}

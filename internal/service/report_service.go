package service

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	"eudguide/internal/leveling"
	"eudguide/internal/logger"
	"eudguide/internal/models"
)

const (
	summarySheet  = "Summary"
	sessionsSheet = "Sessions"
)

// ProfileLister provides the profiles a report covers
type ProfileLister interface {
	Profiles() []models.Profile
}

// ReportService builds the parent progress workbook
type ReportService struct {
	profiles ProfileLister
	log      *logger.Logger
}

func NewReportService(profiles ProfileLister, log *logger.Logger) *ReportService {
	return &ReportService{profiles: profiles, log: log}
}

// WriteProgressReport writes an .xlsx workbook with a summary row per profile
// and one row per study session.
func (s *ReportService) WriteProgressReport(w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.log.Warn("failed to close workbook", "error", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("failed to name summary sheet: %w", err)
	}
	if _, err := f.NewSheet(sessionsSheet); err != nil {
		return fmt.Errorf("failed to create sessions sheet: %w", err)
	}

	profiles := s.profiles.Profiles()

	summaryHeader := []interface{}{"Name", "Standard", "School", "XP", "Level", "Progress %", "XP To Next Level", "Total Minutes", "Sessions", "Recordings", "Certificates"}
	if err := f.SetSheetRow(summarySheet, "A1", &summaryHeader); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	for i, p := range profiles {
		certs := ""
		for j, c := range p.Certificates {
			if j > 0 {
				certs += ", "
			}
			certs += string(c)
		}
		row := []interface{}{
			p.Name, p.Standard, p.School, p.XP, string(p.Rank),
			int(math.Round(leveling.ProgressWithinRank(p.XP) * 100)), leveling.XPToNextRank(p.XP),
			p.TotalMinutes(), len(p.Sessions), len(p.Recordings), certs,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}

	sessionHeader := []interface{}{"Name", "Subject", "Minutes", "XP Earned", "Completed At"}
	if err := f.SetSheetRow(sessionsSheet, "A1", &sessionHeader); err != nil {
		return fmt.Errorf("failed to write sessions header: %w", err)
	}
	rowNum := 2
	for _, p := range profiles {
		for _, sess := range p.Sessions {
			row := []interface{}{
				p.Name, string(sess.Subject), sess.DurationMinutes, sess.XPEarned,
				sess.CompletedAt.UTC().Format(time.RFC3339),
			}
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return err
			}
			if err := f.SetSheetRow(sessionsSheet, cell, &row); err != nil {
				return fmt.Errorf("failed to write session row: %w", err)
			}
			rowNum++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.log.Info("progress report generated", "profiles", len(profiles), "sessions", rowNum-2)
	return nil
}

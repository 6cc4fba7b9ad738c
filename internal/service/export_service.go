package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

// ExportFormat selects the rendering of a timetable export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat defaults to CSV when raw is empty.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
	}
}

// ContentType returns the MIME type of the rendered document.
func (f ExportFormat) ContentType() string {
	if f == ExportFormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

type timetableReader interface {
	Clock() PeriodClock
	ListForSection(ctx context.Context, sectionID string) ([]models.TimetableEntry, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// TimetableExport is a rendered week grid ready to be streamed.
type TimetableExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders section and teacher weeks as printable grids.
type ExportService struct {
	timetable timetableReader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(timetable timetableReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{timetable: timetable, csv: csv, pdf: pdf, logger: logger}
}

// ExportSection renders the active week of a section. Cells list subject, teacher and room.
func (s *ExportService) ExportSection(ctx context.Context, sectionID string, format ExportFormat) (*TimetableExport, error) {
	sectionID = strings.TrimSpace(sectionID)
	if sectionID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "section id is required")
	}
	entries, err := s.timetable.ListForSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	table, err := s.weekTable(fmt.Sprintf("Timetable section %s", sectionID), entries, func(e models.TimetableEntry) string {
		return strings.Join([]string{e.SubjectID, e.TeacherID, e.Room}, "\n")
	})
	if err != nil {
		return nil, err
	}
	return s.render(table, "section", sectionID, format)
}

// ExportTeacher renders the active week of a teacher. Cells list subject, section and room.
func (s *ExportService) ExportTeacher(ctx context.Context, teacherID string, format ExportFormat) (*TimetableExport, error) {
	teacherID = strings.TrimSpace(teacherID)
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher id is required")
	}
	entries, err := s.timetable.ListForTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	table, err := s.weekTable(fmt.Sprintf("Timetable teacher %s", teacherID), entries, func(e models.TimetableEntry) string {
		return strings.Join([]string{e.SubjectID, e.SectionID, e.Room}, "\n")
	})
	if err != nil {
		return nil, err
	}
	return s.render(table, "teacher", teacherID, format)
}

func (s *ExportService) weekTable(title string, entries []models.TimetableEntry, label func(models.TimetableEntry) string) (export.Table, error) {
	clock := s.timetable.Clock()
	slots, err := clock.Slots()
	if err != nil {
		return export.Table{}, err
	}

	column := make(map[models.DayOfWeek]int, len(clock.Days))
	headers := []string{"Period", "Time"}
	for i, day := range clock.Days {
		column[day] = i + 2
		headers = append(headers, day.String())
	}

	rows := make([][]string, len(slots))
	for i, slot := range slots {
		rows[i] = make([]string, len(headers))
		rows[i][0] = fmt.Sprintf("%d", slot.Period)
		rows[i][1] = fmt.Sprintf("%s-%s", slot.StartTime, slot.EndTime)
	}

	for _, entry := range entries {
		col, ok := column[entry.DayOfWeek]
		if !ok || entry.Period < 1 || entry.Period > len(rows) {
			s.logger.Warn("timetable entry outside configured grid",
				zap.String("entry_id", entry.ID),
				zap.String("day", entry.DayOfWeek.String()),
				zap.Int("period", entry.Period),
			)
			continue
		}
		rows[entry.Period-1][col] = label(entry)
	}

	return export.Table{Title: title, Headers: headers, Rows: rows}, nil
}

func (s *ExportService) render(table export.Table, owner, id string, format ExportFormat) (*TimetableExport, error) {
	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	return &TimetableExport{
		Filename:    fmt.Sprintf("timetable_%s_%s.%s", owner, sanitizeFilename(id), format),
		ContentType: format.ContentType(),
		Payload:     payload,
	}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "\"", "")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

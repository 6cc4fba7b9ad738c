package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableLifecycle interface {
	Clock() service.PeriodClock
	Create(ctx context.Context, req dto.CreateTimetableEntryRequest) (*models.TimetableEntry, error)
	Reschedule(ctx context.Context, id string, req dto.RescheduleTimetableEntryRequest) (*models.TimetableEntry, error)
	ReassignTeacherOrRoom(ctx context.Context, id string, req dto.ReassignTimetableEntryRequest) (*models.TimetableEntry, error)
	Cancel(ctx context.Context, id string) (*models.TimetableEntry, error)
	Get(ctx context.Context, id string) (*models.TimetableEntry, error)
	ListForSection(ctx context.Context, sectionID string) ([]models.TimetableEntry, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error)
	Check(ctx context.Context, req dto.ValidateTimetableEntryRequest) (*dto.TimetableValidationResult, error)
}

type timetableExporter interface {
	ExportSection(ctx context.Context, sectionID string, format service.ExportFormat) (*service.TimetableExport, error)
	ExportTeacher(ctx context.Context, teacherID string, format service.ExportFormat) (*service.TimetableExport, error)
}

// TimetableHandler exposes timetable entry endpoints.
type TimetableHandler struct {
	service  timetableLifecycle
	exporter timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, exporter *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exporter: exporter}
}

// Periods godoc
// @Summary List the configured period windows
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/periods [get]
func (h *TimetableHandler) Periods(c *gin.Context) {
	clock := h.service.Clock()
	slots, err := clock.Slots()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.PeriodGridResponse{Days: clock.Days, Periods: slots})
}

// Create godoc
// @Summary Create timetable entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableEntryRequest true "Timetable entry payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.CreateTimetableEntryRequest
	if !bindJSON(c, &req, "invalid timetable entry payload") {
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Get godoc
// @Summary Get timetable entry
// @Tags Timetable
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/entries/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "entry")
	if !ok {
		return
	}
	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Reschedule godoc
// @Summary Move timetable entry to another day and period
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.RescheduleTimetableEntryRequest true "Target slot"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries/{id}/schedule [patch]
func (h *TimetableHandler) Reschedule(c *gin.Context) {
	id, ok := pathID(c, "entry")
	if !ok {
		return
	}
	var req dto.RescheduleTimetableEntryRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	entry, err := h.service.Reschedule(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Reassign godoc
// @Summary Change teacher, subject or room of a timetable entry
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body dto.ReassignTimetableEntryRequest true "Assignment changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/entries/{id}/assignment [patch]
func (h *TimetableHandler) Reassign(c *gin.Context) {
	id, ok := pathID(c, "entry")
	if !ok {
		return
	}
	var req dto.ReassignTimetableEntryRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	entry, err := h.service.ReassignTeacherOrRoom(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Cancel godoc
// @Summary Cancel timetable entry and free its slot
// @Tags Timetable
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/entries/{id} [delete]
func (h *TimetableHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "entry")
	if !ok {
		return
	}
	entry, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry)
}

// Validate godoc
// @Summary Check a placement against committed entries without saving it
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ValidateTimetableEntryRequest true "Candidate placement"
// @Success 200 {object} response.Envelope
// @Router /timetable/validate [post]
func (h *TimetableHandler) Validate(c *gin.Context) {
	var req dto.ValidateTimetableEntryRequest
	if !bindJSON(c, &req, "invalid validation payload") {
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// SectionTimetable godoc
// @Summary List the active week of a section
// @Tags Timetable
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /sections/{id}/timetable [get]
func (h *TimetableHandler) SectionTimetable(c *gin.Context) {
	id, ok := pathID(c, "section")
	if !ok {
		return
	}
	entries, err := h.service.ListForSection(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// TeacherTimetable godoc
// @Summary List the active week of a teacher
// @Tags Timetable
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/timetable [get]
func (h *TimetableHandler) TeacherTimetable(c *gin.Context) {
	id, ok := pathID(c, "teacher")
	if !ok {
		return
	}
	entries, err := h.service.ListForTeacher(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, map[string]interface{}{"count": len(entries)})
}

// ExportSection godoc
// @Summary Download the week grid of a section
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Section ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /sections/{id}/timetable/export [get]
func (h *TimetableHandler) ExportSection(c *gin.Context) {
	h.export(c, "section", h.exporter.ExportSection)
}

// ExportTeacher godoc
// @Summary Download the week grid of a teacher
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /teachers/{id}/timetable/export [get]
func (h *TimetableHandler) ExportTeacher(c *gin.Context) {
	h.export(c, "teacher", h.exporter.ExportTeacher)
}

func (h *TimetableHandler) export(c *gin.Context, label string, render func(ctx context.Context, id string, format service.ExportFormat) (*service.TimetableExport, error)) {
	id, ok := pathID(c, label)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	out, err := render(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, out.Filename, out.ContentType, out.Payload)
}

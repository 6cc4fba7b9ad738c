package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

const maxRequirements = 64

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
}

// TimetableGeneratorHandler exposes the section auto-generator.
type TimetableGeneratorHandler struct {
	service timetableGenerator
}

// NewTimetableGeneratorHandler constructs the handler.
func NewTimetableGeneratorHandler(svc *service.TimetableGeneratorService) *TimetableGeneratorHandler {
	return &TimetableGeneratorHandler{service: svc}
}

// Generate godoc
// @Summary Fill a section week from its subject requirements
// @Description Places every requirement first-fit in grid order. With dry_run the plan is returned as PROPOSED entries and nothing is saved.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body dto.GenerateTimetableRequest false "Generation options"
// @Success 200 {object} response.Envelope
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /sections/{id}/timetable/generate [post]
func (h *TimetableGeneratorHandler) Generate(c *gin.Context) {
	sectionID, ok := pathID(c, "section")
	if !ok {
		return
	}
	var req dto.GenerateTimetableRequest
	if !bindOptionalJSON(c, &req, "invalid generate payload") {
		return
	}
	if len(req.Requirements) > maxRequirements {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "requirements exceeds supported limit"))
		return
	}
	req.SectionID = sectionID

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if result.DryRun {
		response.JSON(c, http.StatusOK, result, map[string]interface{}{"mode": "preview"})
		return
	}
	response.JSON(c, http.StatusCreated, result, map[string]interface{}{"mode": "committed"})
}

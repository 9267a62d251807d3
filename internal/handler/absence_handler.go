package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/dto"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type substituteFinder interface {
	FindSubstitute(ctx context.Context, absenceID string) (*dto.SubstituteResponse, error)
}

// AbsenceHandler exposes substitute recommendations for lecturer absences.
type AbsenceHandler struct {
	service substituteFinder
}

// NewAbsenceHandler constructs the handler.
func NewAbsenceHandler(svc *service.SubstituteService) *AbsenceHandler {
	return &AbsenceHandler{service: svc}
}

// Substitute godoc
// @Summary Recommend a substitute lecturer
// @Description Ranks free, qualified lecturers for the session the absence covers and records the best candidate.
// @Tags Absences
// @Produce json
// @Param id path string true "Absence ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /absences/{id}/substitute [post]
func (h *AbsenceHandler) Substitute(c *gin.Context) {
	result, err := h.service.FindSubstitute(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

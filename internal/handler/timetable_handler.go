package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-timetable-api/internal/dto"
	"github.com/noah-isme/campus-timetable-api/internal/middleware"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/response"
)

type timetableProvider interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error)
	GetRun(ctx context.Context, id string) (*dto.GenerationRunResponse, error)
	BatchTimetable(ctx context.Context, batchID string) (*dto.TimetableView, bool, error)
	FacultyTimetable(ctx context.Context, facultyID string) (*dto.TimetableView, bool, error)
	Export(ctx context.Context, batchID, format string) (*service.ExportFile, error)
}

// TimetableHandler exposes timetable generation and read endpoints.
type TimetableHandler struct {
	service timetableProvider
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate weekly timetables
// @Description Runs the scheduler for the given batches and replaces their stored timetable. Partial results are stored and returned with success=false.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /timetable/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Because(appErrors.ErrValidation, err, "invalid generation payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// GenerateAsync godoc
// @Summary Queue a timetable generation run
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetable/generate/async [post]
func (h *TimetableHandler) GenerateAsync(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Because(appErrors.ErrValidation, err, "invalid generation payload"))
		return
	}
	run, err := h.service.GenerateAsync(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run)
}

// Run godoc
// @Summary Get a generation run
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/runs/{id} [get]
func (h *TimetableHandler) Run(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, run)
}

// Batch godoc
// @Summary Get the timetable of a batch
// @Tags Timetable
// @Produce json
// @Param batch_id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/batch/{batch_id} [get]
func (h *TimetableHandler) Batch(c *gin.Context) {
	view, hit, err := h.service.BatchTimetable(c.Request.Context(), c.Param("batch_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
}

// Faculty godoc
// @Summary Get the teaching timetable of a lecturer
// @Tags Timetable
// @Produce json
// @Param faculty_id path string true "Faculty ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable/faculty/{faculty_id} [get]
func (h *TimetableHandler) Faculty(c *gin.Context) {
	view, hit, err := h.service.FacultyTimetable(c.Request.Context(), c.Param("faculty_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, view, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download a batch timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param batch_id path string true "Batch ID"
// @Param format query string false "csv or pdf" Enums(csv, pdf)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timetable/batch/{batch_id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportTimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Because(appErrors.ErrValidation, err, "invalid export query"))
		return
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("batch_id"), query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

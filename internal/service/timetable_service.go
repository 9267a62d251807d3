package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-timetable-api/internal/dto"
	"github.com/noah-isme/campus-timetable-api/internal/models"
	"github.com/noah-isme/campus-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/campus-timetable-api/pkg/errors"
	"github.com/noah-isme/campus-timetable-api/pkg/export"
	"github.com/noah-isme/campus-timetable-api/pkg/jobs"
)

type snapshotLoader interface {
	Load(ctx context.Context) (*scheduler.Snapshot, error)
}

type timetableStore interface {
	ReplaceForBatches(ctx context.Context, batchIDs []string, entries []models.TimetableEntry) error
	ListAll(ctx context.Context) ([]models.TimetableEntry, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.TimetableEntryDetail, error)
	ListByFaculty(ctx context.Context, facultyID string) ([]models.TimetableEntryDetail, error)
}

type batchReader interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
}

type facultyReader interface {
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

// TimetableServiceConfig governs generation defaults and the async run queue.
type TimetableServiceConfig struct {
	Defaults  scheduler.Options
	Workers   int
	QueueSize int
	RunTTL    time.Duration
}

// ExportFile is a rendered timetable download.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// TimetableService generates, stores and serves weekly timetables.
type TimetableService struct {
	loader     snapshotLoader
	timetables timetableStore
	batches    batchReader
	faculty    facultyReader
	cache      *TimetableCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig

	queue *jobs.Queue[dto.GenerateTimetableRequest]
	runs  *jobs.Tracker[dto.GenerateTimetableResponse]
	csv   *export.CSVExporter
	pdf   *export.PDFExporter
}

// NewTimetableService wires the timetable pipeline. Call Start before GenerateAsync.
func NewTimetableService(
	loader snapshotLoader,
	timetables timetableStore,
	batches batchReader,
	faculty facultyReader,
	cache *TimetableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Defaults.Budget.MaxNodes == 0 && cfg.Defaults.Budget.TimeLimit == 0 {
		cfg.Defaults = scheduler.DefaultOptions()
	}
	s := &TimetableService{
		loader:     loader,
		timetables: timetables,
		batches:    batches,
		faculty:    faculty,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		runs:       jobs.NewTracker[dto.GenerateTimetableResponse](cfg.RunTTL),
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
	}
	s.queue = jobs.NewQueue[dto.GenerateTimetableRequest]("timetable-generation", s.runJob, jobs.QueueConfig[dto.GenerateTimetableRequest]{
		Workers:    cfg.Workers,
		BufferSize: cfg.QueueSize,
		Logger:     logger,
		OnDepth:    metrics.SetQueueDepth,
		OnAbandon: func(job jobs.Job[dto.GenerateTimetableRequest], err error) {
			s.runs.Failed(job.ID, appErrors.Because(appErrors.ErrInternal, err, "generation run abandoned"))
		},
	})
	return s
}

// Start launches the async generation workers.
func (s *TimetableService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop cancels queued and running async generations.
func (s *TimetableService) Stop() {
	s.queue.Stop()
}

// Generate runs the scheduler for the requested batches and replaces their stored timetable.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Because(appErrors.ErrValidation, err, "invalid timetable generation payload")
	}
	opts, err := applyConstraints(s.cfg.Defaults, req.Constraints)
	if err != nil {
		return nil, err
	}
	opts.Logger = s.logger.Named("scheduler")

	snap, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := s.timetables.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to load stored timetable")
	}
	reservations, skipped := scheduler.ReserveEntries(stored, opts.Constraints.PeriodDuration)
	if len(skipped) > 0 {
		s.logger.Warn("stored entries ignored as occupancy", zap.Strings("entries", skipped))
	}
	opts.Reservations = reservations

	engine, err := scheduler.New(snap, opts)
	if err != nil {
		return nil, appErrors.Because(appErrors.ErrValidation, err, "invalid timetable constraints")
	}

	batchIDs := uniqueIDs(req.BatchIDs)
	result, err := engine.Run(ctx, batchIDs)
	if err != nil {
		var cfgErr *scheduler.ConfigurationError
		if errors.As(err, &cfgErr) {
			s.metrics.ObserveGeneration(RunOutcomeConfigError, 0, 0, 0)
			return nil, appErrors.WithDetails(appErrors.Because(appErrors.ErrConfiguration, err, ""), cfgErr.Issues)
		}
		s.metrics.ObserveGeneration(RunOutcomeFailed, 0, 0, 0)
		return nil, appErrors.Because(appErrors.ErrInternal, err, "timetable generation failed")
	}

	entries := toEntries(result)
	if err := s.timetables.ReplaceForBatches(ctx, batchIDs, entries); err != nil {
		s.metrics.ObserveGeneration(RunOutcomeFailed, result.Stats.Duration, result.Stats.Nodes, len(result.Unscheduled))
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to store timetable")
	}
	s.cache.Purge(ctx)

	outcome := RunOutcomeComplete
	if !result.Complete() {
		outcome = RunOutcomePartial
	}
	s.metrics.ObserveGeneration(outcome, result.Stats.Duration, result.Stats.Nodes, len(result.Unscheduled))
	s.logger.Info("timetable generated",
		zap.Strings("batches", batchIDs),
		zap.String("status", string(result.Status)),
		zap.Int("scheduled", len(result.Assignments)),
		zap.Int("unscheduled", len(result.Unscheduled)),
	)

	return toGenerateResponse(result), nil
}

// GenerateAsync validates the request and queues it, returning the run to poll.
func (s *TimetableService) GenerateAsync(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationRunResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Because(appErrors.ErrValidation, err, "invalid timetable generation payload")
	}
	if _, err := applyConstraints(s.cfg.Defaults, req.Constraints); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	s.runs.Queued(id)
	if err := s.queue.Enqueue(jobs.Job[dto.GenerateTimetableRequest]{ID: id, Payload: req}); err != nil {
		s.runs.Forget(id)
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "generation queue is full, retry later")
		}
		return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to queue generation")
	}
	return s.GetRun(ctx, id)
}

// GetRun reports an async run. Finished runs are forgotten after the run TTL.
func (s *TimetableService) GetRun(_ context.Context, id string) (*dto.GenerationRunResponse, error) {
	rec, ok := s.runs.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "generation run not found or expired")
	}
	resp := &dto.GenerationRunResponse{
		RunID:      rec.ID,
		Status:     string(rec.Status),
		Result:     rec.Result,
		EnqueuedAt: rec.EnqueuedAt,
		StartedAt:  rec.StartedAt,
		FinishedAt: rec.FinishedAt,
	}
	if rec.Error != nil {
		resp.Error = appErrors.FromError(rec.Error).Message
	}
	return resp, nil
}

func (s *TimetableService) runJob(ctx context.Context, job jobs.Job[dto.GenerateTimetableRequest]) error {
	s.runs.Running(job.ID)
	resp, err := s.Generate(ctx, job.Payload)
	if err != nil {
		s.runs.Failed(job.ID, err)
		return err
	}
	s.runs.Succeeded(job.ID, resp)
	return nil
}

// BatchTimetable returns the stored timetable of a batch. The bool reports a cache hit.
func (s *TimetableService) BatchTimetable(ctx context.Context, batchID string) (*dto.TimetableView, bool, error) {
	if view, hit := s.cache.View(ctx, "batch", batchID); hit {
		return view, true, nil
	}
	if _, err := s.batches.FindByID(ctx, batchID); err != nil {
		return nil, false, notFoundOr(err, "batch not found", "failed to load batch")
	}
	entries, err := s.timetables.ListByBatch(ctx, batchID)
	if err != nil {
		return nil, false, appErrors.Because(appErrors.ErrInternal, err, "failed to load batch timetable")
	}
	view := dto.TimetableView{OwnerID: batchID, Kind: "batch", Entries: nonNilEntries(entries)}
	s.cache.Remember(ctx, view)
	return &view, false, nil
}

// FacultyTimetable returns the sessions a lecturer teaches. The bool reports a cache hit.
func (s *TimetableService) FacultyTimetable(ctx context.Context, facultyID string) (*dto.TimetableView, bool, error) {
	if view, hit := s.cache.View(ctx, "faculty", facultyID); hit {
		return view, true, nil
	}
	if _, err := s.faculty.FindByID(ctx, facultyID); err != nil {
		return nil, false, notFoundOr(err, "faculty not found", "failed to load faculty")
	}
	entries, err := s.timetables.ListByFaculty(ctx, facultyID)
	if err != nil {
		return nil, false, appErrors.Because(appErrors.ErrInternal, err, "failed to load faculty timetable")
	}
	view := dto.TimetableView{OwnerID: facultyID, Kind: "faculty", Entries: nonNilEntries(entries)}
	s.cache.Remember(ctx, view)
	return &view, false, nil
}

// Export renders a batch timetable as CSV rows or as a weekly PDF grid.
func (s *TimetableService) Export(ctx context.Context, batchID, format string) (*ExportFile, error) {
	if format == "" {
		format = "csv"
	}
	if err := s.validator.Struct(dto.ExportTimetableQuery{Format: format}); err != nil {
		return nil, appErrors.Because(appErrors.ErrUnsupported, err, "")
	}
	view, _, err := s.BatchTimetable(ctx, batchID)
	if err != nil {
		return nil, err
	}

	switch format {
	case "pdf":
		content, err := s.pdf.RenderGrid(timetableGrid(batchID, view.Entries, s.cfg.Defaults.Constraints.Days))
		if err != nil {
			return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to render pdf")
		}
		return &ExportFile{Filename: batchID + "-timetable.pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		content, err := s.csv.Render(timetableTable(view.Entries))
		if err != nil {
			return nil, appErrors.Because(appErrors.ErrInternal, err, "failed to render csv")
		}
		return &ExportFile{Filename: batchID + "-timetable.csv", ContentType: "text/csv", Content: content}, nil
	}
}

func toEntries(res *scheduler.Result) []models.TimetableEntry {
	entries := make([]models.TimetableEntry, 0, len(res.Assignments))
	for _, a := range res.Assignments {
		entries = append(entries, models.TimetableEntry{
			BatchID:      a.Requirement.BatchID,
			SubjectID:    a.Requirement.SubjectID,
			FacultyID:    a.FacultyID,
			ClassroomID:  a.ClassroomID,
			Day:          scheduler.DayName(a.Slot().Day),
			TimeSlot:     res.Grid.SpanLabel(a.Slots),
			SessionIndex: a.Requirement.SessionIndex,
			Periods:      len(a.Slots),
		})
	}
	return entries
}

func toScheduledSession(grid *scheduler.Grid, a *scheduler.Assignment) dto.ScheduledSession {
	return dto.ScheduledSession{
		BatchID:      a.Requirement.BatchID,
		SubjectID:    a.Requirement.SubjectID,
		FacultyID:    a.FacultyID,
		ClassroomID:  a.ClassroomID,
		Day:          scheduler.DayName(a.Slot().Day),
		TimeSlot:     grid.SpanLabel(a.Slots),
		SessionIndex: a.Requirement.SessionIndex,
		Periods:      len(a.Slots),
	}
}

func toGenerateResponse(res *scheduler.Result) *dto.GenerateTimetableResponse {
	resp := &dto.GenerateTimetableResponse{
		Success:     res.Complete(),
		Status:      string(res.Status),
		Scheduled:   make([]dto.ScheduledSession, 0, len(res.Assignments)),
		Unscheduled: make([]dto.UnscheduledSession, 0, len(res.Unscheduled)),
		Stats: dto.GenerationStats{
			Nodes:            res.Stats.Nodes,
			Backtracks:       res.Stats.Backtracks,
			Exhausted:        res.Stats.Exhausted,
			Score:            res.Stats.Score,
			RepairIterations: res.Stats.RepairIterations,
			Partitions:       res.Stats.Partitions,
			DurationMS:       res.Stats.Duration.Milliseconds(),
		},
	}
	for _, a := range res.Assignments {
		resp.Scheduled = append(resp.Scheduled, toScheduledSession(res.Grid, a))
	}
	for _, u := range res.Unscheduled {
		resp.Unscheduled = append(resp.Unscheduled, dto.UnscheduledSession{
			BatchID:      u.Requirement.BatchID,
			SubjectID:    u.Requirement.SubjectID,
			SessionIndex: u.Requirement.SessionIndex,
			Reason:       string(u.Reason.Kind),
			Detail:       u.Reason.Detail,
		})
	}
	return resp
}

var exportHeaders = []string{"day", "time_slot", "subject_code", "subject", "faculty", "classroom", "periods"}

func timetableTable(entries []models.TimetableEntryDetail) export.Table {
	table := export.Table{Headers: exportHeaders}
	for _, e := range entries {
		table.AddRow(e.Day, e.TimeSlot, e.SubjectCode, e.SubjectName, e.FacultyName, e.ClassroomName, strconv.Itoa(e.Periods))
	}
	return table
}

// timetableGrid lays entries out by time slot label and day. Days outside the
// configured week still get a column when an entry uses them.
func timetableGrid(batchID string, entries []models.TimetableEntryDetail, week []time.Weekday) export.Grid {
	dayIndex := make(map[string]int)
	var columns []string
	addDay := func(name string) {
		if _, ok := dayIndex[name]; !ok {
			dayIndex[name] = len(columns)
			columns = append(columns, name)
		}
	}
	for _, d := range week {
		addDay(scheduler.DayName(d))
	}
	labels := make(map[string]bool)
	for _, e := range entries {
		addDay(e.Day)
		labels[e.TimeSlot] = true
	}

	ordered := make([]string, 0, len(labels))
	for label := range labels {
		ordered = append(ordered, label)
	}
	sort.Strings(ordered)

	title := batchID
	if len(entries) > 0 && entries[0].BatchName != "" {
		title = entries[0].BatchName
	}
	grid := export.Grid{Title: title + " timetable", Columns: columns}
	for _, label := range ordered {
		row := export.GridRow{Label: label, Cells: make([]string, len(columns))}
		for _, e := range entries {
			if e.TimeSlot != label {
				continue
			}
			cell := strings.Join([]string{e.SubjectName, e.FacultyName, e.ClassroomName}, "\n")
			i := dayIndex[e.Day]
			if row.Cells[i] != "" {
				cell = row.Cells[i] + "\n" + cell
			}
			row.Cells[i] = cell
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func nonNilEntries(entries []models.TimetableEntryDetail) []models.TimetableEntryDetail {
	if entries == nil {
		return []models.TimetableEntryDetail{}
	}
	return entries
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Because(appErrors.ErrInternal, err, internal)
}

package handler

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/engine"
	"github.com/haatos/secpipe/internal/service"
	"github.com/haatos/secpipe/internal/store"
	"github.com/labstack/echo/v4"
)

const defaultRunsLimit int64 = 10

func sseTimeout() time.Duration {
	if internal.Config != nil && internal.Config.SSETimeoutSec > 0 {
		return time.Duration(internal.Config.SSETimeoutSec) * time.Second
	}
	return time.Hour
}

type RunQueuer interface {
	Enqueue(run *store.Run) error
	Cancel(runID string)
}

func SetupPipelineRoutes(
	g *echo.Group,
	pipelineService service.PipelineServicer,
	queue RunQueuer,
	outputClients *service.SSEClientMap[string],
	statusClients *service.SSEClientMap[store.Run],
) {
	h := NewPipelineHandler(pipelineService, queue, outputClients, statusClients)
	g.GET("/pipelines", h.GetPipelines)
	g.GET("/pipelines/:pipeline/runs", h.GetLatestPipelineRuns)
	g.POST("/pipelines/:pipeline/runs", h.PostPipelineRun)
	g.GET("/runs/:run_id", h.GetRun)
	g.POST("/runs/:run_id/cancel", h.PostCancelRun)
	g.GET("/runs/:run_id/output", h.GetRunOutput)
	g.GET("/runs/:run_id/output/sse", h.GetRunOutputSSE)
	g.GET("/runs/:run_id/status/sse", h.GetRunStatusSSE)
	g.GET("/runs/:run_id/report", h.GetRunReport)
	g.GET("/runs/:run_id/artifacts", h.GetRunArtifacts)
	g.GET("/runs/:run_id/artifacts/:label", h.GetRunArtifact)
}

type PipelineHandler struct {
	pipelineService service.PipelineServicer
	queue           RunQueuer
	outputClients   *service.SSEClientMap[string]
	statusClients   *service.SSEClientMap[store.Run]
}

func NewPipelineHandler(
	pipelineService service.PipelineServicer,
	queue RunQueuer,
	outputClients *service.SSEClientMap[string],
	statusClients *service.SSEClientMap[store.Run],
) *PipelineHandler {
	return &PipelineHandler{
		pipelineService: pipelineService,
		queue:           queue,
		outputClients:   outputClients,
		statusClients:   statusClients,
	}
}

type PipelineSummary struct {
	Name         string `json:"name"`
	DashboardURL string `json:"dashboard_url,omitempty"`
	Schedule     string `json:"schedule,omitempty"`
	Stages       int    `json:"stages"`
	Agent        string `json:"agent,omitempty"`
}

func (h *PipelineHandler) GetPipelines(c echo.Context) error {
	pipelines := h.pipelineService.ListPipelines()
	summaries := make([]PipelineSummary, 0, len(pipelines))
	for _, p := range pipelines {
		s := PipelineSummary{
			Name:         p.Name,
			DashboardURL: p.DashboardURL,
			Schedule:     p.Schedule,
			Stages:       len(p.Stages),
		}
		if p.Agent != nil {
			s.Agent = p.Agent.Hostname
		}
		summaries = append(summaries, s)
	}
	return c.JSON(http.StatusOK, summaries)
}

// RunPage is the paginated response for a pipeline's run history.
type RunPage struct {
	Total int64       `json:"total"`
	Runs  []store.Run `json:"runs"`
}

func (h *PipelineHandler) GetLatestPipelineRuns(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid pipeline data")
	}
	if rp.Limit <= 0 {
		rp.Limit = defaultRunsLimit
	}

	if _, err := h.pipelineService.GetPipeline(rp.Pipeline); err != nil {
		return newError(c, err, http.StatusNotFound, "pipeline not found")
	}

	if c.QueryParams().Has("offset") {
		total, err := h.pipelineService.CountPipelineRuns(c.Request().Context(), rp.Pipeline)
		if err != nil {
			return newError(c, err, http.StatusInternalServerError, "unable to count pipeline runs")
		}
		runs, err := h.pipelineService.ListPipelineRunsPaginated(
			c.Request().Context(), rp.Pipeline, rp.Limit, rp.Offset,
		)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusInternalServerError, "unable to list pipeline runs")
		}
		return c.JSON(http.StatusOK, RunPage{Total: total, Runs: runs})
	}

	runs, err := h.pipelineService.ListLatestPipelineRuns(
		c.Request().Context(), rp.Pipeline, rp.Limit,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return newError(c, err, http.StatusInternalServerError, "unable to list pipeline runs")
	}
	return c.JSON(http.StatusOK, runs)
}

func (h *PipelineHandler) PostPipelineRun(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid pipeline data")
	}

	r, err := h.pipelineService.CreateRun(c.Request().Context(), rp.Pipeline)
	if err != nil {
		var unknown service.ErrUnknownPipeline
		if errors.As(err, &unknown) {
			return newError(c, err, http.StatusNotFound, "pipeline not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to create pipeline run")
	}

	if err := h.queue.Enqueue(r); err != nil {
		return newError(c, err, http.StatusServiceUnavailable, "pipeline run queue is full")
	}

	return c.JSON(http.StatusCreated, r)
}

func (h *PipelineHandler) GetRun(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	r, err := h.pipelineService.GetRunByID(c.Request().Context(), rp.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "run not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to read run data")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *PipelineHandler) PostCancelRun(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	if _, err := h.pipelineService.GetRunByID(c.Request().Context(), rp.RunID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "run not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to read run data")
	}

	h.queue.Cancel(rp.RunID)
	return c.NoContent(http.StatusAccepted)
}

func (h *PipelineHandler) GetRunOutput(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	r, err := h.pipelineService.GetRunByID(c.Request().Context(), rp.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "run not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to read run data")
	}

	output := ""
	if r.Output != nil {
		output = *r.Output
	}
	return c.String(http.StatusOK, output)
}

func (h *PipelineHandler) GetRunOutputSSE(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := uuid.NewString()
	ch := h.outputClients.AddClient(rp.RunID, id)
	defer h.outputClients.RemoveClient(rp.RunID, id)

	deadline := time.After(sseTimeout())
	for {
		select {
		case <-c.Request().Context().Done():
			// client disconnected
			return nil
		case <-deadline:
			return nil
		case out, ok := <-ch:
			if !ok {
				return nil
			}
			event := &Event{Data: []byte(out)}
			if err := event.MarshalTo(w); err != nil {
				return nil
			}
			w.Flush()
		case <-time.After(15 * time.Second):
			// keep intermediaries from timing out an idle stream
			fmt.Fprint(w, ": keep-alive\n\n")
			w.Flush()
		}
	}
}

func (h *PipelineHandler) GetRunStatusSSE(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id := uuid.NewString()
	ch := h.statusClients.AddClient(rp.RunID, id)
	defer h.statusClients.RemoveClient(rp.RunID, id)

	deadline := time.After(sseTimeout())
	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case <-deadline:
			return nil
		case r, ok := <-ch:
			if !ok {
				return nil
			}
			b, err := json.Marshal(r)
			if err != nil {
				continue
			}
			event := &Event{Event: []byte("status"), Data: b}
			if err := event.MarshalTo(w); err != nil {
				return nil
			}
			w.Flush()
			if r.EndedOn != nil {
				return nil
			}
		case <-time.After(15 * time.Second):
			fmt.Fprint(w, ": keep-alive\n\n")
			w.Flush()
		}
	}
}

func (h *PipelineHandler) GetRunReport(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	r, err := h.pipelineService.GetRunByID(c.Request().Context(), rp.RunID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return newError(c, err, http.StatusNotFound, "run not found")
		}
		return newError(c, err, http.StatusInternalServerError, "unable to read run data")
	}
	if r.ReportPath == nil {
		return newError(c, nil, http.StatusNotFound, "run has no report")
	}
	return c.File(*r.ReportPath)
}

func (h *PipelineHandler) GetRunArtifacts(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	refs, err := h.runArtifacts(c, rp.RunID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, refs)
}

func (h *PipelineHandler) GetRunArtifact(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(c, err, http.StatusBadRequest, "invalid run ID")
	}

	refs, err := h.runArtifacts(c, rp.RunID)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Label == rp.Label && ref.Present {
			return c.File(ref.ArchivePath)
		}
	}
	return newError(c, nil, http.StatusNotFound, "artifact not found")
}

func (h *PipelineHandler) runArtifacts(c echo.Context, runID string) ([]engine.ArtifactRef, error) {
	r, err := h.pipelineService.GetRunByID(c.Request().Context(), runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newError(c, err, http.StatusNotFound, "run not found")
		}
		return nil, newError(c, err, http.StatusInternalServerError, "unable to read run data")
	}

	if r.Artifacts == nil {
		return []engine.ArtifactRef{}, nil
	}
	var refs []engine.ArtifactRef
	if err := json.Unmarshal([]byte(*r.Artifacts), &refs); err != nil {
		return nil, newError(c, err, http.StatusInternalServerError, "unable to decode run artifacts")
	}
	return refs, nil
}

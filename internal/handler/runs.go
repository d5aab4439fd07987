package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/haatos/simple-build/internal/service"
	"github.com/haatos/simple-build/internal/settings"
	"github.com/haatos/simple-build/internal/store"
	"github.com/labstack/echo/v4"
)

type RunQueuer interface {
	Enqueue(context.Context, service.RunRequest) (*store.Run, error)
	CancelRun(string) error
}

func SetupRunRoutes(g *echo.Group, builds service.BuildServicer, queue RunQueuer) {
	h := NewRunHandler(builds, queue)
	g.POST("/runs", h.PostRun)
	g.GET("/runs", h.GetRuns)
	g.GET("/runs/:uuid", h.GetRun)
	g.POST("/runs/:uuid/cancel", h.PostCancelRun)
	g.GET("/targets", h.GetTargets)
}

type RunHandler struct {
	builds service.BuildServicer
	queue  RunQueuer
}

func NewRunHandler(builds service.BuildServicer, queue RunQueuer) *RunHandler {
	return &RunHandler{builds, queue}
}

type RunParams struct {
	Targets       []string `json:"targets"`
	Skip          []string `json:"skip"`
	Configuration string   `json:"configuration"`
}

type RunResponse struct {
	*store.Run
	Targets []string             `json:"targets"`
	Skip    []string             `json:"skip"`
	Results []store.TargetResult `json:"results,omitempty"`
}

func newRunResponse(r *store.Run, results []store.TargetResult) RunResponse {
	return RunResponse{Run: r, Targets: r.TargetNames(), Skip: r.SkipNames(), Results: results}
}

type TargetResponse struct {
	Name              string   `json:"name"`
	Description       string   `json:"description,omitempty"`
	DependsOn         []string `json:"depends_on,omitempty"`
	Before            []string `json:"before,omitempty"`
	Produces          []string `json:"produces,omitempty"`
	Requires          []string `json:"requires,omitempty"`
	ContinueOnFailure bool     `json:"continue_on_failure,omitempty"`
}

func (h *RunHandler) PostRun(c echo.Context) error {
	rp := new(RunParams)
	if err := c.Bind(rp); err != nil {
		return newError(err, http.StatusBadRequest, "invalid run data")
	}
	req := service.RunRequest{
		Targets:     rp.Targets,
		Skip:        rp.Skip,
		TriggeredBy: "api",
	}
	if id, ok := c.Get(ctxAPIKeyID).(int64); ok {
		req.TriggeredBy = "api:" + strconv.FormatInt(id, 10)
	}
	if rp.Configuration != "" {
		cfg, err := settings.ParseConfiguration(rp.Configuration)
		if err != nil {
			return newError(err, http.StatusBadRequest, err.Error())
		}
		req.Configuration = cfg
	}

	r, err := h.queue.Enqueue(c.Request().Context(), req)
	if err != nil {
		var full *service.ErrRunQueueFull
		switch {
		case service.IsPlanError(err):
			return newError(err, http.StatusBadRequest, err.Error())
		case errors.As(err, &full):
			return newError(err, http.StatusServiceUnavailable, full.Error())
		}
		return newError(err, http.StatusInternalServerError, "unable to create run")
	}
	return c.JSON(http.StatusAccepted, newRunResponse(r, nil))
}

func (h *RunHandler) GetRuns(c echo.Context) error {
	var limit int64 = 20
	if l := c.QueryParam("limit"); l != "" {
		n, err := strconv.ParseInt(l, 10, 64)
		if err != nil || n < 1 {
			return newError(err, http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, 500)
	}
	runs, err := h.builds.ListLatestRuns(c.Request().Context(), limit)
	if errors.Is(err, store.ErrHistoryDisabled) {
		return newError(err, http.StatusNotFound, err.Error())
	}
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to list runs")
	}
	out := make([]RunResponse, 0, len(runs))
	for i := range runs {
		out = append(out, newRunResponse(&runs[i], nil))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RunHandler) GetRun(c echo.Context) error {
	r, results, err := h.builds.GetRunByUUID(c.Request().Context(), c.Param("uuid"))
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, store.ErrHistoryDisabled) {
		return newError(err, http.StatusNotFound, "run not found")
	}
	if err != nil {
		return newError(err, http.StatusInternalServerError, "unable to read run")
	}
	return c.JSON(http.StatusOK, newRunResponse(r, results))
}

func (h *RunHandler) PostCancelRun(c echo.Context) error {
	if err := h.queue.CancelRun(c.Param("uuid")); err != nil {
		var rce service.RunCancelError
		if errors.As(err, &rce) {
			return newError(err, http.StatusNotFound, rce.Error())
		}
		return newError(err, http.StatusInternalServerError, "unable to cancel run")
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *RunHandler) GetTargets(c echo.Context) error {
	targets, err := h.builds.Targets()
	if err != nil {
		return newError(err, http.StatusInternalServerError, "invalid build definition")
	}
	out := make([]TargetResponse, 0, len(targets))
	for _, t := range targets {
		out = append(out, TargetResponse{
			Name:              t.Name,
			Description:       t.Description,
			DependsOn:         t.DependsOn,
			Before:            t.Before,
			Produces:          t.Produces,
			Requires:          t.Requires,
			ContinueOnFailure: t.ContinueOnFailure,
		})
	}
	return c.JSON(http.StatusOK, out)
}

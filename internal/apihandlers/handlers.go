package apihandlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"citypulse/internal/models"
	"citypulse/internal/report"
	"citypulse/internal/services"
	"citypulse/internal/taxonomy"
)

const (
	defaultListLimit = 20
	maxListLimit     = 200
)

// RunService is the part of *services.AnalysisService the API uses.
type RunService interface {
	Execute(ctx context.Context, req models.RunRequest) (*models.Run, error)
	Enqueue(ctx context.Context, req models.RunRequest) (*models.Run, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Run, error)
	List(ctx context.Context, limit, offset int) ([]models.RunOverview, error)
}

type APIHandler struct {
	Runs     RunService
	Taxonomy *taxonomy.Taxonomy
	Catalog  *taxonomy.Catalog
	// Defaults fills fields a request body leaves empty.
	Defaults models.RunRequest
	// Ping reports backing store health; nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewAPIHandler(runs RunService, tax *taxonomy.Taxonomy, catalog *taxonomy.Catalog, defaults models.RunRequest) *APIHandler {
	return &APIHandler{Runs: runs, Taxonomy: tax, Catalog: catalog, Defaults: defaults}
}

// RunRequestBody is the JSON body of POST /api/v1/runs.
type RunRequestBody struct {
	Cities           []string `json:"cities"`
	Pillars          []string `json:"pillars"`
	TimeWindowMonths *int     `json:"time_window_months"`
	ItemsPerCityCap  *int     `json:"items_per_city_cap"` // per source, so the city total scales with enabled sources
}

func (h *APIHandler) HealthHandler(c *gin.Context) {
	if h.Ping != nil {
		if err := h.Ping(c.Request.Context()); err != nil {
			Unavailable(c, "store unavailable: "+err.Error())
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *APIHandler) ListCitiesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Catalog.All()})
}

func (h *APIHandler) ListPillarsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Taxonomy.Pillars()})
}

// CreateRunHandler runs synchronously and returns 201 with the run, or with
// ?async=true stores a queued run and returns 202.
func (h *APIHandler) CreateRunHandler(c *gin.Context) {
	req, err := h.parseRunRequest(c)
	if err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	async, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	if async {
		run, err := h.Runs.Enqueue(c.Request.Context(), req)
		if err != nil {
			h.respondWithError(c, "CreateRunHandler", err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"data": run.Overview()})
		return
	}

	run, err := h.Runs.Execute(c.Request.Context(), req)
	if err != nil {
		h.respondWithError(c, "CreateRunHandler", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": run})
}

func (h *APIHandler) ListRunsHandler(c *gin.Context) {
	limit, offset, err := parsePagination(c)
	if err != nil {
		BadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	runs, err := h.Runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.respondWithError(c, "ListRunsHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *APIHandler) GetRunHandler(c *gin.Context) {
	run, ok := h.fetchRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": run})
}

// RunReportHandler renders the run as markdown.
func (h *APIHandler) RunReportHandler(c *gin.Context) {
	run, ok := h.fetchRun(c)
	if !ok {
		return
	}
	md, err := report.Markdown(run, nil)
	if err != nil {
		Internal(c, fmt.Sprintf("RunReportHandler: %v", err))
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
}

func (h *APIHandler) fetchRun(c *gin.Context) (*models.Run, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "Invalid run ID: "+c.Param("id"))
		return nil, false
	}
	run, err := h.Runs.Get(c.Request.Context(), id)
	if err != nil {
		h.respondWithError(c, "GetRunHandler", err)
		return nil, false
	}
	return run, true
}

func (h *APIHandler) parseRunRequest(c *gin.Context) (models.RunRequest, error) {
	var body RunRequestBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			return models.RunRequest{}, err
		}
	}
	req := h.Defaults
	if len(body.Cities) > 0 {
		req.Cities = body.Cities
	}
	if len(body.Pillars) > 0 {
		req.Pillars = body.Pillars
	}
	if body.TimeWindowMonths != nil {
		req.TimeWindowMonths = *body.TimeWindowMonths
	}
	if body.ItemsPerCityCap != nil {
		req.ItemsPerCityCap = *body.ItemsPerCityCap
	}
	return req, nil
}

func parsePagination(c *gin.Context) (int, int, error) {
	limit, offset := defaultListLimit, 0
	if l := c.Query("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v <= 0 {
			return 0, 0, fmt.Errorf("invalid limit: %s", l)
		}
		limit = min(v, maxListLimit)
	}
	if o := c.Query("offset"); o != "" {
		v, err := strconv.Atoi(o)
		if err != nil || v < 0 {
			return 0, 0, fmt.Errorf("invalid offset: %s", o)
		}
		offset = v
	}
	return limit, offset, nil
}

func (h *APIHandler) respondWithError(c *gin.Context, where string, err error) {
	switch {
	case errors.Is(err, models.ErrConfiguration):
		BadRequest(c, err.Error())
	case errors.Is(err, models.ErrNotFound):
		NotFound(c, err.Error())
	case errors.Is(err, services.ErrNoJobClient):
		Unavailable(c, err.Error())
	default:
		log.Errorf("%s: %v", where, err)
		Internal(c, fmt.Sprintf("%s: %v", where, err))
	}
}

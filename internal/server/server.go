// Package server exposes the dashboard data as a JSON API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/provider"
	"github.com/dsablic/weathertop/internal/report"
	"github.com/dsablic/weathertop/internal/stats"
)

// Backend is the data source behind the API. *provider.Client implements it.
type Backend interface {
	SDKStats(ctx context.Context) ([]model.UnitRecord, error)
	NoTests(ctx context.Context) ([]model.LanguageGap, error)
	CoverageSummary(ctx context.Context) ([]model.UnitRecord, error)
	ServiceCoverage(ctx context.Context, serviceCode string) ([]model.DetailRecord, error)
	ModelCoverage(ctx context.Context) ([]model.UnitRecord, error)
	ModelOperations(ctx context.Context, service string) ([]model.DetailRecord, error)
	TaskInfo(ctx context.Context, task string) (any, error)
	Subscribe(ctx context.Context, email string) (string, error)
	ScheduleTask(ctx context.Context, req model.ScheduleRequest) (string, error)
}

var _ Backend = (*provider.Client)(nil)

// Options configures the API.
type Options struct {
	Sources        map[string]string // source labels by report name
	RequestTimeout time.Duration
	AccessLog      bool
	Now            func() time.Time
}

type api struct {
	backend Backend
	opts    Options
}

// New builds the fiber app with every route registered.
func New(backend Backend, opts Options) *fiber.App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RequestTimeout == 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	a := &api{backend: backend, opts: opts}

	app := fiber.New(fiber.Config{
		AppName:               "weathertop",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		UnescapePath:          true,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
	})
	app.Use(helmet.New())
	if opts.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} | ${latency} | [${ip}]:${port} | ${status} - ${method} ${path}\n",
		}))
	}

	routes := app.Group("/api")
	routes.Get("/stats", a.stats)
	routes.Get("/no-tests", a.noTests)
	routes.Get("/coverage", a.coverage)
	routes.Get("/coverage/:service", a.serviceCoverage)
	routes.Get("/model-coverage", a.modelCoverage)
	routes.Get("/model-coverage/:service", a.modelOperations)
	routes.Get("/tasks/:task", a.taskInfo)
	routes.Post("/subscribe", a.subscribe)
	routes.Post("/tasks/schedule", a.schedule)
	return app
}

func (a *api) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), a.opts.RequestTimeout)
}

func (a *api) stats(c *fiber.Ctx) error {
	ctx, cancel := a.ctx(c)
	defer cancel()

	units, err := a.backend.SDKStats(ctx)
	if err != nil {
		return err
	}
	r := report.Stats(units, a.opts.Sources["stats"], c.QueryBool("validate"), a.opts.Now())
	return c.JSON(fiber.Map{
		"units":  units,
		"report": r,
	})
}

func (a *api) noTests(c *fiber.Ctx) error {
	ctx, cancel := a.ctx(c)
	defer cancel()

	gaps, err := a.backend.NoTests(ctx)
	if err != nil {
		return err
	}
	return c.JSON(report.NoTests(gaps, a.opts.Sources["no-tests"], a.opts.Now()))
}

func (a *api) coverage(c *fiber.Ctx) error {
	ctx, cancel := a.ctx(c)
	defer cancel()

	units, err := a.backend.CoverageSummary(ctx)
	if err != nil {
		return err
	}
	return c.JSON(report.Coverage(units, a.opts.Sources["coverage"], c.Query("q"), a.opts.Now()))
}

func (a *api) serviceCoverage(c *fiber.Ctx) error {
	filter, err := detailFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := a.ctx(c)
	defer cancel()

	units, err := a.backend.CoverageSummary(ctx)
	if err != nil {
		return err
	}
	return a.detail(ctx, c, units, filter, a.backend.ServiceCoverage)
}

func (a *api) modelCoverage(c *fiber.Ctx) error {
	ctx, cancel := a.ctx(c)
	defer cancel()

	units, err := a.backend.ModelCoverage(ctx)
	if err != nil {
		return err
	}
	return c.JSON(report.Coverage(units, a.opts.Sources["model"], c.Query("q"), a.opts.Now()))
}

func (a *api) modelOperations(c *fiber.Ctx) error {
	filter, err := detailFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := a.ctx(c)
	defer cancel()

	units, err := a.backend.ModelCoverage(ctx)
	if err != nil {
		return err
	}
	return a.detail(ctx, c, units, filter, a.backend.ModelOperations)
}

// detailFilter reads missingOnly, tag and sort from the query string.
func detailFilter(c *fiber.Ctx) (model.DetailFilter, error) {
	filter := model.DetailFilter{
		MissingOnly: c.QueryBool("missingOnly"),
		Tag:         c.Query("tag"),
		SortBy:      c.Query("sort"),
	}
	switch filter.SortBy {
	case stats.SortNone, stats.SortFound, stats.SortTags:
		return filter, nil
	default:
		return filter, fiber.NewError(fiber.StatusBadRequest, "sort must be found or tags")
	}
}

func (a *api) detail(ctx context.Context, c *fiber.Ctx, units []model.UnitRecord, filter model.DetailFilter, fetch func(context.Context, string) ([]model.DetailRecord, error)) error {
	id := c.Params("service")
	unit, ok := stats.Select(units, id)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "unknown service "+id)
	}

	details, err := fetch(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(report.Detail(unit, details, filter))
}

func (a *api) taskInfo(c *fiber.Ctx) error {
	ctx, cancel := a.ctx(c)
	defer cancel()

	info, err := a.backend.TaskInfo(ctx, c.Params("task"))
	if err != nil {
		return err
	}
	return c.JSON(info)
}

type subscribeRequest struct {
	Email string `json:"email"`
}

func (a *api) subscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}
	if strings.TrimSpace(req.Email) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email is required")
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	msg, err := a.backend.Subscribe(ctx, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": msg})
}

func (a *api) schedule(c *fiber.Ctx) error {
	var req model.ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request payload")
	}
	if req.TaskDefinitionArn == "" || req.ClusterName == "" || req.Cron == "" {
		return fiber.NewError(fiber.StatusBadRequest, "taskDefinitionArn, clusterName and cron are required")
	}

	ctx, cancel := a.ctx(c)
	defer cancel()

	msg, err := a.backend.ScheduleTask(ctx, req)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": msg})
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadGateway
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case errors.Is(err, provider.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, provider.ErrUnknownTask):
		status = fiber.StatusNotFound
	}

	if status >= fiber.StatusInternalServerError {
		slog.Warn("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

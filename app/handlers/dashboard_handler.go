package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	businessflow "github.com/amirphl/lurewatch/business_flow"
	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/models"
	"github.com/amirphl/lurewatch/utils"
)

//go:embed templates/dashboard.html
var templateFS embed.FS

// DashboardHandlerInterface defines the operator dashboard endpoints
type DashboardHandlerInterface interface {
	Index(c fiber.Ctx) error
	Health(c fiber.Ctx) error
}

type DashboardHandler struct {
	flow           businessflow.DashboardFlow
	requestTimeout time.Duration
}

func NewDashboardHandler(flow businessflow.DashboardFlow, requestTimeout time.Duration) DashboardHandlerInterface {
	return &DashboardHandler{flow: flow, requestTimeout: requestTimeout}
}

// dashboardView adds target labels to the snapshot for rendering
type dashboardView struct {
	*models.DashboardSnapshot
	emails map[uint]string
}

func parseDashboardTemplate() *template.Template {
	return template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
		"fmtTime": func(t time.Time) string { return utils.FormatUTC(t, utils.DisplayTimeLayout) },
		// replaced per render with a closure over the snapshot's targets
		"target": func(*uint) string { return "unknown" },
	}).ParseFS(templateFS, "templates/dashboard.html"))
}

var dashboardTemplate = parseDashboardTemplate()

// Index recomputes the snapshot and renders it
// Store errors are returned verbatim; the dashboard is an operator-only tool
func (h *DashboardHandler) Index(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, h.requestTimeout)
	defer cancel()

	snap, err := h.flow.Snapshot(ctx)
	if err != nil {
		logger.FromContext(ctx).Error("dashboard snapshot failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	view := dashboardView{DashboardSnapshot: snap, emails: make(map[uint]string, len(snap.Targets))}
	for _, t := range snap.Targets {
		view.emails[t.ID] = t.Email
	}

	tmpl, err := dashboardTemplate.Clone()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}
	tmpl.Funcs(template.FuncMap{
		"target": func(id *uint) string { return businessflow.TargetLabel(id, view.emails) },
	})

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		logger.FromContext(ctx).Error("dashboard render failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	c.Set(fiber.HeaderContentType, utils.ContentTypeHTML)
	return c.Send(buf.Bytes())
}

// Health reports liveness of the dashboard process
func (h *DashboardHandler) Health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"service":   "lurewatch-dashboard",
	})
}

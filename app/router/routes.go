// Package router provides HTTP routing, middleware configuration, and server setup for the capture and dashboard apps
package router

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/app/handlers"
	"github.com/amirphl/lurewatch/app/middleware"
	"github.com/amirphl/lurewatch/config"
	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Serve(ln net.Listener) error
	Shutdown(timeout time.Duration) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app    *fiber.App
	name   string
	routes func(app *fiber.App)
}

// Options carries the listener-independent settings shared by both apps
type Options struct {
	Server    config.ServerConfig
	AccessLog bool
	Metrics   config.MetricsConfig
}

func newFiberRouter(name, appName string, opts Options, routes func(app *fiber.App)) *FiberRouter {
	cfg := fiber.Config{
		AppName:      appName,
		ErrorHandler: errorHandler,
		BodyLimit:    opts.Server.BodyLimit,
		ReadTimeout:  opts.Server.ReadTimeout,
		WriteTimeout: opts.Server.WriteTimeout,
		IdleTimeout:  opts.Server.IdleTimeout,
	}
	// Fiber only reads ProxyHeader for requests whose peer is a trusted proxy
	if opts.Server.ProxyHeader != "" {
		cfg.ProxyHeader = opts.Server.ProxyHeader
		cfg.TrustProxy = true
		cfg.TrustProxyConfig = fiber.TrustProxyConfig{Proxies: opts.Server.TrustedProxies}
		cfg.EnableIPValidation = true
	}
	r := &FiberRouter{app: fiber.New(cfg), name: name}
	r.routes = func(app *fiber.App) {
		r.setupMiddleware(opts)
		routes(app)
		app.Use(r.notFoundHandler)
	}
	return r
}

// NewCaptureRouter serves the lure page, the submission endpoint and the awareness page
func NewCaptureRouter(h handlers.CaptureHandlerInterface, opts Options) Router {
	return newFiberRouter("capture", "lurewatch capture", opts, func(app *fiber.App) {
		app.Get("/", h.Root)
		app.Get("/success", h.Success)
		app.Post("/login", h.Login)
	})
}

// NewDashboardRouter serves the operator dashboard, health and metrics
func NewDashboardRouter(h handlers.DashboardHandlerInterface, opts Options) Router {
	return newFiberRouter("dashboard", "lurewatch dashboard", opts, func(app *fiber.App) {
		app.Get("/", h.Index)
		app.Get("/health", h.Health)
		if opts.Metrics.Enabled {
			app.Get(opts.Metrics.Path, adaptor.HTTPHandler(promhttp.Handler()))
		}
	})
}

// SetupRoutes configures middleware and routes; call once before Serve
func (r *FiberRouter) SetupRoutes() {
	r.routes(r.app)
	logger.Log.Info("routes configured", zap.String("app", r.name))
}

func (r *FiberRouter) setupMiddleware(opts Options) {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: utils.RequestIDHeader,
		Generator: func() string {
			return generateRequestID()
		},
	}))

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e any) {
			logger.Log.Error("panic recovered",
				zap.String("app", r.name),
				zap.String("request_id", requestid.FromContext(c)),
				zap.Any("error", e),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
			)
		},
	}))

	if opts.AccessLog {
		r.app.Use(fiberlogger.New(fiberlogger.Config{
			Format:     `{"time":"${time}","app":"` + r.name + `","request_id":"${respHeader:X-Request-ID}","method":"${method}","path":"${path}","ip":"${ip}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent}}` + "\n",
			TimeFormat: time.RFC3339,
			TimeZone:   "UTC",
			Stream:     os.Stdout,
			Next: func(c fiber.Ctx) bool {
				return c.Path() == "/health" || c.Path() == opts.Metrics.Path
			},
		}))
	}

	r.app.Use(middleware.Metrics(r.name))
}

// Serve runs the app on an already bound listener
func (r *FiberRouter) Serve(ln net.Listener) error {
	logger.Log.Info("server starting", zap.String("app", r.name), zap.String("address", ln.Addr().String()))
	return r.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
}

// Shutdown stops accepting connections and waits for in-flight requests
func (r *FiberRouter) Shutdown(timeout time.Duration) error {
	return r.app.ShutdownWithTimeout(timeout)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).SendString("Not Found")
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	logger.Log.Error("request failed",
		zap.Int("status", code),
		zap.String("request_id", requestid.FromContext(c)),
		zap.String("path", c.Path()),
		zap.Error(err),
	)

	return c.Status(code).SendString(err.Error())
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

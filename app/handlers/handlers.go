// Package handlers contains the HTTP handlers of the capture server and the dashboard
package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/amirphl/lurewatch/logger"
)

const defaultRequestTimeout = 10 * time.Second

// createRequestContext detaches the flow call from the fasthttp request and tags it with the request id
func createRequestContext(c fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	ctx = logger.WithRequestID(ctx, requestid.FromContext(c))
	return ctx, cancel
}

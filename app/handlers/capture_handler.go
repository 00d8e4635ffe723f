package handlers

import (
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/app/lure"
	businessflow "github.com/amirphl/lurewatch/business_flow"
	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/utils"
)

// maxTokenLength matches the token column; longer cookie values are treated as malformed
const maxTokenLength = 64

// CaptureHandlerInterface defines the public lure endpoints
type CaptureHandlerInterface interface {
	Root(c fiber.Ctx) error
	Success(c fiber.Ctx) error
	Login(c fiber.Ctx) error
}

type CaptureHandler struct {
	flow           businessflow.TrackingFlow
	page           *lure.Page
	cookieName     string
	requestTimeout time.Duration
}

func NewCaptureHandler(flow businessflow.TrackingFlow, page *lure.Page, cookieName string, requestTimeout time.Duration) CaptureHandlerInterface {
	return &CaptureHandler{
		flow:           flow,
		page:           page,
		cookieName:     cookieName,
		requestTimeout: requestTimeout,
	}
}

// Root records the visit, issues the tracking cookie and serves the lure page
func (h *CaptureHandler) Root(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, h.requestTimeout)
	defer cancel()

	click, err := h.flow.IssueToken(ctx, businessflow.VisitInput{
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		logger.FromContext(ctx).Error("record visit failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    click.Token,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Set(fiber.HeaderContentType, utils.ContentTypeHTML)
	return c.Send(h.page.HTML)
}

// Success serves the awareness page; it does not depend on the configured template
func (h *CaptureHandler) Success(c fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, utils.ContentTypeHTML)
	return c.Send(lure.AwarenessPage())
}

// Login records a form submission and redirects to the awareness page
// Only the email and whether a password was sent are kept
func (h *CaptureHandler) Login(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, h.requestTimeout)
	defer cancel()
	log := logger.FromContext(ctx)

	form, err := url.ParseQuery(string(c.Body()))
	if err != nil {
		log.Error("malformed submission body", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString("malformed form body")
	}

	_, err = h.flow.Submit(ctx, businessflow.SubmissionInput{
		IP:                c.IP(),
		UserAgent:         c.Get(fiber.HeaderUserAgent),
		Token:             h.trackingToken(c),
		Email:             form.Get("email"),
		PasswordSubmitted: form.Get("password") != "",
	})
	if err != nil {
		log.Error("record submission failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
	}

	return c.Redirect().Status(fiber.StatusFound).To("/success")
}

func (h *CaptureHandler) trackingToken(c fiber.Ctx) string {
	token := strings.TrimSpace(c.Cookies(h.cookieName))
	if len(token) > maxTokenLength || strings.ContainsAny(token, " ;,\"") {
		return ""
	}
	return token
}

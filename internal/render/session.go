package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"pageturn/internal/logging"
	"pageturn/internal/services"
)

// Options configures a capture session.
type Options struct {
	BaseURL           string
	BrowserBinary     string
	Theme             string
	FontSize          int
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	ReadinessTimeout  time.Duration
	SettleDelay       time.Duration
}

// readyExpr polls the renderer-exposed readiness flag.
const readyExpr = `() => window.__pageturnReady === true`

// stageSelector is the container element representing exactly the pixel
// region to capture.
const stageSelector = "#page-stage"

// freezeScript disables in-page animations and unregisters service workers
// so every render is deterministic and never served stale.
const freezeScript = `() => {
	const freeze = () => {
		const style = document.createElement('style');
		style.textContent = '*, *::before, *::after {' +
			' animation: none !important;' +
			' transition: none !important;' +
			' caret-color: transparent !important; }';
		document.head.appendChild(style);
	};
	if (document.readyState === 'loading') {
		document.addEventListener('DOMContentLoaded', freeze);
	} else {
		freeze();
	}
	if (navigator.serviceWorker && navigator.serviceWorker.getRegistrations) {
		navigator.serviceWorker.getRegistrations()
			.then(rs => rs.forEach(r => r.unregister()))
			.catch(() => {});
	}
}`

// Session is one long-lived browser-automation session. It owns its response
// cache and is used by exactly one export job.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	cache    *responseCache
	opts     Options
	logger   *slog.Logger
}

// NewSession launches a browser via the strategy chain and prepares a page
// with a fixed viewport, deterministic styling, and book-data response
// caching.
func NewSession(opts Options, logger *slog.Logger) (*Session, error) {
	logger = logging.WithComponent(logger, "render")

	controlURL, l, strategyName, err := launchBrowser(opts.BrowserBinary)
	if err != nil {
		return nil, err
	}
	logger.Info("browser launched", logging.String("strategy", strategyName))

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, services.Wrap(services.ErrBrowserLaunch, "render", "connect browser", "", err)
	}

	session := &Session{
		launcher: l,
		browser:  browser,
		cache:    newResponseCache(),
		opts:     opts,
		logger:   logger,
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		session.Close()
		return nil, services.Wrap(services.ErrBrowserLaunch, "render", "create page", "", err)
	}
	session.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		session.Close()
		return nil, services.Wrap(services.ErrBrowserLaunch, "render", "set viewport", "", err)
	}

	if _, err := page.EvalOnNewDocument(freezeScript); err != nil {
		session.Close()
		return nil, services.Wrap(services.ErrBrowserLaunch, "render", "install freeze script", "", err)
	}

	if err := session.installHijack(); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

// installHijack routes book-data GETs through the response cache.
func (s *Session) installHijack() error {
	router := s.page.HijackRequests()
	err := router.Add("*/api/books/*", "", func(ctx *rod.Hijack) {
		if ctx.Request.Method() != http.MethodGet {
			ctx.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}
		key := ctx.Request.URL().String()
		if entry, ok := s.cache.get(key); ok {
			ctx.Response.SetHeader("Content-Type", entry.contentType)
			ctx.Response.SetBody(entry.body)
			return
		}
		if err := ctx.LoadResponse(http.DefaultClient, true); err != nil {
			ctx.Response.Fail(proto.NetworkErrorReasonConnectionFailed)
			return
		}
		s.cache.put(key, cachedResponse{
			contentType: ctx.Response.Headers().Get("Content-Type"),
			body:        ctx.Response.Body(),
		})
	})
	if err != nil {
		return services.Wrap(services.ErrBrowserLaunch, "render", "install request cache", "", err)
	}
	s.router = router
	go router.Run()
	return nil
}

// Close releases page, browser, and launcher resources. Safe to call after a
// partial construction failure and safe to call more than once.
func (s *Session) Close() {
	if s.router != nil {
		_ = s.router.Stop()
		s.router = nil
	}
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	if s.browser != nil {
		_ = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
		s.launcher = nil
	}
	if s.cache != nil {
		hits, misses := s.cache.stats()
		s.logger.Debug("session closed", logging.Int("cache_hits", hits), logging.Int("cache_misses", misses))
	}
}

// frameURL encodes one frame request as a renderer view URL.
func (s *Session) frameURL(req FrameRequest) string {
	values := url.Values{}
	values.Set("chapter", strconv.Itoa(req.Chapter))
	values.Set("page", strconv.Itoa(req.Page))
	values.Set("theme", s.opts.Theme)
	values.Set("fontSize", strconv.Itoa(s.opts.FontSize))
	if req.Flip {
		values.Set("flipFrame", strconv.Itoa(req.FlipFrame))
		direction := "forward"
		if !req.FlipForward {
			direction = "backward"
		}
		values.Set("flipDirection", direction)
	}
	return fmt.Sprintf("%s/render/%s?%s", s.opts.BaseURL, url.PathEscape(req.BookID), values.Encode())
}

// CaptureFrame navigates to the frame's view, waits for the readiness flag,
// screenshots the page stage element, and writes it to dest.
func (s *Session) CaptureFrame(ctx context.Context, req FrameRequest, dest string) error {
	target := s.frameURL(req)
	page := s.page.Context(ctx)

	navPage := page.Timeout(s.opts.NavigationTimeout)
	if err := navPage.Navigate(target); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "navigate", target, err)
	}
	if err := navPage.WaitLoad(); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "wait load", target, err)
	}

	if err := s.waitReady(ctx, page); err != nil {
		return err
	}
	time.Sleep(s.opts.SettleDelay)

	element, err := page.Timeout(s.opts.ReadinessTimeout).Element(stageSelector)
	if err != nil {
		return services.Wrap(services.ErrRenderTarget, "render", "locate capture element", stageSelector, err)
	}

	shot, err := element.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "screenshot", target, err)
	}
	if err := os.WriteFile(dest, shot, 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "render", "write frame", dest, err)
	}
	return nil
}

// waitReady polls the readiness flag every 100ms until it is true or the
// readiness timeout elapses.
func (s *Session) waitReady(ctx context.Context, page *rod.Page) error {
	deadline := time.Now().Add(s.opts.ReadinessTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		res, err := page.Eval(readyExpr)
		if err == nil && res.Value.Bool() {
			return nil
		}
		if time.Now().After(deadline) {
			return services.Wrap(services.ErrRenderTimeout, "render", "wait ready",
				fmt.Sprintf("readiness flag not set within %s", s.opts.ReadinessTimeout), nil)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

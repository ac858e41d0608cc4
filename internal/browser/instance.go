package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"session-pacer/internal/core"
	"session-pacer/internal/humanize"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// Instance wraps a Rod page and acts as the session's pointer device.
// The pointer position is tracked locally because CDP cannot report it.
type Instance struct {
	browser  *rod.Browser
	page     *rod.Page
	launched bool
	human    *humanize.Humanizer
	config   *core.Config
	logger   *zap.Logger
	mouse    core.Point
}

// NewInstance creates a new browser instance
func NewInstance(cfg *core.Config, human *humanize.Humanizer, logger *zap.Logger) *Instance {
	return &Instance{
		human:  human,
		config: cfg,
		logger: logger,
	}
}

// Initialize attaches to the browser at the configured debugger address, or
// launches a new one when no address is set
func (b *Instance) Initialize(ctx context.Context) error {
	controlURL, err := b.controlURL()
	if err != nil {
		return err
	}

	b.browser = rod.New().Context(ctx).ControlURL(controlURL)
	if err := b.browser.Connect(); err != nil {
		return fmt.Errorf("failed to connect to browser: %w", err)
	}

	// Attached sessions reuse the user's current tab
	if !b.launched {
		pages, err := b.browser.Pages()
		if err != nil {
			return fmt.Errorf("failed to list pages: %w", err)
		}
		b.page = pages.First()
	}
	if b.page == nil {
		b.page, err = b.newPage()
		if err != nil {
			return err
		}
	}

	width, height := b.config.Browser.ViewportWidth, b.config.Browser.ViewportHeight
	if b.launched && width > 0 && height > 0 {
		if err := b.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             width,
			Height:            height,
			DeviceScaleFactor: 1,
		}); err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	} else if w, h, err := b.windowSize(); err == nil {
		width, height = w, h
	} else {
		b.logger.Debug("Failed to read window size, using configured viewport", zap.Error(err))
	}

	// Start the pointer at the center of the viewport
	b.mouse = core.Point{X: float64(width) / 2, Y: float64(height) / 2}

	b.logger.Info("Browser initialized",
		zap.Bool("attached", !b.launched),
		zap.Int("width", width),
		zap.Int("height", height),
	)

	return nil
}

// newPage opens a tab. Launched browsers get a page with the stealth
// evasions injected; an attached user browser keeps its own fingerprint.
func (b *Instance) newPage() (*rod.Page, error) {
	if b.launched {
		page, err := stealth.Page(b.browser)
		if err != nil {
			return nil, fmt.Errorf("failed to create stealth page: %w", err)
		}
		return page, nil
	}

	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return page, nil
}

type viewportSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// windowSize reads the real inner size of the attached window
func (b *Instance) windowSize() (int, int, error) {
	res, err := b.page.Eval(`() => ({width: window.innerWidth, height: window.innerHeight})`)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read window size: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to marshal window size: %w", err)
	}

	var size viewportSize
	if err := json.Unmarshal(raw, &size); err != nil {
		return 0, 0, fmt.Errorf("failed to parse window size: %w", err)
	}
	if size.Width <= 0 || size.Height <= 0 {
		return 0, 0, fmt.Errorf("window has no size: %dx%d", size.Width, size.Height)
	}
	return size.Width, size.Height, nil
}

func (b *Instance) controlURL() (string, error) {
	if addr := b.config.Browser.DebuggerAddress; addr != "" {
		u, err := launcher.ResolveURL(addr)
		if err != nil {
			return "", fmt.Errorf("failed to resolve debugger address %s: %w", addr, err)
		}
		return u, nil
	}

	l := launcher.New().Headless(b.config.Browser.Headless)
	if path, has := launcher.LookPath(); has {
		l = l.Bin(path)
	}

	u, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}
	b.launched = true
	return u, nil
}

// Navigate loads url and waits for the page load event
func (b *Instance) Navigate(ctx context.Context, url string) error {
	if b.page == nil {
		return core.ErrNotInitialized
	}

	page := b.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for page load: %w", err)
	}

	b.logger.Info("Navigated", zap.String("url", url))
	return nil
}

// ScrollBy scrolls vertically in eased wheel chunks at the pointer position
func (b *Instance) ScrollBy(ctx context.Context, distance int) error {
	if b.page == nil {
		return core.ErrNotInitialized
	}

	actions, err := b.human.Scroll().Plan(distance, b.config.Pacing.ScrollChunk)
	if err != nil {
		return fmt.Errorf("failed to plan scroll: %w", err)
	}

	page := b.page.Context(ctx)
	for _, action := range actions {
		if action.Distance != 0 {
			err := proto.InputDispatchMouseEvent{
				Type:   proto.InputDispatchMouseEventTypeMouseWheel,
				X:      b.mouse.X,
				Y:      b.mouse.Y,
				DeltaX: 0,
				DeltaY: float64(action.Distance),
			}.Call(page)
			if err != nil {
				b.logger.Debug("Wheel event failed, falling back to scrollBy", zap.Error(err))
				if _, err := page.Eval(`(d) => window.scrollBy(0, d)`, action.Distance); err != nil {
					return fmt.Errorf("failed to scroll: %w", err)
				}
			}
		}

		if err := b.human.Pacing().Sleep(ctx, action.Delay); err != nil {
			return err
		}
	}

	b.logger.Debug("Scrolled", zap.Int("distance", distance), zap.Int("chunks", len(actions)))
	return nil
}

// elementBox is what the geometry script returns for one candidate
type elementBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	InView bool    `json:"inView"`
	Key    string  `json:"key"`
	Label  string  `json:"label"`
}

const geometryJS = `() => {
const rect = this.getBoundingClientRect();
const path = [];
for (let el = this; el && el.nodeType === 1 && el !== document.body; el = el.parentElement) {
	if (el.id) { path.unshift('#' + el.id); break; }
	const idx = el.parentElement ? Array.prototype.indexOf.call(el.parentElement.children, el) : 0;
	path.unshift(el.tagName.toLowerCase() + ':' + idx);
}
return {
	x: rect.left + rect.width / 2,
	y: rect.top + rect.height / 2,
	width: rect.width,
	height: rect.height,
	inView: rect.width > 0 && rect.height > 0 && rect.top >= 0 && rect.bottom <= window.innerHeight,
	key: path.join('>'),
	label: (this.innerText || '').trim().slice(0, 80)
};
}`

// FindTargets returns elements matching selector that are fully inside the
// viewport. Selectors starting with "/" or "(" are treated as XPath.
func (b *Instance) FindTargets(ctx context.Context, selector string) ([]core.Target, error) {
	if b.page == nil {
		return nil, core.ErrNotInitialized
	}

	elems, err := b.query(ctx, selector)
	if err != nil {
		return nil, err
	}

	targets := make([]core.Target, 0, len(elems))
	for _, elem := range elems {
		box, err := elementGeometry(elem)
		if err != nil {
			b.logger.Debug("Skipping element without geometry", zap.Error(err))
			continue
		}
		if !box.InView {
			continue
		}

		targets = append(targets, core.Target{
			Index:  len(targets),
			Key:    box.Key,
			Label:  box.Label,
			Center: core.Point{X: box.X, Y: box.Y},
		})
	}

	b.logger.Debug("Scanned targets",
		zap.String("selector", selector),
		zap.Int("matched", len(elems)),
		zap.Int("in_view", len(targets)),
	)

	return targets, nil
}

// FindLinks returns the resolved href of every element matching selector,
// whether or not it is in view
func (b *Instance) FindLinks(ctx context.Context, selector string) ([]string, error) {
	if b.page == nil {
		return nil, core.ErrNotInitialized
	}

	elems, err := b.query(ctx, selector)
	if err != nil {
		return nil, err
	}

	links := make([]string, 0, len(elems))
	for _, elem := range elems {
		href, err := elem.Property("href")
		if err != nil {
			b.logger.Debug("Skipping element without href", zap.Error(err))
			continue
		}
		if link := href.Str(); link != "" {
			links = append(links, link)
		}
	}

	b.logger.Debug("Scanned links",
		zap.String("selector", selector),
		zap.Int("matched", len(elems)),
		zap.Int("links", len(links)),
	)

	return links, nil
}

func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") || strings.HasPrefix(selector, "(")
}

// query waits up to ElementTimeout for selector to match, then returns every
// match. A selector that never matches yields no elements rather than an error.
func (b *Instance) query(ctx context.Context, selector string) (rod.Elements, error) {
	page := b.page.Context(ctx)

	if timeout := b.config.Browser.ElementTimeout; timeout > 0 {
		wait := page.Timeout(time.Duration(timeout) * time.Second)
		var err error
		if isXPath(selector) {
			_, err = wait.ElementX(selector)
		} else {
			_, err = wait.Element(selector)
		}
		wait.CancelTimeout()

		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				b.logger.Debug("No element matched before timeout",
					zap.String("selector", selector),
					zap.Int("timeout_seconds", timeout),
				)
				return nil, nil
			}
			return nil, fmt.Errorf("failed to wait for %s: %w", selector, err)
		}
	}

	var (
		elems rod.Elements
		err   error
	)
	if isXPath(selector) {
		elems, err = page.ElementsX(selector)
	} else {
		elems, err = page.Elements(selector)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", selector, err)
	}
	return elems, nil
}

func elementGeometry(elem *rod.Element) (*elementBox, error) {
	res, err := elem.Eval(geometryJS)
	if err != nil {
		return nil, fmt.Errorf("failed to get element geometry: %w", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal element geometry: %w", err)
	}

	var box elementBox
	if err := json.Unmarshal(raw, &box); err != nil {
		return nil, fmt.Errorf("failed to parse element geometry: %w", err)
	}
	return &box, nil
}

// Click presses and releases the left button at p. CDP input events are
// trusted, unlike element.click() from script.
func (b *Instance) Click(ctx context.Context, p core.Point) error {
	if b.page == nil {
		return core.ErrNotInitialized
	}

	page := b.page.Context(ctx)

	err := proto.InputDispatchMouseEvent{
		Type:       proto.InputDispatchMouseEventTypeMousePressed,
		X:          p.X,
		Y:          p.Y,
		Button:     proto.InputMouseButtonLeft,
		ClickCount: 1,
	}.Call(page)
	if err != nil {
		return fmt.Errorf("failed to mouse down: %w", err)
	}

	// Human click duration
	hold, err := b.human.Pacing().SampleDuration(core.FloatRange{Min: 0.05, Max: 0.1})
	if err != nil {
		return err
	}
	if err := b.human.Pacing().Sleep(ctx, hold); err != nil {
		return err
	}

	err = proto.InputDispatchMouseEvent{
		Type:       proto.InputDispatchMouseEventTypeMouseReleased,
		X:          p.X,
		Y:          p.Y,
		Button:     proto.InputMouseButtonLeft,
		ClickCount: 1,
	}.Call(page)
	if err != nil {
		return fmt.Errorf("failed to mouse up: %w", err)
	}

	b.mouse = p
	return nil
}

// Position returns the tracked pointer position inside the page
func (b *Instance) Position() (core.Point, error) {
	if b.page == nil {
		return core.Point{}, core.ErrNotInitialized
	}
	return b.mouse, nil
}

// SetPosition dispatches a single mouse-moved event to p
func (b *Instance) SetPosition(ctx context.Context, p core.Point) error {
	if b.page == nil {
		return core.ErrNotInitialized
	}

	err := proto.InputDispatchMouseEvent{
		Type: proto.InputDispatchMouseEventTypeMouseMoved,
		X:    p.X,
		Y:    p.Y,
	}.Call(b.page.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to move mouse: %w", err)
	}

	b.mouse = p
	return nil
}

// Close detaches from an attached browser, or closes a launched one
func (b *Instance) Close(ctx context.Context) error {
	if b.browser == nil {
		return nil
	}

	if !b.launched {
		b.logger.Info("Detached from browser")
		return nil
	}

	if err := b.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}

	b.logger.Info("Browser closed")
	return nil
}

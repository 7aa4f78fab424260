package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodDriver drives Chrome with go-rod
type RodDriver struct {
	scripted

	browser *rod.Browser
	page    *rod.Page

	mu     sync.Mutex
	dialog *Dialog
	opened chan struct{}
	errs   errorLog
}

// NewRodDriver launches a browser through the rod launcher and opens one page
func NewRodDriver(ctx context.Context, opts Options) (*RodDriver, error) {
	l := launcher.New().
		Context(ctx).
		Headless(opts.Headless).
		Set("no-sandbox").
		Set("disable-gpu")
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		l = l.Set("window-size", fmt.Sprintf("%d,%d", opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ChromePath != "" {
		l = l.Bin(opts.ChromePath)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		_ = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             opts.WindowWidth,
			Height:            opts.WindowHeight,
			DeviceScaleFactor: 1,
		})
	}

	d := &RodDriver{
		browser: browser,
		page:    page,
		opened:  make(chan struct{}, 1),
		errs:    errorLog{ignore: opts.ConsoleIgnore},
	}
	d.scripted = scripted{eval: d.eval, dialogOpen: d.hasDialog, poll: opts.PollInterval}

	go page.EachEvent(
		func(e *proto.PageJavascriptDialogOpening) {
			d.mu.Lock()
			d.dialog = &Dialog{Type: string(e.Type), Message: e.Message, OpenedAt: time.Now()}
			d.mu.Unlock()
			select {
			case d.opened <- struct{}{}:
			default:
			}
		},
		func(e *proto.PageJavascriptDialogClosed) {
			d.mu.Lock()
			d.dialog = nil
			d.mu.Unlock()
		},
		func(e *proto.RuntimeExceptionThrown) {
			if e.ExceptionDetails == nil {
				return
			}
			msg := e.ExceptionDetails.Text
			if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
				msg = e.ExceptionDetails.Exception.Description
			}
			d.errs.exception(msg)
		},
		func(e *proto.RuntimeConsoleAPICalled) {
			if e.Type != proto.RuntimeConsoleAPICalledTypeError {
				return
			}
			args := make([]string, 0, len(e.Args))
			for _, a := range e.Args {
				args = append(args, rodRemoteText(a))
			}
			d.errs.console(args)
		},
	)()

	return d, nil
}

func (d *RodDriver) Name() string { return "rod" }

func rodRemoteText(o *proto.RuntimeRemoteObject) string {
	if o == nil {
		return ""
	}
	if o.Type == proto.RuntimeRemoteObjectTypeString {
		return o.Value.Str()
	}
	if o.Description != "" {
		return o.Description
	}
	return o.Value.JSON("", "")
}

func (d *RodDriver) eval(ctx context.Context, expr string, out any) error {
	res, err := d.page.Context(ctx).Eval("() => (" + expr + ")")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(res.Value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (d *RodDriver) runUnlessDialog(ctx context.Context, fn func(p *rod.Page) error) error {
	if d.hasDialog() {
		return ErrDialogOpen
	}
	c, cancel := context.WithCancel(ctx)
	return untilDialog(ctx, d.opened, cancel, func() error {
		return fn(d.page.Context(c))
	})
}

func (d *RodDriver) element(ctx context.Context, loc Locator) (*rod.Element, error) {
	err := d.until(ctx, func() (bool, error) {
		n, err := d.Count(ctx, loc)
		return n > loc.Index, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	if d.hasDialog() {
		return nil, ErrDialogOpen
	}

	p := d.page.Context(ctx)
	var els rod.Elements
	kind, sel := loc.Query()
	if kind == "xpath" {
		els, err = p.ElementsX(sel)
	} else {
		els, err = p.Elements(sel)
	}
	if err != nil {
		return nil, err
	}
	if loc.Index >= len(els) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return els[loc.Index], nil
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	return d.runUnlessDialog(ctx, func(p *rod.Page) error { return p.Navigate(url) })
}

func (d *RodDriver) Back(ctx context.Context) error {
	return d.runUnlessDialog(ctx, func(p *rod.Page) error { return p.NavigateBack() })
}

func (d *RodDriver) SendKeys(ctx context.Context, loc Locator, text string) error {
	el, err := d.element(ctx, loc)
	if err != nil {
		return err
	}
	return d.runUnlessDialog(ctx, func(*rod.Page) error { return el.Context(ctx).Input(text) })
}

// Click scrolls loc into view and clicks it natively, after checking that
// nothing covers its center
func (d *RodDriver) Click(ctx context.Context, loc Locator) error {
	el, err := d.element(ctx, loc)
	if err != nil {
		return err
	}
	if err := d.ScrollIntoView(ctx, loc); err != nil {
		return err
	}
	if err := d.HitTest(ctx, loc); err != nil {
		return err
	}
	return d.runUnlessDialog(ctx, func(*rod.Page) error {
		return el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
	})
}

func (d *RodDriver) URL(ctx context.Context) (string, error) {
	if d.hasDialog() {
		return "", ErrDialogOpen
	}
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (d *RodDriver) PageSource(ctx context.Context) (string, error) {
	if d.hasDialog() {
		return "", ErrDialogOpen
	}
	return d.page.Context(ctx).HTML()
}

func (d *RodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if d.hasDialog() {
		return nil, ErrDialogOpen
	}
	return d.page.Context(ctx).Screenshot(false, nil)
}

func (d *RodDriver) hasDialog() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialog != nil
}

func (d *RodDriver) Dialog() (Dialog, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return Dialog{}, false
	}
	return *d.dialog, true
}

func (d *RodDriver) HandleDialog(ctx context.Context, accept bool) error {
	if !d.hasDialog() {
		return ErrNoDialog
	}
	if err := (proto.PageHandleJavaScriptDialog{Accept: accept}).Call(d.page.Context(ctx)); err != nil {
		return err
	}
	d.mu.Lock()
	d.dialog = nil
	d.mu.Unlock()
	return nil
}

func (d *RodDriver) ScriptErrors() []string {
	return d.errs.drain()
}

func (d *RodDriver) Close() error {
	return d.browser.Close()
}

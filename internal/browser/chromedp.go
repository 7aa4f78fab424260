package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ChromeDriver drives Chrome over the DevTools protocol with chromedp
type ChromeDriver struct {
	scripted

	ctx         context.Context
	cancel      context.CancelFunc
	cancelAlloc context.CancelFunc

	mu     sync.Mutex
	dialog *Dialog
	opened chan struct{}
	errs   errorLog
}

// NewChromeDriver launches a browser and opens one tab
func NewChromeDriver(ctx context.Context, opts Options) (*ChromeDriver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
	)
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	d := &ChromeDriver{
		ctx:         browserCtx,
		cancel:      cancel,
		cancelAlloc: cancelAlloc,
		opened:      make(chan struct{}, 1),
		errs:        errorLog{ignore: opts.ConsoleIgnore},
	}
	d.scripted = scripted{eval: d.eval, dialogOpen: d.hasDialog, poll: opts.PollInterval}

	chromedp.ListenTarget(browserCtx, d.onEvent)

	// An empty Run starts the browser
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		cancelAlloc()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}
	return d, nil
}

func (d *ChromeDriver) Name() string { return "chromedp" }

func (d *ChromeDriver) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *page.EventJavascriptDialogOpening:
		d.mu.Lock()
		d.dialog = &Dialog{Type: string(e.Type), Message: e.Message, OpenedAt: time.Now()}
		d.mu.Unlock()
		select {
		case d.opened <- struct{}{}:
		default:
		}
	case *page.EventJavascriptDialogClosed:
		d.mu.Lock()
		d.dialog = nil
		d.mu.Unlock()
	case *runtime.EventExceptionThrown:
		if e.ExceptionDetails == nil {
			return
		}
		msg := e.ExceptionDetails.Text
		if e.ExceptionDetails.Exception != nil && e.ExceptionDetails.Exception.Description != "" {
			msg = e.ExceptionDetails.Exception.Description
		}
		d.errs.exception(msg)
	case *runtime.EventConsoleAPICalled:
		if e.Type != runtime.APITypeError {
			return
		}
		args := make([]string, 0, len(e.Args))
		for _, a := range e.Args {
			args = append(args, remoteText(a))
		}
		d.errs.console(args)
	}
}

// remoteText renders one console argument the way the console prints it
func remoteText(o *runtime.RemoteObject) string {
	if o == nil {
		return ""
	}
	if o.Type == runtime.TypeString {
		var str string
		if err := json.Unmarshal([]byte(o.Value), &str); err == nil {
			return str
		}
	}
	if o.Description != "" {
		return o.Description
	}
	return string(o.Value)
}

// bind derives a chromedp context that carries ctx's deadline and cancellation
func (d *ChromeDriver) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(d.ctx)
	stop := context.AfterFunc(ctx, cancel)
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		c, cancelDeadline = context.WithDeadline(c, dl)
		return c, func() { stop(); cancelDeadline(); cancel() }
	}
	return c, func() { stop(); cancel() }
}

func (d *ChromeDriver) eval(ctx context.Context, expr string, out any) error {
	c, cancel := d.bind(ctx)
	defer cancel()
	return chromedp.Run(c, chromedp.Evaluate(expr, out))
}

func (d *ChromeDriver) runUnlessDialog(ctx context.Context, actions ...chromedp.Action) error {
	if d.hasDialog() {
		return ErrDialogOpen
	}
	c, cancel := d.bind(ctx)
	return untilDialog(ctx, d.opened, cancel, func() error {
		return chromedp.Run(c, actions...)
	})
}

func (d *ChromeDriver) node(ctx context.Context, loc Locator) (*cdp.Node, error) {
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

	kind, sel := loc.Query()
	opt := chromedp.ByQueryAll
	if kind == "xpath" {
		opt = chromedp.BySearch
	}
	var nodes []*cdp.Node
	c, cancel := d.bind(ctx)
	defer cancel()
	if err := chromedp.Run(c, chromedp.Nodes(sel, &nodes, opt, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	if loc.Index >= len(nodes) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return nodes[loc.Index], nil
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.runUnlessDialog(ctx, chromedp.Navigate(url))
}

func (d *ChromeDriver) Back(ctx context.Context) error {
	return d.runUnlessDialog(ctx, chromedp.NavigateBack())
}

func (d *ChromeDriver) SendKeys(ctx context.Context, loc Locator, text string) error {
	n, err := d.node(ctx, loc)
	if err != nil {
		return err
	}
	return d.runUnlessDialog(ctx, chromedp.SendKeys([]cdp.NodeID{n.NodeID}, text, chromedp.ByNodeID))
}

// Click scrolls loc into view and dispatches a native mouse click at its
// center, after checking that nothing covers that point
func (d *ChromeDriver) Click(ctx context.Context, loc Locator) error {
	n, err := d.node(ctx, loc)
	if err != nil {
		return err
	}
	if err := d.ScrollIntoView(ctx, loc); err != nil {
		return err
	}
	if err := d.HitTest(ctx, loc); err != nil {
		return err
	}
	return d.runUnlessDialog(ctx, chromedp.MouseClickNode(n))
}

func (d *ChromeDriver) URL(ctx context.Context) (string, error) {
	if d.hasDialog() {
		return "", ErrDialogOpen
	}
	var url string
	c, cancel := d.bind(ctx)
	defer cancel()
	err := chromedp.Run(c, chromedp.Location(&url))
	return url, err
}

func (d *ChromeDriver) PageSource(ctx context.Context) (string, error) {
	if d.hasDialog() {
		return "", ErrDialogOpen
	}
	var html string
	c, cancel := d.bind(ctx)
	defer cancel()
	err := chromedp.Run(c, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *ChromeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	if d.hasDialog() {
		return nil, ErrDialogOpen
	}
	var buf []byte
	c, cancel := d.bind(ctx)
	defer cancel()
	err := chromedp.Run(c, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (d *ChromeDriver) hasDialog() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialog != nil
}

func (d *ChromeDriver) Dialog() (Dialog, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialog == nil {
		return Dialog{}, false
	}
	return *d.dialog, true
}

func (d *ChromeDriver) HandleDialog(ctx context.Context, accept bool) error {
	if !d.hasDialog() {
		return ErrNoDialog
	}
	c, cancel := d.bind(ctx)
	defer cancel()
	if err := chromedp.Run(c, page.HandleJavaScriptDialog(accept)); err != nil {
		return err
	}
	d.mu.Lock()
	d.dialog = nil
	d.mu.Unlock()
	return nil
}

func (d *ChromeDriver) ScriptErrors() []string {
	return d.errs.drain()
}

func (d *ChromeDriver) Close() error {
	err := chromedp.Cancel(d.ctx)
	d.cancel()
	d.cancelAlloc()
	return err
}

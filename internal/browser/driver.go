// Package browser is the boundary to the browser-automation backends. The
// verifier only ever talks to Driver; chromedp and rod implement it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no element matches a locator before the step timeout
	ErrNotFound = errors.New("element not found")
	// ErrNoDialog is returned when a dialog is handled but none is open
	ErrNoDialog = errors.New("no dialog open")
	// ErrDialogOpen is returned when a page query is attempted while a dialog blocks the page
	ErrDialogOpen = errors.New("page blocked by an open dialog")
	// ErrIntercepted is returned by Click when another element covers the target's center
	ErrIntercepted = errors.New("click intercepted")
	// ErrNotInteractable is returned by Click for hidden or zero-sized elements
	ErrNotInteractable = errors.New("element not interactable")
)

// By selects how a Locator value is interpreted
type By int

const (
	ByXPath By = iota
	ByName
	ByTag
	ByCSS
)

func (b By) String() string {
	switch b {
	case ByXPath:
		return "xpath"
	case ByName:
		return "name"
	case ByTag:
		return "tag"
	case ByCSS:
		return "css"
	}
	return "unknown"
}

// Locator identifies one element on the page. Index picks among multiple matches.
type Locator struct {
	By    By
	Value string
	Index int
}

// XPath locates by XPath expression
func XPath(expr string) Locator { return Locator{By: ByXPath, Value: expr} }

// Name locates by the name attribute
func Name(name string) Locator { return Locator{By: ByName, Value: name} }

// Tag locates by tag name
func Tag(tag string) Locator { return Locator{By: ByTag, Value: tag} }

// CSS locates by CSS selector
func CSS(selector string) Locator { return Locator{By: ByCSS, Value: selector} }

// ButtonText locates a button whose text contains label
func ButtonText(label string) Locator {
	return XPath(fmt.Sprintf("//button[contains(text(), %s)]", XPathLiteral(label)))
}

// Nth returns the locator pointing at the i-th match (zero based)
func (l Locator) Nth(i int) Locator {
	l.Index = i
	return l
}

// Query returns the selector kind ("xpath" or "css") and the selector itself
func (l Locator) Query() (kind, selector string) {
	switch l.By {
	case ByXPath:
		return "xpath", l.Value
	case ByName:
		return "css", fmt.Sprintf(`[name="%s"]`, strings.ReplaceAll(l.Value, `"`, `\"`))
	default:
		return "css", l.Value
	}
}

func (l Locator) String() string {
	if l.Index > 0 {
		return fmt.Sprintf("%s=%s[%d]", l.By, l.Value, l.Index)
	}
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// Dialog is a native browser dialog (alert, confirm, prompt, beforeunload)
type Dialog struct {
	Type     string
	Message  string
	OpenedAt time.Time
}

// ElementState is a snapshot of one element's observable state
type ElementState struct {
	Found     bool   `json:"found"`
	Displayed bool   `json:"displayed"`
	Enabled   bool   `json:"enabled"`
	Disabled  string `json:"disabled"` // raw disabled attribute, empty when absent
	Tag       string `json:"tag"`
	Value     string `json:"value"`
	Text      string `json:"text"`
	Checked   bool   `json:"checked"`
}

// Driver is the capability the verifier sequences: session, navigation,
// element lookup and input, script evaluation, page state and dialogs.
type Driver interface {
	Name() string

	Navigate(ctx context.Context, url string) error
	WaitReady(ctx context.Context) error
	WaitVisible(ctx context.Context, loc Locator) error
	Back(ctx context.Context) error

	Count(ctx context.Context, loc Locator) (int, error)
	State(ctx context.Context, loc Locator) (ElementState, error)
	SendKeys(ctx context.Context, loc Locator, text string) error
	Clear(ctx context.Context, loc Locator) error
	Click(ctx context.Context, loc Locator) error
	ScriptClick(ctx context.Context, loc Locator) error
	ScrollIntoView(ctx context.Context, loc Locator) error
	SelectByText(ctx context.Context, loc Locator, label string) error
	SelectByValue(ctx context.Context, loc Locator, value string) error
	SetValue(ctx context.Context, loc Locator, value string) error

	URL(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)

	// Dialog returns the currently open dialog, if any, without blocking
	Dialog() (Dialog, bool)
	HandleDialog(ctx context.Context, accept bool) error
	// ScriptErrors drains uncaught exceptions and console.error messages
	// observed since the last call
	ScriptErrors() []string

	Close() error
}

// Options configures a browser session
type Options struct {
	Headless     bool
	ChromePath   string
	WindowWidth  int
	WindowHeight int
	PollInterval time.Duration
	// ConsoleIgnore drops matching console.error messages, e.g. framework dev warnings
	ConsoleIgnore *regexp.Regexp
}

// New opens a browser session with the named backend
func New(ctx context.Context, name string, opts Options) (Driver, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	switch name {
	case "", "chromedp":
		return NewChromeDriver(ctx, opts)
	case "rod":
		return NewRodDriver(ctx, opts)
	}
	return nil, fmt.Errorf("unknown browser driver %q", name)
}

// XPathLiteral quotes s for use inside an XPath expression
func XPathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	return "concat('" + strings.Join(parts, `', "'", '`) + "')"
}

// untilDialog runs fn and returns its error, or nil as soon as a dialog
// opens. Chrome holds input commands open while a dialog is showing, so in
// that case fn completes in the background once the dialog is handled and
// release is called then.
func untilDialog(ctx context.Context, opened chan struct{}, release func(), fn func() error) error {
	select {
	case <-opened:
	default:
	}

	errc := make(chan error, 1)
	go func() { errc <- fn() }()

	select {
	case err := <-errc:
		release()
		return err
	case <-opened:
		go func() {
			<-errc
			release()
		}()
		return nil
	case <-ctx.Done():
		release()
		return ctx.Err()
	}
}

// errorLog collects page errors between ScriptErrors calls
type errorLog struct {
	mu     sync.Mutex
	ignore *regexp.Regexp
	msgs   []string
}

func (l *errorLog) exception(msg string) {
	if msg == "" {
		return
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

// console records a console.error call made with args
func (l *errorLog) console(args []string) {
	msg := strings.TrimSpace(strings.Join(args, " "))
	if msg == "" || (l.ignore != nil && l.ignore.MatchString(msg)) {
		return
	}
	l.mu.Lock()
	l.msgs = append(l.msgs, "console.error: "+msg)
	l.mu.Unlock()
}

func (l *errorLog) drain() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := l.msgs
	l.msgs = nil
	return msgs
}

// Package browsertest provides an in-memory browser.Driver for tests. Pages
// and elements are declared up front and click handlers script navigation
// and dialogs.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"uiflow/internal/browser"
)

// ErrNotInteractable is returned by Click for hidden or disabled elements
var ErrNotInteractable = browser.ErrNotInteractable

// Option is one <option> of a select element
type Option struct {
	Text  string
	Value string
}

// Element is a fake DOM element
type Element struct {
	Tag       string
	Value     string
	Text      string
	Displayed bool
	Enabled   bool
	Checked   bool
	Options   []Option

	// Intercepted makes native clicks fail with browser.ErrIntercepted, as
	// when an overlay covers the element
	Intercepted bool

	onClick func(d *Driver)
	clicks  int
}

// NewElement returns a visible, enabled element
func NewElement(tag string) *Element {
	return &Element{Tag: tag, Displayed: true, Enabled: true}
}

// Disabled marks the element disabled
func (e *Element) Disabled() *Element {
	e.Enabled = false
	return e
}

// Hidden marks the element not displayed
func (e *Element) Hidden() *Element {
	e.Displayed = false
	return e
}

// WithOptions adds select options given as text/value pairs
func (e *Element) WithOptions(pairs ...string) *Element {
	for i := 0; i+1 < len(pairs); i += 2 {
		e.Options = append(e.Options, Option{Text: pairs[i], Value: pairs[i+1]})
	}
	return e
}

// WithText sets the element's visible text
func (e *Element) WithText(text string) *Element {
	e.Text = text
	return e
}

// OnClick registers the click side effect. Handlers run with the driver
// locked and may only call Goto, OpenDialog and Location.
func (e *Element) OnClick(fn func(d *Driver)) *Element {
	e.onClick = fn
	return e
}

// Clicks reports how many times the element was clicked
func (e *Element) Clicks() int { return e.clicks }

// Page is a fake document served at one URL
type Page struct {
	HTML     string
	OnLoad   func(d *Driver)
	elements map[string][]*Element
}

// Set places el at the locator, honouring its index
func (p *Page) Set(loc browser.Locator, el *Element) *Element {
	key := locKey(loc)
	list := p.elements[key]
	for len(list) <= loc.Index {
		list = append(list, nil)
	}
	list[loc.Index] = el
	p.elements[key] = list
	return el
}

// Remove deletes the element at the locator
func (p *Page) Remove(loc browser.Locator) {
	list := p.elements[locKey(loc)]
	if loc.Index < len(list) {
		list[loc.Index] = nil
	}
}

func (p *Page) get(loc browser.Locator) *Element {
	list := p.elements[locKey(loc)]
	if loc.Index < len(list) {
		return list[loc.Index]
	}
	return nil
}

func locKey(loc browser.Locator) string {
	loc.Index = 0
	return loc.String()
}

// Driver is a scripted browser.Driver
type Driver struct {
	mu sync.Mutex

	pages   map[string]*Page
	current *Page
	url     string
	history []string

	dialogs []string
	handled []string

	scriptErrors []string
	closed       bool
}

// New returns an empty fake driver positioned on about:blank
func New() *Driver {
	return &Driver{pages: make(map[string]*Page), current: newPage(), url: "about:blank"}
}

func newPage() *Page {
	return &Page{elements: make(map[string][]*Element)}
}

// AddPage declares the page served at rawURL
func (d *Driver) AddPage(rawURL string) *Page {
	p := newPage()
	d.pages[rawURL] = p
	return p
}

// Goto moves to rawURL without a network round trip, as a redirect would
func (d *Driver) Goto(rawURL string) {
	d.history = append(d.history, d.url)
	d.load(rawURL)
}

func (d *Driver) load(rawURL string) {
	d.url = rawURL
	d.current = d.lookup(rawURL)
	if d.current.OnLoad != nil {
		d.current.OnLoad(d)
	}
}

func (d *Driver) lookup(rawURL string) *Page {
	if p, ok := d.pages[rawURL]; ok {
		return p
	}
	if u, err := url.Parse(rawURL); err == nil {
		u.RawQuery = ""
		if p, ok := d.pages[u.String()]; ok {
			return p
		}
	}
	return newPage()
}

// Location returns the current URL; safe inside click and load handlers
func (d *Driver) Location() string { return d.url }

// OpenDialog queues a dialog; it becomes current when earlier ones are handled
func (d *Driver) OpenDialog(message string) {
	d.dialogs = append(d.dialogs, message)
}

// AddScriptError records a JavaScript exception or console.error message
func (d *Driver) AddScriptError(msg string) {
	d.scriptErrors = append(d.scriptErrors, msg)
}

// Handled lists dialog messages in the order they were handled
func (d *Driver) Handled() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.handled...)
}

// Closed reports whether Close was called
func (d *Driver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Element returns the element at loc on the current page
func (d *Driver) Element(loc browser.Locator) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current.get(loc)
}

func (d *Driver) Name() string { return "fake" }

func (d *Driver) blocked() error {
	if len(d.dialogs) > 0 {
		return browser.ErrDialogOpen
	}
	if d.closed {
		return errors.New("session closed")
	}
	return nil
}

func (d *Driver) find(loc browser.Locator) (*Element, error) {
	if err := d.blocked(); err != nil {
		return nil, err
	}
	el := d.current.get(loc)
	if el == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, loc)
	}
	return el, nil
}

func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return err
	}
	d.Goto(rawURL)
	return nil
}

func (d *Driver) WaitReady(ctx context.Context) error { return ctx.Err() }

func (d *Driver) WaitVisible(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.dialogs) > 0 {
		return nil
	}
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	if !el.Displayed {
		return fmt.Errorf("%w: %s", browser.ErrNotFound, loc)
	}
	return nil
}

func (d *Driver) Back(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return err
	}
	if len(d.history) == 0 {
		return nil
	}
	prev := d.history[len(d.history)-1]
	d.history = d.history[:len(d.history)-1]
	d.load(prev)
	return nil
}

func (d *Driver) Count(ctx context.Context, loc browser.Locator) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return 0, err
	}
	n := 0
	for _, el := range d.current.elements[locKey(loc)] {
		if el != nil {
			n++
		}
	}
	return n, nil
}

func (d *Driver) State(ctx context.Context, loc browser.Locator) (browser.ElementState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return browser.ElementState{}, err
	}
	el := d.current.get(loc)
	if el == nil {
		return browser.ElementState{}, nil
	}
	st := browser.ElementState{
		Found:     true,
		Displayed: el.Displayed,
		Enabled:   el.Enabled,
		Tag:       el.Tag,
		Value:     el.Value,
		Text:      el.Text,
		Checked:   el.Checked,
	}
	if !el.Enabled {
		st.Disabled = "true"
	}
	return st, nil
}

func (d *Driver) SendKeys(ctx context.Context, loc browser.Locator, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	if !el.Enabled {
		return fmt.Errorf("%w: %s", ErrNotInteractable, loc)
	}
	el.Value += text
	return nil
}

func (d *Driver) Clear(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	el.Value = ""
	return nil
}

func (d *Driver) Click(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	if !el.Displayed || !el.Enabled {
		return fmt.Errorf("%w: %s", ErrNotInteractable, loc)
	}
	if el.Intercepted {
		return fmt.Errorf("%w: %s", browser.ErrIntercepted, loc)
	}
	d.click(el)
	return nil
}

func (d *Driver) ScriptClick(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	d.click(el)
	return nil
}

func (d *Driver) click(el *Element) {
	el.clicks++
	if el.Tag == "input" {
		el.Checked = !el.Checked
	}
	if el.onClick != nil {
		el.onClick(d)
	}
}

func (d *Driver) ScrollIntoView(ctx context.Context, loc browser.Locator) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, err := d.find(loc)
	return err
}

func (d *Driver) SelectByText(ctx context.Context, loc browser.Locator, label string) error {
	return d.selectBy(loc, func(o Option) bool { return o.Text == label }, label)
}

func (d *Driver) SelectByValue(ctx context.Context, loc browser.Locator, value string) error {
	return d.selectBy(loc, func(o Option) bool { return o.Value == value }, value)
}

func (d *Driver) selectBy(loc browser.Locator, match func(Option) bool, want string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	for _, o := range el.Options {
		if match(o) {
			el.Value = o.Value
			return nil
		}
	}
	return fmt.Errorf("%s: no option %q", loc, want)
}

func (d *Driver) SetValue(ctx context.Context, loc browser.Locator, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	el, err := d.find(loc)
	if err != nil {
		return err
	}
	el.Value = value
	return nil
}

func (d *Driver) URL(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return "", err
	}
	return d.url, nil
}

func (d *Driver) PageSource(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return "", err
	}
	if d.current.HTML != "" {
		return d.current.HTML, nil
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, list := range d.current.elements {
		for _, el := range list {
			if el != nil && el.Text != "" {
				fmt.Fprintf(&b, "<%s>%s</%s>", el.Tag, el.Text, el.Tag)
			}
		}
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (d *Driver) Screenshot(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.blocked(); err != nil {
		return nil, err
	}
	return []byte("\x89PNG fake"), nil
}

func (d *Driver) Dialog() (browser.Dialog, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.dialogs) == 0 {
		return browser.Dialog{}, false
	}
	return browser.Dialog{Type: "alert", Message: d.dialogs[0], OpenedAt: time.Now()}, true
}

func (d *Driver) HandleDialog(ctx context.Context, accept bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.dialogs) == 0 {
		return browser.ErrNoDialog
	}
	d.handled = append(d.handled, d.dialogs[0])
	d.dialogs = d.dialogs[1:]
	return nil
}

func (d *Driver) ScriptErrors() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	errs := d.scriptErrors
	d.scriptErrors = nil
	return errs
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

var _ browser.Driver = (*Driver)(nil)

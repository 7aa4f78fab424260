package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// findJS resolves a locator to a DOM element inside page scripts
const findJS = `function(kind, sel, idx) {
	if (kind === 'xpath') {
		const r = document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
		return idx < r.snapshotLength ? r.snapshotItem(idx) : null;
	}
	const all = document.querySelectorAll(sel);
	return idx < all.length ? all[idx] : null;
}`

const countJS = `function(kind, sel) {
	if (kind === 'xpath') {
		return document.evaluate(sel, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null).snapshotLength;
	}
	return document.querySelectorAll(sel).length;
}`

const stateJS = `function(el) {
	if (!el) return {found: false};
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	const disabled = el.getAttribute('disabled');
	return {
		found: true,
		displayed: style.display !== 'none' && style.visibility !== 'hidden' && (rect.width > 0 || rect.height > 0),
		enabled: !el.disabled,
		disabled: disabled === null ? '' : (disabled === '' ? 'true' : disabled),
		tag: el.tagName.toLowerCase(),
		value: el.value === undefined ? '' : String(el.value),
		text: (el.innerText || el.textContent || '').trim(),
		checked: !!el.checked
	};
}`

// hitTestJS reports whether a click at the element's center would land on it
const hitTestJS = `function(el) {
	if (!el) return 'not found';
	const rect = el.getBoundingClientRect();
	const style = window.getComputedStyle(el);
	if (rect.width === 0 || rect.height === 0 || style.visibility === 'hidden' || style.display === 'none') return 'hidden';
	const top = document.elementFromPoint(rect.left + rect.width / 2, rect.top + rect.height / 2);
	if (!top) return 'hidden';
	if (top === el || el.contains(top)) return '';
	return 'covered by <' + top.tagName.toLowerCase() + (top.id ? '#' + top.id : '') + '>';
}`

// setValueJS uses the native value setter so framework-managed inputs see the change
const setValueJS = `function(el, v) {
	if (!el) return 'not found';
	const proto = el.tagName === 'SELECT' ? HTMLSelectElement.prototype
		: el.tagName === 'TEXTAREA' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
	const setter = Object.getOwnPropertyDescriptor(proto, 'value').set;
	setter.call(el, v);
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return '';
}`

const selectTextJS = `function(el, label) {
	if (!el) return 'not found';
	const opt = Array.from(el.options).find(o => o.text.trim() === label);
	if (!opt) return 'no option with text ' + label;
	const setter = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, 'value').set;
	setter.call(el, opt.value);
	el.dispatchEvent(new Event('input', {bubbles: true}));
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return '';
}`

const selectValueJS = `function(el, value) {
	if (!el) return 'not found';
	const opt = Array.from(el.options).find(o => o.value === value);
	if (!opt) return 'no option with value ' + value;
	const setter = Object.getOwnPropertyDescriptor(HTMLSelectElement.prototype, 'value').set;
	setter.call(el, value);
	el.dispatchEvent(new Event('change', {bubbles: true}));
	return '';
}`

// scripted implements the element operations both backends perform through
// page script evaluation. eval must evaluate an expression and decode its
// JSON result into out.
type scripted struct {
	eval       func(ctx context.Context, expr string, out any) error
	dialogOpen func() bool
	poll       time.Duration
}

func (s scripted) onElement(loc Locator, body string, args ...any) string {
	kind, sel := loc.Query()
	encoded := make([]string, 0, len(args))
	for _, a := range args {
		b, _ := json.Marshal(a)
		encoded = append(encoded, string(b))
	}
	extra := ""
	if len(encoded) > 0 {
		extra = ", " + strings.Join(encoded, ", ")
	}
	k, _ := json.Marshal(kind)
	q, _ := json.Marshal(sel)
	return fmt.Sprintf("(%s)((%s)(%s, %s, %d)%s)", body, findJS, k, q, loc.Index, extra)
}

func (s scripted) run(ctx context.Context, loc Locator, body string, args ...any) error {
	if s.dialogOpen() {
		return ErrDialogOpen
	}
	var msg string
	if err := s.eval(ctx, s.onElement(loc, body, args...), &msg); err != nil {
		return err
	}
	switch {
	case msg == "":
		return nil
	case msg == "not found":
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	default:
		return fmt.Errorf("%s: %s", loc, msg)
	}
}

func (s scripted) Count(ctx context.Context, loc Locator) (int, error) {
	if s.dialogOpen() {
		return 0, ErrDialogOpen
	}
	kind, sel := loc.Query()
	k, _ := json.Marshal(kind)
	q, _ := json.Marshal(sel)
	var n int
	err := s.eval(ctx, fmt.Sprintf("(%s)(%s, %s)", countJS, k, q), &n)
	return n, err
}

func (s scripted) State(ctx context.Context, loc Locator) (ElementState, error) {
	var st ElementState
	if s.dialogOpen() {
		return st, ErrDialogOpen
	}
	err := s.eval(ctx, s.onElement(loc, stateJS), &st)
	return st, err
}

func (s scripted) SetValue(ctx context.Context, loc Locator, value string) error {
	return s.run(ctx, loc, setValueJS, value)
}

func (s scripted) Clear(ctx context.Context, loc Locator) error {
	return s.run(ctx, loc, setValueJS, "")
}

func (s scripted) SelectByText(ctx context.Context, loc Locator, label string) error {
	return s.run(ctx, loc, selectTextJS, label)
}

func (s scripted) SelectByValue(ctx context.Context, loc Locator, value string) error {
	return s.run(ctx, loc, selectValueJS, value)
}

func (s scripted) ScrollIntoView(ctx context.Context, loc Locator) error {
	return s.run(ctx, loc, `function(el) { if (!el) return 'not found'; el.scrollIntoView({block: 'center'}); return ''; }`)
}

// HitTest checks that a native click on loc would reach it. It returns
// ErrIntercepted when another element covers the center point and
// ErrNotInteractable when the element has no visible box.
func (s scripted) HitTest(ctx context.Context, loc Locator) error {
	if s.dialogOpen() {
		return ErrDialogOpen
	}
	var msg string
	if err := s.eval(ctx, s.onElement(loc, hitTestJS), &msg); err != nil {
		return err
	}
	switch msg {
	case "":
		return nil
	case "not found":
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	case "hidden":
		return fmt.Errorf("%w: %s", ErrNotInteractable, loc)
	default:
		return fmt.Errorf("%w: %s %s", ErrIntercepted, loc, msg)
	}
}

func (s scripted) ScriptClick(ctx context.Context, loc Locator) error {
	// click() is deferred so an alert it raises does not block the evaluation
	return s.run(ctx, loc, `function(el) { if (!el) return 'not found'; setTimeout(() => el.click(), 0); return ''; }`)
}

// WaitReady polls until document.readyState is complete or a dialog opens
func (s scripted) WaitReady(ctx context.Context) error {
	return s.until(ctx, func() (bool, error) {
		var state string
		if err := s.eval(ctx, "document.readyState", &state); err != nil {
			return false, err
		}
		return state == "complete", nil
	})
}

// WaitVisible polls until the element exists and is displayed
func (s scripted) WaitVisible(ctx context.Context, loc Locator) error {
	err := s.until(ctx, func() (bool, error) {
		st, err := s.State(ctx, loc)
		if err != nil {
			return false, err
		}
		return st.Found && st.Displayed, nil
	})
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNotFound, loc)
	}
	return err
}

func (s scripted) until(ctx context.Context, cond func() (bool, error)) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		if s.dialogOpen() {
			return nil
		}
		// errors while the page is navigating are transient, keep polling
		if ok, err := cond(); err == nil && ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

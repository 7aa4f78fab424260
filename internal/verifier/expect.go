package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"uiflow/internal/browser"
)

// ExpectKind selects what an Expectation inspects
type ExpectKind int

const (
	ExpectURLContains ExpectKind = iota
	ExpectURLNotContains
	ExpectPageText
	ExpectSelectorText
	ExpectElementPresent
	ExpectElementDisabled
	ExpectDialogEquals
	ExpectDialogContains
)

// Expectation is a terminal condition checked by AssertOutcome
type Expectation struct {
	Kind     ExpectKind
	Values   []string
	Selector string
	Locator  browser.Locator
}

// URLContains expects the current URL to contain every part
func URLContains(parts ...string) Expectation {
	return Expectation{Kind: ExpectURLContains, Values: parts}
}

// URLNotContains expects the current URL to contain none of parts
func URLNotContains(parts ...string) Expectation {
	return Expectation{Kind: ExpectURLNotContains, Values: parts}
}

// PageText expects the rendered document text to contain text
func PageText(text string) Expectation {
	return Expectation{Kind: ExpectPageText, Values: []string{text}}
}

// SelectorText expects an element matching the CSS selector to contain text
func SelectorText(selector, text string) Expectation {
	return Expectation{Kind: ExpectSelectorText, Selector: selector, Values: []string{text}}
}

// ElementPresent expects loc to match an element
func ElementPresent(loc browser.Locator) Expectation {
	return Expectation{Kind: ExpectElementPresent, Locator: loc}
}

// ElementDisabled expects the element at loc to carry the disabled attribute
func ElementDisabled(loc browser.Locator) Expectation {
	return Expectation{Kind: ExpectElementDisabled, Locator: loc}
}

// DialogEquals expects the last handled dialog to read exactly text
func DialogEquals(text string) Expectation {
	return Expectation{Kind: ExpectDialogEquals, Values: []string{text}}
}

// DialogContains expects the last handled dialog to contain text
func DialogContains(text string) Expectation {
	return Expectation{Kind: ExpectDialogContains, Values: []string{text}}
}

func (e Expectation) String() string {
	switch e.Kind {
	case ExpectURLContains:
		return "url contains " + strings.Join(e.Values, ", ")
	case ExpectURLNotContains:
		return "url not contains " + strings.Join(e.Values, ", ")
	case ExpectPageText:
		return fmt.Sprintf("page text %q", e.Values[0])
	case ExpectSelectorText:
		return fmt.Sprintf("%s text %q", e.Selector, e.Values[0])
	case ExpectElementPresent:
		return "element present " + e.Locator.String()
	case ExpectElementDisabled:
		return "element disabled " + e.Locator.String()
	case ExpectDialogEquals:
		return fmt.Sprintf("dialog equals %q", e.Values[0])
	case ExpectDialogContains:
		return fmt.Sprintf("dialog contains %q", e.Values[0])
	}
	return "unknown expectation"
}

// check evaluates the expectation once; mismatches come back as StepErrors
func (e Expectation) check(ctx context.Context, v *Verifier) error {
	switch e.Kind {
	case ExpectURLContains, ExpectURLNotContains:
		url, err := v.driver.URL(ctx)
		if err != nil {
			return err
		}
		for _, part := range e.Values {
			has := strings.Contains(url, part)
			if e.Kind == ExpectURLContains && !has {
				return withURL(mismatch("url %s does not contain %q", url, part), url)
			}
			if e.Kind == ExpectURLNotContains && has {
				return withURL(mismatch("url %s contains %q", url, part), url)
			}
		}
		return nil

	case ExpectPageText, ExpectSelectorText:
		doc, err := v.document(ctx)
		if err != nil {
			return err
		}
		want := e.Values[0]
		if e.Kind == ExpectPageText {
			if !strings.Contains(doc.Text(), want) {
				return mismatch("page does not contain %q", want)
			}
			return nil
		}
		found := false
		doc.Find(e.Selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.Contains(strings.TrimSpace(s.Text()), want)
			return !found
		})
		if !found {
			return mismatch("no %s containing %q", e.Selector, want)
		}
		return nil

	case ExpectElementPresent:
		n, err := v.driver.Count(ctx, e.Locator)
		if err != nil {
			return err
		}
		if n <= e.Locator.Index {
			return mismatch("element %s not present", e.Locator)
		}
		return nil

	case ExpectElementDisabled:
		st, err := v.driver.State(ctx, e.Locator)
		if err != nil {
			return err
		}
		if !st.Found {
			return &StepError{Kind: KindElementNotFound, Message: e.Locator.String()}
		}
		if st.Disabled != "true" {
			return mismatch("element %s is not disabled", e.Locator)
		}
		return nil

	case ExpectDialogEquals, ExpectDialogContains:
		got, ok := v.LastDialog()
		if !ok {
			return mismatch("no dialog was shown")
		}
		want := e.Values[0]
		if e.Kind == ExpectDialogEquals && got != want {
			return &StepError{Kind: KindAssertionMismatch, Message: fmt.Sprintf("dialog text does not equal %q", want), Dialog: got}
		}
		if e.Kind == ExpectDialogContains && !strings.Contains(got, want) {
			return &StepError{Kind: KindAssertionMismatch, Message: fmt.Sprintf("dialog text does not contain %q", want), Dialog: got}
		}
		return nil
	}
	return fmt.Errorf("unsupported expectation %d", e.Kind)
}

// settles reports whether the expectation may become true while the page is
// still redirecting or rendering, so it is polled rather than checked once
func (e Expectation) settles() bool {
	switch e.Kind {
	case ExpectDialogEquals, ExpectDialogContains, ExpectElementDisabled:
		return false
	}
	return true
}

func withURL(se *StepError, url string) *StepError {
	se.URL = url
	return se
}

func (v *Verifier) document(ctx context.Context) (*goquery.Document, error) {
	html, err := v.driver.PageSource(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

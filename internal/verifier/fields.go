package verifier

import (
	"context"
	"fmt"
	"strings"

	"uiflow/internal/browser"
)

// FieldKind selects how a Field's value is applied
type FieldKind int

const (
	// FieldText clears the control and types the value
	FieldText FieldKind = iota
	// FieldSelectLabel picks the option whose visible text equals the value
	FieldSelectLabel
	// FieldSelectValue picks the option whose value attribute equals the value
	FieldSelectValue
	// FieldFormValue selects by lower-cased value on selects, types otherwise
	FieldFormValue
	// FieldClick clicks the control (radio, checkbox, toggle button)
	FieldClick
	// FieldScriptValue sets the value by script and fires input and change
	FieldScriptValue
	// FieldButtons clicks each option button whose text is in Values
	FieldButtons
	// FieldRangeAll sets every matching range input to the value
	FieldRangeAll
)

var fieldKindNames = [...]string{"text", "select-label", "select-value", "form-value", "click", "script-value", "buttons", "range-all"}

func (k FieldKind) String() string {
	if int(k) < len(fieldKindNames) {
		return fieldKindNames[k]
	}
	return "unknown"
}

// Field describes one control to fill
type Field struct {
	Name    string
	Locator browser.Locator
	Kind    FieldKind
	Value   string
	Values  []string
	// Required fails the step when the control is disabled or hidden
	// instead of skipping it
	Required bool
}

// Text types value into the control named name
func Text(name, value string) Field {
	return Field{Name: name, Locator: browser.Name(name), Kind: FieldText, Value: value}
}

// TextAt types value into the control at loc
func TextAt(name string, loc browser.Locator, value string) Field {
	return Field{Name: name, Locator: loc, Kind: FieldText, Value: value}
}

// SelectLabel picks an option of the select named name by its visible text
func SelectLabel(name, label string) Field {
	return Field{Name: name, Locator: browser.Name(name), Kind: FieldSelectLabel, Value: label}
}

// SelectLabelAt picks an option of the select at loc by its visible text
func SelectLabelAt(name string, loc browser.Locator, label string) Field {
	return Field{Name: name, Locator: loc, Kind: FieldSelectLabel, Value: label}
}

// SelectValue picks an option of the select named name by value
func SelectValue(name, value string) Field {
	return Field{Name: name, Locator: browser.Name(name), Kind: FieldSelectValue, Value: value}
}

// FormValue fills the control named name inside the page's form
func FormValue(name, value string) Field {
	loc := browser.XPath(fmt.Sprintf("//form//*[@name=%s]", browser.XPathLiteral(name)))
	return Field{Name: name, Locator: loc, Kind: FieldFormValue, Value: value}
}

// Click clicks the control at loc
func Click(name string, loc browser.Locator) Field {
	return Field{Name: name, Locator: loc, Kind: FieldClick}
}

// ScriptValue sets the control named name by script, for inputs that
// ignore synthetic keystrokes such as date pickers
func ScriptValue(name, value string) Field {
	return Field{Name: name, Locator: browser.Name(name), Kind: FieldScriptValue, Value: value}
}

// Buttons clicks the option buttons labelled with each of labels
func Buttons(name string, labels ...string) Field {
	return Field{Name: name, Kind: FieldButtons, Values: labels}
}

// RangeAll sets every range input on the page to value
func RangeAll(value string) Field {
	return Field{Name: "range", Locator: browser.XPath("//input[@type='range']"), Kind: FieldRangeAll, Value: value}
}

// MustFill marks the field required
func (f Field) MustFill() Field {
	f.Required = true
	return f
}

func (f Field) String() string {
	return fmt.Sprintf("%s(%s)", f.Name, f.Kind)
}

func optionButton(label string) browser.Locator {
	return browser.XPath(fmt.Sprintf("//button[@type='button' and normalize-space(.)=%s]", browser.XPathLiteral(label)))
}

// apply fills f on the current page. Disabled or hidden controls are skipped
// unless the field is required.
func (v *Verifier) apply(ctx context.Context, f Field) error {
	switch f.Kind {
	case FieldButtons:
		for _, label := range f.Values {
			loc := optionButton(label)
			if err := v.waitPresent(ctx, loc); err != nil {
				return err
			}
			if err := v.clickWithFallback(ctx, loc); err != nil {
				return err
			}
		}
		return nil
	case FieldRangeAll:
		if err := v.waitPresent(ctx, f.Locator); err != nil {
			return err
		}
		n, err := v.driver.Count(ctx, f.Locator)
		if err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := v.driver.SetValue(ctx, f.Locator.Nth(i), f.Value); err != nil {
				return err
			}
		}
		v.logger().Debug().Str("field", f.Name).Int("count", n).Str("value", f.Value).Msg("range inputs set")
		return nil
	}

	if err := v.waitPresent(ctx, f.Locator); err != nil {
		return err
	}
	st, err := v.driver.State(ctx, f.Locator)
	if err != nil {
		return err
	}
	if !st.Displayed || !st.Enabled {
		if f.Required {
			return mismatch("field %s is disabled or not displayed", f.Name)
		}
		v.logger().Warn().Str("field", f.Name).Bool("displayed", st.Displayed).Bool("enabled", st.Enabled).Msg("field skipped")
		return nil
	}

	switch f.Kind {
	case FieldText:
		if err := v.driver.Clear(ctx, f.Locator); err != nil {
			return err
		}
		return v.driver.SendKeys(ctx, f.Locator, f.Value)
	case FieldSelectLabel:
		return v.driver.SelectByText(ctx, f.Locator, f.Value)
	case FieldSelectValue:
		return v.driver.SelectByValue(ctx, f.Locator, f.Value)
	case FieldFormValue:
		if st.Tag == "select" {
			return v.driver.SelectByValue(ctx, f.Locator, strings.ToLower(f.Value))
		}
		if err := v.driver.Clear(ctx, f.Locator); err != nil {
			return err
		}
		return v.driver.SendKeys(ctx, f.Locator, f.Value)
	case FieldClick:
		return v.clickWithFallback(ctx, f.Locator)
	case FieldScriptValue:
		return v.driver.SetValue(ctx, f.Locator, f.Value)
	}
	return fmt.Errorf("unsupported field kind %s", f.Kind)
}

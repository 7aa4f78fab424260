package verifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// captureArtifacts saves a screenshot and the page markup for a failed
// step. A dialog still open is accepted first so the page can be read.
func (v *Verifier) captureArtifacts(ctx context.Context, se *StepError) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.opts.StepTimeout)
	defer cancel()

	if text, handled, _ := v.takeDialog(ctx); handled && se.Dialog == "" {
		se.Dialog = text
	}
	if v.opts.ArtifactsDir == "" {
		return
	}
	if err := os.MkdirAll(v.opts.ArtifactsDir, 0755); err != nil {
		v.logger().Warn().Err(err).Msg("artifacts directory not created")
		return
	}

	base := filepath.Join(v.opts.ArtifactsDir, fmt.Sprintf("%s-%02d-%s", slug(v.opts.Scenario), len(v.steps)+1, slug(se.Step)))

	if png, err := v.driver.Screenshot(ctx); err == nil {
		v.save(base+".png", png)
	} else {
		v.logger().Warn().Str("scenario", v.opts.Scenario).Err(err).Msg("screenshot failed")
	}
	if html, err := v.driver.PageSource(ctx); err == nil {
		v.save(base+".html", []byte(html))
	} else {
		v.logger().Warn().Str("scenario", v.opts.Scenario).Err(err).Msg("page dump failed")
	}
}

func (v *Verifier) save(path string, data []byte) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		v.logger().Warn().Str("path", path).Err(err).Msg("artifact not written")
		return
	}
	v.artifacts = append(v.artifacts, path)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if len(out) > 60 {
		cut := 60
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimRight(out[:cut], "-")
	}
	if out == "" {
		return "step"
	}
	return out
}

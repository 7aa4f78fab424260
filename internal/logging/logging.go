// Package logging builds the structured step log.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// Options configures the step log
type Options struct {
	Path    string
	Level   string
	Console bool
}

// New returns a logger writing JSON lines to opts.Path and, when Console is
// set, human readable lines to stderr. The returned closer releases the file.
func New(opts Options) (*log.Logger, io.Closer, error) {
	var writers log.MultiEntryWriter
	var closer io.Closer = nopCloser{}

	if opts.Path != "" {
		fw := &log.FileWriter{
			Filename:     opts.Path,
			EnsureFolder: true,
			FileMode:     0644,
		}
		writers = append(writers, fw)
		closer = fw
	}
	if opts.Console {
		writers = append(writers, &log.ConsoleWriter{Writer: os.Stderr, ColorOutput: true})
	}
	if len(writers) == 0 {
		return Nop(), closer, nil
	}

	return &log.Logger{
		Level:      log.ParseLevel(opts.Level),
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Writer:     &writers,
	}, closer, nil
}

// Nop returns a logger that discards everything
func Nop() *log.Logger {
	return &log.Logger{Level: log.PanicLevel, Writer: log.IOWriter{Writer: io.Discard}}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

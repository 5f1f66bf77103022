package logging

import (
	"io"
	"log"
	"os"
)

// Options configures the logger.
type Options struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	// Debug adds file:line to every entry.
	Debug bool
}

const prefix = "[reviewq] "

// InitLogger builds the process logger. All timestamps are UTC.
func InitLogger(opts ...Options) *log.Logger {
	var cfg Options
	if len(opts) > 0 {
		cfg = opts[0]
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	flags := log.LstdFlags | log.LUTC
	if cfg.Debug {
		flags |= log.Lshortfile
	}
	return log.New(cfg.Output, prefix, flags)
}

// Discard returns a logger that drops everything, for tests and quiet commands.
func Discard() *log.Logger {
	return log.New(io.Discard, prefix, 0)
}

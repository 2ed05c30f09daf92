package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	level       = &slog.LevelVar{}
	rootHandler slog.Handler
	once        sync.Once
	output      = &switchWriter{w: os.Stdout}
)

type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// SetLevel changes the level of every logger handed out by Get.
func SetLevel(logLevel string) {
	level.Set(ParseLevel(logLevel))
}

// SetOutput redirects the output of every logger.
func SetOutput(w io.Writer) {
	output.mu.Lock()
	output.w = w
	output.mu.Unlock()
}

// errKeyHandler renames bare error attributes to "err".
type errKeyHandler struct {
	slog.Handler
}

func (h *errKeyHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		if err, ok := a.Value.Any().(error); ok && (a.Key == "!BADKEY" || a.Key == "") {
			a = slog.String("err", err.Error())
		}
		out.AddAttrs(a)
		return true
	})
	return h.Handler.Handle(ctx, out)
}

func (h *errKeyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &errKeyHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *errKeyHandler) WithGroup(name string) slog.Handler {
	return &errKeyHandler{Handler: h.Handler.WithGroup(name)}
}

func handler() slog.Handler {
	once.Do(func() {
		rootHandler = &errKeyHandler{Handler: tint.NewHandler(output, &tint.Options{
			Level:      level,
			TimeFormat: "2006-01-02 15:04:05.000",
		})}
		slog.SetDefault(slog.New(rootHandler))
	})
	return rootHandler
}

// Get returns a logger tagged with the given module name.
func Get(module string) *slog.Logger {
	return slog.New(handler()).With("mod", module)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

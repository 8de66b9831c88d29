// Package logging installs the bot's slog handler: one line per record,
// coloured level tag, optional [COMPONENT] tag, then key=value attributes.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	debugColor     = color.New(color.FgHiBlack)
	infoColor      = color.New(color.FgHiCyan)
	warnColor      = color.New(color.FgHiYellow)
	errorColor     = color.New(color.FgHiRed)
	componentColor = color.New(color.FgHiMagenta)
	keyColor       = color.New(color.FgHiBlack)
)

type Options struct {
	Level   slog.Leveler
	NoColor bool
}

type Handler struct {
	w     io.Writer
	opts  Options
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

func NewHandler(w io.Writer, opts *Options) *Handler {
	o := Options{Level: slog.LevelInfo}
	if opts != nil {
		o = *opts
		if o.Level == nil {
			o.Level = slog.LevelInfo
		}
	}
	return &Handler{w: w, opts: o, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) paint(c *color.Color, s string) string {
	if h.opts.NoColor {
		return s
	}
	return c.Sprint(s)
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var levelStr string
	var levelColor *color.Color
	switch {
	case r.Level >= slog.LevelError:
		levelStr, levelColor = "ERROR", errorColor
	case r.Level >= slog.LevelWarn:
		levelStr, levelColor = "WARN", warnColor
	case r.Level >= slog.LevelInfo:
		levelStr, levelColor = "INFO", infoColor
	default:
		levelStr, levelColor = "DEBUG", debugColor
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var b strings.Builder
	b.WriteString(ts.Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(h.paint(levelColor, "["+levelStr+"]"))

	component := ""
	var kv []slog.Attr
	collect := func(a slog.Attr) {
		if a.Key == "component" {
			component = strings.ToUpper(a.Value.String())
			return
		}
		kv = append(kv, a)
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.group != "" && a.Key != "component" {
			a.Key = h.group + "." + a.Key
		}
		collect(a)
		return true
	})

	if component != "" {
		b.WriteByte(' ')
		b.WriteString(h.paint(componentColor, "["+component+"]"))
	}
	b.WriteByte(' ')
	b.WriteString(r.Message)
	for _, a := range kv {
		a.Value = a.Value.Resolve()
		if a.Equal(slog.Attr{}) {
			continue
		}
		b.WriteByte(' ')
		b.WriteString(h.paint(keyColor, a.Key+"="))
		b.WriteString(formatValue(a.Value))
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func formatValue(v slog.Value) string {
	s := v.String()
	if v.Kind() == slog.KindString && (s == "" || strings.ContainsAny(s, " \t\"=")) {
		return fmt.Sprintf("%q", s)
	}
	return s
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	nh.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	nh.attrs = append(nh.attrs, h.attrs...)
	for _, a := range attrs {
		if h.group != "" && a.Key != "component" {
			a.Key = h.group + "." + a.Key
		}
		nh.attrs = append(nh.attrs, a)
	}
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if nh.group != "" {
		nh.group += "." + name
	} else {
		nh.group = name
	}
	return &nh
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// Setup builds a logger writing to w and installs it as the slog default.
func Setup(w io.Writer, level string, colored bool) *slog.Logger {
	l := slog.New(NewHandler(w, &Options{Level: ParseLevel(level), NoColor: !colored}))
	slog.SetDefault(l)
	return l
}

// Copyright 2024 by the Authors
// This file is part of the viewcore library.
//
// The viewcore library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The viewcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the viewcore library. If not, see <http://www.gnu.org/licenses/>.

package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Format renders a Record as a line of text.
type Format interface {
	Format(r *Record) []byte
}

type formatFunc func(r *Record) []byte

func (f formatFunc) Format(r *Record) []byte { return f(r) }

var lvlColor = map[Lvl]int{
	LvlCrit:  35, // magenta
	LvlError: 31, // red
	LvlWarn:  33, // yellow
	LvlInfo:  32, // green
	LvlDebug: 36, // cyan
	LvlTrace: 90, // gray
}

// TerminalFormat returns a Format modeled on the teacher's console log
// layout: "LVL[timestamp] msg key=value ...", colorized when useColor is
// set (typically because the destination is an interactive terminal).
func TerminalFormat(useColor bool) Format {
	return formatFunc(func(r *Record) []byte {
		var b strings.Builder
		ts := r.Time.Format("2006-01-02T15:04:05-0700")
		if useColor {
			fmt.Fprintf(&b, "\x1b[%dm%s\x1b[0m[%s] %s", lvlColor[r.Lvl], r.Lvl.String(), ts, r.Msg)
		} else {
			fmt.Fprintf(&b, "%s[%s] %s", r.Lvl.String(), ts, r.Msg)
		}
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			fmt.Fprintf(&b, " %v=%v", r.Ctx[i], formatValue(r.Ctx[i+1]))
		}
		if r.Call.Frame().Function != "" {
			fmt.Fprintf(&b, " caller=%s", r.Call)
		}
		b.WriteByte('\n')
		return []byte(b.String())
	})
}

func formatValue(v interface{}) interface{} {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}

// LogfmtFormat renders records as sorted key=value pairs, convenient for
// machine parsing.
func LogfmtFormat() Format {
	return formatFunc(func(r *Record) []byte {
		fields := map[string]interface{}{"lvl": r.Lvl.String(), "msg": r.Msg}
		for i := 0; i+1 < len(r.Ctx); i += 2 {
			if k, ok := r.Ctx[i].(string); ok {
				fields[k] = r.Ctx[i+1]
			}
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, fields[k])
		}
		b.WriteByte('\n')
		return []byte(b.String())
	})
}

type streamHandler struct {
	mu  sync.Mutex
	w   io.Writer
	fmt Format
}

func (h *streamHandler) Log(r *Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(h.fmt.Format(r))
	return err
}

// StreamHandler writes formatted records to w, serializing concurrent
// writers with a mutex.
func StreamHandler(w io.Writer, f Format) Handler {
	return &streamHandler{w: w, fmt: f}
}

// isTerminal reports whether f is an interactive terminal (including a
// Cygwin terminal). Wrapping for color output is done by colorableWriter.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// colorableWriter wraps f so ANSI color codes render on all platforms the
// teacher supports.
func colorableWriter(f *os.File) io.Writer {
	return colorable.NewColorable(f)
}

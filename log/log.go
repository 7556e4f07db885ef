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

// Package log is a small log15-lineage structured logger: leveled records
// with key/value context, call-site capture, and a terminal-aware
// formatter. The teacher's own log package (github.com/core-coin/go-core/log)
// is built the same way but its source was not part of the retrieval pack;
// this is a from-scratch reconstruction in its idiom, using the same three
// dependencies the teacher already carries for exactly this purpose.
package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-stack/stack"
)

// Lvl is a log severity level, ordered from most to least severe.
type Lvl int

const (
	LvlCrit Lvl = iota
	LvlError
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

// LvlFromString parses the log15-style level names ("trace".."crit") used
// in config files and command-line flags.
func LvlFromString(s string) (Lvl, error) {
	switch s {
	case "trace", "trce":
		return LvlTrace, nil
	case "debug", "dbug":
		return LvlDebug, nil
	case "info":
		return LvlInfo, nil
	case "warn":
		return LvlWarn, nil
	case "error", "eror":
		return LvlError, nil
	case "crit":
		return LvlCrit, nil
	default:
		return LvlDebug, fmt.Errorf("log: unknown level %q", s)
	}
}

func (l Lvl) String() string {
	switch l {
	case LvlCrit:
		return "crit"
	case LvlError:
		return "eror"
	case LvlWarn:
		return "warn"
	case LvlInfo:
		return "info"
	case LvlDebug:
		return "dbug"
	case LvlTrace:
		return "trce"
	default:
		return "unkn"
	}
}

// Record is a single log event.
type Record struct {
	Time  time.Time
	Lvl   Lvl
	Msg   string
	Ctx   []interface{}
	Call  stack.Call
}

// Handler writes a Record somewhere.
type Handler interface {
	Log(r *Record) error
}

// Logger emits leveled records carrying persistent key/value context.
type Logger interface {
	New(ctx ...interface{}) Logger
	SetHandler(h Handler)

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
}

type logger struct {
	ctx []interface{}
	mu  sync.Mutex
	h   Handler
}

// Root returns the root logger, which all New()-derived loggers write
// through unless given their own handler.
func Root() Logger { return root }

var root = &logger{h: StreamHandler(colorableWriter(os.Stderr), TerminalFormat(isTerminal(os.Stderr)))}

// New returns a new logger with ctx appended to the root logger's context.
func New(ctx ...interface{}) Logger {
	return root.New(ctx...)
}

func (l *logger) New(ctx ...interface{}) Logger {
	child := &logger{ctx: append(append([]interface{}{}, l.ctx...), ctx...)}
	l.mu.Lock()
	child.h = l.h
	l.mu.Unlock()
	return child
}

func (l *logger) SetHandler(h Handler) {
	l.mu.Lock()
	l.h = h
	l.mu.Unlock()
}

func (l *logger) write(lvl Lvl, msg string, ctx []interface{}) {
	l.mu.Lock()
	h := l.h
	l.mu.Unlock()
	if h == nil {
		return
	}
	call := stack.Caller(2)
	full := make([]interface{}, 0, len(l.ctx)+len(ctx))
	full = append(full, l.ctx...)
	full = append(full, ctx...)
	_ = h.Log(&Record{Time: time.Now(), Lvl: lvl, Msg: msg, Ctx: full, Call: call})
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.write(LvlTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.write(LvlDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.write(LvlInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.write(LvlWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.write(LvlError, msg, ctx) }
func (l *logger) Crit(msg string, ctx ...interface{})  { l.write(LvlCrit, msg, ctx) }

// Convenience package-level functions writing through the root logger.
func Trace(msg string, ctx ...interface{}) { root.write(LvlTrace, msg, ctx) }
func Debug(msg string, ctx ...interface{}) { root.write(LvlDebug, msg, ctx) }
func Info(msg string, ctx ...interface{})  { root.write(LvlInfo, msg, ctx) }
func Warn(msg string, ctx ...interface{})  { root.write(LvlWarn, msg, ctx) }
func Error(msg string, ctx ...interface{}) { root.write(LvlError, msg, ctx) }
func Crit(msg string, ctx ...interface{})  { root.write(LvlCrit, msg, ctx) }

// LvlFilterHandler wraps h so that only records at or above maxLvl pass.
func LvlFilterHandler(maxLvl Lvl, h Handler) Handler {
	return handlerFunc(func(r *Record) error {
		if r.Lvl > maxLvl {
			return nil
		}
		return h.Log(r)
	})
}

type handlerFunc func(r *Record) error

func (f handlerFunc) Log(r *Record) error { return f(r) }

// Package logger writes component-tagged lines to a shared log file and mirrors
// user-facing messages to the terminal status area.
//
// Every line carries the component name and the calling function:
//
//	[Scheduler][loop] Sync Balances fired
//
// Nothing is written to disk until Init succeeds.
package logger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/ohmynofan/tron-assets/internal/platform/ui"
	"github.com/ohmynofan/tron-assets/pkg/utils"
)

const statusWidth = 140

var (
	mu     sync.RWMutex
	out    *log.Logger
	file   *os.File
	initMu sync.Once
)

// Init opens path for appending, creating its directory. Later calls are no-ops.
func Init(path string) error {
	var err error
	initMu.Do(func() {
		if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return
		}
		var f *os.File
		if f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			return
		}
		mu.Lock()
		file, out = f, log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds)
		mu.Unlock()
	})
	return err
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	out = nil
	return file.Close()
}

// ClassLogger tags lines with the component it was created for.
type ClassLogger struct {
	class string
}

// NewLogger names the logger after v's type, e.g. *assets.Service logs as "Service".
func NewLogger(v any) *ClassLogger {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return &ClassLogger{class: t.Name()}
}

func NewNamed(name string) *ClassLogger {
	return &ClassLogger{class: name}
}

// Log writes msg to the file and shows it as the component's status line.
func (l *ClassLogger) Log(msg string) {
	l.write(msg)
	ui.UpdateStatus(l.class, truncate(msg, statusWidth))
}

// JustLog writes msg to the file only.
func (l *ClassLogger) JustLog(msg string) {
	l.write(msg)
}

// LogObject writes obj as indented JSON under msg. Func fields are elided.
func (l *ClassLogger) LogObject(msg string, obj any) {
	body, err := utils.FormatObject(obj)
	if err != nil {
		l.write(fmt.Sprintf("%s : unformattable %T: %v", msg, obj, err))
		return
	}
	l.write(fmt.Sprintf("%s : \n%s", msg, body))
}

func (l *ClassLogger) write(msg string) {
	mu.RLock()
	defer mu.RUnlock()
	if out == nil {
		return
	}
	// skip write and the exported method that called it
	out.Printf("[%s][%s] %s", l.class, caller(3), msg)
}

func caller(skip int) string {
	pc, _, _, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return "unknown"
	}
	name := fn.Name()
	return name[strings.LastIndex(name, ".")+1:]
}

func truncate(msg string, width int) string {
	runes := []rune(msg)
	if len(runes) <= width {
		return msg
	}
	return string(runes[:width-1]) + "…"
}

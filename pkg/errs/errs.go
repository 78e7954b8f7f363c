package errs

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
)

const (
	traceSkip     = 3
	trackPrealloc = 50
)

type sFrame struct {
	filename string
	method   string
	line     int
}

func (f sFrame) String() string {
	return fmt.Sprintf("%s:%d %s", f.filename, f.line, f.method)
}

type stack []sFrame

func (s stack) strings() []string {
	res := make([]string, 0, len(s))
	for _, f := range s {
		res = append(res, f.String())
	}

	return res
}

type errorWithTrace struct {
	error

	trace stack
}

func (e *errorWithTrace) Unwrap() error {
	return e.error
}

// NewStack attaches the caller's stack to err and logs it. An error that already carries
// a stack is returned as is.
func NewStack(err error) error {
	if err == nil {
		return nil
	}

	var errWT *errorWithTrace

	// Add trace only once
	if errors.As(err, &errWT) {
		return err
	}

	stack := stackTrace(traceSkip)

	log.Error(err.Error(), zap.String("trace", strings.Join(stack.strings(), "; ")))

	return &errorWithTrace{
		error: err,
		trace: stack,
	}
}

// Trace returns the frames recorded by NewStack, or nil.
func Trace(err error) []string {
	var errWT *errorWithTrace
	if !errors.As(err, &errWT) {
		return nil
	}

	return errWT.trace.strings()
}

func stackTrace(skip int) stack {
	pc := make([]uintptr, trackPrealloc)
	n := runtime.Callers(skip, pc)
	pc = pc[:n]

	frames := runtime.CallersFrames(pc)
	stack := make(stack, 0, n)

	for {
		frame, more := frames.Next()

		stack = append(stack, sFrame{filename: frame.File, method: frame.Function, line: frame.Line})

		if !more {
			break
		}
	}

	return stack
}

// Package passert implements fatal, unrecoverable invariant checks.
//
// It mirrors PVM_ASSERT / PVM_ASSERT_MSG / PVM_UNREACHABLE from
// original_source/src/common/passert.{h,cpp}: a failed assertion prints
// a banner with file/line/function/expression/message and then
// terminates the current goroutine's execution path via panic, which
// — left unrecovered, as the core never recovers its own invariant
// failures — brings the process down exactly like the original's
// abort(). Tests that need to observe a failure without killing the
// test binary recover the panic and inspect it as a *Failure.
package passert

import (
	"fmt"
	"runtime"

	"github.com/pound-emu/pound/vlog"
)

var log = vlog.New("passert")

// Failure describes a fatal assertion failure.
type Failure struct {
	File string
	Line int
	Func string
	Expr string
	Msg  string
}

func (f *Failure) Error() string {
	return fmt.Sprintf(
		"PVM ASSERTION FAILURE\nFile: %s\nLine: %d\nFunction: %s\nExpression: %s\nMessage: %s",
		f.File, f.Line, f.Func, f.Expr, f.Msg,
	)
}

// Assert panics with a *Failure if cond is false. format/args describe
// the invariant for the message field; pass "" with no args if there is
// nothing more to say than the call site.
func Assert(cond bool, format string, args ...any) {
	if cond {
		return
	}

	fail("<condition>", format, args...)
}

// Assertf is Assert with an explicit expression string, which fills the
// banner's Expression field, mirroring PVM_ASSERT_MSG.
func Assertf(cond bool, expr, format string, args ...any) {
	if cond {
		return
	}

	fail(expr, format, args...)
}

// Unreachable fails unconditionally, for code paths the architecture
// forbids (e.g. the MMU encountering a reserved descriptor combination
// that earlier checks should have excluded).
func Unreachable(format string, args ...any) {
	fail("PVM_UNREACHABLE()", format, args...)
}

func fail(expr, format string, args ...any) {
	pc, file, line, ok := runtime.Caller(2)
	funcName := "unknown"

	if ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			funcName = fn.Name()
		}
	}

	msg := "n/a"
	if format != "" {
		msg = fmt.Sprintf(format, args...)
	}

	f := &Failure{File: file, Line: line, Func: funcName, Expr: expr, Msg: msg}
	log.Errorf("%s", f.Error())

	panic(f)
}

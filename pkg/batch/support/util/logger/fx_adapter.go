package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter implements fxevent.Logger on top of the package logger.
// Container wiring is reported at DEBUG; only failures surface at ERROR.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuted:
		logHook("OnStart", e.FunctionName, e.Err)
	case *fxevent.OnStopExecuted:
		logHook("OnStop", e.FunctionName, e.Err)
	case *fxevent.Supplied:
		logResult("Supplied "+e.TypeName, e.Err)
	case *fxevent.Provided:
		for _, name := range e.OutputTypeNames {
			Debugf("Provided: %s", name)
		}
		if e.Err != nil {
			Errorf("Provide error: %v", e.Err)
		}
	case *fxevent.Invoked:
		logResult("Invoked "+shortFuncName(e.FunctionName), e.Err)
	case *fxevent.Stopping:
		Debugf("Stopping signal received: %s", e.Signal)
	case *fxevent.Stopped:
		logResult("Stopped", e.Err)
	case *fxevent.RollingBack:
		Errorf("Start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		logResult("Rolled back", e.Err)
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("Start failed: %v", e.Err)
			return
		}
		Debugf("Application container started.")
	case *fxevent.LoggerInitialized:
		logResult("Logger initialized "+e.ConstructorName, e.Err)
	}
}

func logHook(kind, fn string, err error) {
	if err != nil {
		Errorf("%s hook failed: %s: %v", kind, shortFuncName(fn), err)
		return
	}
	Debugf("%s hook executed: %s", kind, shortFuncName(fn))
}

func logResult(what string, err error) {
	if err != nil {
		Errorf("%s: %v", what, err)
		return
	}
	Debugf("%s", what)
}

// shortFuncName drops the ".funcN" suffix Fx reports for closures.
func shortFuncName(fn string) string {
	if idx := strings.LastIndex(fn, ".func"); idx != -1 {
		return fn[:idx]
	}
	return fn
}

package metrics

import (
	"fmt"
	"runtime"
)

// TrackPanic tracks panic occurrences
func TrackPanic(component string) {
	GetMetrics().Error.PanicsTotal.WithLabelValues(component).Inc()
}

// TrackError tracks errors by component and type
func TrackError(component, errorType string) {
	GetMetrics().Error.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecoverFromPanic counts a panic and re-panics with the caller's name attached.
func RecoverFromPanic(component string) {
	if r := recover(); r != nil {
		pc, _, _, ok := runtime.Caller(1)
		functionName := "unknown"
		if ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				functionName = fn.Name()
			}
		}

		TrackPanic(component)
		TrackError(component, "panic")

		panic(fmt.Sprintf("recovered panic in %s.%s: %v", component, functionName, r))
	}
}

package utils

import (
	"fmt"
	"runtime/debug"

	"go.uber.org/zap"
)

// RecoverFromPanic recovers from panics and logs them. It must be called
// directly by a deferred statement.
func RecoverFromPanic(logger *Logger, where string) {
	if r := recover(); r != nil {
		logger.Zap().Error("panic recovered",
			zap.String("in", where),
			zap.Any("panic", r),
			zap.ByteString("stack", debug.Stack()))
	}
}

// SafeGo runs a goroutine with panic recovery
func SafeGo(logger *Logger, where string, fn func()) {
	go func() {
		defer RecoverFromPanic(logger, where)
		fn()
	}()
}

// SafeGoWithError runs fn in a goroutine. A returned error or a recovered
// panic is logged and passed to onError.
func SafeGoWithError(logger *Logger, where string, fn func() error, onError func(error)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Zap().Error("panic recovered",
					zap.String("in", where),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				if onError != nil {
					onError(fmt.Errorf("%s: panic: %v", where, r))
				}
			}
		}()
		if err := fn(); err != nil {
			logger.Error("Error in %s: %v", where, err)
			if onError != nil {
				onError(err)
			}
		}
	}()
}

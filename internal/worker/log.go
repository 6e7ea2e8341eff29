package worker

import "log"

var debugEnabled bool

// SetDebug toggles verbose worker logging.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...any) {
	if debugEnabled {
		log.Printf("[worker] "+format, args...)
	}
}

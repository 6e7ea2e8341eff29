package reader

import "log"

var debugEnabled bool

// SetDebug toggles verbose session logging.
func SetDebug(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...any) {
	if debugEnabled {
		log.Printf("[reader] "+format, args...)
	}
}

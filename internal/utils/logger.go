package utils

import (
	"log"
	"strings"
)

// LogEvent prints one service event line tagged with module, action and request_id.
// Keep msg to ids and amounts; never log passwords or tokens.
func LogEvent(requestID, module, action, msg string) {
	log.Printf("[%s] action=%s request_id=%s msg=%s", strings.ToUpper(module), action, strings.TrimSpace(requestID), msg)
}

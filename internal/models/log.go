package models

import "strings"

// LogNotification is one logsSubscribe delivery
type LogNotification struct {
	Signature string
	Slot      uint64
	Logs      []string
	// Failed is true when the transaction executed with an error
	Failed bool
}

// Mentions reports whether any log line contains marker
func (n *LogNotification) Mentions(marker string) bool {
	for _, line := range n.Logs {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

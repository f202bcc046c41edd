//go:build windows

package main

import (
	"os"
	"os/signal"
)

// notifySignals registers OS signal handlers that cancel a running command.
// Windows has no SIGTERM.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}

//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// setupResizeSignal delivers terminal resize notifications.
func setupResizeSignal() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	return ch, func() { signal.Stop(ch) }
}

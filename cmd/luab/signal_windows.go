//go:build windows

package main

import (
	"os"
)

// setupResizeSignal returns a channel that never fires; the console has no
// resize signal.
func setupResizeSignal() (<-chan os.Signal, func()) {
	return make(chan os.Signal), func() {}
}

// keyctl.go - raw stdin keystroke control for the debug demo, adjusting the
// engine's rate/amplitude live.
package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"
)

// KeyController reads raw stdin and routes single keystrokes into engine
// parameter changes. Only instantiated for interactive use.
type KeyController struct {
	engine  *Engine
	stopCh  chan struct{}
	done    chan struct{}
	stopped sync.Once

	fd           int
	nonblockSet  bool
	oldTermState *term.State

	rate float64
	amp  float64
}

// NewKeyController builds a controller targeting engine.
func NewKeyController(engine *Engine) *KeyController {
	return &KeyController{
		engine: engine,
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
		rate:   1.0,
		amp:    1.0,
	}
}

// Start puts stdin in raw, non-blocking mode and begins routing keystrokes:
// [/] adjust rate, -/= adjust amplitude, q requests shutdown via stopCh.
func (k *KeyController) Start() {
	k.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(k.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keyctl: failed to set raw mode: %v\n", err)
		close(k.done)
		return
	}
	k.oldTermState = oldState

	if err := syscall.SetNonblock(k.fd, true); err != nil {
		fmt.Fprintf(os.Stderr, "keyctl: failed to set nonblocking stdin: %v\n", err)
		_ = term.Restore(k.fd, k.oldTermState)
		k.oldTermState = nil
		close(k.done)
		return
	}
	k.nonblockSet = true

	go func() {
		defer close(k.done)
		buf := make([]byte, 1)
		for {
			select {
			case <-k.stopCh:
				return
			default:
			}
			n, err := syscall.Read(k.fd, buf)
			if n > 0 {
				if k.route(buf[0]) {
					return
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// route applies one keystroke and reports whether it requests shutdown.
func (k *KeyController) route(b byte) bool {
	switch b {
	case '[':
		k.rate -= 0.05
		k.engine.SetRate(k.rate)
	case ']':
		k.rate += 0.05
		k.engine.SetRate(k.rate)
	case '-':
		k.amp -= 0.05
		k.engine.SetAmplitude(k.amp)
	case '=':
		k.amp += 0.05
		k.engine.SetAmplitude(k.amp)
	case 'q':
		k.stopped.Do(func() { close(k.stopCh) })
		return true
	}
	return false
}

// Stop terminates the reader goroutine and restores stdin.
func (k *KeyController) Stop() {
	k.stopped.Do(func() {
		close(k.stopCh)
	})
	<-k.done
	if k.nonblockSet {
		_ = syscall.SetNonblock(k.fd, false)
		k.nonblockSet = false
	}
	if k.oldTermState != nil {
		_ = term.Restore(k.fd, k.oldTermState)
		k.oldTermState = nil
	}
}

/*
 * xailyser - network capture & deep packet inspection
 * Copyright (c) 2020-2024 the xailyser authors
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package pipeline

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Exit codes from spec.md §7's process-exit table.
const (
	ExitClean             = 0
	ExitUnrecoverable     = 1
	ExitConfigError       = 2
	ExitRestartRequested  = 42
)

// WaitForSignal blocks until SIGINT, SIGTERM or SIGHUP arrives, then
// cancels ctx so every pipeline stage can drain. It returns the process
// exit code the caller should use: SIGHUP requests a supervisor-driven
// restart (ExitRestartRequested), SIGINT/SIGTERM request a clean stop
// (ExitClean).
func WaitForSignal(cancel context.CancelFunc) int {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-ch
	cancel()

	if sig == syscall.SIGHUP {
		return ExitRestartRequested
	}

	return ExitClean
}

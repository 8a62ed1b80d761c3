// SPDX-License-Identifier: MPL-2.0

package toolexec

import (
	"bytes"
	"io"
	"sync"
)

// lineWriter forwards complete lines to dst as soon as they arrive. The mutex
// is shared between a run's stdout and stderr writers so lines from the two
// streams never interleave mid-line when both target the same writer.
type lineWriter struct {
	mu  *sync.Mutex
	dst io.Writer
	buf []byte
}

// Write buffers p and emits every complete line it now holds.
func (w *lineWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if err := w.emit(w.buf[:i+1]); err != nil {
			return len(p), err
		}
		w.buf = w.buf[i+1:]
	}
	// Compact so the backing array does not grow without bound.
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}

// Flush emits a trailing partial line, if any.
func (w *lineWriter) Flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	rest := w.buf
	w.buf = nil
	return w.emit(rest)
}

func (w *lineWriter) emit(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := w.dst.Write(line)
	return err
}

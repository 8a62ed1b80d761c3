// SPDX-License-Identifier: MPL-2.0

//go:build !windows

package watch

import "syscall"

// fatalErrnos are inotify/kqueue resource exhaustion errors after which the
// watcher no longer sees every change: the watch limit
// (fs.inotify.max_user_watches) and the per-process and system-wide file
// descriptor limits.
var fatalErrnos = []syscall.Errno{syscall.ENOSPC, syscall.EMFILE, syscall.ENFILE}

package multipath

import (
	"context"
	"errors"
	log "log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry executes task with Fibonacci backoff (50ms base), retrying at most
// 5 times. go-retry only retries errors the task wraps with
// retry.RetryableError; any other error ends the loop at once. When the
// loop ends with an error, gaveUp is invoked (when not nil) and the final
// error is returned wrapped as ErrTransientIO. No other package in this
// module calls Retry.
func Retry(ctx context.Context, subject string, task func(ctx context.Context) error, gaveUp func(ctx context.Context)) error {
	b := retry.NewFibonacci(50 * time.Millisecond)
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), task); err != nil {
		log.Warn("retry exhausted, giving up", "subject", subject, "error", err)
		if gaveUp != nil {
			gaveUp(ctx)
		}
		return NewError(ErrTransientIO, subject, err)
	}
	return nil
}

// ShouldRetry reports whether err is retryable (non-nil, not a known
// permanent failure). EAGAIN/EBUSY/EINTR from a device-mapper ioctl or a
// checker probe are retryable; everything that indicates the underlying
// device or filesystem is gone is not (see IsFailoverQualifiedIOError).
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, os.ErrExist) {
		return false
	}

	switch {
	case errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EBUSY),
		errors.Is(err, syscall.EINTR):
		return true
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EMFILE),
		errors.Is(err, syscall.ENFILE),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.ENAMETOOLONG),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR),
		errors.Is(err, syscall.ENOTEMPTY),
		errors.Is(err, syscall.EMLINK),
		errors.Is(err, syscall.ELOOP),
		errors.Is(err, syscall.EXDEV),
		errors.Is(err, syscall.EEXIST),
		errors.Is(err, syscall.EINVAL),
		errors.Is(err, syscall.ENODEV),
		errors.Is(err, syscall.ENXIO):
		return false
	}

	if strings.Contains(err.Error(), "read-only file system") {
		return false
	}

	return true
}

//go:build !darwin && !linux

package utils

import (
	"context"
	"errors"
	"time"
)

var ErrUnsupportedPlatform = errors.New("external tools are not supported on this platform")

func RunCommand(ctx context.Context, timeout time.Duration, name string, args ...string) ([]byte, error) {
	return nil, ErrUnsupportedPlatform
}

package executor

import (
	"context"
	"time"

	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

// kmutil can take several minutes on older hardware
const commandTimeout = 20 * time.Minute

// commandRunner runs one external tool and returns its combined output.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return utils.RunCommand(ctx, commandTimeout, name, args...)
}

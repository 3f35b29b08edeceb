package common

import (
	"fmt"

	"github.com/canonical/go-snapctl/env"
)

// CommandName is the name the CLI was installed under.
func CommandName() string {
	instanceName := env.SnapInstanceName()
	if instanceName == "" { // not a snap
		return "legacy-patcher"
	}
	return instanceName
}

func SuggestReboot() string {
	return "Reboot for the patched system volume to take effect."
}

func SuggestBuildConfig() string {
	return fmt.Sprintf("Run \"%s build-config\" to write the boot loader configuration.", CommandName())
}

func SuggestLogFile() string {
	return fmt.Sprintf("Run \"sudo %s apply --verbose --log-file <path>\" to keep a log of the next attempt.", CommandName())
}

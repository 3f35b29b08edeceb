package common

import (
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

// StartProgressSpinner draws a spinner on stderr until stop is called.
// Nothing is drawn when stdout is redirected, so piped output stays clean.
func StartProgressSpinner(prefix string) (stop func()) {
	if !utils.IsTerminalOutput() {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[9], time.Millisecond*200, spinner.WithWriter(os.Stderr))
	s.Prefix = prefix + " "
	s.Start()

	return s.Stop
}

package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/term"
)

// FmtPretty converts any interface to JSON with indentation, for use in logging where better readability is required. Errors are ignored.
func FmtPretty(v interface{}) string {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	return string(jsonData)
}

func SubDirectories(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var directories []string
	for _, entry := range entries {
		if entry.IsDir() {
			directories = append(directories, entry.Name())
		}
	}
	return directories, nil
}

func IsRootUser() bool {
	return os.Geteuid() == 0
}

func IsTerminalOutput() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

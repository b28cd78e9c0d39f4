package main

import (
	"os"
	"strconv"
	"strings"

	"taskflow-cli/internal/cli"
)

// Root flags that take a separate value token.
var rootValueFlags = map[string]bool{
	"--config-dir": true,
	"--api-url":    true,
	"--format":     true,
}

func isTaskID(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return err == nil && n > 0
}

// expandTaskShortcut rewrites `taskflow [flags] <id>` to `taskflow [flags] tasks show <id>`.
// Cobra would otherwise read the id as an unknown subcommand.
func expandTaskShortcut(argv []string) []string {
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && rootValueFlags[a] {
				i++
			}
			continue
		}
		if !isTaskID(a) {
			return argv
		}
		out := make([]string, 0, len(argv)+2)
		out = append(out, argv[:i]...)
		out = append(out, "tasks", "show")
		return append(out, argv[i:]...)
	}
	return argv
}

func main() {
	os.Args = expandTaskShortcut(os.Args)

	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

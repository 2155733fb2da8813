// Command tmux-prayer-times prints the next prayer for a tmux status line.
// It is "prayer-times next" with the compact name-and-time format as the
// default; every prayer-times flag is accepted.
package main

import (
	"fmt"
	"os"

	"github.com/smokyabdulrahman/prayer-companion/internal/cli"
	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

// version is set at build time via ldflags:
//
//	go build -ldflags "-X main.version=v1.0.0"
var version = "dev"

func main() {
	rootCmd := cli.NewRootCmd(version)
	rootCmd.SetArgs(statusArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// statusArgs routes the invocation to the next subcommand. --version and
// --help are left for the root command to answer.
func statusArgs(args []string) []string {
	for _, a := range args {
		switch a {
		case "--version", "-v", "--help", "-h":
			return args
		}
	}
	out := []string{"next", "--format", prayer.FormatNameAndTime}
	return append(out, args...)
}

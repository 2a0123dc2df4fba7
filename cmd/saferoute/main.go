package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saferoute-dev/saferoute/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "saferoute",
		Short: "Typed routes from file-based routing conventions",
		Long: `saferoute scans a project's routing convention and generates a single
artifact describing every route's path pattern and typed parameters.

Supported conventions:

  • react      declarative route lists (saferoute.routes.yaml, src/routes.tsx)
  • next-app   Next.js app router (app/)
  • next-page  Next.js pages router (pages/)

Output is a TypeScript declaration file, or Go source for .go outputs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		generateCmd(),
		listCmd(),
		initCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}

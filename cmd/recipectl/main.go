// Package main provides recipectl, a terminal client for the recipe
// generation workflow. It stages drafts in the same store the web frontend
// uses, so with the redis driver a draft generated here can be finished in
// the browser and the other way round.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Global flags
var (
	configPath     string
	sessionID      string
	backendSession string
	stagingDriver  string
	backendURL     string
	jsonOutput     bool
	verbose        bool
)

// Styles for output
var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
)

var rootCmd = &cobra.Command{
	Use:   "recipectl",
	Short: "Generate, edit and publish recipe drafts from the terminal",
	Long: `recipectl drives the recipe generation workflow without a browser.

Drafts are staged per session. The in-memory store lives only as long as one
command, so use --submit on generate or point staging at redis to keep a
draft between commands.

Examples:
  recipectl generate "spicy basil chicken for two"
  recipectl generate --submit "green curry without coconut milk"
  recipectl --staging redis --session kitchen show
  recipectl --staging redis --session kitchen submit`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVarP(&sessionID, "session", "s", "cli", "Staging session to use")
	rootCmd.PersistentFlags().StringVar(&backendSession, "backend-session", os.Getenv("TASTYFOOD_BACKEND_SESSION"), "Recipe API session cookie")
	rootCmd.PersistentFlags().StringVar(&stagingDriver, "staging", "", "Staging driver override (memory, redis)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Recipe API base URL override")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, failStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tastyfood/web/internal/ports/inbound"
)

var generateSubmit bool

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a recipe draft from a prompt",
	Long: `Generate a recipe draft and stage it for the session.

The prompt is sent to the recipe API, parsed, checked for safety and staged
together with matching how-to videos.

Examples:
  recipectl generate "spicy basil chicken"
  recipectl generate --submit "mango sticky rice"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateSubmit, "submit", false, "Submit the draft right after it is staged")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := a.withBackend(cmd.Context())
	prompt := strings.Join(args, " ")

	result, err := a.intake.Submit(ctx, prompt)
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(result); err != nil {
			return err
		}
	} else {
		printGeneration(a, result)
	}

	if result.State != inbound.StateComplete {
		return fmt.Errorf("generation ended in state %s", result.State)
	}

	if generateSubmit {
		return submitDraft(cmd, a)
	}
	return nil
}

func printGeneration(a *app, result *inbound.GenerationResult) {
	switch result.State {
	case inbound.StateComplete:
		a.print(draftMarkdown(result.Draft))
		fmt.Println(mutedStyle.Render(fmt.Sprintf("Staged for session %q after %d attempt(s). Edit at %s", sessionID, result.Attempts, result.RedirectURL)))
	case inbound.StateUnsafeRejected:
		fmt.Println(failStyle.Render("Rejected as unsafe"))
		a.print(result.Message)
	case inbound.StateAuthRequired:
		fmt.Println(warnStyle.Render(result.Message))
		fmt.Println(mutedStyle.Render("Sign in on the web and pass the cookie with --backend-session"))
	default:
		fmt.Println(failStyle.Render(result.Message))
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Check and publish the staged draft",
	Long: `Submit the staged draft to the recipe API.

The draft is validated locally, checked for safety and then created. A
successful submission clears the staged draft.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		return submitDraft(cmd, a)
	},
}

func submitDraft(cmd *cobra.Command, a *app) error {
	outcome := a.editor.Submit(a.withBackend(cmd.Context()), a.store)

	if jsonOutput {
		if err := printJSON(outcome); err != nil {
			return err
		}
	} else if outcome.Submitted {
		fmt.Println(passStyle.Render(outcome.Message))
		fmt.Println(mutedStyle.Render("Published at " + outcome.RedirectURL))
	} else {
		fmt.Println(failStyle.Render(outcome.Message))
		if outcome.RenderedNote != "" {
			fmt.Print(outcome.RenderedNote)
		}
	}

	if !outcome.Submitted {
		return errors.New("draft was not submitted")
	}
	return nil
}

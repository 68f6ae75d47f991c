package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tastyfood/web/internal/domain/draft"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the staged draft",
	RunE:  runShow,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the staged draft",
	RunE:  runReset,
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	outcome := a.editor.Load(cmd.Context(), a.store)
	if jsonOutput {
		return printJSON(outcome.Draft)
	}
	a.print(draftMarkdown(outcome.Draft))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.editor.Reset(cmd.Context(), a.store); err != nil {
		return err
	}
	fmt.Println(passStyle.Render(fmt.Sprintf("Draft for session %q discarded", sessionID)))
	return nil
}

// draftMarkdown lays a draft out as a markdown document
func draftMarkdown(d *draft.Draft) string {
	if d == nil || (d.MenuName == "" && len(d.Ingredients) == 0 && len(d.Instructions) == 0) {
		return "_No draft staged._\n"
	}

	var b strings.Builder

	name := d.MenuName
	if name == "" {
		name = "Untitled recipe"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)

	if d.Category != "" {
		fmt.Fprintf(&b, "**Category:** %s\n\n", d.Category)
	}
	if len(d.Tags) > 0 {
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(d.Tags, ", "))
	}
	if d.Characteristics != "" {
		fmt.Fprintf(&b, "**Characteristics:** %s\n\n", d.Characteristics)
	}
	if d.Flavors != "" {
		fmt.Fprintf(&b, "**Flavors:** %s\n\n", d.Flavors)
	}

	b.WriteString("## Ingredients\n\n")
	for _, item := range d.Ingredients {
		fmt.Fprintf(&b, "- %s\n", item)
	}

	b.WriteString("\n## Instructions\n\n")
	for i, step := range d.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	if len(d.Videos) > 0 {
		b.WriteString("\n## Videos\n\n")
		for _, v := range d.Videos {
			fmt.Fprintf(&b, "- [%s](%s)\n", v.Title, v.WatchURL())
		}
	}

	if d.CoverImageURL != "" {
		fmt.Fprintf(&b, "\n**Cover image:** %s\n", d.CoverImageURL)
	}

	return b.String()
}

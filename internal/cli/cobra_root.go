package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// buildRootCmd constructs the command tree. Leaf commands parse their own
// single-dash flags, so cobra flag parsing is disabled on them; each stores
// its exit code in *code.
func buildRootCmd(ctx context.Context, code *int) *cobra.Command {
	root := &cobra.Command{
		Use:           "aiaa",
		Short:         "Client for an annotation-assisted inference server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	leaf := func(use, short, example string, run func(context.Context, []string) int) *cobra.Command {
		return &cobra.Command{
			Use:                use,
			Short:              short,
			Example:            example,
			DisableFlagParsing: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				*code = run(ctx, args)
				return nil
			},
		}
	}

	root.AddCommand(leaf("dextr3d", "Run point-based 3D annotation (DEXTR3D) with one model",
		"  aiaa dextr3d -label liver -points [[70,172,86],[105,161,180]] -image in.nii.gz -output out.nii.gz",
		runDextr3D))
	root.AddCommand(leaf("models", "List models known to the server",
		"  aiaa models -type annotation\n  aiaa models -label spleen -save catalog.yaml",
		runModels))

	sessionCmd := &cobra.Command{Use: "session", Short: "Manage server-side image sessions", RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("session requires a subcommand: create|get|close")
	}}
	sessionCmd.AddCommand(
		leaf("create", "Upload an image and print the new session", "  aiaa session create -image in.nii.gz -expiry 3600", runSessionCreate),
		leaf("get <id>", "Print a session", "  aiaa session get 5a2b0d4e-9e55-4c4b-9d8b-0d6f3f6c9e0e", runSessionGet),
		leaf("close <id>", "Close a session", "  aiaa session close 5a2b0d4e-9e55-4c4b-9d8b-0d6f3f6c9e0e", runSessionClose),
	)
	root.AddCommand(sessionCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(stdout) }})
	root.AddCommand(completionCmd)

	return root
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newCompletionCmd implements `jaywl generate-completion <shell>`
// (spec §6.3) using cobra's built-in writers, the same pattern
// bnema/waymon exposes for its own CLI.
func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "generate-completion {bash|zsh|fish|powershell}",
		Short:     "print a shell completion script",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletion(os.Stdout)
			case "zsh":
				return root.GenZshCompletion(os.Stdout)
			case "fish":
				return root.GenFishCompletion(os.Stdout, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(os.Stdout)
			default:
				return usageError{fmt.Errorf("unsupported shell %q", args[0])}
			}
		},
	}
}

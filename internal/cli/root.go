package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the langganan-ctl command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "langganan-ctl",
		Short:         "Operator tooling for the subscription marketplace",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newNormalizeCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newTokenCmd())
	root.AddCommand(newEnqueueCmd())
	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

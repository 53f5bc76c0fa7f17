package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-langganan/internal/plans"
)

func newNormalizeCmd() *cobra.Command {
	var hint plans.ProductHint
	var currency string
	cmd := &cobra.Command{
		Use:   "normalize <file|->",
		Short: "Normalize a captured vendor plan payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readPayload(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var payload any
			if err := dec.Decode(&payload); err != nil {
				return fmt.Errorf("decode payload: %w", err)
			}
			n := plans.NewNormalizer(plans.NormalizerConfig{Currencies: plans.DefaultCurrencyTable(currency)})
			return printJSON(cmd.OutOrStdout(), n.Normalize(payload, hint))
		},
	}
	cmd.Flags().StringVar(&hint.ID, "product", "", "product id used for fallback plan ids")
	cmd.Flags().StringVar(&hint.Name, "name", "", "product name used for fallback plan names")
	cmd.Flags().StringVar(&currency, "currency", "INR", "currency when the payload has none")
	return cmd
}

func readPayload(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

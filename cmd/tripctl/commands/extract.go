package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newExtractCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract recommendations from assistant text",
		Long: `Send text to the server's stateless extractor and print the structured
recommendations and the cleaned prose. Reads stdin when no file or "-" is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			resp, err := newClient(v).Extract(cmd.Context(), text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if ok, err := printJSON(v, out, resp); ok || err != nil {
				return err
			}
			fmt.Fprintln(out, resp.Cleaned)
			if len(resp.Recommendations) == 0 {
				fmt.Fprintln(out, "\nNo recommendations found.")
				return nil
			}
			fmt.Fprintln(out)
			return printRecommendations(out, resp.Recommendations)
		},
	}
}

func readInput(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func execCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run a single remote console command and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			client, err := dialFromFlags()
			if err != nil {
				return err
			}
			defer client.Close()

			out, err := client.Execute(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("execute command: %w", err)
			}

			fmt.Println(out)

			return nil
		},
	}
}

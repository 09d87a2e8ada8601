package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive RCON shell",
		Long:  "Connects once and opens a REPL that sends each line as a command. Type 'exit' or 'quit' to leave.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			client, err := dialFromFlags()
			if err != nil {
				return err
			}
			defer client.Close()

			fmt.Printf("Connected to %s. Type 'exit' or 'quit' to leave.\n", addr)
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("rcon> ")

			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())

				switch {
				case line == "exit" || line == "quit":
					return nil
				case line != "":
					out, err := client.Execute(line)
					if err != nil {
						fmt.Fprintln(os.Stderr, "Error:", err)
					} else {
						fmt.Println(out)
					}
				}

				fmt.Print("rcon> ")
			}

			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			return nil
		},
	}
}

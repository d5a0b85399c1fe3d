// Command esuvi runs the chat-and-budgeting API and offers ledger and
// settings commands for the terminal.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

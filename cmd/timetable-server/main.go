// Command timetable-server runs the school-timetable scheduling job
// server: it accepts a single scheduling-GUI client over TCP, dispatches
// Command/Debug/Data/Algorithm messages, and supervises algorithm
// subprocesses on the client's behalf.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "timetable-server",
		Short: "School-timetable scheduling job server",
	}
	root.AddCommand(newServeCmd())
	return root
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "floorsync",
	Short: "FloorSync - offline-first factory floor data capture",
	Long: `FloorSync captures equipment downtime, maintenance checklists, and
alerts on the factory floor, stores them durably on the device, and
synchronizes them to the plant server whenever connectivity allows.`,
}

var (
	apiAddr string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:7610", "Daemon API address")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(downtimeCmd)
	rootCmd.AddCommand(alertCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

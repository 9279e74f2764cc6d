package main

import (
	"encoding/json"
	"fmt"

	"github.com/floorsync/floorsync/internal/syncer"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Trigger a synchronization attempt now",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	body, err := apiPost("/sync", struct{}{})
	if err != nil {
		return err
	}
	var result syncer.Result
	if err := json.Unmarshal(body, &result); err != nil {
		return err
	}

	switch {
	case result.Skipped:
		fmt.Println("A sync attempt is already in progress.")
	case result.Success:
		fmt.Printf("Sync complete: %d item(s) uploaded.\n", result.SyncedItems)
	default:
		fmt.Println("Sync failed:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}
	return nil
}

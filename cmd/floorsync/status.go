package main

import (
	"encoding/json"
	"fmt"

	"github.com/floorsync/floorsync/internal/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status and dashboard counters",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	body, err := apiGet("/status")
	if err != nil {
		return err
	}
	var status models.SyncStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return err
	}

	online := "offline"
	if status.IsOnline {
		online = "online"
	}
	fmt.Printf("Connectivity:  %s\n", online)
	fmt.Printf("Pending items: %d\n", status.PendingItems)
	fmt.Printf("Syncing:       %v\n", status.Syncing)
	if status.LastSyncTime != nil {
		fmt.Printf("Last sync:     %s\n", status.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
	} else {
		fmt.Println("Last sync:     never")
	}

	body, err = apiGet("/stats")
	if err != nil {
		return err
	}
	var stats models.DashboardStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("Active downtime:       %d\n", stats.ActiveDowntime)
	fmt.Printf("Pending maintenance:   %d\n", stats.PendingMaintenance)
	fmt.Printf("Unacknowledged alerts: %d\n", stats.UnacknowledgedAlerts)
	fmt.Printf("Downtime today:        %d min\n", stats.TodayDowntimeMinutes)
	return nil
}

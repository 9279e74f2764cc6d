package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/floorsync/floorsync/internal/models"
	"github.com/spf13/cobra"
)

var downtimeCmd = &cobra.Command{
	Use:   "downtime",
	Short: "Record and inspect equipment downtime",
}

var (
	dtOperator    string
	dtEquipment   string
	dtEquipName   string
	dtReason      string
	dtDescription string
	dtStatus      string
	dtLimit       int
)

var downtimeStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Record the start of a downtime event",
	RunE:  runDowntimeStart,
}

var downtimeResolveCmd = &cobra.Command{
	Use:   "resolve <event-id>",
	Short: "Resolve an active downtime event",
	Args:  cobra.ExactArgs(1),
	RunE:  runDowntimeResolve,
}

var downtimeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List downtime events",
	RunE:  runDowntimeList,
}

func init() {
	downtimeStartCmd.Flags().StringVar(&dtOperator, "operator", "", "Operator ID (required)")
	downtimeStartCmd.Flags().StringVar(&dtEquipment, "equipment", "", "Equipment ID (required)")
	downtimeStartCmd.Flags().StringVar(&dtEquipName, "name", "", "Equipment display name")
	downtimeStartCmd.Flags().StringVar(&dtReason, "reason", "", "Downtime reason (required)")
	downtimeStartCmd.Flags().StringVar(&dtDescription, "description", "", "Free-form description")
	downtimeStartCmd.MarkFlagRequired("operator")
	downtimeStartCmd.MarkFlagRequired("equipment")
	downtimeStartCmd.MarkFlagRequired("reason")

	downtimeListCmd.Flags().StringVar(&dtStatus, "status", "", "Filter by status (active|resolved)")
	downtimeListCmd.Flags().StringVar(&dtOperator, "operator", "", "Filter by operator ID")
	downtimeListCmd.Flags().IntVar(&dtLimit, "limit", 20, "Maximum events to show")

	downtimeCmd.AddCommand(downtimeStartCmd)
	downtimeCmd.AddCommand(downtimeResolveCmd)
	downtimeCmd.AddCommand(downtimeListCmd)
}

func runDowntimeStart(cmd *cobra.Command, args []string) error {
	body, err := apiPost("/downtime", map[string]string{
		"operator_id":    dtOperator,
		"equipment_id":   dtEquipment,
		"equipment_name": dtEquipName,
		"reason":         dtReason,
		"description":    dtDescription,
	})
	if err != nil {
		return err
	}
	var ev models.DowntimeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	fmt.Printf("Recorded downtime %s for %s (%s)\n", ev.ID, ev.EquipmentName, ev.Reason)
	return nil
}

func runDowntimeResolve(cmd *cobra.Command, args []string) error {
	now := time.Now().UTC()
	_, err := apiPost("/downtime/"+args[0]+"/resolve", map[string]time.Time{"end_time": now})
	if err != nil {
		return err
	}
	fmt.Printf("Resolved downtime %s\n", args[0])
	return nil
}

func runDowntimeList(cmd *cobra.Command, args []string) error {
	path := fmt.Sprintf("/downtime?limit=%d", dtLimit)
	if dtStatus != "" {
		path += "&status=" + dtStatus
	}
	if dtOperator != "" {
		path += "&operator=" + dtOperator
	}

	body, err := apiGet(path)
	if err != nil {
		return err
	}
	var events []models.DowntimeEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return err
	}

	if len(events) == 0 {
		fmt.Println("No downtime events.")
		return nil
	}
	for _, ev := range events {
		marker := " "
		if !ev.Synced {
			marker = "*"
		}
		end := "ongoing"
		if ev.EndTime != nil {
			end = ev.EndTime.Local().Format("15:04")
		}
		fmt.Printf("%s %-36s %-10s %-20s %s -> %s  %s\n",
			marker, ev.ID, ev.Status, ev.EquipmentName,
			ev.StartTime.Local().Format("01-02 15:04"), end, ev.Reason)
	}
	fmt.Println("\n* not yet synced")
	return nil
}

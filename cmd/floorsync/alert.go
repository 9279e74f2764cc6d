package main

import (
	"encoding/json"
	"fmt"

	"github.com/floorsync/floorsync/internal/models"
	"github.com/spf13/cobra"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "List and acknowledge alerts",
}

var (
	alertUnackedOnly bool
	alertAckBy       string
)

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, newest first",
	RunE:  runAlertList,
}

var alertAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertAck,
}

func init() {
	alertListCmd.Flags().BoolVar(&alertUnackedOnly, "unacked", false, "Show only unacknowledged alerts")
	alertAckCmd.Flags().StringVar(&alertAckBy, "by", "", "User acknowledging the alert (required)")
	alertAckCmd.MarkFlagRequired("by")

	alertCmd.AddCommand(alertListCmd)
	alertCmd.AddCommand(alertAckCmd)
}

func runAlertList(cmd *cobra.Command, args []string) error {
	path := "/alerts"
	if alertUnackedOnly {
		path += "?acknowledged=false"
	}

	body, err := apiGet(path)
	if err != nil {
		return err
	}
	var alerts []models.Alert
	if err := json.Unmarshal(body, &alerts); err != nil {
		return err
	}

	if len(alerts) == 0 {
		fmt.Println("No alerts.")
		return nil
	}
	for _, a := range alerts {
		ack := "unacked"
		if a.Acknowledged {
			ack = "acked by " + a.AcknowledgedBy
		}
		fmt.Printf("%-36s [%-8s] %-11s %s (%s)\n", a.ID, a.Severity, a.Type, a.Title, ack)
	}
	return nil
}

func runAlertAck(cmd *cobra.Command, args []string) error {
	_, err := apiPost("/alerts/"+args[0]+"/ack", map[string]string{"acknowledged_by": alertAckBy})
	if err != nil {
		return err
	}
	fmt.Printf("Acknowledged alert %s\n", args[0])
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gosuda/gofer/internal/domain"
	"github.com/gosuda/gofer/internal/moderation"
)

var moderateFields domain.TaskFields

var moderateCmd = &cobra.Command{
	Use:   "moderate",
	Short: "Run the content moderator against task text",
	Example: `  gofer moderate --title "Pick up my lunch" --store "Campus Deli"
  gofer moderate --title "Need someone to buy a vape"`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if moderateFields.Title == "" && moderateFields.Description == "" {
			return errors.New("moderate: --title or --description is required")
		}
		printVerdict(cmd.OutOrStdout(), moderation.New().Moderate(moderateFields))
		return nil
	},
}

func init() {
	f := moderateCmd.Flags()
	f.StringVar(&moderateFields.Title, "title", "", "task title")
	f.StringVar(&moderateFields.Description, "description", "", "task description")
	f.StringVar(&moderateFields.Store, "store", "", "store or pickup location")
	f.StringVar(&moderateFields.DropoffAddress, "dropoff-address", "", "drop-off address")
	f.StringVar(&moderateFields.DropoffInstructions, "dropoff-instructions", "", "drop-off instructions")
}

func printVerdict(w io.Writer, v moderation.Verdict) {
	var status string
	switch v.Status {
	case domain.ModerationApproved:
		status = color.New(color.FgGreen, color.Bold).Sprint(v.Status)
	case domain.ModerationNeedsReview:
		status = color.New(color.FgYellow, color.Bold).Sprint(v.Status)
	default:
		status = color.New(color.FgRed, color.Bold).Sprint(v.Status)
	}

	fmt.Fprintf(w, "verdict:  %s\n", status)
	if v.Approved() {
		return
	}
	fmt.Fprintf(w, "category: %s\n", v.Category)
	fmt.Fprintf(w, "reason:   %s\n", v.Reason)
}

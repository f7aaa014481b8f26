package cli

import (
	"github.com/spf13/cobra"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Run one aggregation cycle now and send tier test messages",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Trigger(cmd.Context())
	},
}

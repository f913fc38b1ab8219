package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fitlab/doorman/pkg/cmd/server"
)

// serveACSCmd represents the serve acs command
var serveACSCmd = &cobra.Command{
	Use:   "acs",
	Short: "Serve access control instance",
	Run:   server.RunServeACS(c),
}

func init() {
	serveCmd.AddCommand(serveACSCmd)
}

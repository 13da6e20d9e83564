package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"legacylift/internal/artifact"
)

var (
	deployProject string
	deployService string
	deployRegion  string
)

var deployScriptCmd = &cobra.Command{
	Use:   "deploy-script",
	Short: "Print gcloud commands for a direct Cloud Run deploy",
	Example: `  legacylift deploy-script --project my-proj --service shop
  legacylift deploy-script --project my-proj --service shop --region europe-west1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), artifact.DeployScript(deployProject, deployService, deployRegion))
		return nil
	},
}

func init() {
	deployScriptCmd.Flags().StringVar(&deployProject, "project", "", "Google Cloud project id (required)")
	deployScriptCmd.Flags().StringVar(&deployService, "service", "", "Cloud Run service name (required)")
	deployScriptCmd.Flags().StringVar(&deployRegion, "region", artifact.DefaultRegion, "Cloud Run region")
	_ = deployScriptCmd.MarkFlagRequired("project")
	_ = deployScriptCmd.MarkFlagRequired("service")
}

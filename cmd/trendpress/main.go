package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is optional; real deployments configure via file or env.
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "trendpress", Short: "Trend-driven daily article production"}

	root.AddCommand(serveCMD(), migrateCMD(), planCMD(), tickCMD(), writeCMD(), reindexCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

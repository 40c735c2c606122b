package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.3.1"

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "kartoteka",
	Short: "Чат-бот для работы с базой персональных записей",
	Long: `kartoteka is a chat-bot front-end over a relational store of
personal records: code-based authorization, normalized multi-field search
and a step-by-step add wizard with an append-only action log.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("kartoteka", version)
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.AddCommand(runCmd, migrateCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

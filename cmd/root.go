package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/app"
)

var roleFlag string

var rootCmd = &cobra.Command{
	Use:   "rorichat",
	Short: "Terminal chat client",
	Long:  `RoriChat is a terminal chat client that talks to a chat backend and types out its replies.`,
	Run: func(cmd *cobra.Command, args []string) {
		runChat()
	},
}

func runChat() {
	application, err := app.NewApplication(app.Options{Role: roleFlag})
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		log.Printf("Application error: %v", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&roleFlag, "role", "", "role for this run (general, coder, translator, pm, scholar)")

	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(sessionCmd)
}

package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Rorical/RoriChat/internal/config"
	"github.com/Rorical/RoriChat/internal/session"
	"github.com/Rorical/RoriChat/internal/storage"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or reset the conversation session",
}

var showSessionCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the persisted session id",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		kv := openState()
		defer kv.Close()

		id, ok, err := kv.Get(session.Key)
		if err != nil {
			log.Fatalf("Failed to read session: %v", err)
		}
		if !ok {
			fmt.Println("No session yet; one is created on the next chat.")
			return
		}
		fmt.Println(id)
	},
}

var resetSessionCmd = &cobra.Command{
	Use:   "reset",
	Short: "Start a new conversation on the next chat",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		kv := openState()
		defer kv.Close()

		id, err := session.NewTracker(kv).Reset()
		if err != nil {
			log.Fatalf("Failed to reset session: %v", err)
		}
		fmt.Printf("New session: %s\n", id)
	},
}

func openState() *storage.KV {
	path, err := config.StatePath()
	if err != nil {
		log.Fatalf("Failed to resolve state path: %v", err)
	}
	kv, err := storage.Open(path)
	if err != nil {
		log.Fatalf("Failed to open state: %v", err)
	}
	return kv
}

func init() {
	sessionCmd.AddCommand(showSessionCmd)
	sessionCmd.AddCommand(resetSessionCmd)
}

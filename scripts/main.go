package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/flexprice/billing/scripts/internal"
)

// Command represents a script that can be run
type Command struct {
	Name        string
	Description string
	Run         func() error
}

var commands = []Command{
	{
		Name:        "verify-ledgers",
		Description: "Verify the ledger of every customer of a tenant",
		Run:         internal.VerifyLedgers,
	},
	{
		Name:        "sync-sequences",
		Description: "Raise document counters above numbers already stored",
		Run:         internal.SyncSequences,
	},
}

func main() {
	var (
		listCommands bool
		cmdName      string
		tenantID     string
		dryRun       bool
		verifyRate   int
	)

	flag.BoolVar(&listCommands, "list", false, "List all available commands")
	flag.StringVar(&cmdName, "cmd", "", "Command to run")
	flag.StringVar(&tenantID, "tenant-id", "", "Tenant ID for operations")
	flag.BoolVar(&dryRun, "dry-run", false, "Report changes without applying them")
	flag.IntVar(&verifyRate, "rate", 0, "Maximum ledger verifications per second")

	flag.Parse()

	if listCommands {
		fmt.Println("Available commands:")
		for _, cmd := range commands {
			fmt.Printf("  %-20s %s\n", cmd.Name, cmd.Description)
		}
		return
	}

	if cmdName == "" {
		log.Fatal("Please specify a command to run using -cmd flag. Use -list to see available commands.")
	}

	if tenantID != "" {
		os.Setenv("TENANT_ID", tenantID)
	}
	if dryRun {
		os.Setenv("DRY_RUN", "true")
	}
	if verifyRate > 0 {
		os.Setenv("VERIFY_RATE", strconv.Itoa(verifyRate))
	}

	for _, cmd := range commands {
		if cmd.Name == cmdName {
			if err := cmd.Run(); err != nil {
				log.Fatalf("Error running command %s: %v", cmdName, err)
			}
			return
		}
	}

	log.Fatalf("Unknown command: %s. Use -list to see available commands.", cmdName)
}

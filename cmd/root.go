package cmd

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/euphdk/netbox-api-export-import/internal/netbox"
)

var (
	netboxURL    string
	netboxToken  string
	pageSize     int
	retryCount   int
	retryDelay   time.Duration
	requestDelay time.Duration
	insecure     bool
	only         string
)

var rootCmd = &cobra.Command{
	Use:   "netbox-migrate",
	Short: "A CLI tool for migrating NetBox data between instances",
	Long: `NetBox Migrate exports all object collections from a NetBox instance in
dependency order and imports them into another instance, keeping
cross-object references valid.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(planCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading it: %v", err)
	}

	if os.Getenv("NETBOX_URL") != "" {
		netboxURL = os.Getenv("NETBOX_URL")
	}
	if os.Getenv("NETBOX_TOKEN") != "" {
		netboxToken = os.Getenv("NETBOX_TOKEN")
	}
	if v := os.Getenv("NETBOX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			pageSize = n
		}
	}
}

func clientConfig() netbox.Config {
	return netbox.Config{
		URL:                netboxURL,
		Token:              netboxToken,
		PageSize:           pageSize,
		RetryAttempts:      retryCount,
		RetryDelay:         retryDelay,
		RequestDelay:       requestDelay,
		InsecureSkipVerify: insecure,
	}
}

// addConnectionFlags registers the flags shared by every command that
// talks to a NetBox instance.
func addConnectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&netboxURL, "url", "u", "", "NetBox URL (e.g. https://netbox.example.com)")
	cmd.Flags().StringVarP(&netboxToken, "token", "t", "", "NetBox API token")
	cmd.Flags().IntVarP(&pageSize, "page-size", "l", 1000, "API page size")
	cmd.Flags().IntVar(&retryCount, "retries", 3, "Retry attempts per request")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", time.Second, "Initial delay between retries (doubles each attempt)")
	cmd.Flags().DurationVar(&requestDelay, "request-delay", 100*time.Millisecond, "Pause between consecutive page requests")
	cmd.Flags().BoolVarP(&insecure, "insecure", "k", false, "Skip TLS certificate verification")
	cmd.Flags().StringVar(&only, "only", "", "Restrict the run to one collection (e.g. devices)")
}

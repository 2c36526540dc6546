package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/importer"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
)

var inputDir string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import an export directory into a NetBox instance",
	Long: `Replay a previous export against the target NetBox instance. Collections
are imported in the order the manifest recorded; circular references are
patched in a second pass once both sides exist.`,
	RunE: runImport,
}

func init() {
	addConnectionFlags(importCmd)
	importCmd.Flags().StringVarP(&inputDir, "input", "i", "", "Export directory to import (required)")
	importCmd.MarkFlagRequired("url")
	importCmd.MarkFlagRequired("token")
	importCmd.MarkFlagRequired("input")
}

func runImport(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("export directory does not exist: %s", inputDir)
	}

	client, err := netbox.NewClient(clientConfig())
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	log.Printf("Importing %s into %s...", inputDir, netboxURL)
	engine := importer.New(client, artifact.Open(inputDir), importer.Options{Only: only})
	summary, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if summary.Failed > 0 {
		log.Printf("WARNING: %d records failed; see the _errors.json files for manual replay", summary.Failed)
	}
	return nil
}

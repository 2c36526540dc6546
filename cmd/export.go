package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/euphdk/netbox-api-export-import/internal/artifact"
	"github.com/euphdk/netbox-api-export-import/internal/export"
	"github.com/euphdk/netbox-api-export-import/internal/netbox"
)

var (
	outputDir string
	dropLists bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all collections from a NetBox instance",
	Long: `Export every object collection from the source NetBox instance in
dependency order, writing one CSV per collection plus a full JSON dump
and the manifest that drives a later import.`,
	RunE: runExport,
}

func init() {
	addConnectionFlags(exportCmd)
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (defaults to netbox_export_<timestamp>)")
	exportCmd.Flags().BoolVar(&dropLists, "drop-lists", false, "Drop list fields instead of joining identifiers")
	exportCmd.MarkFlagRequired("url")
	exportCmd.MarkFlagRequired("token")
}

func runExport(cmd *cobra.Command, args []string) error {
	client, err := netbox.NewClient(clientConfig())
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	dir := outputDir
	if dir == "" {
		dir = fmt.Sprintf("netbox_export_%s", time.Now().Format("20060102_150405"))
	}
	store, err := artifact.NewStore(dir)
	if err != nil {
		return err
	}

	log.Printf("Exporting from %s to %s...", netboxURL, dir)
	engine := export.New(client, store, export.Options{
		Only:      only,
		DropLists: dropLists,
	})
	manifest, err := engine.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	log.Printf("Run %s: %d records in %d collections", manifest.RunID, manifest.TotalRecords, len(manifest.Collections))
	return nil
}

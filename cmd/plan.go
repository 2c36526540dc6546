package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/euphdk/netbox-api-export-import/internal/registry"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the computed collection order",
	Long: `Print the dependency-ordered list of collections an export or import run
will walk, without touching the network.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := registry.PlanAll()
	if err != nil {
		return err
	}

	for i, sp := range plan {
		line := fmt.Sprintf("%2d. %-22s %s", i+1, sp.Name, sp.Path)
		if deps := sp.DependsOn(); len(deps) > 0 {
			line += "  <- " + strings.Join(deps, ", ")
		}
		fmt.Println(line)
	}
	return nil
}

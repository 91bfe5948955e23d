package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbforge/sqlbundle/internal/config"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config file")
}

// initCmd writes a starter config file.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a sqlbundle config file",
	Long:  "Create a sqlbundle.yaml config file with default settings in the current directory.",
	RunE:  runInit,
}

// runInit implements the init command.
func runInit(cmd *cobra.Command, args []string) error {
	existing, _ := config.FindConfigFile(".")
	if existing != "" && !initForce {
		fmt.Printf("%s\n", styles.Warning.Render("Config file already exists: "+existing))
		fmt.Printf("%s\n", styles.Subtle.Render("Use --force to overwrite"))
		return nil
	}

	configFile := config.DefaultConfigName + ".yaml"
	if err := config.WriteDefaultConfig(configFile); err != nil {
		return err
	}

	fmt.Printf("%s\n", styles.Success.Render("Created "+configFile))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and customize the config file")
	fmt.Println("  2. Create the releases directory in your repository")
	fmt.Println("  3. Run 'sqlbundle bundle' to build your first release bundle")

	return nil
}

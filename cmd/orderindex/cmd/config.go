package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/orderindex/internal/config"
	"github.com/Aman-CERP/orderindex/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage the user and project configuration files.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/orderindex/config.yaml)
  3. Project config (.orderindex.yaml)
  4. Environment variables (ORDERINDEX_*)`,
		Example: `  # Create a project config with the defaults
  orderindex config init

  # Create or upgrade the user config
  orderindex config init --user --force

  # Show effective configuration
  orderindex config show`,
		Annotations: map[string]string{annotationNoConfig: "true"},
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		user  bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Long: `Write a configuration file holding every setting at its default.

Without --user the file is .orderindex.yaml in the project directory.
With --force an existing user config is backed up and upgraded: your
settings are kept and options added since it was written get defaults.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if user {
				return runConfigInitUser(cmd, force)
			}
			return runConfigInitProject(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite (project) or upgrade (user) an existing file")

	return cmd
}

func runConfigInitProject(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if existing := config.ProjectFilePath(projectRoot); existing != "" && !force {
		out.Warning("Project configuration already exists")
		out.Statusf("📁", "Location: %s", existing)
		out.Status("💡", "Use --force to overwrite it with the defaults")
		return nil
	}

	path := filepath.Join(projectRoot, config.ProjectFile)
	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}
	out.Success("Created project configuration")
	out.Statusf("📁", "Location: %s", path)
	return nil
}

func runConfigInitUser(cmd *cobra.Command, force bool) error {
	out := output.New(cmd.OutOrStdout())
	configPath := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			out.Warning("User configuration already exists")
			out.Statusf("📁", "Location: %s", configPath)
			out.Newline()
			out.Status("💡", "Use --force to upgrade with new defaults (preserves your settings)")
			return nil
		}
		return runConfigUpgrade(out, configPath)
	}

	if err := config.NewConfig().WriteYAML(configPath); err != nil {
		return err
	}
	out.Success("Created user configuration")
	out.Statusf("📁", "Location: %s", configPath)
	out.Newline()
	out.Status("📋", "Next steps:")
	out.Status("", "  1. Edit the file to customize settings")
	out.Status("", "  2. Run 'orderindex config show' to verify")
	return nil
}

// runConfigUpgrade backs up the user config and fills in new defaults.
func runConfigUpgrade(out *output.Writer, configPath string) error {
	backupPath, err := config.BackupUserConfig()
	if err != nil {
		return fmt.Errorf("failed to backup config: %w", err)
	}

	existing, err := config.LoadUserConfig()
	if err != nil {
		return fmt.Errorf("failed to load existing config: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("config file disappeared during upgrade")
	}

	added := existing.MergeNewDefaults()
	if err := existing.WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write upgraded config: %w", err)
	}

	out.Success("Configuration upgraded")
	out.Statusf("📁", "Location: %s", configPath)
	out.Statusf("💾", "Backup: %s", backupPath)
	out.Newline()
	if len(added) > 0 {
		out.Status("✨", "New options added with defaults:")
		for _, field := range added {
			out.Statusf("", "  - %s", field)
		}
	} else {
		out.Status("✓", "Your configuration is already up to date")
	}
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var (
		jsonOutput bool
		source     string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the configuration after merging all sources, or one source on its
own with --source.`,
		Example: `  orderindex config show
  orderindex config show --json
  orderindex config show --source user`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput, source)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().StringVar(&source, "source", "merged", "Config source: merged, user, project, defaults")

	return cmd
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool, source string) error {
	out := output.New(cmd.OutOrStdout())

	var (
		cfg  *config.Config
		desc string
	)
	switch source {
	case "merged":
		loaded, err := config.Load(projectRoot)
		if err != nil {
			return err
		}
		cfg = loaded
		desc = "merged (defaults + user + project + env)"

	case "user":
		path := config.GetUserConfigPath()
		loaded, err := config.LoadUserConfig()
		if err != nil {
			return err
		}
		if loaded == nil {
			out.Warning("No user configuration file found")
			out.Statusf("📁", "Expected at: %s", path)
			out.Status("💡", "Run 'orderindex config init --user' to create one")
			return nil
		}
		cfg = loaded
		desc = fmt.Sprintf("user (%s)", path)

	case "project":
		path := config.ProjectFilePath(projectRoot)
		if path == "" {
			out.Warning("No project configuration file found")
			out.Statusf("📁", "Expected at: %s", filepath.Join(projectRoot, config.ProjectFile))
			out.Status("💡", "Run 'orderindex config init' to create one")
			return nil
		}
		loaded, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		cfg = loaded
		desc = fmt.Sprintf("project (%s)", path)

	case "defaults":
		cfg = config.NewConfig()
		desc = "defaults (hardcoded)"

	default:
		return fmt.Errorf("invalid --source %q: use merged, user, project or defaults", source)
	}

	if jsonOutput {
		return out.JSON(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	out.Statusf("📋", "Source: %s", desc)
	out.Code(string(data))
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print configuration file paths",
		RunE: func(cmd *cobra.Command, _ []string) error {
			project := config.ProjectFilePath(projectRoot)
			if project == "" {
				project = filepath.Join(projectRoot, config.ProjectFile)
			}
			output.New(cmd.OutOrStdout()).Fields(
				output.Field{Label: "User", Value: config.GetUserConfigPath()},
				output.Field{Label: "Project", Value: project},
			)
			return nil
		},
	}
}

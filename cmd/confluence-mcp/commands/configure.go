package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"confluence-mcp/internal/config"
)

var (
	configureSets           []string
	configureYes            bool
	configurePrint          bool
	configureNonInteractive bool
)

var errTokenNotStored = errors.New("the API token is read from " + config.EnvAPIToken + " and is never stored in the config file")

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Create or edit the configuration file interactively or via flags",
	Long: `Interactively create or edit the configuration file (config.yaml by default).

Features:
- Interactive prompts for the Confluence site, server transport and logging
- Apply key=value overrides via --set
- Non-interactive scripting with --non-interactive --yes --set ...
- Print resulting YAML with --print instead of writing

Supported keys: confluence.base_url, confluence.email, confluence.timeout,
server.transport, server.addr, log.verbose.

The API token is never written to the file; export CONFLUENCE_API_TOKEN instead.
`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
	configureCmd.Flags().StringArrayVar(&configureSets, "set", nil, "Set a config field using dotted path (e.g. confluence.base_url=https://example.atlassian.net)")
	configureCmd.Flags().BoolVar(&configureYes, "yes", false, "Automatically confirm saving changes")
	configureCmd.Flags().BoolVar(&configurePrint, "print", false, "Print resulting YAML instead of writing to file")
	configureCmd.Flags().BoolVar(&configureNonInteractive, "non-interactive", false, "Disable interactive prompts (use with --set)")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	path := configFile
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	existed := fileExists(path)

	// Apply flag mutations first (non-interactive layer)
	if err := applySetOperations(cfg, configureSets); err != nil {
		return err
	}

	interactive := !configureNonInteractive
	if interactive {
		if err := interactiveEdit(cmd, cfg, existed); err != nil {
			return err
		}
	}

	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	outYAML, err := cfg.Marshal()
	if err != nil {
		return err
	}

	if configurePrint {
		cmd.Print(string(outYAML))
		return nil
	}

	if !configureYes && interactive {
		confirm := false
		prompt := &survey.Confirm{Message: "Save configuration to " + path + "?", Default: true}
		if err := survey.AskOne(prompt, &confirm); err != nil {
			return err
		}
		if !confirm {
			cmd.Println("Aborted (no changes saved).")
			return nil
		}
	}

	if err := writeConfigFile(path, outYAML); err != nil {
		return err
	}
	cmd.Printf("Configuration saved to %s\n", path)
	if _, ok := os.LookupEnv(config.EnvAPIToken); !ok {
		cmd.Printf("Remember to export %s before starting the server.\n", config.EnvAPIToken)
	}
	return nil
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func writeConfigFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func applySetOperations(cfg *config.Config, sets []string) error {
	for _, s := range sets {
		key, val, ok := strings.Cut(s, "=")
		if !ok {
			return fmt.Errorf("invalid --set value '%s' (expected key=value)", s)
		}
		if err := setField(cfg, key, val); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}

func setField(cfg *config.Config, key, value string) error {
	switch key {
	case "confluence.base_url":
		cfg.Confluence.BaseURL = value
	case "confluence.email":
		cfg.Confluence.Email = value
	case "confluence.api_token":
		return errTokenNotStored
	case "confluence.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.Confluence.Timeout = d
	case "server.transport":
		cfg.Server.Transport = value
	case "server.addr":
		cfg.Server.Addr = value
	case "log.verbose":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		cfg.Log.Verbose = b
	default:
		return fmt.Errorf("unsupported key '%s'", key)
	}
	return nil
}

// Interactive editing -------------------------------------------------------

func interactiveEdit(cmd *cobra.Command, cfg *config.Config, existed bool) error {
	cmd.Println("Interactive configuration editor. Press Enter to accept defaults.")
	if existed {
		cmd.Println("Loaded existing configuration. You can modify sections.")
	}

	if err := promptConfluence(cfg); err != nil {
		return err
	}
	return promptServer(cfg)
}

func promptConfluence(cfg *config.Config) error {
	qs := []*survey.Question{
		{Name: "base_url", Prompt: &survey.Input{Message: "Confluence Base URL", Default: cfg.Confluence.BaseURL}},
		{Name: "email", Prompt: &survey.Input{Message: "Atlassian Account Email", Default: cfg.Confluence.Email}},
		{
			Name:     "timeout",
			Prompt:   &survey.Input{Message: "Request Timeout", Default: cfg.Confluence.Timeout.String()},
			Validate: validateDuration,
		},
	}
	answers := struct {
		BaseURL string `survey:"base_url"`
		Email   string `survey:"email"`
		Timeout string `survey:"timeout"`
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}
	cfg.Confluence.BaseURL = answers.BaseURL
	cfg.Confluence.Email = answers.Email
	if d, err := time.ParseDuration(answers.Timeout); err == nil {
		cfg.Confluence.Timeout = d
	}
	return nil
}

func promptServer(cfg *config.Config) error {
	var edit bool
	if err := survey.AskOne(&survey.Confirm{Message: "Edit server settings?", Default: false}, &edit); err != nil {
		return err
	}
	if !edit {
		return nil
	}
	qs := []*survey.Question{
		{Name: "transport", Prompt: &survey.Select{
			Message: "Transport",
			Options: []string{config.TransportStdio, config.TransportHTTP},
			Default: firstNonEmpty(cfg.Server.Transport, config.TransportStdio),
		}},
		{Name: "addr", Prompt: &survey.Input{Message: "HTTP Listen Address", Default: firstNonEmpty(cfg.Server.Addr, config.DefaultAddr)}},
		{Name: "verbose", Prompt: &survey.Confirm{Message: "Verbose logging?", Default: cfg.Log.Verbose}},
	}
	answers := struct {
		Transport string `survey:"transport"`
		Addr      string `survey:"addr"`
		Verbose   bool   `survey:"verbose"`
	}{}
	if err := survey.Ask(qs, &answers); err != nil {
		return err
	}
	cfg.Server.Transport = answers.Transport
	cfg.Server.Addr = answers.Addr
	cfg.Log.Verbose = answers.Verbose
	return nil
}

func validateDuration(ans interface{}) error {
	s, _ := ans.(string)
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("'%s' is not a duration such as 30s", s)
	}
	return nil
}

// Utility helpers -----------------------------------------------------------

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

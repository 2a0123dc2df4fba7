package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/saferoute-dev/saferoute/internal/config"
	"github.com/saferoute-dev/saferoute/internal/errors"
	"github.com/saferoute-dev/saferoute/pkg/router"
)

func initCmd() *cobra.Command {
	var (
		root           string
		typ            string
		out            string
		mode           string
		force          bool
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create saferoute.json",
		Long: `Create saferoute.json in the project root.

Without --non-interactive, the project type, output path and emission
mode are asked for.

Examples:
  saferoute init
  saferoute init --non-interactive -t next-app -o src/routes.gen.ts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(root, config.ConfigFileName)
			if config.Exists(root) && !force {
				return errors.New("E131").WithDetail(path + " already exists")
			}

			cfg := config.New()
			if typ != "" {
				cfg.Type = typ
			}
			if out != "" {
				cfg.Out = out
			}
			if mode != "" {
				cfg.Mode = mode
			}

			if !nonInteractive {
				if err := runInitForm(cfg); err != nil {
					if stderrors.Is(err, huh.ErrUserAborted) {
						errorMsg("Aborted")
						return nil
					}
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveTo(path); err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), cfg)
			success("Created %s", path)
			info("Run 'saferoute generate' to write %s", cfg.Out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&root, "root", "r", ".", "Project root directory")
	cmd.Flags().StringVarP(&typ, "type", "t", "", "Project type: react, next-app or next-page")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path, relative to the project root")
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Emission mode: flat or hierarchy")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing saferoute.json")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "Use flags and defaults without prompting")

	return cmd
}

// runInitForm asks for the main settings, prefilled with cfg's values.
func runInitForm(cfg *config.Config) error {
	typeOptions := make([]huh.Option[string], 0, len(router.ProjectTypes()))
	for _, pt := range router.ProjectTypes() {
		typeOptions = append(typeOptions, huh.NewOption(string(pt), string(pt)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Project type").
				Options(typeOptions...).
				Value(&cfg.Type),
			huh.NewInput().
				Title("Output path").
				Description("A .go extension generates Go source instead of TypeScript").
				Placeholder(config.DefaultOut).
				Validate(func(s string) error {
					if s == "" {
						return stderrors.New("output path is required")
					}
					return nil
				}).
				Value(&cfg.Out),
			huh.NewSelect[string]().
				Title("Emission mode").
				Options(
					huh.NewOption("Hierarchy (nested by folder)", string(router.ModeHierarchy)),
					huh.NewOption("Flat (one union)", string(router.ModeFlat)),
				).
				Value(&cfg.Mode),
		),
	).WithTheme(formTheme()).Run()
}

// formTheme styles the init prompts.
func formTheme() *huh.Theme {
	theme := huh.ThemeBase16()
	theme.FieldSeparator = lipgloss.NewStyle().SetString("\n").MarginBottom(1)
	theme.Form.Base = theme.Form.Base.MarginTop(1)
	theme.Focused.Title = theme.Focused.Title.Foreground(lipgloss.Color("#5fafd7"))
	theme.Blurred.Title = theme.Blurred.Title.Foreground(lipgloss.Color("#bababa"))
	return theme
}

// printSummary lists the saved settings.
func printSummary(w io.Writer, cfg *config.Config) {
	check := lipgloss.NewStyle().Foreground(lipgloss.Color("#27ca3f")).Render("✓")
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#bababa"))
	for _, f := range [][2]string{
		{"Type", cfg.Type},
		{"Output", cfg.Out},
		{"Mode", cfg.Mode},
	} {
		fmt.Fprintf(w, "%s %s %s\n", check, label.Render(f[0]+":"), f[1])
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"helpcenter/api/internal/export"
	"helpcenter/api/internal/theme"
)

var companyName string

var themeCmd = &cobra.Command{
	Use:   "theme",
	Short: "Inspect the theme catalog",
}

var themeCatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List theme variants and their section templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "THEME\tSECTION\tTITLE\tICON")
		for _, v := range reg.Variants() {
			for _, tpl := range v.Templates {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, tpl.ID, tpl.Title, tpl.Icon)
			}
		}
		return w.Flush()
	},
}

var themeValidateCmd = &cobra.Command{
	Use:   "validate <config.json>",
	Short: "Check a stored theme configuration document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		cfg, err := readThemeConfig(args[0])
		if err != nil {
			return err
		}
		if err := cfg.Validate(reg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s, %d sections)\n", args[0], cfg.Theme, len(cfg.Sections))
		return nil
	},
}

var themeRenderCmd = &cobra.Command{
	Use:   "render <theme | config.json>",
	Short: "Print a help-center page as HTML",
	Long: `Renders the default layout of a catalog theme, or the layout described
by a stored theme configuration document when the argument is a file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		var sess *theme.Session
		if cfg, err := readThemeConfig(args[0]); err == nil {
			sess, err = theme.OpenSession(cmd.Context(), reg, cfg)
			if err != nil {
				return err
			}
		} else if os.IsNotExist(err) {
			if sess, err = theme.NewSession(reg, args[0]); err != nil {
				return err
			}
		} else {
			return err
		}
		html, err := export.RenderHTML(export.PreviewOf(sess, companyName, time.Now()))
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), html)
		return err
	},
}

func readThemeConfig(path string) (theme.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return theme.Config{}, err
	}
	var cfg theme.Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return theme.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func init() {
	themeRenderCmd.Flags().StringVar(&companyName, "company", "Your Company", "Company name shown in the header")
	themeCmd.AddCommand(themeCatalogCmd, themeValidateCmd, themeRenderCmd)
	rootCmd.AddCommand(themeCmd)
}

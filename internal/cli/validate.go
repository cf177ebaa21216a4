package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptrun/internal/config"
	"promptrun/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate all configuration files without running",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.ApplyDefaults()

		sources := []struct {
			path    string
			kind    types.Kind
			prompts bool
		}{
			{cfg.LLMPrompts, types.KindText, true},
			{cfg.LLMModels, types.KindText, false},
			{cfg.ImagePrompts, types.KindImage, true},
			{cfg.ImageModels, types.KindImage, false},
		}
		for _, s := range sources {
			if _, err := os.Stat(s.path); os.IsNotExist(err) {
				fmt.Printf("skip %s (not present)\n", s.path)
				continue
			}
			if s.prompts {
				p, err := config.LoadPrompts(s.path)
				if err != nil {
					return err
				}
				fmt.Printf("ok   %s (%d prompts)\n", s.path, len(p))
			} else {
				m, err := config.LoadModels(s.path, s.kind)
				if err != nil {
					return err
				}
				fmt.Printf("ok   %s (%d models)\n", s.path, len(m))
			}
		}
		fmt.Printf("ok   %s (results_dir=%s, workers=%d)\n", cfgFile, cfg.ResultsDir, cfg.Workers)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

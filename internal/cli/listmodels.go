package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptrun/internal/config"
	"promptrun/internal/registry"
	"promptrun/pkg/types"
)

var modelsDir string

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List declared models, or scan a directory for *.gguf files",
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelsDir != "" {
			models, err := registry.ScanDir(modelsDir)
			if err != nil {
				return err
			}
			for _, m := range models {
				fmt.Printf("%s\t%s\n", m.ID, m.Path)
			}
			return nil
		}

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg.ApplyDefaults()
		for _, src := range []struct {
			path string
			kind types.Kind
		}{
			{cfg.LLMModels, types.KindText},
			{cfg.ImageModels, types.KindImage},
		} {
			if _, err := os.Stat(src.path); os.IsNotExist(err) {
				continue // family not declared
			}
			models, err := config.LoadModels(src.path, src.kind)
			if err != nil {
				return err
			}
			for _, m := range models {
				flags := ""
				if m.DecodeOnly {
					flags = "\tdecode-only"
				}
				fmt.Printf("%s\t%s%s\n", m.ID, m.Kind, flags)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
	listModelsCmd.Flags().StringVar(&modelsDir, "models-dir", "", "scan this directory for *.gguf files instead of reading config")
}

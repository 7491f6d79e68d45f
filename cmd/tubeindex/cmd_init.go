package main

import (
	"github.com/spf13/cobra"

	"github.com/DreamCats/tubeindex/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}

		created, err := config.WriteDefaultTemplate(path)
		if err != nil {
			return err
		}
		if !created {
			cmd.Printf("Config already exists at %s\n", path)
			return nil
		}
		cmd.Printf("Created default config at %s\n", path)
		cmd.Println("Set embedding.api_key (or TUBEINDEX_EMBEDDING_API_KEY) to enable vector search.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

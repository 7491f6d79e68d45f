package internal

import (
	"fmt"
	"io"

	"github.com/DreamCats/tubeindex/internal/config"
)

// LoadConfig reads the config file at configPath, or the default location
// when empty, and applies the --db override.
func LoadConfig(configPath, dbPath string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if dbPath != "" {
		cfg.Database.Path = dbPath
		cfg.TextIndex.Path = TextIndexPathFor(dbPath)
	}
	return cfg, nil
}

// PrintConfigHint tells the user how to create a config file.
func PrintConfigHint(w io.Writer) {
	path, _ := config.DefaultPath()
	fmt.Fprintf(w, `No configuration found. Create one with:

    tubeindex init

or write %s by hand. At minimum set embedding.api_key
(or TUBEINDEX_EMBEDDING_API_KEY) to enable vector search.
`, path)
}

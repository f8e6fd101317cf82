package cli

import (
	"fmt"

	"github.com/hollen/taskline/internal/config"
	"github.com/hollen/taskline/internal/data"
)

// buildDataset constructs the dataset the config names.
func buildDataset(cfg *config.Config) (data.Dataset, error) {
	switch cfg.Dataset.Name {
	case "synthetic":
		ds, err := data.NewSynthetic(data.SyntheticOptions{
			Classes:  cfg.Dataset.Classes,
			PerClass: cfg.Dataset.SamplesPerClass,
			Dim:      cfg.Dataset.Dim,
			Domains:  cfg.Dataset.Domains,
			Seed:     cfg.Continual.Seed,
		})
		if err != nil {
			return nil, fmt.Errorf("build synthetic dataset: %w", err)
		}
		return ds, nil
	case "manifest":
		ds, err := data.LoadManifest(cfg.Dataset.Manifest)
		if err != nil {
			return nil, fmt.Errorf("load manifest: %w", err)
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("unknown dataset kind: %s", cfg.Dataset.Name)
	}
}

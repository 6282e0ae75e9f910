package fedasync

import (
	"fmt"
	"os"

	"github.com/absmach/fedasync/dataset"
	"github.com/absmach/fedasync/model"
	"github.com/pelletier/go-toml"
)

const (
	DatasetCSV       = "csv"
	DatasetSynthetic = "synthetic"
)

// Config describes the network a worker trains and the data it trains on.
type Config struct {
	Model   model.Parameters `toml:"model"`
	Dataset DatasetConfig    `toml:"dataset"`
}

type DatasetConfig struct {
	Type      string                  `toml:"type"`
	TrainPath string                  `toml:"train_path"`
	TestPath  string                  `toml:"test_path"`
	NumLabels int                     `toml:"num_labels"`
	Synthetic dataset.SyntheticConfig `toml:"synthetic"`
}

func DefaultConfig() Config {
	return Config{
		Model: model.Parameters{
			Layers:       []int{4, 16, 3},
			LearningRate: 0.05,
			BatchSize:    16,
			Epochs:       1,
			Seed:         1,
		},
		Dataset: DatasetConfig{
			Type: DatasetSynthetic,
			Synthetic: dataset.SyntheticConfig{
				NumLabels:  3,
				SizeOfData: 4,
				Training:   600,
				Testing:    150,
				Spread:     0.2,
				Seed:       1,
			},
		},
	}
}

// LoadConfig reads a TOML file. Zero values are filled from DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	tree, err := toml.Load(string(data))
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.fill(DefaultConfig())

	return &cfg, nil
}

func (c *Config) fill(def Config) {
	if len(c.Model.Layers) == 0 {
		c.Model.Layers = def.Model.Layers
	}
	if c.Model.LearningRate == 0 {
		c.Model.LearningRate = def.Model.LearningRate
	}
	if c.Model.BatchSize == 0 {
		c.Model.BatchSize = def.Model.BatchSize
	}
	if c.Model.Epochs == 0 {
		c.Model.Epochs = def.Model.Epochs
	}
	if c.Dataset.Type == "" {
		c.Dataset.Type = def.Dataset.Type
	}
	if c.Dataset.Type == DatasetSynthetic && c.Dataset.Synthetic == (dataset.SyntheticConfig{}) {
		c.Dataset.Synthetic = def.Dataset.Synthetic
	}
}

func (c DatasetConfig) Loader() (dataset.Loader, error) {
	switch c.Type {
	case DatasetCSV:
		return dataset.NewCSVLoader(c.TrainPath, c.TestPath, c.NumLabels)
	case DatasetSynthetic, "":
		training, testing, err := dataset.Synthetic(c.Synthetic)
		if err != nil {
			return nil, err
		}

		return dataset.NewMemoryLoader(training, testing)
	default:
		return nil, fmt.Errorf("unsupported dataset type: %s", c.Type)
	}
}

package dataset

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// SyntheticConfig describes a labelled Gaussian blob dataset. Each class
// gets a random centre in [-1, 1]^SizeOfData and samples spread around it.
type SyntheticConfig struct {
	NumLabels  int     `toml:"num_labels"`
	SizeOfData int     `toml:"size_of_data"`
	Training   int     `toml:"training"`
	Testing    int     `toml:"testing"`
	Spread     float64 `toml:"spread"`
	Seed       uint64  `toml:"seed"`
}

// Synthetic generates training and testing sets that share class centres,
// so a model trained on one generalises to the other.
func Synthetic(cfg SyntheticConfig) (training, testing TrainingData, err error) {
	if cfg.NumLabels <= 0 || cfg.SizeOfData <= 0 || cfg.Training < 0 || cfg.Testing < 0 {
		return TrainingData{}, TrainingData{}, fmt.Errorf("%w: synthetic config %+v", ErrMalformed, cfg)
	}
	spread := cfg.Spread
	if spread <= 0 {
		spread = 0.1
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	centre := distuv.Uniform{Min: -1, Max: 1, Src: src}
	centres := make([]float32, cfg.NumLabels*cfg.SizeOfData)
	for i := range centres {
		centres[i] = float32(centre.Rand())
	}

	noise := distuv.Normal{Mu: 0, Sigma: spread, Src: src}
	pick := rand.New(src)
	gen := func(n int) TrainingData {
		td := TrainingData{
			NumLabels:  cfg.NumLabels,
			NumData:    n,
			SizeOfData: cfg.SizeOfData,
			Data:       make([]float32, n*cfg.SizeOfData),
			Labels:     make([]int32, n),
		}
		for i := 0; i < n; i++ {
			label := pick.IntN(cfg.NumLabels)
			td.Labels[i] = int32(label)
			c := centres[label*cfg.SizeOfData : (label+1)*cfg.SizeOfData]
			row := td.Data[i*cfg.SizeOfData : (i+1)*cfg.SizeOfData]
			for j := range row {
				row[j] = c[j] + float32(noise.Rand())
			}
		}

		return td
	}

	return gen(cfg.Training), gen(cfg.Testing), nil
}

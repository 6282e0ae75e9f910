package dataset

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

// Record is one CSV row: a class label and its space separated features.
type Record struct {
	Label    int32    `csv:"label"`
	Features Features `csv:"features"`
}

type Features []float32

func (f *Features) UnmarshalCSV(s string) error {
	fields := strings.Fields(s)
	out := make([]float32, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 32)
		if err != nil {
			return fmt.Errorf("%w: feature %d: %w", ErrMalformed, i, err)
		}
		out[i] = float32(v)
	}
	*f = out

	return nil
}

func (f Features) MarshalCSV() (string, error) {
	parts := make([]string, len(f))
	for i, v := range f {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}

	return strings.Join(parts, " "), nil
}

// ReadCSV parses labelled samples. When numLabels is 0 it is inferred from
// the largest label seen.
func ReadCSV(r io.Reader, numLabels int) (TrainingData, error) {
	var records []*Record
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return TrainingData{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return fromRecords(records, numLabels)
}

// WriteCSV writes td in the format ReadCSV accepts.
func WriteCSV(w io.Writer, td TrainingData) error {
	records := make([]*Record, td.NumData)
	for i := range records {
		records[i] = &Record{
			Label:    td.Labels[i],
			Features: Features(td.Sample(i)),
		}
	}

	return gocsv.Marshal(records, w)
}

func fromRecords(records []*Record, numLabels int) (TrainingData, error) {
	td := TrainingData{NumLabels: numLabels, NumData: len(records)}
	if len(records) == 0 {
		return td, nil
	}
	td.SizeOfData = len(records[0].Features)
	td.Data = make([]float32, 0, td.NumData*td.SizeOfData)
	td.Labels = make([]int32, 0, td.NumData)

	infer := numLabels == 0
	for i, rec := range records {
		if len(rec.Features) != td.SizeOfData {
			return TrainingData{}, fmt.Errorf("%w: row %d has %d features, want %d", ErrMalformed, i, len(rec.Features), td.SizeOfData)
		}
		if infer && int(rec.Label) >= td.NumLabels {
			td.NumLabels = int(rec.Label) + 1
		}
		td.Data = append(td.Data, rec.Features...)
		td.Labels = append(td.Labels, rec.Label)
	}

	if err := td.Validate(); err != nil {
		return TrainingData{}, err
	}

	return td, nil
}

// NewCSVLoader reads a training and a testing file into memory.
func NewCSVLoader(trainPath, testPath string, numLabels int) (Loader, error) {
	training, err := readCSVFile(trainPath, numLabels)
	if err != nil {
		return nil, err
	}
	if numLabels == 0 {
		numLabels = training.NumLabels
	}
	testing, err := readCSVFile(testPath, numLabels)
	if err != nil {
		return nil, err
	}
	if testing.NumData > 0 && training.NumData > 0 && testing.SizeOfData != training.SizeOfData {
		return nil, fmt.Errorf("%w: testing rows have %d features, training rows %d", ErrMalformed, testing.SizeOfData, training.SizeOfData)
	}

	return NewMemoryLoader(training, testing)
}

func readCSVFile(path string, numLabels int) (TrainingData, error) {
	if path == "" {
		return TrainingData{NumLabels: numLabels}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return TrainingData{}, err
	}
	defer file.Close()

	return ReadCSV(file, numLabels)
}

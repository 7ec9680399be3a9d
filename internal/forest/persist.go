package forest

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
)

// Save gob-encodes the model to path, replacing any previous file.
func Save(path string, model *RandomForest) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(model); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

func Load(path string) (*RandomForest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	defer f.Close()

	var model RandomForest
	if err := gob.NewDecoder(f).Decode(&model); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &model, nil
}

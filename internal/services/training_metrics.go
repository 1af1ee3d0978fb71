package services

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/stwalsh4118/carprice/internal/logger"
)

// LoadTrainingMetrics reads the metrics file written alongside the model at
// training time and returns it verbatim. It returns nil when path is empty,
// the file does not exist, its content is not valid JSON, or the document
// holds nothing (null, false, 0, "", {} or []).
func LoadTrainingMetrics(path string, log *logger.Logger) json.RawMessage {
	if path == "" {
		return nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn("Failed to read training metrics", map[string]interface{}{
				"path":  path,
				"error": err.Error(),
			})
		}
		return nil
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Warn("Training metrics file is not valid JSON", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return nil
	}
	if isEmptyDocument(doc) {
		log.Info("Training metrics file is empty", map[string]interface{}{
			"path": path,
		})
		return nil
	}

	log.Info("Training metrics loaded", map[string]interface{}{
		"path":  path,
		"bytes": len(body),
	})
	return json.RawMessage(body)
}

func isEmptyDocument(doc interface{}) bool {
	switch v := doc.(type) {
	case nil:
		return true
	case bool:
		return !v
	case float64:
		return v == 0
	case string:
		return v == ""
	case map[string]interface{}:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	default:
		return false
	}
}

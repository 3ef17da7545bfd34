package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/garnizeh/taxi/internal/jobs"
)

// CleanupJobType is the job that deletes a sent export file.
const CleanupJobType = "export.cleanup"

type CleanupPayload struct {
	Path string `json:"path"`
}

// CleanupHandler deletes the file named in the job payload. Only files under
// dir are touched, and a file that is already gone counts as cleaned up.
func CleanupHandler(dir string, logger *slog.Logger) jobs.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, j *jobs.Job) error {
		var p CleanupPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode cleanup payload: %w", err)
		}

		root, err := filepath.Abs(dir)
		if err != nil {
			return err
		}
		target, err := filepath.Abs(p.Path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, target)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("refusing to remove %s outside %s", p.Path, dir)
		}

		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", target, err)
		}
		logger.Info("export file removed", "path", target, "job_id", j.ID)
		return nil
	}
}

package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kontrolhq/kontrol-backend/internal/model"
	"github.com/rs/zerolog"
)

// FileTransport writes the pack to a local export directory. Offline
// fallback for rooms without a collection server; the teacher gathers the
// JSON files by hand afterwards.
type FileTransport struct {
	dir string
	log zerolog.Logger
}

// NewFileTransport creates a FileTransport writing into dir.
func NewFileTransport(dir string, log zerolog.Logger) *FileTransport {
	return &FileTransport{
		dir: dir,
		log: log.With().Str("component", "file_transport").Logger(),
	}
}

func (t *FileTransport) Name() string { return "file" }

// Deliver writes the pack as pretty-printed JSON. The write goes through a
// temp file and rename so a crash never leaves a truncated pack behind.
func (t *FileTransport) Deliver(ctx context.Context, pack *model.ResultPack) error {
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	body, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pack: %w", err)
	}

	final := filepath.Join(t.dir, packFileName(pack))
	tmp, err := os.CreateTemp(t.dir, ".pack-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write pack: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close pack: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename pack: %w", err)
	}

	t.log.Info().Str("path", final).Msg("Pack exported")
	return nil
}

package changeset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FilesystemRegistrar is a test-double Registrar with a slug-validated,
// path-traversal-safe change directory layout. It records each Changeset as
// a JSON file under <root>/changes/<slug>/changeset.json and fabricates a
// deterministic-looking commit SHA, standing in for a real VCS integration.
type FilesystemRegistrar struct {
	root string
}

// NewFilesystemRegistrar creates a registrar rooted at dir.
func NewFilesystemRegistrar(dir string) *FilesystemRegistrar {
	return &FilesystemRegistrar{root: dir}
}

func (r *FilesystemRegistrar) changesPath() string {
	return filepath.Join(r.root, "changes")
}

func (r *FilesystemRegistrar) changePath(slug string) string {
	return filepath.Join(r.changesPath(), slug)
}

// Register validates the changeset's branch as a filesystem-safe slug,
// writes the record to disk, and returns a fabricated commit SHA.
func (r *FilesystemRegistrar) Register(ctx context.Context, cs Changeset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateSlug(cs.Branch); err != nil {
		return "", fmt.Errorf("changeset: %w", err)
	}

	dir := r.changePath(cs.Branch)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("changeset: create change dir: %w", err)
	}

	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	commitSHA := fmt.Sprintf("sha-%s", uuid.New().String()[:12])
	cs.CommitSHA = commitSHA

	data, err := json.MarshalIndent(cs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("changeset: marshal: %w", err)
	}

	path := filepath.Join(dir, "changeset.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("changeset: write %s: %w", path, err)
	}

	return commitSHA, nil
}

// Load reads back a previously registered Changeset, for tests and
// diagnostics.
func (r *FilesystemRegistrar) Load(slug string) (Changeset, error) {
	if err := ValidateSlug(slug); err != nil {
		return Changeset{}, err
	}
	path := filepath.Join(r.changePath(slug), "changeset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return Changeset{}, fmt.Errorf("changeset: read %s: %w", path, err)
	}
	var cs Changeset
	if err := json.Unmarshal(data, &cs); err != nil {
		return Changeset{}, fmt.Errorf("changeset: unmarshal %s: %w", path, err)
	}
	return cs, nil
}

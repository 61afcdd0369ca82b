// Package datafiles manages the files associated with resources. A file is
// either copied into workspace-owned storage (files/<resource-id>/, lifecycle
// tied to the resource, SHA-1 recorded at copy time) or referenced by its
// external path (lifecycle independent; no integrity check is ever made).
package datafiles

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dmf/internal/logging"
	"dmf/internal/resource"

	"golang.org/x/sync/errgroup"
)

// Mode selects how Open returns file handles.
type Mode string

const (
	// ModeRead opens files read-only.
	ModeRead Mode = "r"
	// ModeReadWrite opens files read-write.
	ModeReadWrite Mode = "rw"
)

// Manager owns the workspace files directory.
type Manager struct {
	root string // workspace files directory
}

// NewManager creates a manager rooted at the workspace files directory.
func NewManager(filesDir string) *Manager {
	return &Manager{root: filesDir}
}

// Root returns the files directory.
func (m *Manager) Root() string {
	return m.root
}

// Attach imports the given files onto the resource. With copy=true each file
// is copied under files/<id>/ concurrently and its SHA-1 recorded; otherwise
// only the absolute external path is stored. Records are appended in the
// order given regardless of copy completion order.
func (m *Manager) Attach(r *resource.Resource, paths []string, copy bool, desc string) error {
	if len(paths) == 0 {
		return nil
	}

	records := make([]resource.DataFile, len(paths))

	if !copy {
		for i, p := range paths {
			abs, err := filepath.Abs(p)
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", p, err)
			}
			if _, err := os.Stat(abs); err != nil {
				return fmt.Errorf("cannot reference %s: %w", abs, err)
			}
			records[i] = resource.DataFile{Path: abs, Desc: desc, IsCopy: false}
		}
		r.DataFiles = append(r.DataFiles, records...)
		logging.Files("Referenced %d external files on resource %s", len(paths), r.ID)
		return nil
	}

	// Copies land at files/<id>/<basename>, so two sources with the same
	// basename would race onto one destination.
	seen := make(map[string]string, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		if prev, dup := seen[base]; dup {
			return fmt.Errorf("duplicate file name %q (%s and %s)", base, prev, p)
		}
		seen[base] = p
	}

	destDir := filepath.Join(m.root, r.ID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to create resource files dir: %w", err)
	}

	var g errgroup.Group
	for i, p := range paths {
		g.Go(func() error {
			base := filepath.Base(p)
			dest := filepath.Join(destDir, base)
			sum, err := copyFile(p, dest)
			if err != nil {
				return err
			}
			records[i] = resource.DataFile{
				Path:   filepath.Join(r.ID, base),
				Desc:   desc,
				SHA1:   sum,
				IsCopy: true,
			}
			logging.FilesDebug("Copied %s -> %s (sha1=%s)", p, dest, sum)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Leave any partial copies for the resource removal to clean up.
		return err
	}

	r.DataFiles = append(r.DataFiles, records...)
	logging.Files("Copied %d files into workspace for resource %s", len(paths), r.ID)
	return nil
}

// copyFile copies src to dest and returns the SHA-1 of the copied content.
func copyFile(src, dest string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	h := sha1.New()
	if _, err := io.Copy(io.MultiWriter(out, h), in); err != nil {
		return "", fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Resolve returns the absolute path of one data file record.
func (m *Manager) Resolve(df resource.DataFile) string {
	if df.IsCopy {
		return filepath.Join(m.root, df.Path)
	}
	return df.Path
}

// Paths returns the absolute paths of all files associated with the resource.
func (m *Manager) Paths(r *resource.Resource) []string {
	out := make([]string, 0, len(r.DataFiles))
	for _, df := range r.DataFiles {
		out = append(out, m.Resolve(df))
	}
	return out
}

// Open returns open handles for the resource's files in the requested mode.
// The caller owns closing them; on error, already-opened handles are closed.
func (m *Manager) Open(r *resource.Resource, mode Mode) ([]*os.File, error) {
	flag := os.O_RDONLY
	if mode == ModeReadWrite {
		flag = os.O_RDWR
	}

	handles := make([]*os.File, 0, len(r.DataFiles))
	for _, df := range r.DataFiles {
		f, err := os.OpenFile(m.Resolve(df), flag, 0)
		if err != nil {
			for _, h := range handles {
				h.Close()
			}
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		handles = append(handles, f)
	}
	return handles, nil
}

// Remove deletes the resource's copied files directory. Referenced files are
// never touched.
func (m *Manager) Remove(r *resource.Resource) error {
	dir := filepath.Join(m.root, r.ID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove files for %s: %w", r.ID, err)
	}
	logging.Files("Removed copied files for resource %s", r.ID)
	return nil
}

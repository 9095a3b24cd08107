// Package ops backs up and restores the HarkFlow data directory.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ManifestName is written first in every archive.
const ManifestName = "harkflow-manifest.json"

var ErrTargetNotEmpty = errors.New("restore target is not empty")

type Manifest struct {
	CreatedAt time.Time         `json:"created_at"`
	Files     map[string]string `json:"files"` // slash path -> sha256
}

// skipped are live sqlite side files; the main db file is enough once the
// server is stopped.
func skipped(rel string) bool {
	return strings.HasSuffix(rel, "-wal") || strings.HasSuffix(rel, "-shm") || strings.HasSuffix(rel, ".tmp")
}

// BackupDataDir writes srcDir as a .tar.gz with a manifest of file digests.
func BackupDataDir(ctx context.Context, srcDir, archivePath string) (Manifest, error) {
	if strings.TrimSpace(srcDir) == "" || strings.TrimSpace(archivePath) == "" {
		return Manifest{}, fmt.Errorf("srcDir and archivePath are required")
	}
	srcDir = filepath.Clean(strings.TrimSpace(srcDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	info, err := os.Stat(srcDir)
	if err != nil {
		return Manifest{}, err
	}
	if !info.IsDir() {
		return Manifest{}, fmt.Errorf("source is not a directory: %s", srcDir)
	}

	files, err := collect(ctx, srcDir, archivePath)
	if err != nil {
		return Manifest{}, err
	}
	m := Manifest{CreatedAt: time.Now().UTC(), Files: map[string]string{}}
	for _, rel := range files {
		sum, err := fileDigest(filepath.Join(srcDir, filepath.FromSlash(rel)))
		if err != nil {
			return Manifest{}, err
		}
		m.Files[rel] = sum
	}

	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return Manifest{}, err
	}
	tmp := archivePath + ".tmp"
	if err := writeArchive(ctx, srcDir, tmp, files, m); err != nil {
		_ = os.Remove(tmp)
		return Manifest{}, err
	}
	if err := os.Rename(tmp, archivePath); err != nil {
		_ = os.Remove(tmp)
		return Manifest{}, err
	}
	return m, nil
}

func collect(ctx context.Context, srcDir, archivePath string) ([]string, error) {
	absArchive, _ := filepath.Abs(archivePath)
	var files []string
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			// directories are implied; symlinks are skipped for predictable restores
			return nil
		}
		if abs, _ := filepath.Abs(path); abs == absArchive {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == ManifestName || skipped(rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	sort.Strings(files)
	return files, err
}

func writeArchive(ctx context.Context, srcDir, path string, files []string, m Manifest) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:     ManifestName,
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len(manifest)),
		ModTime:  m.CreatedAt,
	}); err != nil {
		return err
	}
	if _, err := tw.Write(manifest); err != nil {
		return err
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(tw, filepath.Join(srcDir, filepath.FromSlash(rel)), rel); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addFile(tw *tar.Writer, path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(tw, src)
	return err
}

type RestoreOptions struct {
	// Overwrite allows restoring into a directory that already has files.
	Overwrite bool
}

// RestoreDataDir unpacks an archive into targetDir and checks every file
// against the manifest.
func RestoreDataDir(ctx context.Context, archivePath, targetDir string, opts RestoreOptions) (Manifest, error) {
	if strings.TrimSpace(archivePath) == "" || strings.TrimSpace(targetDir) == "" {
		return Manifest{}, fmt.Errorf("archivePath and targetDir are required")
	}
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if !opts.Overwrite {
		entries, err := os.ReadDir(targetDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, err
		}
		if len(entries) > 0 {
			return Manifest{}, fmt.Errorf("%w: %s", ErrTargetNotEmpty, targetDir)
		}
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return Manifest{}, err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return Manifest{}, err
	}
	defer gz.Close()

	var (
		m        *Manifest
		restored = map[string]string{}
	)
	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Manifest{}, err
		}

		rel, err := sanitizeArchiveRelPath(hdr.Name)
		if err != nil {
			return Manifest{}, err
		}
		if rel == ManifestName {
			m = &Manifest{}
			if err := json.NewDecoder(tr).Decode(m); err != nil {
				return Manifest{}, fmt.Errorf("decode manifest: %w", err)
			}
			continue
		}

		outPath := filepath.Join(targetDir, rel)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(outPath, 0o755); err != nil {
				return Manifest{}, err
			}
		case tar.TypeReg:
			sum, err := extract(tr, outPath, os.FileMode(hdr.Mode).Perm())
			if err != nil {
				return Manifest{}, err
			}
			restored[filepath.ToSlash(rel)] = sum
		default:
			// other entry types are ignored
		}
	}

	if m == nil {
		return Manifest{}, fmt.Errorf("archive has no %s", ManifestName)
	}
	for rel, want := range m.Files {
		if got := restored[rel]; got != want {
			return *m, fmt.Errorf("restored %s does not match manifest digest", rel)
		}
	}
	return *m, nil
}

func extract(r io.Reader, outPath string, mode os.FileMode) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	if mode == 0 {
		mode = 0o644
	}
	dst, err := os.OpenFile(outPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(dst, h), r); err != nil {
		_ = dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func sanitizeArchiveRelPath(name string) (string, error) {
	name = filepath.Clean(strings.TrimSpace(name))
	if name == "." || name == "" {
		return "", fmt.Errorf("invalid archive entry path")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid absolute archive entry path: %s", name)
	}
	if strings.HasPrefix(name, ".."+string(filepath.Separator)) || name == ".." {
		return "", fmt.Errorf("invalid archive entry path traversal: %s", name)
	}
	return name, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

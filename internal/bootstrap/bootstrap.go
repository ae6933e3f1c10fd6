// Package bootstrap copie les ressources embarquées (config, templates) sur
// disque, à côté du binaire, pour que l'utilisateur puisse les modifier.
package bootstrap

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/patrickprogramme/ecoute/internal/fsutil"
)

// Statuts retournés par ExportDefaults, par fichier.
const (
	StatusWritten     = "written"
	StatusUnchanged   = "unchanged"
	StatusSkipped     = "skipped (different)"
	StatusOverwritten = "overwritten"
)

// ExportDefaults copie récursivement tous les fichiers sous srcPrefix (dans fsys)
// vers destDir en préservant la hiérarchie relative.
// force : écrase les fichiers différents, après sauvegarde.
//
// Retourne une map[cheminEmbarqué]statut et une erreur si le parcours échoue.
func ExportDefaults(fsys fs.FS, srcPrefix, destDir string, force bool) (map[string]string, error) {
	status := make(map[string]string)

	err := fs.WalkDir(fsys, srcPrefix, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		// chemins de fs.FS : toujours des slashs
		rel := p
		if srcPrefix != "." {
			rel = path.Clean(p[len(srcPrefix):])
			if len(rel) > 0 && rel[0] == '/' {
				rel = rel[1:]
			}
		}
		if rel == "" || rel == "." {
			return nil
		}
		destPath := filepath.Join(destDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}

		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("lecture ressource embarquée %s : %w", p, err)
		}

		existing, err := os.ReadFile(destPath)
		switch {
		case err == nil && bytes.Equal(existing, data):
			status[p] = StatusUnchanged
			return nil
		case err == nil && !force:
			status[p] = StatusSkipped
			return nil
		case err == nil:
			backup := destPath + ".bak." + time.Now().Format("20060102T150405")
			if err := fsutil.WriteFileAtomic(backup, existing, 0o644); err != nil {
				return fmt.Errorf("échec de sauvegarde de %s : %w", destPath, err)
			}
			if err := fsutil.WriteFileAtomic(destPath, data, 0o644); err != nil {
				return err
			}
			status[p] = StatusOverwritten
			return nil
		case !os.IsNotExist(err):
			return fmt.Errorf("échec lecture %s : %w", destPath, err)
		}

		if err := fsutil.WriteFileAtomic(destPath, data, 0o644); err != nil {
			return err
		}
		status[p] = StatusWritten
		return nil
	})

	return status, err
}

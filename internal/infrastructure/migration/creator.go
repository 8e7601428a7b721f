package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

// versionDigits is the zero padded width of sequential migration versions
const versionDigits = 6

const migrationUpTemplate = `-- Migration: {{.Name}}
-- Created: {{.Created}}
-- Description: {{.Description}}

`

const migrationDownTemplate = `-- Migration: {{.Name}} (rollback)

`

// Migration is one up/down pair in the migrations directory
type Migration struct {
	Version  uint
	Name     string
	UpPath   string
	DownPath string
}

// FileName returns the base name shared by both files of the pair
func (m Migration) FileName() string {
	return fmt.Sprintf("%0*d_%s", versionDigits, m.Version, m.Name)
}

type templateData struct {
	Name        string
	Description string
	Created     string
}

// CreateMigration writes an empty up/down pair numbered after the highest
// version already in the directory.
func CreateMigration(migrationsDir, name, description string, now time.Time) (*Migration, error) {
	slug := sanitizeName(name)
	if slug == "" {
		return nil, fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	version, err := NextVersion(migrationsDir)
	if err != nil {
		return nil, err
	}

	mf := &Migration{Version: version, Name: slug}
	mf.UpPath = filepath.Join(migrationsDir, mf.FileName()+".up.sql")
	mf.DownPath = filepath.Join(migrationsDir, mf.FileName()+".down.sql")

	data := templateData{Name: slug, Description: description, Created: now.Format("2006-01-02")}
	if err := writeTemplate(mf.UpPath, migrationUpTemplate, data); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, migrationDownTemplate, data); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

// NextVersion returns one past the highest version in the directory
func NextVersion(migrationsDir string) (uint, error) {
	all, err := ListMigrations(migrationsDir)
	if err != nil {
		return 0, err
	}
	if len(all) == 0 {
		return 1, nil
	}
	return all[len(all)-1].Version + 1, nil
}

func writeTemplate(path, tmplContent string, data templateData) error {
	tmpl, err := template.New("migration").Parse(tmplContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	// O_EXCL: never overwrite an existing migration
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()

	return tmpl.Execute(f, data)
}

// sanitizeName converts a migration name to a lower snake case file name
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			result = append(result, c)
		case c >= 'A' && c <= 'Z':
			result = append(result, c+'a'-'A')
		case c == ' ' || c == '-' || c == '_':
			if len(result) > 0 && result[len(result)-1] != '_' {
				result = append(result, '_')
			}
		}
	}
	return strings.TrimSuffix(string(result), "_")
}

// parseFileName splits "000012_add_index.up.sql" into its version and name
func parseFileName(file string) (uint, string, bool) {
	base, ok := strings.CutSuffix(file, ".up.sql")
	if !ok {
		return 0, "", false
	}
	digits, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", false
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, "", false
	}
	return uint(v), name, true
}

// ListMigrations returns the migrations of a directory ordered by version.
// A missing directory has no migrations.
func ListMigrations(migrationsDir string) ([]Migration, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Migration{}, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	migrations := make([]Migration, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version, name, ok := parseFileName(entry.Name())
		if !ok {
			continue
		}
		mf := Migration{Version: version, Name: name}
		mf.UpPath = filepath.Join(migrationsDir, entry.Name())
		mf.DownPath = filepath.Join(migrationsDir, strings.TrimSuffix(entry.Name(), ".up.sql")+".down.sql")
		migrations = append(migrations, mf)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

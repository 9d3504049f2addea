package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const migrationUpTemplate = `-- {{.Name}}
-- Created: {{.Timestamp}}
{{- if .Description}}
-- {{.Description}}
{{- end}}

`

const migrationDownTemplate = `-- Rollback for {{.Name}}

`

// versionWidth matches the zero padding of golang-migrate -seq
const versionWidth = 6

var migrationFilePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// MigrationFile is an up/down pair on disk
type MigrationFile struct {
	Version     uint64
	Name        string
	Description string
	Timestamp   string
	UpPath      string
	DownPath    string
}

// BaseName returns the shared file prefix, e.g. 000002_add_index
func (f MigrationFile) BaseName() string {
	return fmt.Sprintf("%0*d_%s", versionWidth, f.Version, f.Name)
}

// CreateMigration writes the next sequential up/down pair into dir
func CreateMigration(dir, name, description string) (*MigrationFile, error) {
	safe := sanitizeName(name)
	if safe == "" {
		return nil, fmt.Errorf("invalid migration name %q", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create migrations directory: %w", err)
	}

	existing, err := ListMigrations(dir)
	if err != nil {
		return nil, err
	}
	var next uint64 = 1
	if n := len(existing); n > 0 {
		next = existing[n-1].Version + 1
	}

	mf := &MigrationFile{
		Version:     next,
		Name:        safe,
		Description: description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	mf.UpPath = filepath.Join(dir, mf.BaseName()+".up.sql")
	mf.DownPath = filepath.Join(dir, mf.BaseName()+".down.sql")

	if err := writeTemplate(mf.UpPath, migrationUpTemplate, mf); err != nil {
		return nil, fmt.Errorf("failed to create up migration: %w", err)
	}
	if err := writeTemplate(mf.DownPath, migrationDownTemplate, mf); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, fmt.Errorf("failed to create down migration: %w", err)
	}
	return mf, nil
}

func writeTemplate(path, text string, data *MigrationFile) error {
	tmpl, err := template.New("migration").Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	defer f.Close()
	return tmpl.Execute(f, data)
}

// sanitizeName lowercases name and collapses separators into underscores
func sanitizeName(name string) string {
	var b strings.Builder
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == ' ' || c == '-' || c == '_':
			if s := b.String(); len(s) > 0 && s[len(s)-1] != '_' {
				b.WriteByte('_')
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// ListMigrations returns the migrations in dir ordered by version.
// A missing directory yields an empty list.
func ListMigrations(dir string) ([]MigrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	byVersion := make(map[uint64]*MigrationFile)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.ParseUint(match[1], 10, 64)
		if err != nil {
			continue
		}
		mf, ok := byVersion[version]
		if !ok {
			mf = &MigrationFile{Version: version, Name: match[2]}
			byVersion[version] = mf
		}
		path := filepath.Join(dir, entry.Name())
		if match[3] == "up" {
			mf.UpPath = path
		} else {
			mf.DownPath = path
		}
	}

	out := make([]MigrationFile, 0, len(byVersion))
	for _, mf := range byVersion {
		out = append(out, *mf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

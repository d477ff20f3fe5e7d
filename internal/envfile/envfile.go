// Package envfile merges key/value settings into a line-oriented .env file
// while preserving everything it does not recognize. The merge is pure:
// lines not matching an updated key pass through byte for byte, comments
// and ordering included.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Keys the provisioning flow manages. Anything else in the file belongs to
// the operator and is never touched.
const (
	KeyWandbAPIKey  = "WANDB_API_KEY"
	KeySQLiteDBPath = "SQLITE_DB_PATH"
)

const template = `# Miner environment. Managed keys are updated in place by minerup;
# everything else in this file is left untouched.
SQLITE_DB_PATH=./database.db
WANDB_API_KEY=
`

// Inject merges updates into the env file at path, creating it from the
// template when absent. An empty update value leaves any existing stored
// value alone unless overwriteEmpty is set, so re-running without a
// credential never blanks one the operator already saved.
func Inject(path string, updates map[string]string, overwriteEmpty bool) error {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		content = []byte(template)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	merged := Merge(string(content), updates, overwriteEmpty)
	if err := os.WriteFile(path, []byte(merged), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Merge applies updates to env-file content. Exported separately so the
// merge semantics are testable without touching disk.
func Merge(content string, updates map[string]string, overwriteEmpty bool) string {
	pending := make(map[string]string, len(updates))
	for k, v := range updates {
		pending[k] = v
	}

	hadTrailingNewline := strings.HasSuffix(content, "\n")
	lines := strings.Split(content, "\n")
	if hadTrailingNewline {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		key := lineKey(line)
		if key == "" {
			continue
		}
		v, ok := pending[key]
		if !ok {
			continue
		}
		delete(pending, key)
		if v == "" && !overwriteEmpty {
			continue
		}
		lines[i] = key + "=" + v
	}

	// Keys not present yet are appended in a stable order.
	for _, k := range sortedKeys(pending) {
		v := pending[k]
		if v == "" && !overwriteEmpty {
			continue
		}
		lines = append(lines, k+"="+v)
	}

	out := strings.Join(lines, "\n")
	if len(lines) > 0 {
		out += "\n"
	}
	return out
}

// Read returns the parsed key/value view of an env file. A missing file is
// an empty map, not an error.
func Read(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return values, nil
}

func lineKey(line string) string {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "#") {
		return ""
	}
	s = strings.TrimPrefix(s, "export ")
	eq := strings.Index(s, "=")
	if eq <= 0 {
		return ""
	}
	return strings.TrimSpace(s[:eq])
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

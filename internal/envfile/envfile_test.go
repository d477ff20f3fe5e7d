package envfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestMergePreservesUnrelatedLines(t *testing.T) {
	content := "# operator notes\nCUSTOM_FLAG=1\n\nWANDB_API_KEY=old\nSQLITE_DB_PATH=./database.db\n"
	got := Merge(content, map[string]string{KeyWandbAPIKey: "new-key"}, false)
	want := "# operator notes\nCUSTOM_FLAG=1\n\nWANDB_API_KEY=new-key\nSQLITE_DB_PATH=./database.db\n"
	if got != want {
		t.Errorf("merge changed unrelated lines:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestMergeEmptyValueKeepsExisting(t *testing.T) {
	content := "WANDB_API_KEY=saved\n"
	got := Merge(content, map[string]string{KeyWandbAPIKey: ""}, false)
	if got != content {
		t.Errorf("empty update blanked a saved value: got %q", got)
	}
	got = Merge(content, map[string]string{KeyWandbAPIKey: ""}, true)
	if got != "WANDB_API_KEY=\n" {
		t.Errorf("overwriteEmpty did not blank the value: got %q", got)
	}
}

func TestMergeAppendsMissingKeysSorted(t *testing.T) {
	got := Merge("EXISTING=1\n", map[string]string{"ZED": "z", "ALPHA": "a"}, false)
	want := "EXISTING=1\nALPHA=a\nZED=z\n"
	if got != want {
		t.Errorf("append order wrong:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestMergeIsPure(t *testing.T) {
	content := "# comment\nA=1\nWANDB_API_KEY=x\n"
	first := Merge(content, map[string]string{KeyWandbAPIKey: "y"}, false)
	second := Merge(content, map[string]string{KeyWandbAPIKey: "y"}, false)
	if first != second {
		t.Errorf("same inputs produced different outputs: %q vs %q", first, second)
	}
	// Merging the result again converges.
	if again := Merge(first, map[string]string{KeyWandbAPIKey: "y"}, false); again != first {
		t.Errorf("merge is not idempotent: %q vs %q", again, first)
	}
}

func TestMergeHandlesExportAndComments(t *testing.T) {
	content := "# WANDB_API_KEY=commented\nexport WANDB_API_KEY=old\n"
	got := Merge(content, map[string]string{KeyWandbAPIKey: "new"}, false)
	if !strings.Contains(got, "# WANDB_API_KEY=commented") {
		t.Errorf("comment line was rewritten: %q", got)
	}
	if !strings.Contains(got, "WANDB_API_KEY=new") {
		t.Errorf("export line was not updated: %q", got)
	}
}

func TestInjectCreatesFromTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := Inject(path, map[string]string{KeyWandbAPIKey: "k"}, false); err != nil {
		t.Fatalf("inject: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(data), "SQLITE_DB_PATH=./database.db") {
		t.Errorf("template defaults missing: %q", data)
	}
	if !strings.Contains(string(data), "WANDB_API_KEY=k") {
		t.Errorf("update not applied: %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestInjectSecondRunIsNoOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := Inject(path, map[string]string{KeyWandbAPIKey: "k"}, false); err != nil {
		t.Fatalf("first inject: %v", err)
	}
	before, _ := os.ReadFile(path)
	if err := Inject(path, map[string]string{KeyWandbAPIKey: "k"}, false); err != nil {
		t.Fatalf("second inject: %v", err)
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("re-run changed the file:\nbefore: %q\nafter:  %q", before, after)
	}
}

func TestReadMissingFile(t *testing.T) {
	values, err := Read(filepath.Join(t.TempDir(), "nope.env"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(values) != 0 {
		t.Errorf("expected empty map, got %v", values)
	}
}

func TestReadParsesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("WANDB_API_KEY=abc\nSQLITE_DB_PATH=./database.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	values, err := Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if values[KeyWandbAPIKey] != "abc" {
		t.Errorf("WANDB_API_KEY = %q, want abc", values[KeyWandbAPIKey])
	}
	if values[KeySQLiteDBPath] != "./database.db" {
		t.Errorf("SQLITE_DB_PATH = %q", values[KeySQLiteDBPath])
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/diachron/internal/models"
	"github.com/hyperjump/diachron/internal/space"
	"github.com/hyperjump/diachron/internal/storage"
)

func TestSplitPeriods(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"repeated", []string{"a", "b"}, []string{"a", "b"}},
		{"comma separated", []string{"a, b,c"}, []string{"a", "b", "c"}},
		{"blanks dropped", []string{"a,,", " "}, []string{"a"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := splitPeriods(tt.in); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitPeriods(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoadConfig_usesExplicitPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if resolved != configPath {
		t.Errorf("resolved path = %s, want %s", resolved, configPath)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
}

func TestLoadConfig_prefersCwdConfigWhenDefaultPath(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, resolved, err := loadConfig(defaultConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	// On macOS, cwd can be /private/var/... while t.TempDir() is /var/...; compare canonical paths.
	resolvedCanon, _ := filepath.EvalSymlinks(resolved)
	configPathCanon, _ := filepath.EvalSymlinks(configPath)
	if resolvedCanon != configPathCanon {
		t.Errorf("resolved path = %s, want %s", resolvedCanon, configPathCanon)
	}
	if !cfg.Debug {
		t.Error("debug should be true from cwd config.yaml")
	}
}

func TestLoadConfig_missingExplicitPath(t *testing.T) {
	if _, _, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

// setup writes two period models and a config pointing at them.
func setup(t *testing.T) (configPath, root string) {
	t.Helper()
	dir := t.TempDir()
	root = filepath.Join(dir, "models")
	periods := map[string][][]float32{
		"1970-1979": {{1, 0.1, 0}, {0.9, 0.2, 0.1}, {0.7, 0.3, 0}, {0, 1, 0}},
		"1990-1999": {{0.1, 0.2, 1}, {0.9, 0.2, 0.1}, {0.7, 0.3, 0}, {0, 1, 0}},
	}
	for id, vecs := range periods {
		sp, err := space.FromWords(id, []string{"mouse", "cat", "trap", "house"}, vecs)
		if err != nil {
			t.Fatal(err)
		}
		if err := storage.WriteFile(filepath.Join(root, id, id+storage.ModelExt), sp); err != nil {
			t.Fatal(err)
		}
	}
	configPath = filepath.Join(dir, "config.yaml")
	content := `
models:
  root_dir: "./models"
storage:
  database_path: "./data/diachron.db"
render:
  output_dir: "./plots"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return configPath, root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(append([]string{"diachron"}, args...))
	return out.String(), err
}

func TestSynonymsCommand_JSON(t *testing.T) {
	cfg, _ := setup(t)
	out, err := run(t, "--config", cfg, "synonyms", "--periods", "1970-1979,1990-1999", "-n", "2", "-o", "json", "mouse")
	if err != nil {
		t.Fatal(err)
	}
	var resp models.SynonymsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if len(resp.Results) != 2 || resp.Results[0].Neighbors[0].Word != "cat" {
		t.Errorf("unexpected results: %+v", resp.Results)
	}
}

func TestSynonymsCommand_Export(t *testing.T) {
	cfg, _ := setup(t)
	xlsx := filepath.Join(t.TempDir(), "mouse.xlsx")
	if _, err := run(t, "--config", cfg, "synonyms", "-p", "1970-1979", "--export", xlsx, "mouse"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsx); err != nil {
		t.Errorf("workbook not written: %v", err)
	}
}

func TestSynonymsCommand_MissingWord(t *testing.T) {
	cfg, _ := setup(t)
	if _, err := run(t, "--config", cfg, "synonyms", "-p", "1970-1979"); err == nil || !strings.Contains(err.Error(), "usage") {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestSimilarityCommand(t *testing.T) {
	cfg, _ := setup(t)
	out, err := run(t, "--config", cfg, "similarity", "-p", "1970-1979", "-p", "1990-1999", "mouse", "cat")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1970-1979") || !strings.Contains(out, "1990-1999") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestDriftCommand_Save(t *testing.T) {
	cfg, _ := setup(t)
	out, err := run(t, "--config", cfg, "drift", "-p", "1970-1979,1990-1999", "-n", "2", "--save", "-o", "json", "mouse")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"mouse-1970-1979"`) {
		t.Errorf("frame output missing trajectory label:\n%s", out)
	}
	status, err := run(t, "--config", cfg, "status", "-o", "json")
	if err != nil {
		t.Fatal(err)
	}
	var st models.Status
	if err := json.Unmarshal([]byte(status), &st); err != nil {
		t.Fatal(err)
	}
	if st.StoredFrames != 1 || st.ModelFiles != 2 {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestAlignCommand_WritesCompressedModel(t *testing.T) {
	cfg, _ := setup(t)
	out := filepath.Join(t.TempDir(), "aligned", "1970-1979.mod.zst")
	if _, err := run(t, "--config", cfg, "align", "--out", out, "1970-1979", "1990-1999"); err != nil {
		t.Fatal(err)
	}
	sp, err := storage.ReadFile(out, "aligned")
	if err != nil {
		t.Fatal(err)
	}
	if sp.Len() != 4 || sp.Dimension() != 3 {
		t.Errorf("aligned model has %d words, dim %d", sp.Len(), sp.Dimension())
	}
}

func TestPeriodsCommand(t *testing.T) {
	cfg, _ := setup(t)
	out, err := run(t, "--config", cfg, "periods")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "1970-1979") || !strings.Contains(out, "1990-1999") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if out != "diachron version "+version+"\n" {
		t.Errorf("version output = %q", out)
	}
}

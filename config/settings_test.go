package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rushteam/hybridrec/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ALS.Factors != 20 || cfg.ALS.Iterations != 20 || cfg.ALS.Regularization != 0.1 {
		t.Errorf("ALS defaults = %+v", cfg.ALS)
	}
	if cfg.Fusion.LexicalWeight != 0.7 || cfg.Fusion.CollaborativeWeight != 0.3 || cfg.Fusion.TopN != 3 {
		t.Errorf("fusion defaults = %+v", cfg.Fusion)
	}
	if cfg.Retrain.Policy != RetrainEager || cfg.Store.Backend != "memory" {
		t.Errorf("retrain=%q store=%q", cfg.Retrain.Policy, cfg.Store.Backend)
	}
	if cfg.Collaborative.CandidatePool != 50 || cfg.Lexical.Strategy != "bm25" {
		t.Errorf("collaborative=%+v lexical=%q", cfg.Collaborative, cfg.Lexical.Strategy)
	}
}

func TestLoad_FileAndEnvLayers(t *testing.T) {
	path := writeFile(t, "hybridrec.yaml", `
als:
  factors: 8
  iterations: 5
fusion:
  top_n: 5
  dedup_titles: true
retrain:
  policy: interval
  interval: 30s
lexical:
  strategy: jaccard
`)
	t.Setenv("HYBRIDREC_ALS__FACTORS", "16")
	t.Setenv("HYBRIDREC_COLLABORATIVE__CANDIDATE_POOL", "10")
	t.Setenv("HYBRIDREC_LEXICAL__STOPWORDS", "the, a")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ALS.Factors != 16 {
		t.Errorf("env should override file: factors = %d", cfg.ALS.Factors)
	}
	if cfg.ALS.Iterations != 5 || cfg.ALS.Regularization != 0.1 {
		t.Errorf("ALS = %+v", cfg.ALS)
	}
	if cfg.Fusion.TopN != 5 || !cfg.Fusion.DedupTitles {
		t.Errorf("fusion = %+v", cfg.Fusion)
	}
	if cfg.Retrain.Policy != RetrainInterval || cfg.Retrain.Interval != 30*time.Second {
		t.Errorf("retrain = %+v", cfg.Retrain)
	}
	if cfg.Collaborative.CandidatePool != 10 || cfg.Lexical.Strategy != "jaccard" {
		t.Errorf("collaborative=%+v lexical=%+v", cfg.Collaborative, cfg.Lexical)
	}
	if len(cfg.Lexical.Stopwords) != 2 || cfg.Lexical.Stopwords[1] != "a" {
		t.Errorf("stopwords = %v", cfg.Lexical.Stopwords)
	}
}

func TestLoad_ConfigPathFromEnv(t *testing.T) {
	path := writeFile(t, "c.yaml", "fusion:\n  top_n: 7\n")
	t.Setenv(ConfigPathEnvVar, path)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Fusion.TopN != 7 {
		t.Errorf("top_n = %d", cfg.Fusion.TopN)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown policy", "retrain:\n  policy: sometimes\n"},
		{"negative weight", "fusion:\n  lexical_weight: -1\n"},
		{"zero weights", "fusion:\n  lexical_weight: 0\n  collaborative_weight: 0\n"},
		{"unknown strategy", "lexical:\n  strategy: tfidf\n"},
		{"zero factors", "als:\n  factors: 0\n"},
		{"badger without path", "store:\n  backend: badger\n"},
		{"unknown backend", "store:\n  backend: sqlite\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "c.yaml", tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadCatalog(t *testing.T) {
	jsonPath := writeFile(t, "catalog.json", `[{"id":0,"title":"Go","body":"go channels"},{"id":1,"title":"Rust","body":"ownership"}]`)
	items, err := LoadCatalog(jsonPath)
	if err != nil {
		t.Fatalf("LoadCatalog json: %v", err)
	}
	if len(items) != 2 || items[1].Title != "Rust" || items[0].Body != "go channels" {
		t.Errorf("items = %+v", items)
	}

	yamlPath := writeFile(t, "catalog.yaml", "- id: 3\n  title: Zig\n  body: comptime\n")
	items, err = LoadCatalog(yamlPath)
	if err != nil {
		t.Fatalf("LoadCatalog yaml: %v", err)
	}
	if len(items) != 1 || items[0].ID != 3 {
		t.Errorf("items = %+v", items)
	}

	if _, err := LoadCatalog(writeFile(t, "catalog.txt", "")); err == nil {
		t.Error("expected unsupported type error")
	}
}

func TestRegistry(t *testing.T) {
	Register("test.noop", func(map[string]any, pipeline.Resources) (pipeline.Node, error) {
		return nil, nil
	})
	found := false
	for _, typ := range SupportedTypes() {
		if typ == "test.noop" {
			found = true
		}
	}
	if !found {
		t.Fatalf("SupportedTypes() = %v", SupportedTypes())
	}
	if !DefaultFactory().Has("test.noop") {
		t.Error("DefaultFactory missing registered type")
	}

	cfg := &pipeline.Config{}
	cfg.Pipeline.Nodes = []pipeline.NodeConfig{{Type: "test.noop"}}
	if err := ValidatePipelineConfig(cfg); err != nil {
		t.Errorf("ValidatePipelineConfig: %v", err)
	}
	cfg.Pipeline.Nodes = append(cfg.Pipeline.Nodes, pipeline.NodeConfig{Type: "rank.unknown"})
	if err := ValidatePipelineConfig(cfg); err == nil {
		t.Error("expected unsupported node type error")
	}
}

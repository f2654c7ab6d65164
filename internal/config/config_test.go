//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := writeConfig(t, "ai:\n  provider: fake\n")

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 4000 || cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("unexpected server/log defaults: %+v %+v", cfg.Server, cfg.Log)
	}
	g := cfg.Generation
	if g.MinBatch != 1 || g.MaxBatch != 50 || g.DefaultBatch != 5 {
		t.Errorf("unexpected batch defaults: %+v", g)
	}
	if g.Retention != 30*time.Minute || g.ReapSchedule != "@every 1m" {
		t.Errorf("unexpected reaper defaults: %v %q", g.Retention, g.ReapSchedule)
	}
	if len(g.AllowedExtensions) != len(DefaultExtensions) {
		t.Errorf("expected default extensions, got %v", g.AllowedExtensions)
	}
	if cfg.AI.MaxAttempts != 3 || cfg.AI.InitialBackoff != 500*time.Millisecond {
		t.Errorf("unexpected retry defaults: %+v", cfg.AI)
	}
	if !cfg.Runtime.Dev {
		t.Error("dev flag not propagated")
	}
}

func TestLoadConfig_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
  read_timeout: 5s
ai:
  provider: fake
  call_timeout: 10s
generation:
  min_batch: 2
  max_batch: 10
  default_batch: 4
  cooldown: 5s
  allowed_extensions: [PY, .js]
`)
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("server values not read: %+v", cfg.Server)
	}
	if cfg.AI.CallTimeout != 10*time.Second {
		t.Errorf("call_timeout not read: %v", cfg.AI.CallTimeout)
	}
	if cfg.Generation.Cooldown != 5*time.Second {
		t.Errorf("cooldown not read: %v", cfg.Generation.Cooldown)
	}
	got := strings.Join(cfg.Generation.AllowedExtensions, ",")
	if got != ".py,.js" {
		t.Errorf("extensions not normalized: %s", got)
	}
}

func TestLoadConfig_EnvOverridesKeys(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "from-env")
	path := writeConfig(t, "ai:\n  provider: gemini\n  gemini_key: from-file\n")
	cfg, err := LoadConfig(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AI.GeminiKey != "from-env" {
		t.Errorf("expected env to win, got %q", cfg.AI.GeminiKey)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	cases := map[string]string{
		"missing gemini key": "ai:\n  provider: gemini\n",
		"missing openai key": "ai:\n  provider: openai\n",
		"unknown provider":   "ai:\n  provider: bard\n",
		"min above max":      "ai:\n  provider: fake\ngeneration:\n  min_batch: 20\n  max_batch: 10\n  default_batch: 15\n",
		"default outside":    "ai:\n  provider: fake\ngeneration:\n  default_batch: 80\n",
		"negative cooldown":  "ai:\n  provider: fake\ngeneration:\n  cooldown: -1s\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, body), false); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatal("expected read error")
	}
}

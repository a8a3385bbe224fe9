package main

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"

	"github.com/pyhub-apps/pdfinsights-golang/pkg/config"
	"github.com/pyhub-apps/pdfinsights-golang/pkg/storage"
)

func testApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	var out bytes.Buffer
	return &App{Globals: &Globals{}, log: log, store: storage.NewMemoryStore(), out: &out}, &out
}

func TestMask(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", ""},
		{"short", "*****"},
		{"sk-1234567890abcd", "sk-1*********abcd"},
	}
	for _, tt := range tests {
		if got := mask(tt.key); got != tt.want {
			t.Errorf("mask(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestConfigSetAndShow(t *testing.T) {
	app, out := testApp(t)

	set := &ConfigSetCmd{Provider: "anthropic", APIKey: "sk-ant-0123456789", Opacity: 0.5}
	if err := set.Run(app); err != nil {
		t.Fatalf("set: %v", err)
	}

	out.Reset()
	app.JSON = true
	show := &ConfigShowCmd{Stored: true}
	if err := show.Run(app); err != nil {
		t.Fatalf("show: %v", err)
	}
	var got config.AppConfig
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	want := config.LLMConfig{
		Provider: "anthropic",
		Model:    "claude-3-5-sonnet-20241022",
		APIKey:   "sk-a*********6789",
	}
	if diff := cmp.Diff(want, got.LLM); diff != "" {
		t.Errorf("llm mismatch (-want +got):\n%s", diff)
	}
	if got.Highlight.Opacity != 0.5 {
		t.Errorf("opacity = %v, want 0.5", got.Highlight.Opacity)
	}
}

func TestConfigSetRejects(t *testing.T) {
	tests := []struct {
		name string
		cmd  ConfigSetCmd
	}{
		{"nothing", ConfigSetCmd{Opacity: -1}},
		{"unknown provider", ConfigSetCmd{Provider: "acme", Opacity: -1}},
		{"bad color", ConfigSetCmd{Fill: "red-ish", Opacity: -1}},
		{"opacity above one", ConfigSetCmd{Opacity: 1.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, _ := testApp(t)
			if err := tt.cmd.Run(app); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestStorageClearNeedsConfirmation(t *testing.T) {
	app, _ := testApp(t)
	if err := app.store.Save(storage.ConfigKey, map[string]string{"version": "1"}); err != nil {
		t.Fatal(err)
	}
	if err := (&StorageClearCmd{}).Run(app); err == nil {
		t.Fatal("clear without --yes succeeded")
	}
	if err := (&StorageClearCmd{Yes: true}).Run(app); err != nil {
		t.Fatalf("clear: %v", err)
	}
	entries, err := app.store.Entries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d entries left after clear", len(entries))
	}
}

func TestProvidersList(t *testing.T) {
	app, out := testApp(t)
	if err := (&ProvidersCmd{}).Run(app); err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"OpenAI (openai), API key required", "Ollama (Local) (ollama), no API key", "llava"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output lacks %q:\n%s", s, out.String())
		}
	}
}

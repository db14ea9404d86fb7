package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func testCommand(cfg *config) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	f := cmd.Flags()
	f.StringVar(&cfg.Text, "text", cfg.Text, "")
	f.StringVar(&cfg.Font, "font", cfg.Font, "")
	f.IntVar(&cfg.Width, "width", cfg.Width, "")
	f.IntVar(&cfg.Height, "height", cfg.Height, "")
	f.IntVar(&cfg.FieldSize, "field-size", cfg.FieldSize, "")
	f.IntVar(&cfg.GridSize, "grid-size", cfg.GridSize, "")
	return cmd
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glyphfield.toml")
	blob := []byte("text = \"hello\"\nfont = \"/tmp/f.ttf\"\nwidth = 640\nglyph_span = 0.9\n")
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := defaultConfig()
	cmd := testCommand(&cfg)
	// A flag set on the command line wins over the file.
	if err := cmd.Flags().Set("text", "flagged"); err != nil {
		t.Fatal(err)
	}
	if err := loadConfig(path, &cfg, cmd); err != nil {
		t.Fatal(err)
	}
	if cfg.Text != "flagged" {
		t.Errorf("text = %q, explicit flag should win over the file", cfg.Text)
	}
	if cfg.Font != "/tmp/f.ttf" {
		t.Errorf("font = %q, want value from file", cfg.Font)
	}
	if cfg.Width != 640 {
		t.Errorf("width = %d, want value from file", cfg.Width)
	}
	if cfg.GlyphSpan != 0.9 {
		t.Errorf("glyph_span = %v, want value from file", cfg.GlyphSpan)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Height != defaultConfig().Height {
		t.Errorf("height = %d, want default", cfg.Height)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cfg := defaultConfig()
	cmd := testCommand(&cfg)
	if err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), &cfg, cmd); err == nil {
		t.Error("missing config file accepted")
	}
	bad := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(bad, []byte("width = \"wide\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := loadConfig(bad, &cfg, cmd); err == nil {
		t.Error("malformed config file accepted")
	}
}

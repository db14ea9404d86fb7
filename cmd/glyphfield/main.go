// Command glyphfield renders an interactive particle field orbiting the
// distance fields of rasterized text glyphs.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

func init() {
	// The GL context and event loop must stay on the main OS thread.
	runtime.LockOSThread()
}

type config struct {
	Text          string  `toml:"text"`
	Font          string  `toml:"font"`
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	FieldSize     int     `toml:"field_size"`
	GridSize      int     `toml:"grid_size"`
	GlyphSpan     float32 `toml:"glyph_span"`
	ParticleSize  float32 `toml:"particle_size"`
	IntroDelay    float32 `toml:"intro_delay"`
	IntroDuration float32 `toml:"intro_duration"`
}

func defaultConfig() config {
	return config{
		Text:          "glyphfield",
		Width:         1280,
		Height:        720,
		FieldSize:     256,
		GridSize:      256,
		GlyphSpan:     0.6,
		ParticleSize:  0.004,
		IntroDelay:    0.5,
		IntroDuration: 4,
	}
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func execute() error {
	cfg := defaultConfig()
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:          "glyphfield",
		Short:        "glyphfield renders text as an interactive GPU particle field",
		Long:         "glyphfield rasterizes a line of text, turns each glyph into a signed distance field on the GPU and drives a particle simulation that orbits the glyph outlines. Move the pointer to stir the particles.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
				ReportTimestamp: true,
				TimeFormat:      "15:04:05.00",
				Level:           level,
			})
			if configPath != "" {
				if err := loadConfig(configPath, &cfg, cmd); err != nil {
					return err
				}
			}
			if cfg.Font == "" {
				return fmt.Errorf("no font given: set --font or the font key in the config file")
			}
			return run(logger, cfg)
		},
	}
	f := root.Flags()
	f.StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	f.StringVar(&cfg.Text, "text", cfg.Text, "text line to render")
	f.StringVar(&cfg.Font, "font", cfg.Font, "path to a TTF font file")
	f.IntVar(&cfg.Width, "width", cfg.Width, "window width in pixels")
	f.IntVar(&cfg.Height, "height", cfg.Height, "window height in pixels")
	f.IntVar(&cfg.FieldSize, "field-size", cfg.FieldSize, "distance field texture side length")
	f.IntVar(&cfg.GridSize, "grid-size", cfg.GridSize, "particle grid side length (particles = grid²)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	return root.Execute()
}

// loadConfig overlays the TOML file onto cfg, keeping values from flags the
// user set explicitly.
func loadConfig(path string, cfg *config, cmd *cobra.Command) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	fromFile := *cfg
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	flagged := func(name string) bool { return cmd.Flags().Changed(name) }
	if !flagged("text") {
		cfg.Text = fromFile.Text
	}
	if !flagged("font") {
		cfg.Font = fromFile.Font
	}
	if !flagged("width") {
		cfg.Width = fromFile.Width
	}
	if !flagged("height") {
		cfg.Height = fromFile.Height
	}
	if !flagged("field-size") {
		cfg.FieldSize = fromFile.FieldSize
	}
	if !flagged("grid-size") {
		cfg.GridSize = fromFile.GridSize
	}
	cfg.GlyphSpan = fromFile.GlyphSpan
	cfg.ParticleSize = fromFile.ParticleSize
	cfg.IntroDelay = fromFile.IntroDelay
	cfg.IntroDuration = fromFile.IntroDuration
	return nil
}

//go:build !tinygo && cgo

package main

import (
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/geometry/ms2"

	"github.com/glyphfield/glyphfield/glcompute"
	"github.com/glyphfield/glyphfield/glyphmask"
	"github.com/glyphfield/glyphfield/jfa"
	"github.com/glyphfield/glyphfield/particles"
	"github.com/glyphfield/glyphfield/vizaux"
)

func run(logger *charmlog.Logger, cfg config) error {
	window, terminate, err := vizaux.StartWindow(vizaux.WindowConfig{
		Width:  cfg.Width,
		Height: cfg.Height,
		Title:  "glyphfield",
	})
	if err != nil {
		return err
	}
	defer terminate()

	dev, err := glcompute.NewGLDevice()
	if err != nil {
		return err
	}
	defer dev.Destroy()
	logger.Debug("GL device ready", "format", dev.PreferredFormat())

	fields, err := buildGlyphFields(logger, dev, cfg)
	defer func() {
		for _, f := range fields {
			dev.DeleteTexture(f.Tex)
		}
	}()
	if err != nil {
		return err
	}

	noiseTex, err := dev.CreateTexture(glcompute.TextureConfig{
		Width: 256, Height: 256,
		Filter: glcompute.Linear,
		Wrap:   glcompute.Repeat,
	}, vizaux.NoiseData(vizaux.NoiseConfig{Size: 256, BaseFreq: 8, Octaves: 4, Seed: 1}))
	if err != nil {
		return fmt.Errorf("noise texture: %w", err)
	}
	defer dev.DeleteTexture(noiseTex)

	lutData, err := vizaux.LUTData(256, vizaux.DefaultStops())
	if err != nil {
		return err
	}
	lutTex, err := dev.CreateTexture(glcompute.TextureConfig{
		Width: 256, Height: 1,
		Filter: glcompute.Linear,
	}, lutData)
	if err != nil {
		return fmt.Errorf("color lookup texture: %w", err)
	}
	defer dev.DeleteTexture(lutTex)

	aspect := float32(cfg.Width) / float32(cfg.Height)
	simH := float32(2)
	simW := simH * aspect
	sys, err := particles.NewSystem(dev, particles.Config{
		Name:      "particleSim",
		GridWidth: cfg.GridSize, GridHeight: cfg.GridSize,
		SimWidth: simW, SimHeight: simH,
		FieldSpan:  ms2.Vec{X: cfg.GlyphSpan, Y: cfg.GlyphSpan},
		FieldScale: cfg.GlyphSpan / float32(cfg.FieldSize),
		Fields:     fields,
		Noise:      noiseTex,
		Params:     particles.DefaultParams(),
	})
	if err != nil {
		return err
	}
	defer sys.Destroy()

	renderer, err := vizaux.NewParticleRenderer(vizaux.RendererConfig{
		GridWidth: cfg.GridSize, GridHeight: cfg.GridSize,
		ParticleSize: cfg.ParticleSize,
		SpeedScale:   1.5,
		ViewScale:    ms2.Vec{X: 2 / simW, Y: 2 / simH},
	})
	if err != nil {
		return err
	}
	defer renderer.Destroy()

	timeline := vizaux.Timeline{Delay: cfg.IntroDelay, Duration: cfg.IntroDuration}
	logger.Info("running", "text", cfg.Text, "particles", cfg.GridSize*cfg.GridSize, "fields", len(fields))

	start := glfw.GetTime()
	prev := start
	for !window.ShouldClose() {
		now := glfw.GetTime()
		dt := float32(now - prev)
		prev = now
		if dt > 0.05 {
			dt = 0.05 // clamp stalls so the integrator stays stable
		}

		sys.SetPhase(timeline.Phase(float32(now - start)))
		cx, cy := window.GetCursorPos()
		if err := sys.SetPointer(ms2.Vec{
			X: (float32(cx)/float32(cfg.Width) - 0.5) * simW,
			Y: -(float32(cy)/float32(cfg.Height) - 0.5) * simH,
		}); err != nil {
			return err
		}
		if err := sys.Step(dt); err != nil {
			return err
		}

		fbw, fbh := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(fbw), int32(fbh))
		gl.ClearColor(0.015, 0.01, 0.04, 1)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		if err := renderer.Draw(sys.OutputTexture(), sys.AttributeTexture(), lutTex, 0.85); err != nil {
			return err
		}
		window.SwapBuffers()
		glfw.PollEvents()
	}
	logger.Info("shutting down")
	return nil
}

// buildGlyphFields rasterizes each glyph of the configured text and converts
// it into a signed distance field texture.
func buildGlyphFields(logger *charmlog.Logger, dev glcompute.Device, cfg config) ([]particles.Field, error) {
	ttf, err := os.ReadFile(cfg.Font)
	if err != nil {
		return nil, fmt.Errorf("reading font: %w", err)
	}
	var fnt glyphmask.Font
	if err := fnt.LoadTTFBytes(ttf); err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", cfg.Font, err)
	}
	placed, err := fnt.TextLine(cfg.Text, cfg.FieldSize)
	if err != nil {
		return nil, fmt.Errorf("rasterizing %q: %w", cfg.Text, err)
	}

	gen := jfa.NewGenerator(dev, cfg.FieldSize, cfg.FieldSize)
	tcfg := glcompute.TextureConfig{Width: cfg.FieldSize, Height: cfg.FieldSize}
	fields := make([]particles.Field, 0, len(placed))
	for _, p := range placed {
		seedTex, err := dev.CreateTexture(tcfg, p.Mask.SeedData())
		if err != nil {
			return fields, err
		}
		fillTex, err := dev.CreateTexture(tcfg, p.Mask.FillData())
		if err != nil {
			dev.DeleteTexture(seedTex)
			return fields, err
		}
		field, err := gen.GenerateSigned(seedTex, fillTex)
		dev.DeleteTexture(seedTex)
		dev.DeleteTexture(fillTex)
		if err != nil {
			return fields, fmt.Errorf("glyph %q distance field: %w", p.Char, err)
		}
		logger.Debug("glyph field ready", "char", string(p.Char), "center", p.Center.X)
		fields = append(fields, particles.Field{
			Tex:    field,
			Offset: ms2.Scale(cfg.GlyphSpan, p.Center),
		})
	}
	return fields, nil
}

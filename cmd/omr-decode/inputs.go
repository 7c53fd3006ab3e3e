package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scansheet/omr-decoder/internal/config"
	"github.com/scansheet/omr-decoder/internal/omr"
	"github.com/scansheet/omr-decoder/internal/preprocess"
	"github.com/scansheet/omr-decoder/internal/template"
)

const (
	defaultTemplateName = "template.json"
	defaultConfigName   = "config.json"
	defaultMarkerName   = "omr_marker.jpg"
)

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// commandContext carries the shared flag values and lazily assembles the
// engine from them.
type commandContext struct {
	templateFlag string
	configFlag   string
	markerFlag   string
	verbose      bool
}

func (c *commandContext) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveTemplatePath finds the template file: the explicit flag wins,
// otherwise template.json is expected next to the input.
func (c *commandContext) resolveTemplatePath(inputPath string) (string, error) {
	if c.templateFlag != "" {
		return c.templateFlag, nil
	}
	dir := inputPath
	if info, err := os.Stat(inputPath); err == nil && !info.IsDir() {
		dir = filepath.Dir(inputPath)
	}
	candidate := filepath.Join(dir, defaultTemplateName)
	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("no template found: pass --template or place %s next to the input", defaultTemplateName)
	}
	return candidate, nil
}

func (c *commandContext) loadTemplate(inputPath string) (*template.Template, string, error) {
	path, err := c.resolveTemplatePath(inputPath)
	if err != nil {
		return nil, "", err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read template: %w", err)
	}
	tpl, err := template.Parse(raw)
	if err != nil {
		return nil, "", err
	}
	return tpl, path, nil
}

func (c *commandContext) loadConfig(templatePath string) (config.Config, error) {
	path := c.configFlag
	if path == "" {
		candidate := filepath.Join(filepath.Dir(templatePath), defaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("read config: %w", err)
	}
	return config.Parse(raw)
}

// loadMarker reads the marker reference image when the template asks for
// marker cropping. Absence is not fatal here; the pipeline degrades to a
// warning per image.
func (c *commandContext) loadMarker(tpl *template.Template, templatePath string) ([]byte, error) {
	if c.markerFlag == "" && tpl.PreProcessor(preprocess.CropOnMarkers) == nil {
		return nil, nil
	}
	path := c.markerFlag
	if path == "" {
		path = filepath.Join(filepath.Dir(templatePath), defaultMarkerName)
		if _, err := os.Stat(path); err != nil {
			return nil, nil
		}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read marker: %w", err)
	}
	return raw, nil
}

// buildEngine assembles the engine for the given input path (an image file
// or a directory of images).
func (c *commandContext) buildEngine(inputPath string) (*omr.Engine, error) {
	tpl, templatePath, err := c.loadTemplate(inputPath)
	if err != nil {
		return nil, err
	}
	cfg, err := c.loadConfig(templatePath)
	if err != nil {
		return nil, err
	}
	marker, err := c.loadMarker(tpl, templatePath)
	if err != nil {
		return nil, err
	}
	return omr.NewEngine(tpl, cfg, omr.EngineOptions{
		MarkerData: marker,
		Logger:     c.logger(),
	})
}

// collectImages expands the input path to the image files to decode. A
// directory yields its image files sorted by name, skipping the marker
// reference and any non-image files.
func collectImages(inputPath string) ([]string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{inputPath}, nil
	}

	var paths []string
	err = filepath.WalkDir(inputPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != inputPath {
				return fs.SkipDir
			}
			return nil
		}
		name := strings.ToLower(d.Name())
		if !imageExtensions[filepath.Ext(name)] || strings.Contains(name, "marker") {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", inputPath)
	}
	sort.Strings(paths)
	return paths, nil
}

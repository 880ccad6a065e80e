package certgate

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"golang.org/x/image/font/sfnt"
)

type FontWeight string

const (
	FontWeightRegular FontWeight = "regular"
	FontWeightBold    FontWeight = "bold"
)

type Font struct {
	Name   string
	Size   float64
	Color  string
	Weight FontWeight
}

// Get font weight of canvas type
func (f *Font) GetFontStyle() canvas.FontStyle {
	switch f.Weight {
	case FontWeightBold:
		return canvas.FontBold
	default:
		return canvas.FontRegular
	}
}

type FontMetadata struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func getFontMetadataByPath(fontPath string) (*FontMetadata, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	font, err := sfnt.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	name, err := font.Name(nil, sfnt.NameIDFamily)
	if err != nil {
		return nil, fmt.Errorf("retrieving font name: %w", err)
	}

	return &FontMetadata{
		Name: name,
		Path: fontPath,
	}, nil
}

// Scan through the directory to process .ttf and .otf files.
func ScanFontDir(dir string) ([]FontMetadata, error) {
	var fonts []FontMetadata

	err := filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		if ext != ".ttf" && ext != ".otf" {
			return nil
		}

		meta, err := getFontMetadataByPath(path)
		if err != nil {
			log.Printf("Skipping %q: %v", path, err)
			return nil
		}

		fonts = append(fonts, *meta)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return fonts, nil
}

// List the available font family and its path
func GetAvailableFonts(path string) ([]*FontMetadata, error) {
	var fonts []*FontMetadata

	if path == "" {
		path = "font_metadata.json"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fonts, fmt.Errorf("error reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &fonts); err != nil {
		return fonts, fmt.Errorf("error unmarshalling font metadata: %w", err)
	}

	return fonts, nil
}

type FontLoader struct {
	Cfg            Config
	AvailableFonts []*FontMetadata

	mu sync.Mutex
	// Loaded families, keyed by name + style. Reusing families keeps repeated
	// renders of the same template from re-parsing font files.
	cache map[string]*canvas.FontFamily
}

func NewFontLoader(cfg Config) (*FontLoader, error) {
	fonts, err := GetAvailableFonts(cfg.FontMetadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load font metadata: %w", err)
	}

	if len(fonts) == 0 {
		return nil, fmt.Errorf("no fonts available in %s", cfg.FontMetadataPath)
	}

	return &FontLoader{
		Cfg:            cfg,
		AvailableFonts: fonts,
		cache:          make(map[string]*canvas.FontFamily),
	}, nil
}

func (fl *FontLoader) GetAvailableFontMetadataByName(fontName string) (*FontMetadata, error) {
	for _, font := range fl.AvailableFonts {
		if font.Name == fontName {
			return font, nil
		}
	}
	return nil, fmt.Errorf("font %s not found", fontName)
}

// DefaultFontName resolves the configured fallback family, or the first
// available family when none is configured.
func (fl *FontLoader) DefaultFontName() string {
	if fl.Cfg.DefaultFontName != "" {
		return fl.Cfg.DefaultFontName
	}
	return fl.AvailableFonts[0].Name
}

func (fl *FontLoader) LoadFont(fontName string, fontStyle canvas.FontStyle) (*canvas.FontFamily, error) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	cacheKey := fmt.Sprintf("%s-%d", fontName, fontStyle)
	if family, ok := fl.cache[cacheKey]; ok {
		return family, nil
	}

	fontMetadata, err := fl.GetAvailableFontMetadataByName(fontName)
	if err != nil {
		return nil, fmt.Errorf("failed to get font metadata: %w", err)
	}

	fontFamily := canvas.NewFontFamily(fontMetadata.Name)
	if err := fontFamily.LoadFontFile(fontMetadata.Path, fontStyle); err != nil {
		return nil, fmt.Errorf("failed to load font file: %w", err)
	}

	fl.cache[cacheKey] = fontFamily
	return fontFamily, nil
}

// LoadFontOrDefault falls back to the default family when the requested one
// is unknown. An unknown font family is non-fatal for rendering.
func (fl *FontLoader) LoadFontOrDefault(fontName string, fontStyle canvas.FontStyle) (*canvas.FontFamily, error) {
	family, err := fl.LoadFont(fontName, fontStyle)
	if err == nil {
		return family, nil
	}

	fallback := fl.DefaultFontName()
	if fallback == fontName {
		return nil, err
	}

	log.Printf("Font %q unavailable, falling back to %q", fontName, fallback)
	return fl.LoadFont(fallback, fontStyle)
}

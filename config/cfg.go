package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	// RGB is a color triple the way it is kept in configuration.
	RGB [3]uint8

	NormalFontConfig struct {
		Name      string  `yaml:"name" validate:"required"`
		EastAsia  string  `yaml:"east_asia,omitempty"`
		PDFFamily string  `yaml:"pdf_family" validate:"required"`
		Size      float64 `yaml:"size" validate:"gt=0"`
	}

	HeadingFontConfig struct {
		Name           string    `yaml:"name" validate:"required"`
		EastAsia       string    `yaml:"east_asia,omitempty"`
		Sizes          []float64 `yaml:"sizes" validate:"min=1,max=4,dive,gt=0"`
		Color          RGB       `yaml:"color"`
		PageBreakLevel int       `yaml:"page_break_level" validate:"min=0,max=4"`
	}

	BoldFontConfig struct {
		Color RGB `yaml:"color"`
	}

	CodeFontConfig struct {
		Name      string  `yaml:"name" validate:"required"`
		PDFFamily string  `yaml:"pdf_family" validate:"required"`
		Size      float64 `yaml:"size" validate:"gt=0"`
		Color     RGB     `yaml:"color"`
	}

	FontsConfig struct {
		Normal  NormalFontConfig  `yaml:"normal"`
		Heading HeadingFontConfig `yaml:"heading"`
		Bold    BoldFontConfig    `yaml:"bold"`
		Code    CodeFontConfig    `yaml:"code"`
	}

	ImagesConfig struct {
		// widths are in inches, the way word processors think about page layout
		DefaultWidth float64 `yaml:"default_width" validate:"gt=0"`
		DiagramWidth float64 `yaml:"diagram_width" validate:"gt=0"`
		// pixels, larger pictures are downscaled before embedding, 0 disables
		MaxWidth int `yaml:"max_width" validate:"min=0"`
	}

	PDFMargins struct {
		Left   float64 `yaml:"left" validate:"min=0"`
		Top    float64 `yaml:"top" validate:"min=0"`
		Right  float64 `yaml:"right" validate:"min=0"`
		Bottom float64 `yaml:"bottom" validate:"min=0"`
	}

	PDFConfig struct {
		PageSize string     `yaml:"page_size" validate:"required,oneof=a4 a5 letter legal"`
		Margins  PDFMargins `yaml:"margins"`
		// candidates for the body font file, used in the listed order, first
		// one found wins - entries are allowed to be absent on this system
		FontPaths []string `yaml:"font_paths"`
	}

	DocumentConfig struct {
		FixZip                bool         `yaml:"fix_zip"`
		FileNameTransliterate bool         `yaml:"file_name_transliterate"`
		Fonts                 FontsConfig  `yaml:"fonts"`
		Images                ImagesConfig `yaml:"images"`
		PDF                   PDFConfig    `yaml:"pdf"`
	}

	DiagramsConfig struct {
		ServiceURL string       `yaml:"service_url" validate:"required,url"`
		Format     string       `yaml:"format" validate:"required,oneof=png svg jpeg"`
		Languages  []string     `yaml:"languages" validate:"dive,required"`
		Timeout    int          `yaml:"timeout" validate:"min=0"`
		AuthToken  SecretString `yaml:"auth_token,omitempty"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Diagrams  DiagramsConfig `yaml:"diagrams"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// Hex returns color in RRGGBB form suitable for OOXML attributes.
func (c RGB) Hex() string {
	return fmt.Sprintf("%02X%02X%02X", c[0], c[1], c[2])
}

// Ints unpacks color for interfaces expecting separate channel values.
func (c RGB) Ints() (r, g, b int) {
	return int(c[0]), int(c[1]), int(c[2])
}

// SizeFor returns point size to use for a heading of requested level.
func (h HeadingFontConfig) SizeFor(level int) float64 {
	if level >= 1 && level <= len(h.Sizes) {
		return h.Sizes[level-1]
	}
	// levels without explicitly configured size
	return 12
}

// Supports tells if language tag on a fenced block belongs to a diagram
// producing tool known to the rendering service.
func (d DiagramsConfig) Supports(lang string) bool {
	for _, l := range d.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, err
		}
		if err := gencfg.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}

package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"mdc/common"
	"mdc/config"
	"mdc/state"
)

// buildOutputPath returns constructed output file path/name. An explicit
// destination wins as is, pointing destination at an existing directory drops
// the default file name into it and no destination at all puts output next to
// the source. Derived names are cleaned up and, if requested, transliterated.
func buildOutputPath(src, dst string, format common.OutputFmt, env *state.LocalEnv) string {
	if len(dst) > 0 {
		if fi, err := os.Stat(dst); err == nil && fi.Mode().IsDir() {
			return filepath.Join(dst, buildDefaultFileName(src, format, env))
		}
		return dst
	}
	return filepath.Join(filepath.Dir(src), buildDefaultFileName(src, format, env))
}

func buildDefaultFileName(src string, format common.OutputFmt, env *state.LocalEnv) string {
	baseName := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if env.Cfg.Document.FileNameTransliterate {
		baseName = slug.Make(baseName)
	}
	return config.CleanFileName(baseName) + format.Ext()
}

package app

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/vk/htmlinclude/internal/config"
	"github.com/vk/htmlinclude/internal/fsutil"
	"github.com/vk/htmlinclude/internal/hcl"
	"github.com/vk/htmlinclude/internal/yamlconfig"
)

// NewLoader picks the configuration loader for path. YAML files, and
// directories holding YAML but no HCL files, get the YAML loader; everything
// else is read as HCL.
func NewLoader(path string) config.Loader {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		if slices.Contains(yamlconfig.Extensions, filepath.Ext(path)) {
			return yamlconfig.NewLoader()
		}
		return hcl.NewLoader()
	}

	hclFiles, _ := fsutil.FindFilesByExtension(path, hcl.Extension)
	yamlFiles, _ := fsutil.FindFilesByExtension(path, yamlconfig.Extensions...)
	if len(hclFiles) == 0 && len(yamlFiles) > 0 {
		return yamlconfig.NewLoader()
	}
	return hcl.NewLoader()
}

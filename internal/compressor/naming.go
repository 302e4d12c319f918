package compressor

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// destinationPath resolves where CompressToFile writes. An explicit file name
// wins and gets the format extension only if it has none; trailing dots are
// dropped first. Otherwise the name is a fresh UUID, behind the prefix when
// one is set.
func destinationPath(opts *Options) string {
	return filepath.Join(opts.DestinationDir(), effectiveFileName(opts))
}

func effectiveFileName(opts *Options) string {
	ext := "." + opts.Format().Extension()
	if name := opts.FileName(); name != "" {
		if strings.HasSuffix(name, ".") {
			return strings.TrimRight(name, ".") + ext
		}
		if filepath.Ext(name) == "" {
			return name + ext
		}
		return name
	}
	if prefix := opts.FileNamePrefix(); prefix != "" {
		return prefix + "_" + uuid.NewString() + ext
	}
	return uuid.NewString() + ext
}

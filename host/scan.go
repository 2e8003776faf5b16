package host

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deckforge/addonhost/domain/errors"
)

// AddonExt is the file extension of addon binaries.
const AddonExt = ".wasm"

// ScanDir lists the addon binaries directly inside dir, sorted by name.
// Only regular files (or symlinks to them) with the .wasm extension count;
// entries that cannot be inspected are skipped. An unreadable dir is an
// *errors.ApplicationError.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &errors.ApplicationError{
			Code:    errors.CodeAddonsDirUnreadable,
			Message: "read addons dir " + dir,
			Err:     err,
		}
	}

	paths := []string{}
	for _, entry := range entries {
		if !strings.EqualFold(filepath.Ext(entry.Name()), AddonExt) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

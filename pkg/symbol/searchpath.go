package symbol

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
)

const (
	searchPathSep = ";"
	serverPrefix  = "SRV*"
)

// ServerSearchPath builds a search path entry that layers the local cache
// directory in front of a remote symbol store: SRV*<cache>*<store>.
func ServerSearchPath(cacheDir, store string) string {
	return fmt.Sprintf("%s%s*%s", serverPrefix, cacheDir, store)
}

// SearchDirs returns the local directories named by search path `path`, in
// order. A SRV*<cache>*<store> entry contributes its cache directory; the
// store itself is never contacted.
func SearchDirs(path string) []string {
	var dirs []string
	for _, entry := range strings.Split(path, searchPathSep) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if len(entry) >= len(serverPrefix) && strings.EqualFold(entry[:len(serverPrefix)], serverPrefix) {
			parts := strings.Split(entry[len(serverPrefix):], "*")
			// SRV*<store> has no local cache
			if len(parts) < 2 || parts[0] == "" {
				continue
			}
			entry = parts[0]
		}

		if dir, err := homedir.Expand(entry); err == nil {
			entry = dir
		}
		dirs = append(dirs, entry)
	}
	return dirs
}

// findDebugFile looks for a separate debug file of image in dirs, trying
// for each directory:
//
//	<dir>/.build-id/<xx>/<rest>.debug
//	<dir>/<name>/<build-id>/<name>.debug
//	<dir>/<name>.debug
func findDebugFile(dirs []string, image, buildID string) string {
	name := filepath.Base(image)
	for _, dir := range dirs {
		var candidates []string
		if len(buildID) > 2 {
			candidates = append(candidates,
				filepath.Join(dir, ".build-id", buildID[:2], buildID[2:]+".debug"),
				filepath.Join(dir, name, buildID, name+".debug"),
			)
		}
		candidates = append(candidates, filepath.Join(dir, name+".debug"))

		for _, c := range candidates {
			if fi, err := os.Stat(c); err == nil && fi.Mode().IsRegular() {
				return c
			}
		}
	}
	return ""
}

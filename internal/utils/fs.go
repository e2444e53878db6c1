package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// AssetsPath is an extra directory searched for source images, set from the
// -assets flag.
var AssetsPath string

var imageExtensions = []string{".png", ".jpg", ".jpeg", ".tex"}

// ResolveAssetPath returns relPath under ./assets, or under AssetsPath when
// it only exists there.
func ResolveAssetPath(relPath string) string {
	localPath := filepath.Join("assets", relPath)
	if _, err := os.Stat(localPath); err == nil {
		return localPath
	}

	if AssetsPath != "" {
		p := filepath.Join(AssetsPath, relPath)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return localPath
}

// FindImageFile locates a source image by name, trying the known image
// extensions when name has none. dirs defaults to the working directory,
// ./assets, ./tmp/materials and AssetsPath. It returns "" when nothing
// matches.
func FindImageFile(name string, dirs ...string) string {
	if name == "" {
		return ""
	}
	if _, err := os.Stat(name); err == nil {
		return name
	}

	if len(dirs) == 0 {
		dirs = []string{".", "assets", filepath.Join("tmp", "materials")}
		if AssetsPath != "" {
			dirs = append(dirs, AssetsPath)
		}
	}

	clean := strings.TrimPrefix(name, "materials/")
	candidates := []string{clean}
	if filepath.Ext(clean) == "" {
		candidates = candidates[:0]
		for _, ext := range imageExtensions {
			candidates = append(candidates, clean+ext)
		}
	}

	for _, dir := range dirs {
		for _, c := range candidates {
			p := filepath.Join(dir, c)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return ""
}

// Package content implements the content:scan capability: word counts,
// heading inventories, and image reference counts for text documents.
package content

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

var allowedExt = map[string]bool{
	".md":   true,
	".txt":  true,
	".html": true,
}

var (
	mdHeadingPattern   = regexp.MustCompile(`(?m)^(#{1,6})\s+\S`)
	htmlHeadingPattern = regexp.MustCompile(`(?i)<h([1-6])[ >]`)
	mdImagePattern     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	htmlImagePattern   = regexp.MustCompile(`(?i)<img[ >]`)
)

// Scan walks targetDir and emits a ContentScanArtifact covering every file
// with an allowed extension. Paths in the result are relative to targetDir.
func Scan(targetDir string) (gate.ContentScanArtifact, error) {
	var files []gate.ContentFileResult

	err := filepath.WalkDir(targetDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !allowedExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		rel, err := filepath.Rel(targetDir, path)
		if err != nil {
			rel = path
		}

		body, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		files = append(files, scanFile(rel, string(body)))
		return nil
	})
	if err != nil {
		return gate.ContentScanArtifact{}, err
	}

	return gate.ContentScanArtifact{Files: files}, nil
}

func scanFile(relPath, body string) gate.ContentFileResult {
	result := gate.ContentFileResult{
		Path:      relPath,
		WordCount: countWords(body),
	}

	ext := strings.ToLower(filepath.Ext(relPath))
	switch ext {
	case ".md":
		result.HeadingCounts = headingCountsMarkdown(body)
		result.ImageCount = len(mdImagePattern.FindAllString(body, -1)) + len(htmlImagePattern.FindAllString(body, -1))
	case ".html":
		result.HeadingCounts = headingCountsHTML(body)
		result.ImageCount = len(htmlImagePattern.FindAllString(body, -1))
	}

	return result
}

func countWords(body string) int {
	return len(strings.Fields(body))
}

func headingCountsMarkdown(body string) map[string]int {
	counts := map[string]int{}
	for _, m := range mdHeadingPattern.FindAllStringSubmatch(body, -1) {
		level := "h" + strconv.Itoa(len(m[1]))
		counts[level]++
	}
	return counts
}

func headingCountsHTML(body string) map[string]int {
	counts := map[string]int{}
	for _, m := range htmlHeadingPattern.FindAllStringSubmatch(body, -1) {
		counts["h"+m[1]]++
	}
	return counts
}

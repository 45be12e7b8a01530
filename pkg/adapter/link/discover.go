// Package link implements the link:discover, link:check, and link:resample
// capabilities (registered under the singular "link:" prefix).
package link

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

var disallowedSchemes = map[string]bool{
	"data":       true,
	"javascript": true,
	"mailto":     true,
}

var hrefPattern = regexp.MustCompile(`(?i)(?:href|src)\s*=\s*["']([^"']+)["']`)

// DiscoverFromHTML extracts href/src attributes from HTML documents, resolves
// them against base, filters disallowed schemes and bare fragments, and
// returns a deduplicated, sorted URL set.
func DiscoverFromHTML(htmlDocs []string, base string) (gate.LinksURLSet, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return gate.LinksURLSet{}, fmt.Errorf("link: parse base url: %w", err)
	}

	seen := map[string]bool{}
	for _, doc := range htmlDocs {
		for _, m := range hrefPattern.FindAllStringSubmatch(doc, -1) {
			raw := strings.TrimSpace(m[1])
			if raw == "" || strings.HasPrefix(raw, "#") {
				continue
			}
			resolved, err := resolveURL(baseURL, raw)
			if err != nil {
				continue
			}
			seen[resolved] = true
		}
	}
	return gate.LinksURLSet{URLs: sortedKeys(seen)}, nil
}

func resolveURL(base *url.URL, raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "" && disallowedSchemes[strings.ToLower(u.Scheme)] {
		return "", fmt.Errorf("link: disallowed scheme %s", u.Scheme)
	}
	return base.ResolveReference(u).String(), nil
}

type sitemapURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

type sitemapIndex struct {
	XMLName xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

// DiscoverFromSitemap fetches sitemapURL and, if it is a sitemap index,
// recurses into each child sitemap, accumulating every <loc> URL.
func DiscoverFromSitemap(client *http.Client, sitemapURL string) (gate.LinksURLSet, error) {
	seen := map[string]bool{}
	if err := fetchSitemap(client, sitemapURL, seen, 0); err != nil {
		return gate.LinksURLSet{}, err
	}
	return gate.LinksURLSet{URLs: sortedKeys(seen)}, nil
}

func fetchSitemap(client *http.Client, sitemapURL string, seen map[string]bool, depth int) error {
	if depth > 5 {
		return fmt.Errorf("link: sitemap recursion too deep at %s", sitemapURL)
	}
	resp, err := client.Get(sitemapURL)
	if err != nil {
		return fmt.Errorf("link: fetch sitemap %s: %w", sitemapURL, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("link: read sitemap %s: %w", sitemapURL, err)
	}

	var index sitemapIndex
	if xml.Unmarshal(body, &index) == nil && len(index.Sitemaps) > 0 {
		for _, s := range index.Sitemaps {
			if err := fetchSitemap(client, s.Loc, seen, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	var urlset sitemapURLSet
	if err := xml.Unmarshal(body, &urlset); err != nil {
		return fmt.Errorf("link: parse sitemap %s: %w", sitemapURL, err)
	}
	for _, u := range urlset.URLs {
		if u.Loc != "" {
			seen[u.Loc] = true
		}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

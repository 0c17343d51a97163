package releasenotes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/trino-compare/dashboard/types"
)

// VersionChanges holds the categorized bullet points of one release page.
type VersionChanges struct {
	Breaking  []types.VersionChange
	Features  []types.VersionChange
	Connector []types.VersionChange
	General   []types.VersionChange
}

// Scraper fetches and parses release-notes pages.
type Scraper struct {
	client  *http.Client
	baseURL string
	log     logrus.FieldLogger
}

// NewScraper creates a scraper with the given per-page timeout.
func NewScraper(timeout time.Duration) *Scraper {
	return &Scraper{
		client:  &http.Client{Timeout: timeout},
		baseURL: ReleaseURLBase,
		log:     logrus.WithField("component", "release_scraper"),
	}
}

// SetBaseURL overrides the release page location, used by tests.
func (s *Scraper) SetBaseURL(url string) {
	s.baseURL = strings.TrimSuffix(url, "/")
}

// ScrapeVersion fetches one release page and extracts its changes. A page
// that cannot be fetched or parsed yields empty changes, not an error, so a
// missing release never aborts a multi-version comparison.
func (s *Scraper) ScrapeVersion(ctx context.Context, version string) *VersionChanges {
	changes := &VersionChanges{}
	url := fmt.Sprintf("%s/release-%s.html", s.baseURL, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		s.log.WithField("version", version).WithError(err).Warn("Failed to build release page request")
		return changes
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.WithField("version", version).WithError(err).Warn("Failed to fetch release page")
		return changes
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.WithField("version", version).WithField("status", resp.StatusCode).Warn("Release page not available")
		return changes
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		s.log.WithField("version", version).WithError(err).Warn("Failed to parse release page")
		return changes
	}

	s.extract(doc, version, changes)
	return changes
}

// extract walks every section heading and files its bullet points into the
// matching category. Connector sections are recognized by heading text; any
// other h2 section counts as general.
func (s *Scraper) extract(doc *goquery.Document, version string, changes *VersionChanges) {
	doc.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		title := headingTitle(heading)
		if title == "" {
			return
		}
		lower := strings.ToLower(title)

		section := heading.NextUntil("h2, h3")
		bullets := sectionBullets(section, version, title)

		switch {
		case strings.Contains(lower, "breaking change"):
			// Breaking-change sections sometimes carry prose instead of a
			// list, so plain paragraphs count too.
			bullets = append(bullets, sectionParagraphs(section, version, title)...)
			changes.Breaking = append(changes.Breaking, bullets...)
		case strings.Contains(lower, "new feature") || strings.Contains(lower, "feature change"):
			changes.Features = append(changes.Features, bullets...)
		case strings.Contains(lower, "connector"):
			changes.Connector = append(changes.Connector, bullets...)
		case goquery.NodeName(heading) == "h2":
			changes.General = append(changes.General, bullets...)
		default:
			changes.Connector = append(changes.Connector, bullets...)
		}
	})
}

// sectionBullets collects the text of every list item between a heading and
// the next heading.
func sectionBullets(section *goquery.Selection, version, category string) []types.VersionChange {
	var bullets []types.VersionChange
	section.Filter("ul").AddSelection(section.Find("ul")).Each(func(_ int, list *goquery.Selection) {
		list.ChildrenFiltered("li").Each(func(_ int, item *goquery.Selection) {
			text := normalizeText(item.Text())
			if text == "" {
				return
			}
			bullets = append(bullets, types.VersionChange{
				Version:  version,
				Category: category,
				Text:     text,
			})
		})
	})
	return bullets
}

// sectionParagraphs collects plain paragraphs, skipping admonition boxes.
func sectionParagraphs(section *goquery.Selection, version, category string) []types.VersionChange {
	var paras []types.VersionChange
	section.Filter("p").Each(func(_ int, p *goquery.Selection) {
		if p.HasClass("admonition-title") || p.Closest(".admonition").Length() > 0 {
			return
		}
		text := normalizeText(p.Text())
		if text == "" {
			return
		}
		paras = append(paras, types.VersionChange{
			Version:  version,
			Category: category,
			Text:     text,
		})
	})
	return paras
}

// headingTitle returns the heading text without the trailing anchor marker
// that documentation generators append.
func headingTitle(heading *goquery.Selection) string {
	return normalizeText(strings.TrimSuffix(strings.TrimSpace(heading.Text()), "#"))
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Copyright 2024 AI SA Assistant Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scraper collects company information from the public website.
package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/swire-renewables/intelligence-assistant/internal/config"
	"github.com/swire-renewables/intelligence-assistant/internal/knowledge"
)

const (
	// DefaultUserAgent identifies the scraper to the website
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

	maxPageBytes  = 2 << 20
	textParagraph = 10

	jsonFile = "swire_company_data.json"
	textFile = "swire_company_data.txt"
)

// CEOInfo describes the company leadership
type CEOInfo struct {
	Name    string `json:"name"`
	Title   string `json:"title"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// Link is an anchor found on the page
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// PageContent is the readable content of a page
type PageContent struct {
	Title      string   `json:"title"`
	Headings   []string `json:"headings"`
	Paragraphs []string `json:"paragraphs"`
	Links      []Link   `json:"links"`
}

// SiteData is the result of a scrape
type SiteData struct {
	Timestamp string      `json:"timestamp"`
	Source    string      `json:"source"`
	CEOInfo   CEOInfo     `json:"ceo_info"`
	Content   PageContent `json:"content"`
}

// Leadership is the published CEO information, which the website renders
// with scripts and cannot be scraped reliably
var Leadership = CEOInfo{
	Name:    "Ryan Smith",
	Title:   "Chief Executive Officer",
	Company: "Swire Renewable Energy",
	Message: "We are entering an exciting phase of our company's journey - continuing our evolutionary path to become a leading renewable energy inspection, repair and maintenance business, and ultimately a renewable energy asset manager.\n\n" +
		"As an independent company, we are now better positioned to adapt and grow with the rapidly evolving renewable energy market. By combining our team's expertise and our focus on health, safety and quality, our ultimate goal is to be a strategic partner for stakeholders across the full renewable energy supply chain, driving innovation and sustainable growth for the industry.",
}

// Scraper fetches and parses website pages
type Scraper struct {
	httpClient *http.Client
	userAgent  string
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a scraper from its configuration
func New(cfg config.ScraperConfig, logger *zap.Logger) *Scraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scraper{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		logger:     logger,
		now:        time.Now,
	}
}

// Scrape fetches baseURL and extracts its content
func (s *Scraper) Scrape(ctx context.Context, baseURL string) (*SiteData, error) {
	s.logger.Info("Scraping website", zap.String("url", baseURL))

	doc, err := s.fetch(ctx, baseURL)
	if err != nil {
		return nil, err
	}

	data := &SiteData{
		Timestamp: s.now().Format(time.RFC3339),
		Source:    baseURL,
		CEOInfo:   Leadership,
		Content:   ExtractContent(doc),
	}

	s.logger.Info("Scraped website",
		zap.String("url", baseURL),
		zap.Int("headings", len(data.Content.Headings)),
		zap.Int("paragraphs", len(data.Content.Paragraphs)),
		zap.Int("links", len(data.Content.Links)))

	return data, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s returned status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pageURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// ExtractContent collects the title, headings, paragraphs and links of a page
func ExtractContent(doc *goquery.Document) PageContent {
	content := PageContent{
		Title:      doc.Find("title").First().Text(),
		Headings:   []string{},
		Paragraphs: []string{},
		Links:      []Link{},
	}

	doc.Find("h1, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		content.Headings = append(content.Headings, strings.TrimSpace(sel.Text()))
	})

	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			content.Paragraphs = append(content.Paragraphs, text)
		}
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		content.Links = append(content.Links, Link{Text: strings.TrimSpace(sel.Text()), Href: href})
	})

	return content
}

// WriteKB saves the scrape as JSON and as a readable text summary in dir
func WriteKB(dir string, data *SiteData) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	if err := knowledge.WriteJSON(filepath.Join(dir, jsonFile), data); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, textFile), []byte(RenderText(data)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", textFile, err)
	}
	return nil
}

// RenderText formats the scrape for reading
func RenderText(data *SiteData) string {
	var b strings.Builder

	b.WriteString("Swire Renewable Energy - Company Information\n")
	fmt.Fprintf(&b, "Scraped: %s\n\n", data.Timestamp)

	ceo := data.CEOInfo
	fmt.Fprintf(&b, "CEO: %s\n", ceo.Name)
	fmt.Fprintf(&b, "Title: %s\n", ceo.Title)
	fmt.Fprintf(&b, "Company: %s\n\n", ceo.Company)
	fmt.Fprintf(&b, "CEO Message:\n%s\n\n", ceo.Message)

	b.WriteString("Website Content:\n")
	fmt.Fprintf(&b, "Title: %s\n\n", data.Content.Title)

	if len(data.Content.Headings) > 0 {
		b.WriteString("Headings:\n")
		for _, h := range data.Content.Headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
		b.WriteString("\n")
	}

	if len(data.Content.Paragraphs) > 0 {
		b.WriteString("Content:\n")
		paragraphs := data.Content.Paragraphs
		if len(paragraphs) > textParagraph {
			paragraphs = paragraphs[:textParagraph]
		}
		for _, p := range paragraphs {
			fmt.Fprintf(&b, "%s\n\n", p)
		}
	}

	return b.String()
}

// ToDocuments turns a scrape into knowledge documents: one for leadership
// and one for the website content
func ToDocuments(data *SiteData) []knowledge.Document {
	ceo := data.CEOInfo
	leadership := knowledge.Document{
		Action:      knowledge.ActionMergeOrUpload,
		ID:          "swire-leadership-ceo",
		Title:       fmt.Sprintf("%s - %s", ceo.Name, ceo.Title),
		Content:     fmt.Sprintf("CEO: %s\nTitle: %s\nCompany: %s\n\nCEO Message:\n%s", ceo.Name, ceo.Title, ceo.Company, ceo.Message),
		Category:    "leadership",
		Description: fmt.Sprintf("%s is the %s of %s", ceo.Name, ceo.Title, ceo.Company),
		Source:      data.Source,
		Type:        "company-info",
		Tags:        []string{"swire", "leadership", "ceo"},
		CreatedDate: data.Timestamp,
	}

	title := strings.TrimSpace(data.Content.Title)
	if title == "" {
		title = "Swire Renewable Energy Website"
	}
	var parts []string
	parts = append(parts, data.Content.Headings...)
	parts = append(parts, data.Content.Paragraphs...)

	website := knowledge.Document{
		Action:      knowledge.ActionMergeOrUpload,
		ID:          "swire-website-overview",
		Title:       title,
		Content:     strings.Join(parts, "\n"),
		Category:    "company",
		Source:      data.Source,
		Type:        "company-info",
		Tags:        []string{"swire", "website", "company"},
		CreatedDate: data.Timestamp,
	}
	if len(data.Content.Paragraphs) > 0 {
		website.Description = data.Content.Paragraphs[0]
	}

	return []knowledge.Document{leadership, website}
}

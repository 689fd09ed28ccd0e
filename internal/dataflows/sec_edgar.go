package dataflows

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// MaxFilingChars caps the filing text handed to a model.
const MaxFilingChars = 50000

// SECClient fetches the latest filing of a form type from EDGAR.
type SECClient struct {
	client *resty.Client
	cache  *CacheManager
	base   *url.URL
}

func NewSECClient(config *Config) *SECClient {
	cache := NewCacheManager(filepath.Join(config.DataCacheDir, "sec"), 24*time.Hour, config.CacheEnabled)
	return newSECClient("https://www.sec.gov", config.SECUserAgent, cache)
}

func newSECClient(baseURL, userAgent string, cache *CacheManager) *SECClient {
	base, _ := url.Parse(baseURL)

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(30 * time.Second)
	// EDGAR rejects requests without a contact User-Agent
	client.SetHeader("User-Agent", userAgent)

	return &SECClient{client: client, cache: cache, base: base}
}

type atomFeed struct {
	Entries []struct {
		Updated string `xml:"updated"`
		Links   []struct {
			Rel  string `xml:"rel,attr"`
			Href string `xml:"href,attr"`
		} `xml:"link"`
		Content struct {
			FilingDate string `xml:"filing-date"`
			FilingType string `xml:"filing-type"`
		} `xml:"content"`
	} `xml:"entry"`
}

// GetLatestFiling returns the text of the newest filing of formType.
func (sc *SECClient) GetLatestFiling(ctx context.Context, symbol, formType string) (*Filing, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	symbol = NormalizeSymbol(symbol)
	if formType == "" {
		formType = "10-K"
	}

	cacheKey := map[string]string{"symbol": symbol, "form": formType}
	var cached Filing
	if sc.cache.Get("sec", "filing", cacheKey, &cached) {
		return &cached, nil
	}

	feed, err := sc.fetch(ctx, "/cgi-bin/browse-edgar", map[string]string{
		"action": "getcompany",
		"CIK":    symbol,
		"type":   formType,
		"dateb":  "",
		"owner":  "include",
		"count":  "1",
		"output": "atom",
	})
	if err != nil {
		return nil, fmt.Errorf("filing list for %s: %w", symbol, err)
	}

	var atom atomFeed
	dec := xml.NewDecoder(bytes.NewReader(feed))
	// EDGAR declares ISO-8859-1
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&atom); err != nil {
		return nil, fmt.Errorf("parse filing feed for %s: %w", symbol, err)
	}
	if len(atom.Entries) == 0 {
		return nil, fmt.Errorf("no %s filing found for %s", formType, symbol)
	}

	entry := atom.Entries[0]
	filing := &Filing{
		Symbol:     symbol,
		FormType:   formType,
		FilingDate: entry.Content.FilingDate,
	}
	for _, l := range entry.Links {
		if l.Rel == "alternate" || filing.IndexURL == "" {
			filing.IndexURL = l.Href
		}
	}
	if filing.IndexURL == "" {
		return nil, fmt.Errorf("filing entry for %s has no link", symbol)
	}

	index, err := sc.fetch(ctx, filing.IndexURL, nil)
	if err != nil {
		return nil, fmt.Errorf("filing index for %s: %w", symbol, err)
	}
	docURL, err := sc.primaryDocument(index, filing.IndexURL, formType)
	if err != nil {
		return nil, err
	}
	filing.DocumentURL = docURL

	doc, err := sc.fetch(ctx, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("filing document for %s: %w", symbol, err)
	}
	text, err := htmlToText(doc)
	if err != nil {
		return nil, err
	}
	filing.Text, filing.Truncated = truncateRunes(text, MaxFilingChars)

	sc.cache.Set("sec", "filing", cacheKey, filing)
	return filing, nil
}

func (sc *SECClient) fetch(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	req := sc.client.R().SetContext(ctx)
	if params != nil {
		req.SetQueryParams(params)
	}
	resp, err := req.Get(path)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("EDGAR returned %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

// primaryDocument picks the document row whose type matches formType from
// a filing index page, falling back to the first listed document.
func (sc *SECClient) primaryDocument(page []byte, indexURL, formType string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse filing index: %w", err)
	}

	var first, match string
	doc.Find("table.tableFile tr").Each(func(_ int, row *goquery.Selection) {
		href, ok := row.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		// inline XBRL viewer links wrap the real document path
		href = strings.TrimPrefix(href, "/ix?doc=")
		if first == "" {
			first = href
		}
		docType := strings.TrimSpace(row.Find("td").Eq(3).Text())
		if match == "" && strings.EqualFold(docType, formType) {
			match = href
		}
	})

	href := match
	if href == "" {
		href = first
	}
	if href == "" {
		return "", fmt.Errorf("no documents listed in filing index")
	}
	return sc.resolve(indexURL, href), nil
}

func (sc *SECClient) resolve(from, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	base, err := url.Parse(from)
	if err != nil || !base.IsAbs() {
		base = sc.base
	}
	return base.ResolveReference(ref).String()
}

// htmlToText drops scripts and styles and collapses whitespace.
func htmlToText(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parse filing document: %w", err)
	}
	doc.Find("script, style, head").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

func truncateRunes(s string, n int) (string, bool) {
	if utf8.RuneCountInString(s) <= n {
		return s, false
	}
	runes := []rune(s)
	return string(runes[:n]), true
}

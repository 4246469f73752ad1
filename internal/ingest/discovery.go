package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoBundle is returned when neither the index listing nor the date probes
// produce a candidate bundle.
var ErrNoBundle = errors.New("no recent bundle found on the feed")

const (
	bundlePrefix = "NOMADESMARKETING"
	bundleExt    = ".zip"

	// probeDays is how far back the fallback probes reach (today..today-2).
	probeDays = 3
)

var bundleNameRe = regexp.MustCompile(bundlePrefix + `(\d{8})\.zip`)

// BundleName composes the bundle filename for a date.
func BundleName(d time.Time) string {
	return bundlePrefix + d.Format("20060102") + bundleExt
}

// BundleURL composes the download URL for a date under the feed base URL.
func BundleURL(baseURL string, d time.Time) string {
	return strings.TrimRight(baseURL, "/") + "/" + BundleName(d)
}

// Discover resolves the newest bundle that should exist under baseURL.
//
// It prefers the directory index: every filename matching the bundle pattern
// is collected and the newest date not after today wins (if every date is in
// the future, the overall newest wins, tolerating clock skew on the
// publisher). When the index is unreachable or empty it falls back to HEAD
// probes for today, yesterday and the day before. Retry is deliberately the
// caller's concern.
func Discover(ctx context.Context, client *http.Client, baseURL string, today time.Time) (string, time.Time, error) {
	if dates, err := listBundleDates(ctx, client, baseURL); err == nil && len(dates) > 0 {
		best := pickBestDate(dates, today)
		return BundleURL(baseURL, best), best, nil
	}

	for delta := 0; delta < probeDays; delta++ {
		d := today.AddDate(0, 0, -delta)
		url := BundleURL(baseURL, d)
		if headOK(ctx, client, url) {
			return url, d, nil
		}
	}

	return "", time.Time{}, fmt.Errorf("%w (probed %d day(s) back from %s)", ErrNoBundle, probeDays-1, today.Format("2006-01-02"))
}

// listBundleDates fetches the index page and extracts every bundle date it
// mentions, ascending and deduplicated.
func listBundleDates(ctx context.Context, client *http.Client, baseURL string) ([]time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("index returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	collect := func(s string) {
		for _, m := range bundleNameRe.FindAllStringSubmatch(s, -1) {
			seen[m[1]] = struct{}{}
		}
	}

	// Directory indexes vary: some link the files, some only print the
	// names. Sweep anchors first, then the page text.
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			collect(href)
		}
		collect(a.Text())
	})
	collect(doc.Text())

	var dates []time.Time
	for ymd := range seen {
		d, err := time.Parse("20060102", ymd)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sortDates(dates)
	return dates, nil
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}

// pickBestDate returns the newest date not after today, or the overall
// newest when everything is in the future. dates must be non-empty and
// sorted ascending.
func pickBestDate(dates []time.Time, today time.Time) time.Time {
	best := dates[len(dates)-1]
	for i := len(dates) - 1; i >= 0; i-- {
		if !dates[i].After(today) {
			return dates[i]
		}
	}
	return best
}

// headOK reports whether a lightweight existence probe of url succeeds.
func headOK(ctx context.Context, client *http.Client, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

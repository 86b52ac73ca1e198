package source

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"priceflow/config"
)

func testBulkConfig() config.BulkArchiveConfig {
	return config.BulkArchiveConfig{
		BaseURL:   "https://archives.example.com/data/futures",
		Market:    "um",
		Symbols:   []string{"ETHUSDT"},
		Intervals: []string{"1d"},
		Years:     []string{"2023", "2024"},
	}
}

func TestBulkArchiveJobEnumeration(t *testing.T) {
	a := NewBulkArchiveAdapter(testBulkConfig(), filepath.Join("data", "raw"))
	now := time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC)

	jobs := a.Jobs(now)

	// 2 years x 12 months of monthly archives plus 31 daily candidates.
	want := 2*12 + 31
	if len(jobs) != want {
		t.Fatalf("expected %d jobs, got %d", want, len(jobs))
	}

	wantMonthly := "https://archives.example.com/data/futures/um/monthly/klines/ETHUSDT/1d/ETHUSDT-1d-2023-01.zip"
	found := false
	for _, job := range jobs {
		if job.URL == wantMonthly {
			found = true
			if job.Dest != filepath.Join("data", "raw", "ETHUSDT-1d-2023-01.zip") {
				t.Errorf("unexpected destination: %s", job.Dest)
			}
		}
	}
	if !found {
		t.Errorf("monthly URL not enumerated: %s", wantMonthly)
	}
}

func TestBulkArchiveEnumeratesInvalidCalendarDays(t *testing.T) {
	a := NewBulkArchiveAdapter(testBulkConfig(), "raw")
	// February has no day 31; the URL is still submitted and the upstream
	// 404 resolves it.
	now := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)

	jobs := a.Jobs(now)

	want := "ETHUSDT-1d-2024-02-31.zip"
	for _, job := range jobs {
		if strings.HasSuffix(job.URL, want) {
			if !strings.Contains(job.URL, "/daily/klines/") {
				t.Errorf("daily archive should use the daily path: %s", job.URL)
			}
			return
		}
	}
	t.Errorf("expected invalid calendar day %s to be enumerated", want)
}

func TestBulkArchiveDailyNamesZeroPadded(t *testing.T) {
	a := NewBulkArchiveAdapter(testBulkConfig(), "raw")
	now := time.Date(2024, time.September, 3, 0, 0, 0, 0, time.UTC)

	jobs := a.Jobs(now)

	want := fmt.Sprintf("ETHUSDT-1d-%d-09-05.zip", now.Year())
	for _, job := range jobs {
		if strings.HasSuffix(job.URL, want) {
			return
		}
	}
	t.Errorf("expected zero padded daily archive name %s", want)
}

func TestParse(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"bulk-archive", true},
		{"snapshot-api-a", true},
		{"snapshot-api-b", true},
		{"snapshot-api-c", true},
		{"binance", false},
		{"", false},
	}
	for _, tc := range cases {
		if _, ok := Parse(tc.in); ok != tc.ok {
			t.Errorf("Parse(%q) ok = %v, want %v", tc.in, ok, tc.ok)
		}
	}
}

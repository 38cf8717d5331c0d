package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
)

// readTable reads the raw CSV table from a local path or an http(s) URL.
// Returns the header row and the data records. The first header cell has
// any UTF-8 BOM stripped.
func readTable(ctx context.Context, source string) ([]string, [][]string, error) {
	rc, err := openSource(ctx, source)
	if err != nil {
		return nil, nil, err
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	// Ragged rows violate the every-row-has-every-column invariant;
	// csv.Reader enforces a consistent field count by default.

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("source %s is empty", source)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read records: %w", err)
	}

	return header, records, nil
}

func openSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if isURL(source) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, fmt.Errorf("build request for %s: %w", source, err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", source, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: unexpected status %s", source, resp.Status)
		}
		return resp.Body, nil
	}

	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	return f, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// DeriveTableName derives the table name from the source: the file stem
// with hyphens replaced by underscores. "people-2024.csv" → "people_2024".
func DeriveTableName(source string) string {
	base := path.Base(source)
	if isURL(source) {
		if u, err := url.Parse(source); err == nil {
			base = path.Base(u.Path)
		}
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	return strings.ReplaceAll(stem, "-", "_")
}

// Package workbook loads contract line items from an .xlsx or .xls file
// fetched over HTTP(S) or read from the local filesystem.
package workbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"contracts/internal/core"
	ports "contracts/internal/sheets"
)

// Format identifies the container of a workbook.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

const (
	// maxWorkbookBytes bounds a single fetch.
	maxWorkbookBytes = 32 << 20
	// maxXLSRows bounds legacy workbook reads.
	maxXLSRows = 200000
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ErrUnknownFormat is returned when the bytes are neither xlsx nor xls.
var ErrUnknownFormat = errors.New("unrecognized workbook format")

// Client loads a workbook from a URL or file path.
type Client struct {
	location   string
	sheet      string
	httpClient *http.Client
}

// Ensure interface conformance
var (
	_ ports.DatasetLoader = (*Client)(nil)
	_ ports.Describer     = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithSheet reads the named sheet instead of the first one (xlsx only).
func WithSheet(name string) Option {
	return func(c *Client) { c.sheet = strings.TrimSpace(name) }
}

// WithHTTPClient overrides the HTTP client used for remote fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client for location, which is an http(s) URL or a local path.
func New(location string, opts ...Option) *Client {
	c := &Client{
		location:   strings.TrimSpace(location),
		httpClient: newHTTPClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Describe implements ports.Describer.
func (c *Client) Describe() string {
	return "workbook:" + c.location
}

// Load fetches and decodes the workbook.
func (c *Client) Load(ctx context.Context) (core.Dataset, error) {
	if c.location == "" {
		return core.Dataset{}, errors.New("workbook location not configured")
	}
	data, err := c.fetch(ctx)
	if err != nil {
		return core.Dataset{}, err
	}
	rows, err := ReadRows(data, c.location, c.sheet)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("read workbook %s: %w", c.location, err)
	}
	items, err := ports.DecodeRows(rows)
	if err != nil {
		return core.Dataset{}, fmt.Errorf("decode workbook %s: %w", c.location, err)
	}
	slog.DebugContext(ctx, "Workbook loaded", "location", c.location, "bytes", len(data), "items", len(items))
	return core.Dataset{Source: c.Describe(), LoadedAt: time.Now(), Items: items}, nil
}

func (c *Client) fetch(ctx context.Context) ([]byte, error) {
	if !isRemote(c.location) {
		data, err := os.ReadFile(c.location)
		if err != nil {
			return nil, fmt.Errorf("read workbook file: %w", err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.location, nil)
	if err != nil {
		return nil, fmt.Errorf("build workbook request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch workbook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch workbook: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxWorkbookBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read workbook body: %w", err)
	}
	if len(data) > maxWorkbookBytes {
		return nil, fmt.Errorf("workbook exceeds %d bytes", maxWorkbookBytes)
	}
	return data, nil
}

// ReadRows returns the cell matrix of one sheet. The container is chosen
// from the name's extension, falling back to the file signature.
func ReadRows(data []byte, name, sheet string) ([][]string, error) {
	switch DetectFormat(data, name) {
	case FormatXLSX:
		return readXLSX(data, sheet)
	case FormatXLS:
		return readXLS(data)
	default:
		return nil, ErrUnknownFormat
	}
}

// DetectFormat guesses the workbook container.
func DetectFormat(data []byte, name string) Format {
	switch strings.ToLower(path.Ext(stripQuery(name))) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}
	return ""
}

func readXLSX(data []byte, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, ports.ErrEmptyWorkbook
		}
		sheet = list[0]
	}
	// Raw values keep amounts free of display formatting.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ports.ErrEmptyWorkbook
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb.NumSheets() == 0 {
		return nil, ports.ErrEmptyWorkbook
	}
	if wb.NumSheets() > 1 {
		return nil, fmt.Errorf("legacy workbook has %d sheets; expected exactly one", wb.NumSheets())
	}
	rows := wb.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, ports.ErrEmptyWorkbook
	}
	return rows, nil
}

func isRemote(location string) bool {
	u, err := url.Parse(location)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func stripQuery(name string) string {
	if u, err := url.Parse(name); err == nil && u.Scheme != "" {
		return u.Path
	}
	return name
}

// newHTTPClient returns a client tuned for occasional large downloads.
func newHTTPClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

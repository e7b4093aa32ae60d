package chgo

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/marcodd23/go-chpool/pkg/chx"
	"github.com/marcodd23/go-chpool/pkg/errorx"
)

const (
	defaultHTTPPort   = "8123"
	defaultHTTPSPort  = "8443"
	defaultNativePort = "9000"

	nullText = "NULL"
)

// Client is a chx.Client backed by a clickhouse-go connection.
//
// Each Client opens at most one network session, so a pooled slot maps onto a
// single server connection.
type Client struct {
	conn driver.Conn
}

// NewClient is the chx.ClientFactory for clickhouse-go. It does not dial.
func NewClient(cfg chx.ConnConfig) (chx.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "error opening clickhouse client")
	}

	return &Client{conn: conn}, nil
}

// Options maps cfg onto clickhouse-go options.
//
// http and https endpoints use the HTTP interface (default ports 8123 and 8443),
// clickhouse and tcp endpoints the native protocol (default port 9000).
func Options(cfg chx.ConnConfig) (*clickhouse.Options, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, errorx.NewDatabaseErrorWrapper(err, "invalid clickhouse url %q", cfg.URL)
	}

	if endpoint.Hostname() == "" {
		return nil, errorx.NewDatabaseError("invalid clickhouse url %q: missing host", cfg.URL)
	}

	opts := &clickhouse.Options{
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		DialTimeout:  cfg.DialTimeout,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	port := endpoint.Port()

	switch strings.ToLower(endpoint.Scheme) {
	case "http":
		opts.Protocol = clickhouse.HTTP
		port = withDefault(port, defaultHTTPPort)
	case "https":
		opts.Protocol = clickhouse.HTTP
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12, ServerName: endpoint.Hostname()}
		port = withDefault(port, defaultHTTPSPort)
	case "clickhouse", "tcp":
		opts.Protocol = clickhouse.Native
		port = withDefault(port, defaultNativePort)
	default:
		return nil, errorx.NewDatabaseError("invalid clickhouse url %q: unsupported scheme %q", cfg.URL, endpoint.Scheme)
	}

	opts.Addr = []string{net.JoinHostPort(endpoint.Hostname(), port)}

	return opts, nil
}

// Query runs query and renders the first column of every row as text.
func (c *Client) Query(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columnTypes := rows.ColumnTypes()
	if len(columnTypes) == 0 {
		return nil, rows.Err()
	}

	var result []string

	for rows.Next() {
		dest := make([]any, len(columnTypes))
		for i, columnType := range columnTypes {
			dest[i] = reflect.New(columnType.ScanType()).Interface()
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}

		result = append(result, renderText(dest[0]))
	}

	return result, rows.Err()
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	return c.conn.Exec(ctx, query, args...)
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// renderText dereferences a scanned value and formats it as text.
func renderText(value any) string {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nullText
		}
		v = v.Elem()
	}

	if b, ok := v.Interface().([]byte); ok {
		return string(b)
	}

	return fmt.Sprint(v.Interface())
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}

	return value
}

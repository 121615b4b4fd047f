// Package csv streams a CSV sheet export into rows.Row values. The sheet is
// assumed to carry a header row; header text is trimmed and BOM-stripped so
// downstream role resolution sees clean strings.
package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"rulegen/internal/config"
	"rulegen/internal/rows"
)

// StreamRows streams CSV records from src as rows.Row values on out.
//
// The header record is delivered once via onHeader before any row; if
// onHeader returns an error, streaming stops and that error is returned
// (this is how the caller aborts on schema-detection failure without
// consuming the whole file).
//
// Per-record read errors are reported through onErr with the 1-based line
// number and streaming continues; extraction is best-effort per row.
//
// StreamRows closes src and never closes out.
func StreamRows(
	ctx context.Context,
	src io.ReadCloser,
	opt config.Options,
	onHeader func(headers []string) error,
	out chan<- rows.Row,
	onErr func(line int, err error),
) error {
	defer src.Close()

	comma := opt.Rune("comma", ',')
	lazy := opt.Bool("lazy_quotes", false)
	hm := opt.StringMap("header_map")

	cr := csv.NewReader(src)
	cr.Comma = comma
	cr.LazyQuotes = lazy
	cr.FieldsPerRecord = -1

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		if onErr != nil {
			onErr(line, fmt.Errorf("read header: %w", err))
		}
		return err
	}

	headers := make([]string, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		h = strings.TrimSpace(h)
		if mapped, ok := hm[h]; ok {
			h = mapped
		}
		headers[i] = h
	}

	if onHeader != nil {
		if err := onHeader(headers); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}

		cells := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			cells[h] = v
		}

		select {
		case out <- rows.Row{Line: line, Cells: cells}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Collect drains StreamRows into memory. Row counts here are hundreds, not
// millions, so the extractor works over a slice.
func Collect(ctx context.Context, src io.ReadCloser, opt config.Options, onErr func(line int, err error)) ([]string, []rows.Row, error) {
	var headers []string
	out := make(chan rows.Row, 64)
	errCh := make(chan error, 1)

	go func() {
		errCh <- StreamRows(ctx, src, opt, func(h []string) error {
			headers = h
			return nil
		}, out, onErr)
		close(out)
	}()

	var collected []rows.Row
	for r := range out {
		collected = append(collected, r)
	}
	if err := <-errCh; err != nil {
		return nil, nil, err
	}
	return headers, collected, nil
}

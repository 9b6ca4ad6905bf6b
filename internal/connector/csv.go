package connector

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// csvConnector reads freight records from a delimited file on local or
// mounted storage.
type csvConnector struct {
	base
	path      string
	delimiter rune
	hasHeader bool
	encoding  string

	stream *csvStream
}

func newCSV(cfg domain.DataSourceConfig) (*csvConnector, error) {
	params := cfg.ConnectionParams
	delim := strParam(params, "delimiter", ",")
	if len([]rune(delim)) != 1 {
		return nil, domain.Ef(domain.KindConfiguration, "delimiter must be a single character, got %q", delim)
	}
	enc := strings.ToLower(strParam(params, "encoding", "utf-8"))
	if _, err := decoderFor(enc); err != nil {
		return nil, err
	}
	return &csvConnector{
		base:      base{typ: domain.SourceCSV, sourceID: cfg.ID},
		path:      strParam(params, "file_path", ""),
		delimiter: []rune(delim)[0],
		hasHeader: boolParam(params, "has_header", true),
		encoding:  enc,
	}, nil
}

func decoderFor(name string) (*encoding.Decoder, error) {
	switch name {
	case "", "utf-8", "utf8":
		return unicode.UTF8.NewDecoder(), nil
	case "latin-1", "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, domain.Ef(domain.KindConfiguration, "unsupported encoding %q", name)
	}
}

// TestConnection verifies the file exists and sniffs its content type so a
// binary masquerading as CSV is rejected before a full ingestion run.
func (c *csvConnector) TestConnection(ctx domain.Context) error {
	info, err := os.Stat(c.path)
	if err != nil {
		return domain.Wrap(domain.KindDataSource, "csv file not accessible", err).
			WithDetail("file_path", c.path)
	}
	if info.IsDir() {
		return domain.Ef(domain.KindDataSource, "%s is a directory", c.path).
			WithDetail("file_path", c.path)
	}
	mtype, err := mimetype.DetectFile(c.path)
	if err != nil {
		return domain.Wrap(domain.KindDataSource, "cannot sniff csv file", err).
			WithDetail("file_path", c.path)
	}
	for _, allowed := range []string{"text/csv", "text/plain", "text/tab-separated-values"} {
		if mtype.Is(allowed) {
			return nil
		}
	}
	return domain.Ef(domain.KindDataSource, "file %s is %s, not a delimited text file", c.path, mtype.String()).
		WithDetail("file_path", c.path).
		WithDetail("detected_type", mtype.String())
}

func (c *csvConnector) Connect(ctx domain.Context) error {
	if err := c.guardConnect(); err != nil {
		return err
	}
	if _, err := os.Stat(c.path); err != nil {
		c.setState(StateError)
		return domain.Wrap(domain.KindDataSource, "csv file not accessible", err).
			WithDetail("file_path", c.path)
	}
	c.setState(StateConnected)
	return nil
}

func (c *csvConnector) Disconnect(ctx domain.Context) error {
	if c.stream != nil {
		_ = c.stream.Close()
		c.stream = nil
	}
	c.setState(StateDisconnected)
	return nil
}

func (c *csvConnector) Fetch(ctx domain.Context, params map[string]any) (domain.RecordStream, error) {
	needConnect, err := c.beginFetch()
	if err != nil {
		return nil, err
	}
	if needConnect {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
		if _, err := c.beginFetch(); err != nil {
			return nil, err
		}
	}

	f, err := os.Open(c.path)
	if err != nil {
		c.setState(StateError)
		return nil, domain.Wrap(domain.KindDataSource, "open csv file", err).
			WithDetail("file_path", c.path)
	}
	dec, _ := decoderFor(c.encoding)
	reader := csv.NewReader(dec.Reader(f))
	reader.Comma = c.delimiter
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var header []string
	if c.hasHeader {
		row, err := reader.Read()
		if err != nil {
			_ = f.Close()
			c.setState(StateError)
			if err == io.EOF {
				return nil, domain.E(domain.KindDataSource, "csv file is empty").
					WithDetail("file_path", c.path)
			}
			return nil, domain.Wrap(domain.KindDataSource, "read csv header", err).
				WithDetail("file_path", c.path)
		}
		header = make([]string, len(row))
		for i, h := range row {
			header[i] = strings.TrimSpace(h)
		}
	}

	c.stream = &csvStream{
		file:    f,
		reader:  reader,
		header:  header,
		limit:   FetchLimit(params),
		onClose: c.endFetch,
	}
	return c.stream, nil
}

// csvStream yields one row per Next call, keyed by header names or by
// column_N when the file has no header row.
type csvStream struct {
	file    *os.File
	reader  *csv.Reader
	header  []string
	limit   int
	yielded int
	onClose func()
	closed  bool
}

func (s *csvStream) Next(ctx domain.Context) (map[string]any, error) {
	if s.closed {
		return nil, io.EOF
	}
	if s.limit > 0 && s.yielded >= s.limit {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	row, err := s.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindDataSource, "read csv row", err)
	}
	record := make(map[string]any, len(row))
	for i, cell := range row {
		record[s.columnName(i)] = cell
	}
	s.yielded++
	return record, nil
}

func (s *csvStream) columnName(i int) string {
	if i < len(s.header) && s.header[i] != "" {
		return s.header[i]
	}
	return fmt.Sprintf("column_%d", i)
}

func (s *csvStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return s.file.Close()
}

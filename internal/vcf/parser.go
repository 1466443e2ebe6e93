// Package vcf provides VCF file parsing functionality.
package vcf

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// mandatoryColumns are the 8 required VCF columns, in order. Sample columns
// after INFO are ignored by the parser.
var mandatoryColumns = []string{"#CHROM", "POS", "ID", "REF", "ALT", "QUAL", "FILTER", "INFO"}

// Parser reads variants from VCF text. Per-line problems surface as
// *ParseError from Next and the parser keeps going, so callers can collect
// them as warnings; only a missing or malformed header is fatal.
type Parser struct {
	reader     *bufio.Reader
	gzipReader *gzip.Reader
	dataLine   int      // 1-based, counting data lines only
	meta       []string // "##" metadata lines, verbatim
}

// NewParser creates a VCF parser reading from r. Gzipped input is detected
// by magic bytes, so plain and .vcf.gz content both work. The header is
// consumed and validated before NewParser returns.
func NewParser(r io.Reader) (*Parser, error) {
	br := bufio.NewReader(r)

	p := &Parser{reader: br}

	// Check for gzip magic number (0x1f, 0x8b)
	magic, err := br.Peek(2)
	if err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	}

	if err := p.parseHeader(); err != nil {
		return nil, err
	}

	return p, nil
}

// parseHeader consumes metadata lines and validates the column header line.
func (p *Parser) parseHeader() error {
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return &ParseError{Message: "no #CHROM header line found"}
			}
			return fmt.Errorf("read header: %w", err)
		}

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "##") {
			p.meta = append(p.meta, line)
			continue
		}

		if strings.HasPrefix(line, "#") {
			return validateHeader(line)
		}

		return &ParseError{Message: "expected #CHROM header line before data"}
	}
}

// validateHeader checks the column header names the 8 mandatory columns in order.
func validateHeader(line string) error {
	fields := strings.Split(line, "\t")
	if len(fields) < len(mandatoryColumns) {
		return &ParseError{
			Message: fmt.Sprintf("header has %d columns, expected at least %d", len(fields), len(mandatoryColumns)),
		}
	}
	for i, want := range mandatoryColumns {
		if fields[i] != want {
			return &ParseError{
				Message: fmt.Sprintf("header column %d is %q, expected %q", i+1, fields[i], want),
			}
		}
	}
	return nil
}

func (p *Parser) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			// Final line without trailing newline.
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Next reads the next variant. Returns nil, nil at end of input. A returned
// *ParseError refers to the current data line and is recoverable: calling
// Next again continues with the following line.
func (p *Parser) Next() (*Variant, error) {
	for {
		line, err := p.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return nil, fmt.Errorf("read variant line: %w", err)
		}

		if line == "" {
			continue
		}

		p.dataLine++
		return p.parseLine(line)
	}
}

// parseLine parses a single VCF data line into a Variant.
func (p *Parser) parseLine(line string) (*Variant, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < len(mandatoryColumns) {
		return nil, &ParseError{
			Line:    p.dataLine,
			Message: fmt.Sprintf("expected at least 8 columns, found %d", len(fields)),
		}
	}

	if fields[0] == "" {
		return nil, &ParseError{Line: p.dataLine, Message: "empty CHROM"}
	}

	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || pos < 1 {
		return nil, &ParseError{
			Line:    p.dataLine,
			Message: fmt.Sprintf("invalid position: %s", fields[1]),
		}
	}

	if fields[3] == "" || fields[3] == "." {
		return nil, &ParseError{Line: p.dataLine, Message: "empty REF allele"}
	}

	alts := strings.Split(fields[4], ",")
	for _, alt := range alts {
		if alt == "" {
			return nil, &ParseError{
				Line:    p.dataLine,
				Message: fmt.Sprintf("empty ALT allele in %q", fields[4]),
			}
		}
	}

	var qual *float64
	if fields[5] != "." {
		q, err := strconv.ParseFloat(fields[5], 64)
		if err != nil {
			return nil, &ParseError{
				Line:    p.dataLine,
				Message: fmt.Sprintf("invalid quality: %s", fields[5]),
			}
		}
		qual = &q
	}

	name := fields[2]
	if name == "." {
		name = ""
	}

	return &Variant{
		ID:     VariantID(fields[0], pos, fields[3], alts),
		Name:   name,
		Chrom:  fields[0],
		Pos:    pos,
		Ref:    fields[3],
		Alts:   alts,
		Qual:   qual,
		Filter: fields[6],
		Info:   parseInfo(fields[7]),
	}, nil
}

// parseInfo parses the INFO field into a map. Flag-type entries (no "=")
// map to true rather than a string value.
func parseInfo(info string) map[string]any {
	result := make(map[string]any)
	if info == "." {
		return result
	}

	for _, kv := range strings.Split(info, ";") {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		} else {
			result[parts[0]] = true
		}
	}

	return result
}

// Meta returns the "##" metadata lines, verbatim.
func (p *Parser) Meta() []string {
	return p.meta
}

// LineNumber returns the number of the data line most recently read,
// 1-based from the first data line.
func (p *Parser) LineNumber() int {
	return p.dataLine
}

// Close releases the gzip reader, if any.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		return p.gzipReader.Close()
	}
	return nil
}

// ParseError represents an error during VCF parsing. Line is the 1-based
// data line number; 0 means the error concerns the header.
type ParseError struct {
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("vcf parse error in header: %s", e.Message)
	}
	return fmt.Sprintf("vcf parse error at data line %d: %s", e.Line, e.Message)
}

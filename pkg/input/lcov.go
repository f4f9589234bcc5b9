package input

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
)

// ReadLCOV parses an LCOV tracefile. Sections naming the same source file
// are merged by summing hit counts, and records keep the order in which
// their file first appeared. Summary records (LF, LH, FNF, ...) are ignored
// since totals are recomputed from the raw counts.
func ReadLCOV(r io.Reader) ([]coverage.RawRecord, error) {
	var (
		order   []string
		records = map[string]*coverage.RawRecord{}
		current *coverage.RawRecord
		lineNo  int
	)

	flush := func() {
		if current == nil {
			return
		}
		if existing, ok := records[current.Path]; ok {
			existing.Merge(*current)
		} else {
			records[current.Path] = current
			order = append(order, current.Path)
		}
		current = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "end_of_record" {
			if current == nil {
				return nil, lcovError(lineNo, "end_of_record outside of a section")
			}
			flush()
			continue
		}

		tag, value, found := strings.Cut(line, ":")
		if !found {
			return nil, lcovError(lineNo, "malformed line %q", line)
		}
		if tag == "SF" {
			flush()
			rec := coverage.NewRawRecord(value)
			current = &rec
			continue
		}

		switch tag {
		case "TN", "VER", "LF", "LH", "FNF", "FNH", "BRF", "BRH", "FNL":
			continue
		}
		if current == nil {
			return nil, lcovError(lineNo, "%s record outside of a section", tag)
		}

		var err error
		switch tag {
		case "DA":
			err = parseDA(current, value)
		case "FN":
			err = parseFN(current, value)
		case "FNDA":
			err = parseFNDA(current, value)
		case "FNA":
			err = parseFNA(current, value)
		case "BRDA":
			err = parseBRDA(current, value)
		default:
			// Unknown extension records are skipped.
		}
		if err != nil {
			return nil, lcovError(lineNo, "%s: %v", tag, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, reporterrors.Wrap(err, reporterrors.CategoryInput, "read lcov tracefile")
	}
	// A missing trailing end_of_record is tolerated.
	flush()

	out := make([]coverage.RawRecord, len(order))
	for i, path := range order {
		out[i] = *records[path]
	}
	return out, nil
}

func lcovError(line int, format string, args ...any) error {
	e := reporterrors.Input(format, args...)
	e.Message = "lcov line " + strconv.Itoa(line) + ": " + e.Message
	return e
}

// parseDA handles "DA:<line>,<hits>[,<checksum>]".
func parseDA(rec *coverage.RawRecord, value string) error {
	fields := strings.Split(value, ",")
	if len(fields) < 2 {
		return errField(value)
	}
	line, err := parseUint32(fields[0])
	if err != nil {
		return err
	}
	hits, err := parseHits(fields[1])
	if err != nil {
		return err
	}
	rec.Lines[line] += hits
	return nil
}

// parseFN handles "FN:<line>,<name>" and the "FN:<line>,<end>,<name>" form.
// Names may contain commas, so only the leading line numbers are split off.
func parseFN(rec *coverage.RawRecord, value string) error {
	start, name, found := strings.Cut(value, ",")
	if !found {
		return errField(value)
	}
	if _, err := parseUint32(start); err != nil {
		return err
	}
	if end, rest, ok := strings.Cut(name, ","); ok {
		if _, err := parseUint32(end); err == nil {
			name = rest
		}
	}
	if _, ok := rec.Functions[name]; !ok {
		rec.Functions[name] = 0
	}
	return nil
}

// parseFNA handles "FNA:<index>,<hits>,<name>", which replaces FN and FNDA
// in newer tracefiles. The FNL line ranges it refers to are not needed.
func parseFNA(rec *coverage.RawRecord, value string) error {
	index, rest, found := strings.Cut(value, ",")
	if !found {
		return errField(value)
	}
	if _, err := parseUint32(index); err != nil {
		return err
	}
	hitsField, name, found := strings.Cut(rest, ",")
	if !found {
		return errField(value)
	}
	hits, err := parseHits(hitsField)
	if err != nil {
		return err
	}
	rec.Functions[name] += hits
	return nil
}

// parseFNDA handles "FNDA:<hits>,<name>".
func parseFNDA(rec *coverage.RawRecord, value string) error {
	hitsField, name, found := strings.Cut(value, ",")
	if !found {
		return errField(value)
	}
	hits, err := parseHits(hitsField)
	if err != nil {
		return err
	}
	rec.Functions[name] += hits
	return nil
}

// parseBRDA handles "BRDA:<line>,<block>,<branch>,<taken>" where a taken
// value of "-" means the block was never executed.
func parseBRDA(rec *coverage.RawRecord, value string) error {
	fields := strings.Split(value, ",")
	if len(fields) != 4 {
		return errField(value)
	}
	var id coverage.BranchID
	var err error
	if id.Line, err = parseUint32(fields[0]); err != nil {
		return err
	}
	if id.Block, err = parseUint32(fields[1]); err != nil {
		return err
	}
	if id.Branch, err = parseUint32(fields[2]); err != nil {
		return err
	}

	if fields[3] == "-" {
		if _, ok := rec.Branches[id]; !ok {
			rec.Branches[id] = nil
		}
		return nil
	}
	taken, err := parseHits(fields[3])
	if err != nil {
		return err
	}
	if prev := rec.Branches[id]; prev != nil {
		taken += *prev
	}
	rec.Branches[id] = &taken
	return nil
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// parseHits accepts negative counts, which some gcov versions emit on
// counter overflow, as zero.
func parseHits(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		if _, err := strconv.ParseInt(s, 10, 64); err != nil {
			return 0, err
		}
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func errField(value string) error {
	return reporterrors.Input("malformed value %q", value)
}

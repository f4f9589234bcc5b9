package input

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/tools/cover"

	"github.com/jupierce/coverage-report/pkg/coverage"
	reporterrors "github.com/jupierce/coverage-report/pkg/errors"
)

// Tracefile formats.
const (
	FormatAuto = ""
	FormatLCOV = "lcov"
	FormatGo   = "go"
)

const goModePrefix = "mode:"

// ReadGoProfile parses a Go cover profile. Every line spanned by a block
// gets the highest count of any block covering it. Go profiles carry no
// function or branch data.
func ReadGoProfile(r io.Reader) ([]coverage.RawRecord, error) {
	profiles, err := cover.ParseProfilesFromReader(r)
	if err != nil {
		return nil, reporterrors.Wrap(err, reporterrors.CategoryInput, "parse go cover profile")
	}

	records := make([]coverage.RawRecord, 0, len(profiles))
	for _, profile := range profiles {
		rec := coverage.NewRawRecord(profile.FileName)
		for _, block := range profile.Blocks {
			if block.NumStmt == 0 {
				continue
			}
			hits := uint64(0)
			if block.Count > 0 {
				hits = uint64(block.Count)
			}
			for line := block.StartLine; line <= block.EndLine; line++ {
				if prev, ok := rec.Lines[uint32(line)]; !ok || hits > prev {
					rec.Lines[uint32(line)] = hits
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// Read parses r in the given format, sniffing it when format is FormatAuto:
// a first non-blank line starting with "mode:" is a Go profile, anything
// else is LCOV.
func Read(r io.Reader, format string) ([]coverage.RawRecord, error) {
	switch format {
	case FormatLCOV:
		return ReadLCOV(r)
	case FormatGo:
		return ReadGoProfile(r)
	case FormatAuto:
	default:
		return nil, reporterrors.Config("unknown tracefile format %q", format)
	}

	br := bufio.NewReader(r)
	head, err := peekFirstLine(br)
	if err != nil {
		return nil, reporterrors.Wrap(err, reporterrors.CategoryInput, "read tracefile")
	}
	if strings.HasPrefix(head, goModePrefix) {
		return ReadGoProfile(br)
	}
	return ReadLCOV(br)
}

func peekFirstLine(br *bufio.Reader) (string, error) {
	for n := 64; ; n *= 2 {
		buf, err := br.Peek(n)
		trimmed := bytes.TrimLeft(buf, " \t\r\n")
		if i := bytes.IndexByte(trimmed, '\n'); i >= 0 {
			return string(trimmed[:i]), nil
		}
		if err == io.EOF || err == bufio.ErrBufferFull {
			return string(trimmed), nil
		}
		if err != nil {
			return "", err
		}
	}
}

// ReadFile opens path and parses it with Read.
func ReadFile(path, format string) ([]coverage.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, reporterrors.Wrap(err, reporterrors.CategoryInput, "open tracefile %s", path).WithPath(path)
	}
	defer f.Close()

	records, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return records, nil
}

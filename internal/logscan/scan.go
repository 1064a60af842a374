// Package logscan performs the single linear pass over a SAS execution log.
//
// The pass threads a ContextState value through every line (state in, state
// out), extracting canonical ERROR:/WARNING: messages attributed to the include
// file and MLOGIC context active at that line. No package-level mutable state is
// involved, so independent logs can be scanned concurrently.
package logscan

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strings"
)

// Result holds every runtime message found in one log, in line order.
type Result struct {
	Errors     []RuntimeMessage
	Warnings   []RuntimeMessage
	TotalLines int
}

// step processes a single line and returns the state for the next one.
func (r *Result) step(st ContextState, lineNo int, line string) ContextState {
	st = st.Advance(line)
	msg, ok := Extract(lineNo, line, st)
	if !ok {
		return st
	}
	if msg.Kind == KindError {
		r.Errors = append(r.Errors, msg)
	} else {
		r.Warnings = append(r.Warnings, msg)
	}
	return st
}

// Scan runs the pass over lines that have already been split. Line terminators
// still present on an element are removed first.
func Scan(lines []string) Result {
	var (
		res Result
		st  ContextState
	)
	for i, line := range lines {
		st = res.step(st, i+1, trimTerminator(line))
	}
	res.TotalLines = len(lines)
	return res
}

// ScanReader streams lines from r and runs the pass. Lines end at "\r\n",
// "\n" or a lone "\r", as in universal-newline text mode, and may be
// arbitrarily long. The only error returned is a read error from r.
func ScanReader(r io.Reader) (Result, error) {
	var (
		res    Result
		st     ContextState
		lineNo int
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), math.MaxInt)
	sc.Split(splitLines)
	for sc.Scan() {
		lineNo++
		st = res.step(st, lineNo, sc.Text())
	}
	res.TotalLines = lineNo
	return res, sc.Err()
}

// splitLines is a bufio.SplitFunc treating "\r\n", "\n" and "\r" as line
// terminators. A final line without a terminator is still returned.
func splitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		switch {
		case i+1 < len(data) && data[i+1] == '\n':
			return i + 2, data[:i], nil
		case i+1 < len(data) || atEOF:
			return i + 1, data[:i], nil
		}
		// "\r" at the end of the buffer: wait to see whether "\n" follows.
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

func trimTerminator(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

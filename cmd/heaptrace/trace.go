package main

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/bytedance/gopkg/lang/span"

	"github.com/blockheap/blockheap/internal/hack"
)

// opKind is the verb of a single trace line: allocate, reallocate, or free.
type opKind byte

const (
	opAlloc   opKind = 'a'
	opRealloc opKind = 'r'
	opFree    opKind = 'f'
)

// op is one parsed trace line: `a <id> <size>`, `r <id> <size>`, or
// `f <id>`. id ties a free/realloc back to the allocation it targets; it is
// not a heap address.
type op struct {
	kind opKind
	id   int
	size int
}

// lineCache pools copies of trace-line bytes that must outlive the scan
// (only a malformed line is copied, for its error message), the same role
// spanCache plays for cloudwego-gopkg's thrift binary reader: a
// bufio.Scanner's Bytes() buffer is only valid until the next Scan, so any
// line worth keeping around (for an error message, say) needs its own copy.
var lineCache = span.NewSpanCache(64 * 1024)

// parseTrace reads a malloc-lab-style trace file into a sequence of ops.
func parseTrace(path string) ([]op, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("heaptrace: %w", err)
	}
	defer f.Close()

	var ops []op
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		o, err := parseLine(line)
		if err != nil {
			kept := lineCache.Copy(line)
			return nil, fmt.Errorf("heaptrace: %s:%d: %w (line %q)", path, lineNo, err, kept)
		}
		ops = append(ops, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("heaptrace: reading %s: %w", path, err)
	}
	return ops, nil
}

func parseLine(line []byte) (op, error) {
	fields := bytes.Fields(line)
	if len(fields) < 2 {
		return op{}, fmt.Errorf("malformed trace line")
	}
	if len(fields[0]) != 1 {
		return op{}, fmt.Errorf("unknown op verb %q", fields[0])
	}

	id, err := strconv.Atoi(hack.ByteSliceToString(fields[1]))
	if err != nil {
		return op{}, fmt.Errorf("invalid id: %w", err)
	}

	o := op{kind: opKind(fields[0][0]), id: id}
	switch o.kind {
	case opAlloc, opRealloc:
		if len(fields) < 3 {
			return op{}, fmt.Errorf("%c requires a size", o.kind)
		}
		size, err := strconv.Atoi(hack.ByteSliceToString(fields[2]))
		if err != nil {
			return op{}, fmt.Errorf("invalid size: %w", err)
		}
		o.size = size
	case opFree:
		// no further fields
	default:
		return op{}, fmt.Errorf("unknown op verb %q", fields[0])
	}
	return o, nil
}

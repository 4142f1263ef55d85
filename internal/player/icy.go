package player

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// icyReader strips interleaved SHOUTcast/Icecast metadata from a stream body,
// leaving only audio bytes. Every metaint audio bytes the server inserts one
// length byte (in 16 byte units) followed by that many bytes of metadata.
type icyReader struct {
	r       *bufio.Reader
	metaint int
	left    int
	onTitle func(string)
}

func newICYReader(r io.Reader, metaint int, onTitle func(string)) io.Reader {
	if metaint <= 0 {
		return r
	}
	return &icyReader{
		r:       bufio.NewReaderSize(r, NetworkReadSize),
		metaint: metaint,
		left:    metaint,
		onTitle: onTitle,
	}
}

func (ir *icyReader) Read(p []byte) (int, error) {
	if ir.left == 0 {
		if err := ir.readMeta(); err != nil {
			return 0, err
		}
		ir.left = ir.metaint
	}

	if len(p) > ir.left {
		p = p[:ir.left]
	}
	n, err := ir.r.Read(p)
	ir.left -= n
	return n, err
}

func (ir *icyReader) readMeta() error {
	size, err := ir.r.ReadByte()
	if err != nil {
		if err == io.EOF {
			return err
		}
		return fmt.Errorf("metadata read error: %w", err)
	}
	if size == 0 {
		return nil
	}

	meta := make([]byte, int(size)*16)
	if _, err := io.ReadFull(ir.r, meta); err != nil {
		return fmt.Errorf("metadata content error: %w", err)
	}
	if title, ok := parseStreamTitle(string(meta)); ok && ir.onTitle != nil {
		ir.onTitle(title)
	}
	return nil
}

// parseStreamTitle extracts StreamTitle from an ICY metadata block.
func parseStreamTitle(meta string) (string, bool) {
	const prefix = "StreamTitle='"
	start := strings.Index(meta, prefix)
	if start < 0 {
		return "", false
	}
	start += len(prefix)
	end := strings.Index(meta[start:], "';")
	if end <= 0 {
		return "", false
	}
	return meta[start : start+end], true
}

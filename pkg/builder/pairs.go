package builder

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/sugawarayuuta/sonnet"

	"github.com/ssargent/shredder/pkg/hostnum"
)

const maxLineSize = 64 << 20

// pairRecord is one line of a JSON-lines pair file:
//
//	{"key": 42, "value": "AB"}
//	{"key": 99, "value": "WFla", "encoding": "base64"}
type pairRecord struct {
	Key      *float64 `json:"key"`
	Value    string   `json:"value"`
	Encoding string   `json:"encoding"`
}

// ReadPairs parses JSON-lines pairs. Blank lines and lines starting with '#'
// are skipped. Keys are converted with hostnum's truncation policy.
func ReadPairs(r io.Reader) ([]Pair, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var pairs []Pair
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 || text[0] == '#' {
			continue
		}

		var rec pairRecord
		if err := sonnet.Unmarshal(text, &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Key == nil {
			return nil, fmt.Errorf("line %d: missing key", line)
		}

		value, err := decodeValue(rec.Value, rec.Encoding)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		pairs = append(pairs, Pair{Key: hostnum.FloatToUint32(*rec.Key), Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}

	return pairs, nil
}

func decodeValue(value, encoding string) ([]byte, error) {
	switch encoding {
	case "", "utf8", "text":
		return []byte(value), nil
	case "base64":
		return base64.StdEncoding.DecodeString(value)
	case "hex":
		return hex.DecodeString(value)
	default:
		return nil, fmt.Errorf("unknown value encoding %q", encoding)
	}
}

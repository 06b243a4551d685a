package scribes

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var headerLine = regexp.MustCompile(`^([A-Za-z0-9_-]+):\s*(.*)$`)
var continuationLine = regexp.MustCompile(`^(?: {4,}|\t)(.*)$`)

// splitFrontMatter separates document metadata from the markdown body. Two
// forms are understood: a YAML block fenced by "---" lines, and a leading
// block of "key: value" lines ended by a blank line. Keys are lower-cased.
func splitFrontMatter(doc []byte) (map[string]interface{}, []byte, error) {
	doc = bytes.TrimPrefix(doc, []byte("\xef\xbb\xbf"))
	normalized := bytes.ReplaceAll(doc, []byte("\r\n"), []byte("\n"))

	if bytes.HasPrefix(normalized, []byte("---\n")) {
		rest := normalized[4:]
		end := bytes.Index(rest, []byte("\n---"))
		if end >= 0 {
			raw := rest[:end+1]
			body := rest[end+4:]
			if nl := bytes.IndexByte(body, '\n'); nl >= 0 {
				body = body[nl+1:]
			} else {
				body = []byte{}
			}
			meta := make(map[string]interface{})
			if err := yaml.Unmarshal(raw, &meta); err != nil {
				return nil, nil, err
			}
			return lowerKeys(meta), body, nil
		}
	}

	return splitHeaderBlock(normalized)
}

func splitHeaderBlock(doc []byte) (map[string]interface{}, []byte, error) {
	meta := make(map[string]interface{})
	scanner := bufio.NewScanner(bytes.NewReader(doc))
	scanner.Buffer(make([]byte, 64*1024), len(doc)+1)

	consumed := 0
	lastKey := ""
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if len(meta) > 0 {
				consumed += len(line) + 1
			}
			break
		}
		if m := headerLine.FindStringSubmatch(line); m != nil {
			lastKey = strings.ToLower(m[1])
			appendMeta(meta, lastKey, strings.TrimSpace(m[2]))
		} else if m := continuationLine.FindStringSubmatch(line); m != nil && lastKey != "" {
			appendMeta(meta, lastKey, strings.TrimSpace(m[1]))
		} else {
			break
		}
		consumed += len(line) + 1
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}

	if len(meta) == 0 {
		return meta, doc, nil
	}
	if consumed > len(doc) {
		consumed = len(doc)
	}
	return meta, doc[consumed:], nil
}

// appendMeta stores repeated header keys as a list, single ones as a string.
func appendMeta(meta map[string]interface{}, key string, value string) {
	existing, ok := meta[key]
	if !ok {
		meta[key] = value
		return
	}
	switch e := existing.(type) {
	case []interface{}:
		meta[key] = append(e, value)
	default:
		meta[key] = []interface{}{e, value}
	}
}

func lowerKeys(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

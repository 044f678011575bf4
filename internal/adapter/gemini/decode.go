package gemini

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/user/scraper-service/internal/entity"
	"github.com/user/scraper-service/internal/repository"
)

// maxTags caps tag-like fields after normalization.
const maxTags = 5

var fenceRe = regexp.MustCompile("```(?:json)?")

// decodeFields recovers the JSON object from the model's raw text and maps
// it onto the requested field names. Missing fields read as the sentinel.
func decodeFields(raw string, fields []string) (map[string]string, error) {
	s := fenceRe.ReplaceAllString(strings.TrimSpace(raw), "")
	obj, ok := firstJSONObject(s)
	if !ok {
		return nil, repository.ErrMalformedJSON
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrMalformedJSON, err)
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		v := stringify(decoded[f])
		if v == "" {
			v = entity.Sentinel
		}
		if isTagField(f) {
			v = normalizeTags(v)
		}
		values[f] = v
	}
	return values, nil
}

// firstJSONObject isolates the first balanced-brace object in s. The
// scanner is string-aware so braces inside quoted values do not confuse it.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case float64:
		// JSON numbers; trim the trailing .0 the default formatting adds.
		s := strings.TrimSuffix(fmt.Sprintf("%v", t), ".0")
		return s
	case bool:
		if t {
			return "Yes"
		}
		return "No"
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func isTagField(name string) bool {
	return strings.Contains(strings.ToLower(name), "tag")
}

// normalizeTags comma-splits a tag string, deduplicates preserving first
// occurrence, and caps the count.
func normalizeTags(v string) string {
	if v == entity.Sentinel {
		return v
	}
	seen := make(map[string]struct{})
	var out []string
	for _, t := range strings.Split(v, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	if len(out) == 0 {
		return entity.Sentinel
	}
	return strings.Join(out, ", ")
}

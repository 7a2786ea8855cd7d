package vectorstore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const untitledDocument = "Untitled Document"

var (
	isoDatePattern    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	dottedDatePattern = regexp.MustCompile(`\b(\d{2})\.(\d{2})\.(\d{4})\b`)
	yearPattern       = regexp.MustCompile(`\b(19|20)\d{2}\b`)

	nowFunc = time.Now
)

// NormalizeMetadata returns a copy of meta that always carries id, title,
// document_type, created_at and status. Present non-empty values are kept as is,
// so applying it twice yields the same map.
func NormalizeMetadata(meta map[string]any) map[string]any {
	out := copyMap(meta)

	if !present(out, "id") {
		if v, ok := first(out, "document_id", "vector_id"); ok {
			out["id"] = v
		} else {
			out["id"] = uuid.NewSHA1(uuid.NameSpaceOID, []byte(str(out["text"]))).String()
		}
	}

	if !present(out, "title") {
		if v, ok := first(out, "name", "law_name", "file_name"); ok {
			out["title"] = v
		} else {
			out["title"] = untitledDocument
		}
	}

	if !present(out, "document_type") {
		switch {
		case present(out, "type"):
			out["document_type"] = str(out["type"])
		case present(out, "doc_type"):
			out["document_type"] = str(out["doc_type"])
		case present(out, "law_number") || present(out, "law_id") || present(out, "number"):
			out["document_type"] = "law"
		default:
			out["document_type"] = "other"
		}
	}

	if !present(out, "created_at") {
		out["created_at"] = createdAt(out)
	}

	if !present(out, "status") {
		if truthy(out["is_abolished"]) {
			out["status"] = "abolished"
		} else {
			out["status"] = "active"
		}
	}
	return out
}

func createdAt(meta map[string]any) string {
	for _, key := range []string{"date", "published_at"} {
		if !present(meta, key) {
			continue
		}
		if t, ok := meta[key].(time.Time); ok {
			return t.UTC().Format(time.RFC3339)
		}
		return str(meta[key])
	}
	for _, key := range []string{"name", "title", "file_name"} {
		if t, ok := dateFromText(str(meta[key])); ok {
			return t.Format(time.RFC3339)
		}
	}
	return nowFunc().UTC().Format(time.RFC3339)
}

func dateFromText(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse("2006-01-02", m[0]); err == nil {
			return t, true
		}
	}
	if m := dottedDatePattern.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse("02.01.2006", m[0]); err == nil {
			return t, true
		}
	}
	if m := yearPattern.FindString(s); m != "" {
		year, _ := strconv.Atoi(m)
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func present(meta map[string]any, key string) bool {
	v, ok := meta[key]
	return ok && v != nil && strings.TrimSpace(str(v)) != ""
}

func first(meta map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if present(meta, k) {
			return meta[k], true
		}
	}
	return nil, false
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(t)
		return err == nil && b
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/user/coffee-ingest/internal/entity"
)

// scrapedAtLayouts are tried in order. Timestamps without an offset are UTC.
var scrapedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

// topLevelKeys is the strict top-level schema, in reporting order.
var topLevelKeys = []string{
	"source", "roaster_domain", "scraped_at", "product",
	"normalization", "collector_meta", "collector_signals", "audit",
}

var isTopLevelKey = func() map[string]bool {
	m := make(map[string]bool, len(topLevelKeys))
	for _, k := range topLevelKeys {
		m[k] = true
	}
	return m
}()

// decoder runs the first validation phase: structural decoding. It keeps
// going after an error so every broken field is reported in one pass.
type decoder struct {
	errs []entity.FieldError
}

func (d *decoder) fail(category entity.ErrorCategory, path, msg string) {
	d.errs = append(d.errs, entity.FieldError{Category: category, Path: path, Message: msg})
}

func (d *decoder) decodeArtifact(doc map[string]json.RawMessage) *entity.Artifact {
	a := &entity.Artifact{}

	unknown := make([]string, 0)
	for k := range doc {
		if !isTopLevelKey[k] {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)
	for _, k := range unknown {
		d.fail(entity.CategoryInvalidValue, k, "unknown field")
	}

	for _, key := range topLevelKeys {
		raw, ok := doc[key]
		if !ok || isNull(raw) {
			continue
		}
		switch key {
		case "source":
			var s string
			if d.scalar(raw, &s, key) {
				a.Source = entity.Source(s)
			}
		case "roaster_domain":
			d.scalar(raw, &a.RoasterDomain, key)
		case "scraped_at":
			var s string
			if !d.scalar(raw, &s, key) {
				continue
			}
			ts, err := parseScrapedAt(s)
			if err != nil {
				d.fail(entity.CategoryInvalidValue, key, err.Error())
				continue
			}
			a.ScrapedAt = ts
		case "product":
			a.Product = d.decodeProduct(raw)
		case "normalization":
			n := &entity.Normalization{}
			if d.object(raw, n, key, nil) {
				a.Normalization = n
			}
		case "collector_meta":
			m := &entity.CollectorMeta{}
			if d.object(raw, m, key, nil) {
				a.CollectorMeta = m
			}
		case "collector_signals":
			s := &entity.CollectorSignals{}
			if d.object(raw, s, key, nil) {
				a.CollectorSignals = s
			}
		case "audit":
			au := &entity.Audit{}
			if d.object(raw, au, key, nil) {
				a.Audit = au
			}
		}
	}
	return a
}

func (d *decoder) decodeProduct(raw json.RawMessage) *entity.Product {
	p := &entity.Product{}
	nested := map[string]bool{"variants": true, "images": true}
	if !d.object(raw, p, "product", nested) {
		return nil
	}
	fields, _ := rawObject(raw)

	if v, ok := fields["variants"]; ok && !isNull(v) {
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			d.fail(entity.CategoryTypeMismatch, "product.variants", "expected array")
		} else {
			p.Variants = make([]entity.Variant, len(items))
			for i, item := range items {
				d.object(item, &p.Variants[i], fmt.Sprintf("product.variants[%d]", i), nil)
				if len(p.Variants[i].RawVariantJSON) == 0 {
					p.Variants[i].RawVariantJSON = append(json.RawMessage(nil), item...)
				}
			}
		}
	}
	if v, ok := fields["images"]; ok && !isNull(v) {
		var items []json.RawMessage
		if err := json.Unmarshal(v, &items); err != nil {
			d.fail(entity.CategoryTypeMismatch, "product.images", "expected array")
		} else {
			p.Images = make([]entity.Image, len(items))
			for i, item := range items {
				d.object(item, &p.Images[i], fmt.Sprintf("product.images[%d]", i), nil)
			}
		}
	}
	return p
}

// object decodes a lenient JSON object into dst field by field. Keys that
// are not declared on dst land in its Extra map; keys listed in skip are
// left for the caller. It reports false when raw is not an object.
func (d *decoder) object(raw json.RawMessage, dst any, path string, skip map[string]bool) bool {
	fields, err := rawObject(raw)
	if err != nil {
		d.fail(entity.CategoryTypeMismatch, path, "expected object")
		return false
	}

	rv := reflect.ValueOf(dst).Elem()
	index := jsonFields(rv.Type())

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var extra map[string]json.RawMessage
	for _, k := range keys {
		if skip[k] {
			continue
		}
		i, known := index[k]
		if !known {
			if extra == nil {
				extra = make(map[string]json.RawMessage)
			}
			extra[k] = fields[k]
			continue
		}
		if isNull(fields[k]) {
			continue
		}
		if err := json.Unmarshal(fields[k], rv.Field(i).Addr().Interface()); err != nil {
			d.errs = append(d.errs, decodeError(path+"."+k, err))
		}
	}
	if extra != nil {
		if f := rv.FieldByName("Extra"); f.IsValid() && f.CanSet() {
			f.Set(reflect.ValueOf(extra))
		}
	}
	return true
}

// scalar decodes a top-level scalar, recording a type mismatch on failure.
func (d *decoder) scalar(raw json.RawMessage, dst any, path string) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		d.errs = append(d.errs, decodeError(path, err))
		return false
	}
	return true
}

func decodeError(path string, err error) entity.FieldError {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		p := path
		if ute.Field != "" {
			p = path + "." + ute.Field
		}
		return entity.FieldError{
			Category: entity.CategoryTypeMismatch,
			Path:     p,
			Message:  fmt.Sprintf("expected %s, got %s", ute.Type, ute.Value),
		}
	}
	return entity.FieldError{Category: entity.CategoryTypeMismatch, Path: path, Message: err.Error()}
}

func parseScrapedAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range scrapedAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("not an ISO-8601 timestamp: %q", s)
}

func rawObject(raw json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("not a JSON object")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

var fieldCache sync.Map // reflect.Type -> map[string]int

// jsonFields maps JSON key to struct field index for a struct type.
func jsonFields(t reflect.Type) map[string]int {
	if cached, ok := fieldCache.Load(t); ok {
		return cached.(map[string]int)
	}
	m := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.Split(f.Tag.Get("json"), ",")[0]
		if name == "" || name == "-" || !f.IsExported() {
			continue
		}
		m[name] = i
	}
	fieldCache.Store(t, m)
	return m
}

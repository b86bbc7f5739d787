package buckaroo

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// SignatureKey is the reserved field carrying a request or response signature.
const SignatureKey = "brq_signature"

// Param is a single field of a parameter set.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter set. Wire order is insertion order; only
// signing uses the canonical order.
type Params []Param

// ParamsFromMap builds a parameter set from a map, ordered by key.
func ParamsFromMap(m map[string]string) Params {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	p := make(Params, 0, len(keys))
	for _, k := range keys {
		p = append(p, Param{Key: k, Value: m[k]})
	}
	return p
}

// Set appends a field, or replaces its value in place when the key already exists.
func (p *Params) Set(key string, value any) {
	v := formatValue(value)
	for i := range *p {
		if (*p)[i].Key == key {
			(*p)[i].Value = v
			return
		}
	}
	*p = append(*p, Param{Key: key, Value: v})
}

// Get returns the value stored under key.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Map returns the parameter set as a plain map.
func (p Params) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, kv := range p {
		m[kv.Key] = kv.Value
	}
	return m
}

// Clone returns an independent copy.
func (p Params) Clone() Params {
	return slices.Clone(p)
}

func formatValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// SortParams returns the parameters in canonical order: keys are lower-cased,
// split on '_' and compared segment by segment as plain strings, so
// brq_1_id < brq_10_id < brq_2_id. Original key case is preserved.
func SortParams(p Params) Params {
	sorted := p.Clone()
	slices.SortStableFunc(sorted, func(a, b Param) int {
		return slices.Compare(sortSegments(a.Key), sortSegments(b.Key))
	})
	return sorted
}

func sortSegments(key string) []string {
	segments := strings.Split(strings.ToLower(key), "_")
	for len(segments) > 0 && segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	return segments
}

func isSignatureKey(key string) bool {
	return strings.EqualFold(key, SignatureKey)
}

// CreateSignature computes the lower-case hex SHA-1 over the canonically
// ordered key=value pairs followed by the secret. Signature fields are never
// part of the input.
func CreateSignature(p Params, secret string) string {
	var b strings.Builder
	for _, kv := range SortParams(p) {
		if isSignatureKey(kv.Key) {
			continue
		}
		b.WriteString(kv.Key)
		b.WriteByte('=')
		b.WriteString(signingValue(kv.Value))
	}
	b.WriteString(secret)

	sum := sha1.Sum([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// signingValue returns the form-decoded value. The remote side signs decoded
// values, so an escaped value must never reach the digest.
func signingValue(v string) string {
	if !strings.ContainsAny(v, "+%") {
		return v
	}
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

// CheckSignature verifies the signature carried in p. The signature field is
// looked up case-insensitively and compared exactly.
func CheckSignature(p Params, secret string) bool {
	signature, ok := lookupSignature(p)
	if !ok {
		return false
	}
	expected := CreateSignature(p, secret)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}

func lookupSignature(p Params) (string, bool) {
	for _, kv := range p {
		if isSignatureKey(kv.Key) {
			return kv.Value, true
		}
	}
	return "", false
}

// CreatePostData form-encodes p in insertion order and appends the signature
// as the final field.
func CreatePostData(p Params, signature string) string {
	pairs := make([]string, 0, len(p))
	for _, kv := range p {
		pairs = append(pairs, url.QueryEscape(kv.Key)+"="+url.QueryEscape(kv.Value))
	}
	return strings.Join(pairs, "&") + "&" + SignatureKey + "=" + signature
}

// DowncaseKeys returns a copy of m with lower-cased keys.
func DowncaseKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}

// splitQuery splits a form-encoded body into pairs. Keys are decoded, values
// are kept as sent so signing decodes them exactly once. Duplicate keys keep
// the last value.
func splitQuery(body string) (Params, error) {
	var p Params
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", rawKey, err)
		}
		p.Set(key, rawValue)
	}
	return p, nil
}

// parseQuery decodes a form-encoded body. Duplicate keys keep the last value.
func parseQuery(body string) (Params, error) {
	p, err := splitQuery(body)
	if err != nil {
		return nil, err
	}
	return unescapeValues(p)
}

func unescapeValues(raw Params) (Params, error) {
	p := raw.Clone()
	for i := range p {
		value, err := url.QueryUnescape(p[i].Value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %q: %w", p[i].Key, err)
		}
		p[i].Value = value
	}
	return p, nil
}

// escapeValues form-encodes values of already decoded fields.
func escapeValues(p Params) Params {
	escaped := p.Clone()
	for i := range escaped {
		escaped[i].Value = url.QueryEscape(escaped[i].Value)
	}
	return escaped
}

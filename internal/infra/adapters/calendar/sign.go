package calendar

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Signer produces the deterministic request hash the calendar's create
// endpoint requires: object keys sorted at every nesting level, key=value
// pairs concatenated, shared secret appended, md5 hex over the result.
type Signer struct {
	secret string
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: secret}
}

// Sign canonicalizes any JSON-marshalable payload and hashes it. Two deeply
// equal payloads sign identically regardless of key insertion order.
func (s *Signer) Sign(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("sign: marshal payload: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return "", fmt.Errorf("sign: decode payload: %w", err)
	}
	sum := md5.Sum([]byte(canonical(v) + s.secret))
	return hex.EncodeToString(sum[:]), nil
}

// canonical renders a decoded JSON value. Objects sort their keys; arrays
// keep their order and contribute index=value pairs; primitives render as
// their JSON text.
func canonical(v interface{}) string {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := ""
		for _, k := range keys {
			out += k + "=" + canonical(t[k])
		}
		return out
	case []interface{}:
		out := ""
		for i, e := range t {
			out += strconv.Itoa(i) + "=" + canonical(e)
		}
		return out
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", t)
	}
}

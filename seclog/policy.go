package seclog

import "strings"

// Redacted replaces every value the policy classifies as sensitive.
const Redacted = "[REDACTED]"

const (
	defaultMaxDepth = 8
	maxMaxDepth     = 16

	// tokenMinLen is the length above which an opaque string of token
	// characters is treated as secret material regardless of field name.
	tokenMinLen = 20
)

// defaultMarkers are matched as case-insensitive substrings of field names.
var defaultMarkers = []string{
	"password",
	"passphrase",
	"token",
	"secret",
	"credential",
	"authorization",
	"session",
	"apikey",
	"api_key",
	"cookie",
}

/*
==========================================
POLICY
==========================================
*/

// PolicyConfig configures a classification policy.
type PolicyConfig struct {
	// ExtraFields are appended to the built-in field markers.
	ExtraFields []string

	// MaxDepth bounds the redaction walk. 0 means the default of 8.
	MaxDepth int
}

// Policy decides which fields and values count as sensitive. A nil or
// zero-value policy behaves like the default one.
type Policy struct {
	markers  []string
	maxDepth int
}

// NewPolicy builds a policy from cfg, applying defaults for zero fields.
func NewPolicy(cfg PolicyConfig) *Policy {
	depth := cfg.MaxDepth
	if depth <= 0 {
		depth = defaultMaxDepth
	}
	if depth > maxMaxDepth {
		depth = maxMaxDepth
	}

	markers := make([]string, 0, len(defaultMarkers)+len(cfg.ExtraFields))
	seen := make(map[string]struct{}, len(defaultMarkers)+len(cfg.ExtraFields))
	for _, m := range defaultMarkers {
		markers = append(markers, m)
		seen[m] = struct{}{}
	}
	for _, m := range cfg.ExtraFields {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		markers = append(markers, m)
	}

	return &Policy{markers: markers, maxDepth: depth}
}

func (p *Policy) depth() int {
	if p == nil || p.maxDepth <= 0 {
		return defaultMaxDepth
	}
	return p.maxDepth
}

func (p *Policy) fieldMarkers() []string {
	if p == nil || len(p.markers) == 0 {
		return defaultMarkers
	}
	return p.markers
}

// SensitiveField reports whether a field name alone marks its value as
// sensitive. Matching is by case-insensitive substring, so "userPassword"
// and "X-Authorization" both match.
func (p *Policy) SensitiveField(name string) bool {
	if name == "" {
		return false
	}
	lower := strings.ToLower(name)
	for _, m := range p.fieldMarkers() {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// SensitiveValue reports whether a value is sensitive on shape alone.
// Strings longer than 20 characters made up entirely of base64url-style
// token characters match; everything else does not.
func (p *Policy) SensitiveValue(v any) bool {
	switch s := v.(type) {
	case string:
		return tokenShaped(s)
	case []byte:
		return tokenShaped(string(s))
	}
	return false
}

// Classify reports whether the (name, value) pair must be redacted: the
// field name matches, the value is token-shaped, or the value is a mapping
// that contains a sensitive field somewhere within the depth bound.
func (p *Policy) Classify(name string, v any) bool {
	if p.SensitiveField(name) || p.SensitiveValue(v) {
		return true
	}
	return p.containsSensitive(v, 0)
}

func (p *Policy) containsSensitive(v any, depth int) bool {
	if depth >= p.depth() {
		return false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return false
	}
	for k, val := range m {
		if p.SensitiveField(k) || p.SensitiveValue(val) {
			return true
		}
		if p.containsSensitive(val, depth+1) {
			return true
		}
	}
	return false
}

// tokenShaped matches opaque credential material: API keys, JWT segments,
// base64 blobs. The character set covers standard and URL-safe base64.
func tokenShaped(s string) bool {
	if len(s) <= tokenMinLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '+' || c == '/' || c == '=' || c == '_' || c == '-':
		default:
			return false
		}
	}
	return true
}

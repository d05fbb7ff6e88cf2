// Package privacy derives the pseudonymous values the contact pipeline is
// allowed to keep: keyed hashes of client IPs and requester emails, a bounded
// user agent, and coarse summaries for audit payloads.
package privacy

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/mssola/useragent"
	"golang.org/x/crypto/blake2b"
)

// MaxUserAgentLength is the number of runes of User-Agent kept on a record.
const MaxUserAgentLength = 200

// Hasher produces keyed BLAKE2b-256 digests. Without the key the digests
// cannot be reversed by enumerating the IPv4 space.
type Hasher struct {
	key []byte
}

// NewHasher builds a hasher from a configured salt. Salts longer than the
// BLAKE2b key limit are first reduced with an unkeyed digest.
func NewHasher(salt string) *Hasher {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return &Hasher{key: key}
}

func (h *Hasher) sum(value string) string {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// key length is bounded in NewHasher
		panic(err)
	}
	mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}

// HashIP returns the rate-limit and audit identifier for a client address.
func (h *Hasher) HashIP(ip string) string {
	return h.sum("ip:" + strings.TrimSpace(ip))
}

// HashIdentifier returns a stable digest of a data subject's email, used in
// export and erasure audit events in place of the address itself.
func (h *Hasher) HashIdentifier(email string) string {
	return h.sum("subject:" + NormalizeEmail(email))
}

// NormalizeEmail lowercases and trims an address so lookups by the data
// subject match what was stored.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the part after the last "@", or "" when there is none.
func EmailDomain(email string) string {
	i := strings.LastIndexByte(email, '@')
	if i < 0 || i == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[i+1:])
}

// TruncateUserAgent bounds the stored User-Agent and substitutes "unknown"
// for an empty header.
func TruncateUserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return "unknown"
	}
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	return string([]rune(ua)[:MaxUserAgentLength])
}

// AgentSummary is the coarse client description recorded in audit payloads.
type AgentSummary struct {
	Browser string `json:"browser"`
	OS      string `json:"os"`
	Mobile  bool   `json:"mobile"`
	Bot     bool   `json:"bot"`
}

// DescribeUserAgent parses a User-Agent into browser family and OS only.
// Versions beyond the major number are dropped to limit fingerprinting.
func DescribeUserAgent(ua string) AgentSummary {
	if strings.TrimSpace(ua) == "" {
		return AgentSummary{Browser: "unknown", OS: "unknown"}
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	if major, _, ok := strings.Cut(version, "."); ok {
		version = major
	}
	browser := strings.TrimSpace(name + " " + version)
	if browser == "" {
		browser = "unknown"
	}
	os := parsed.OSInfo().Name
	if os == "" {
		os = "unknown"
	}
	return AgentSummary{
		Browser: browser,
		OS:      os,
		Mobile:  parsed.Mobile(),
		Bot:     parsed.Bot(),
	}
}

package models

import "strings"

// KeyPrefix namespaces bucket keys by the kind of identifier.
type KeyPrefix string

const KeyPrefixIP KeyPrefix = "ip"

// RateLimitKey identifies one bucket: prefix, identifier and endpoint class.
type RateLimitKey struct {
	Prefix     KeyPrefix
	Identifier string
	Class      EndpointClass
}

func NewRateLimitKey(prefix KeyPrefix, identifier string, class EndpointClass) RateLimitKey {
	return RateLimitKey{Prefix: prefix, Identifier: identifier, Class: class}
}

// String renders "prefix:identifier:class" with the identifier sanitized.
func (k RateLimitKey) String() string {
	return string(k.Prefix) + ":" + SanitizeKeySegment(k.Identifier) + ":" + string(k.Class)
}

// SanitizeKeySegment escapes the ':' delimiter so a crafted identifier such
// as an IPv6 literal or "1.2.3.4:otp" cannot land in another bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

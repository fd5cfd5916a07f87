// Package rdns implements a small recursive DNS resolver: given a
// question, it walks the name server hierarchy starting at a root hint,
// following delegations until it reaches an authoritative answer or a
// negative answer, and caches the result.
package rdns

import (
	"strings"

	"github.com/miekg/dns"
)

// Question is a single DNS question: a name, a record type, and a class.
// Class is always IN in practice; other classes are accepted and carried
// through opaquely.
type Question struct {
	Name  string
	Type  uint16
	Class uint16
}

// QuestionFromDNS converts a miekg/dns question into a Question.
func QuestionFromDNS(q dns.Question) Question {
	return Question{
		Name:  dns.CanonicalName(q.Name),
		Type:  q.Qtype,
		Class: q.Qclass,
	}
}

// ToDNS converts a Question back into a miekg/dns question.
func (q Question) ToDNS() dns.Question {
	return dns.Question{
		Name:   q.Name,
		Qtype:  q.Type,
		Qclass: q.Class,
	}
}

// String returns a human-readable representation, e.g. "example.com. A IN".
func (q Question) String() string {
	return q.Name + " " + dns.TypeToString[q.Type] + " " + dns.ClassToString[q.Class]
}

// CacheKey returns the canonical form of q, suitable as a map key: qname
// lower-cased label-wise (via dns.CanonicalName), qtype and qclass exact.
func (q Question) CacheKey() CacheKey {
	return CacheKey{
		name:  strings.ToLower(dns.CanonicalName(q.Name)),
		qtype: q.Type,
		class: q.Class,
	}
}

// CacheKey is the canonical, comparable form of a Question, usable directly
// as a Go map key.
type CacheKey struct {
	name  string
	qtype uint16
	class uint16
}

func (k CacheKey) String() string {
	return k.name + " " + dns.TypeToString[k.qtype] + " " + dns.ClassToString[k.class]
}

// endsWith reports whether name is equal to or a subdomain of suffix,
// case-insensitively, per the DNS zone-cut test used throughout the
// resolution engine.
func endsWith(name, suffix string) bool {
	name = strings.ToLower(dns.CanonicalName(name))
	suffix = strings.ToLower(dns.CanonicalName(suffix))

	if suffix == "." {
		return true
	}

	return name == suffix || strings.HasSuffix(name, "."+suffix)
}

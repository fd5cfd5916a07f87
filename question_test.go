package rdns

import (
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
)

func TestQuestionFromDNS(t *testing.T) {
	t.Parallel()

	q := QuestionFromDNS(dns.Question{Name: "Example.COM.", Qtype: dns.TypeA, Qclass: dns.ClassINET})

	assert.Equal(t, "example.com.", q.Name)
	assert.Equal(t, uint16(dns.TypeA), q.Type)
	assert.Equal(t, uint16(dns.ClassINET), q.Class)
}

func TestQuestion_ToDNS(t *testing.T) {
	t.Parallel()

	q := Question{Name: "example.com.", Type: dns.TypeA, Class: dns.ClassINET}

	assert.Equal(t, dns.Question{Name: "example.com.", Qtype: dns.TypeA, Qclass: dns.ClassINET}, q.ToDNS())
}

func TestQuestion_CacheKey(t *testing.T) {
	t.Parallel()

	a := Question{Name: "Example.COM.", Type: dns.TypeA, Class: dns.ClassINET}
	b := Question{Name: "example.com.", Type: dns.TypeA, Class: dns.ClassINET}

	assert.Equal(t, a.CacheKey(), b.CacheKey())

	c := Question{Name: "example.com.", Type: dns.TypeNS, Class: dns.ClassINET}
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())
}

func TestEndsWith(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, suffix string
		want         bool
	}{
		{"www.example.com.", "example.com.", true},
		{"example.com.", "example.com.", true},
		{"EXAMPLE.com.", "example.COM.", true},
		{"notexample.com.", "example.com.", false},
		{"example.com.", "www.example.com.", false},
		{"anything.", ".", true},
	}

	for _, c := range cases {
		got := endsWith(c.name, c.suffix)
		assert.Equalf(t, c.want, got, "endsWith(%q, %q)", c.name, c.suffix)
	}
}

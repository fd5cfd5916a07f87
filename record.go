package rdns

import (
	"net"

	"github.com/miekg/dns"
)

// RData is a DNS record's type-specific data. The resolver only interprets
// two variants — address and name-server records — and carries everything
// else opaquely, per the "dynamic dispatch over record variants" design
// note: the reply assembler needs only record-level serialization, not
// per-type logic beyond the A/NS distinction the resolution engine itself
// relies on.
type RData interface {
	rdata()
}

// ARecord is an IPv4 address record.
type ARecord struct {
	Addr net.IP
}

func (ARecord) rdata() {}

// NSRecord names a delegated name server.
type NSRecord struct {
	Target string
}

func (NSRecord) rdata() {}

// OtherRecord carries a record type the resolver does not interpret,
// verbatim as returned by the wire codec.
type OtherRecord struct {
	Type uint16
	RR   dns.RR
}

func (OtherRecord) rdata() {}

// Record is a single resource record: owner name, type, class, TTL and
// type-specific data.
type Record struct {
	Owner string
	Type  uint16
	Class uint16
	TTL   uint32
	Data  RData
}

// RecordFromRR converts a miekg/dns resource record into a Record.
func RecordFromRR(rr dns.RR) Record {
	hdr := rr.Header()
	rec := Record{
		Owner: hdr.Name,
		Type:  hdr.Rrtype,
		Class: hdr.Class,
		TTL:   hdr.Ttl,
	}

	switch rr := rr.(type) {
	case *dns.A:
		rec.Data = ARecord{Addr: rr.A}
	case *dns.NS:
		rec.Data = NSRecord{Target: rr.Ns}
	default:
		rec.Data = OtherRecord{Type: hdr.Rrtype, RR: rr}
	}

	return rec
}

// recordsFromRRs converts a slice of wire records to Records, preserving
// order.
func recordsFromRRs(rrs []dns.RR) []Record {
	if len(rrs) == 0 {
		return nil
	}

	out := make([]Record, len(rrs))
	for i, rr := range rrs {
		out[i] = RecordFromRR(rr)
	}

	return out
}

// candidateNS returns, in order, the NS records among authority whose owner
// is a suffix of qname — the zone-cut check used by next-server selection.
func candidateNS(authority []dns.RR, qname string) []NSRecord {
	var out []NSRecord

	for _, rr := range authority {
		ns, ok := rr.(*dns.NS)
		if !ok {
			continue
		}
		if !endsWith(qname, ns.Header().Name) {
			continue
		}
		out = append(out, NSRecord{Target: ns.Ns})
	}

	return out
}

// glueFor scans additional for the first A record whose owner equals one of
// the given candidate name-server names, in additional-section order.
func glueFor(additional []dns.RR, names []NSRecord) (net.IP, bool) {
	wanted := make(map[string]bool, len(names))
	for _, ns := range names {
		wanted[dns.CanonicalName(ns.Target)] = true
	}

	for _, rr := range additional {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		if wanted[dns.CanonicalName(a.Header().Name)] {
			return a.A, true
		}
	}

	return nil, false
}

// answerAddrs returns every A record's address found in msg's answer section.
func answerAddrs(msg *dns.Msg) []net.IP {
	var addrs []net.IP

	for _, rr := range msg.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A)
		}
	}

	return addrs
}

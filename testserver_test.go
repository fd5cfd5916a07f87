package rdns

import (
	"net"
	"strings"
	"testing"

	"github.com/miekg/dns"
)

// testPort is the fixed, unprivileged port every fake server in this package
// listens on, rather than the real protocol port 53. A Resolver under test
// sets Port to testPort so every next-hop address it builds from glue or a
// sub-resolution answer actually reaches one of these loopback servers.
const testPort = "15354"

// newFakeServer starts a minimal authoritative UDP name server on addr:
// parse an RFC 1035 zonefile into an in-memory RRset table and answer
// exactly what is asked for (NOERROR+answer, NXDOMAIN, or a referral via NS
// + matching glue), nothing more. The server is shut down automatically
// when the test finishes.
func newFakeServer(t *testing.T, addr, zone string) {
	t.Helper()

	db := parseZone(t, zone)

	ln, err := net.ListenPacket("udp", net.JoinHostPort(addr, testPort))
	if err != nil {
		t.Fatalf("listen on %s: %v", addr, err)
	}

	srv := &dns.Server{
		PacketConn: ln,
		Handler:    fakeHandler(db),
	}

	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
}

// newCountingFakeServer behaves like newFakeServer but increments *hits for
// every query it receives, so tests can assert a cache hit issued zero
// upstream packets.
func newCountingFakeServer(t *testing.T, addr string, hits *int, zone string) {
	t.Helper()

	db := parseZone(t, zone)
	inner := fakeHandler(db)

	ln, err := net.ListenPacket("udp", net.JoinHostPort(addr, testPort))
	if err != nil {
		t.Fatalf("listen on %s: %v", addr, err)
	}

	srv := &dns.Server{
		PacketConn: ln,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			*hits++
			inner.ServeDNS(w, req)
		}),
	}

	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
}

// newSelfReferralServer starts a fake server that always refers name to
// itself, for exercising hop-cap exhaustion: the delegation never
// terminates on its own.
func newSelfReferralServer(t *testing.T, addr, name string) {
	t.Helper()

	ln, err := net.ListenPacket("udp", net.JoinHostPort(addr, testPort))
	if err != nil {
		t.Fatalf("listen on %s: %v", addr, err)
	}

	srv := &dns.Server{
		PacketConn: ln,
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
			m := new(dns.Msg)
			m.SetRcode(req, dns.RcodeSuccess)

			ns, _ := dns.NewRR(name + " 300 IN NS ns1." + name)
			glue, _ := dns.NewRR("ns1." + name + " 300 IN A " + addr)
			m.Ns = []dns.RR{ns}
			m.Extra = []dns.RR{glue}

			w.WriteMsg(m)
		}),
	}

	go srv.ActivateAndServe()
	t.Cleanup(func() { srv.Shutdown() })
}

func parseZone(t *testing.T, zone string) map[uint16]map[string][]dns.RR {
	t.Helper()

	db := map[uint16]map[string][]dns.RR{}

	zp := dns.NewZoneParser(strings.NewReader(strings.TrimSpace(zone)+"\n"), ".", "test.zone")
	zp.SetIncludeAllowed(false)
	for {
		rr, ok := zp.Next()
		if !ok {
			break
		}
		if db[rr.Header().Rrtype] == nil {
			db[rr.Header().Rrtype] = map[string][]dns.RR{}
		}
		db[rr.Header().Rrtype][rr.Header().Name] = append(db[rr.Header().Rrtype][rr.Header().Name], rr)
	}
	if err := zp.Err(); err != nil {
		t.Fatalf("parsing test zone: %v", err)
	}

	return db
}

func fakeHandler(db map[uint16]map[string][]dns.RR) dns.Handler {
	return dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		m := new(dns.Msg)

		if len(req.Question) != 1 {
			m.SetRcode(req, dns.RcodeFormatError)
			w.WriteMsg(m)
			return
		}

		q := req.Question[0]

		answers := db[q.Qtype][q.Name]
		if len(answers) > 0 {
			m.SetRcode(req, dns.RcodeSuccess)
			m.Authoritative = true
			m.Answer = answers
			w.WriteMsg(m)
			return
		}

		// No direct answer: look for NS records covering the name,
		// longest match first, and attach glue only for in-bailiwick NS
		// names (NS name is itself under the delegated owner) — exactly
		// the real-world rule that out-of-bailiwick NS targets never get
		// automatic glue, which is what makes scenario 4 (no-glue
		// sub-resolution) distinguishable from scenario 3 (glue-follow)
		// even when both NS targets happen to have an A record in db.
		if owner, ns := closestNS(db, q.Name); ns != nil {
			m.SetRcode(req, dns.RcodeSuccess)
			m.Ns = ns
			for _, rr := range ns {
				nsRR, ok := rr.(*dns.NS)
				if !ok || !endsWith(nsRR.Ns, owner) {
					continue
				}
				m.Extra = append(m.Extra, db[dns.TypeA][nsRR.Ns]...)
			}
			w.WriteMsg(m)
			return
		}

		m.SetRcode(req, dns.RcodeNameError)
		w.WriteMsg(m)
	})
}

// closestNS returns the owner name and NS RRset for the longest owner name
// in db that is a suffix of qname, or ("", nil) if there is none.
func closestNS(db map[uint16]map[string][]dns.RR, qname string) (string, []dns.RR) {
	var (
		bestOwner string
		best      []dns.RR
		bestLen   = -1
	)

	for owner, rrs := range db[dns.TypeNS] {
		if !endsWith(qname, owner) {
			continue
		}
		if len(owner) > bestLen {
			bestOwner = owner
			best = rrs
			bestLen = len(owner)
		}
	}

	return bestOwner, best
}

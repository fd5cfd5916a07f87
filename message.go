package rdns

import (
	"encoding/binary"

	"github.com/miekg/dns"
)

// This file is the thin, resolver-specific surface over
// github.com/miekg/dns: decode, reply assembly, and the IN-class record
// filter a reply must apply before it reaches the client.

// decodeMessage parses a datagram into a *dns.Msg.
func decodeMessage(b []byte) (*dns.Msg, error) {
	m := new(dns.Msg)
	if err := m.Unpack(b); err != nil {
		return nil, err
	}
	return m, nil
}

// soleQuestion returns the request's single question, or false if the
// request does not carry exactly one.
func soleQuestion(m *dns.Msg) (dns.Question, bool) {
	if len(m.Question) != 1 {
		return dns.Question{}, false
	}
	return m.Question[0], true
}

// inClassRecords filters rrs down to well-typed, class-IN records,
// preserving order. Records of other classes, or of a type the codec
// failed to parse, are silently dropped — matching §4.4 step 4's
// "filtering to well-typed IN-class records ... unparseable records are
// silently dropped".
func inClassRecords(rrs []dns.RR) []dns.RR {
	var out []dns.RR

	for _, rr := range rrs {
		if rr == nil {
			continue
		}
		if rr.Header().Class != dns.ClassINET {
			continue
		}
		out = append(out, rr)
	}

	return out
}

// buildReply scopes a reply to request with the given rcode, copying
// answer/authority/additional from result (if non-nil) through
// inClassRecords, in section order, per §4.4 step 4.
func buildReply(request *dns.Msg, rcode int, result *dns.Msg) *dns.Msg {
	reply := new(dns.Msg)
	reply.SetRcode(request, rcode)

	if result == nil {
		return reply
	}

	reply.Answer = inClassRecords(result.Answer)
	reply.Ns = inClassRecords(result.Ns)
	reply.Extra = inClassRecords(result.Extra)

	return reply
}

// formErrReplyForUndecodable synthesizes a FormErr reply for a datagram
// that failed to unpack at all. DNS headers are fixed-size and lead the
// message, so the id and RD flag can usually still be recovered even when
// the rest of the packet is garbage, so a reply can still mirror the
// request id and flags even for a too-short or malformed request.
func formErrReplyForUndecodable(raw []byte) *dns.Msg {
	reply := new(dns.Msg)
	reply.Response = true
	reply.Opcode = dns.OpcodeQuery
	reply.Rcode = dns.RcodeFormatError

	if len(raw) >= 2 {
		reply.Id = binary.BigEndian.Uint16(raw[0:2])
	}
	if len(raw) >= 3 {
		reply.RecursionDesired = raw[2]&0x01 != 0
		reply.Opcode = int(raw[2]>>3) & 0xF
	}

	return reply
}

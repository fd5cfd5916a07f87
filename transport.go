package rdns

import (
	"context"

	"github.com/miekg/dns"
)

// Transport sends a single recursive-desired query to a name server and
// waits for one reply.
type Transport struct {
	// Timeout determines the per-query deadline. If nil,
	// DefaultTimeoutPolicy is used.
	Timeout TimeoutPolicy

	// client is overridable in tests; defaults to a *dns.Client with UDP
	// and a 512-byte reply budget (no EDNS(0)).
	client *dns.Client
}

// NewTransport returns a Transport using the given TimeoutPolicy, or
// DefaultTimeoutPolicy if nil.
func NewTransport(timeout TimeoutPolicy) *Transport {
	return &Transport{
		Timeout: timeout,
		client: &dns.Client{
			Net:     "udp",
			UDPSize: 512,
		},
	}
}

// Query builds a standard recursive-desired query for question, sends it to
// serverAddr (host:port) over UDP, and returns the single decoded reply.
//
// A fresh random transaction ID is used for every call (dns.Msg.SetQuestion
// assigns one); github.com/miekg/dns's client rejects a reply whose ID does
// not match before returning it, closing the transaction-id validation gap
// by relying on the wire-codec library rather than re-implementing ID
// matching here.
func (t *Transport) Query(ctx context.Context, question Question, serverAddr string) (*dns.Msg, error) {
	policy := t.Timeout
	if policy == nil {
		policy = DefaultTimeoutPolicy()
	}

	if d := policy(serverAddr); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	m := new(dns.Msg)
	m.SetQuestion(question.Name, question.Type)
	m.Question[0].Qclass = question.Class
	m.RecursionDesired = true

	client := t.client
	if client == nil {
		client = &dns.Client{Net: "udp", UDPSize: 512}
	}

	resp, _, err := client.ExchangeContext(ctx, m, serverAddr)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &TransportError{Kind: Timeout, Err: ctx.Err()}
		}
		return nil, &TransportError{Kind: SocketError, Err: err}
	}

	return resp, nil
}

// queryUpstream is a package-level convenience used by the resolver so it
// doesn't have to carry a *Transport through every call in tests that don't
// care about timeout policy.
func queryUpstream(ctx context.Context, t *Transport, question Question, serverAddr string) (*dns.Msg, error) {
	if t == nil {
		t = NewTransport(nil)
	}
	return t.Query(ctx, question, serverAddr)
}

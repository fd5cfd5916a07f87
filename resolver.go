package rdns

import (
	"context"
	"math/rand"
	"net"
	"time"

	"github.com/miekg/dns"

	"rdns/cache"
)

// RootNameServer is the hardcoded root hint: a.root-servers.net. No hint
// file is loaded from the host.
const RootNameServer = "198.41.0.4:53"

// DefaultMaxHops bounds the number of iterative delegation steps a single
// resolution may take before its last reply is returned as terminal.
const DefaultMaxHops = 16

// DefaultMaxSubResolutionDepth bounds how many nested sub-resolutions
// (glue-less NS name lookups) may stack before giving up on following a
// referral.
const DefaultMaxSubResolutionDepth = 8

// defaultNegativeTTL is used to cache a terminal reply that carries no TTL
// information of its own (for instance an NXDOMAIN with an empty authority
// section), applying the same fixed negative-cache duration whether the
// reply was NXDOMAIN or merely TTL-less.
const defaultNegativeTTL = 5 * time.Minute

// Logger receives human-readable progress lines. Resolver logs the question
// under resolution and the chosen next server; Handler logs per-query
// failures. Both default to a no-op if nil.
type Logger func(format string, args ...interface{})

// Resolver drives the iterative root-to-authority walk.
//
// A Resolver is safe for concurrent use only in the sense that its fields
// must not change after any call to Resolve has started: only one
// resolution is expected to be in flight at a time.
type Resolver struct {
	// Transport sends upstream queries. If nil, NewTransport(nil) is used.
	Transport *Transport

	// Cache stores terminal top-level replies. If nil, caching is
	// effectively disabled (Resolve still succeeds, just never hits or
	// populates a cache).
	Cache *cache.Cache

	// Root is the starting name server for a fresh resolution. Defaults
	// to RootNameServer.
	Root string

	// Port is the port assumed for any server address learned from glue
	// or a sub-resolution. The real protocol constant is 53; this field
	// exists so tests can point resolution at loopback servers listening
	// on an unprivileged port. Defaults to "53".
	Port string

	// MaxHops and MaxSubResolutionDepth bound the iterative walk and its
	// nested sub-resolutions respectively, guaranteeing termination even
	// against a pair of name servers that delegate to each other forever.
	// Zero means use the package defaults.
	MaxHops               int
	MaxSubResolutionDepth int

	// Rand selects uniformly among sub-resolution A answers, for simple
	// load balancing across authorities. Defaults to a process-seeded
	// source; tests inject a deterministic one.
	Rand *rand.Rand

	// Log receives resolution progress lines. Optional.
	Log Logger
}

// New returns a Resolver starting its walk at RootNameServer, with default
// hop/depth caps and a process-seeded RNG.
func New() *Resolver {
	return &Resolver{
		Transport:             NewTransport(nil),
		Root:                  RootNameServer,
		MaxHops:               DefaultMaxHops,
		MaxSubResolutionDepth: DefaultMaxSubResolutionDepth,
		Rand:                  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *Resolver) log(format string, args ...interface{}) {
	if r.Log != nil {
		r.Log(format, args...)
	}
}

func (r *Resolver) root() string {
	if r.Root != "" {
		return r.Root
	}
	return RootNameServer
}

func (r *Resolver) port() string {
	if r.Port != "" {
		return r.Port
	}
	return "53"
}

func (r *Resolver) maxHops() int {
	if r.MaxHops > 0 {
		return r.MaxHops
	}
	return DefaultMaxHops
}

func (r *Resolver) maxDepth() int {
	if r.MaxSubResolutionDepth > 0 {
		return r.MaxSubResolutionDepth
	}
	return DefaultMaxSubResolutionDepth
}

func (r *Resolver) rng() *rand.Rand {
	if r.Rand != nil {
		return r.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Resolve walks the hierarchy for question starting at the root hint, and
// returns the terminal upstream reply.
//
// If useCache is true, a cache hit short-circuits the walk entirely, and a
// successful terminal result is inserted into the cache keyed on
// question's canonical form. Sub-resolutions (triggered internally while
// following a glue-less referral) do not go through Resolve: they call the
// iterative walk directly and so never read or populate the cache.
func (r *Resolver) Resolve(ctx context.Context, question Question, useCache bool) (*dns.Msg, error) {
	key := question.CacheKey()

	if useCache && r.Cache != nil {
		if msg, ok := r.Cache.Get(cache.Key{Name: key.name, Type: key.qtype, Class: key.class}); ok {
			return msg, nil
		}
	}

	msg, err := r.resolveIteratively(ctx, question, 0)
	if err != nil {
		return nil, err
	}

	if useCache && r.Cache != nil && successfulTerminal(msg) {
		ttl := cache.MinimumTTL(msg.Answer, msg.Ns)
		if ttl <= 0 {
			ttl = defaultNegativeTTL
		}
		r.Cache.Put(cache.Key{Name: key.name, Type: key.qtype, Class: key.class}, msg, ttl)
	}

	return msg, nil
}

// successfulTerminal reports whether msg is an authoritative answer or an
// authoritative NXDOMAIN — the only terminal outcomes worth caching. An
// un-followable referral (empty candidate NS set, missing glue with a
// failed or empty sub-resolution) or a reply surfaced by hop/depth
// exhaustion must not be cached: it is not an answer to the question, and
// caching it would pin that non-answer under the question for its
// authority records' TTL instead of letting the next query retry.
func successfulTerminal(msg *dns.Msg) bool {
	if msg.Rcode == dns.RcodeNameError {
		return true
	}
	return msg.Rcode == dns.RcodeSuccess && len(msg.Answer) > 0
}

// resolveIteratively issues a query, classifies the reply, follows the
// next server, or stops.
func (r *Resolver) resolveIteratively(ctx context.Context, question Question, depth int) (*dns.Msg, error) {
	server := r.root()

	var last *dns.Msg

	for hop := 0; hop < r.maxHops(); hop++ {
		reply, err := queryUpstream(ctx, r.Transport, question, server)
		if err != nil {
			return nil, &ResolveError{Question: question, Err: err}
		}

		r.log("resolving %s @%s -> rcode=%s answers=%d authority=%d",
			question, server, dns.RcodeToString[reply.Rcode], len(reply.Answer), len(reply.Ns))

		last = reply

		terminal, next, err := r.nextServer(ctx, question, reply, depth)
		if err != nil {
			return nil, err
		}
		if terminal {
			return reply, nil
		}

		server = next
	}

	// Hop cap exhausted: return the last reply as terminal rather than
	// error, so the client still sees a defined rcode.
	r.log("resolving %s: %v, returning last reply as terminal", question, ErrTooManyHops)
	return last, nil
}

// nextServer classifies reply and picks the next server to query. It
// never returns (false, "", nil) without an address: the postcondition is
// terminal=true, or terminal=false with a non-empty next.
func (r *Resolver) nextServer(ctx context.Context, question Question, reply *dns.Msg, depth int) (terminal bool, next string, err error) {
	if reply.Rcode == dns.RcodeSuccess && len(reply.Answer) > 0 {
		return true, "", nil
	}

	if reply.Rcode == dns.RcodeNameError {
		return true, "", nil
	}

	candidates := candidateNS(reply.Ns, question.Name)
	if len(candidates) == 0 {
		return true, "", nil
	}

	if addr, ok := glueFor(reply.Extra, candidates); ok {
		return false, net.JoinHostPort(addr.String(), r.port()), nil
	}

	if depth >= r.maxDepth() {
		r.log("resolving %s: %v, treating referral as terminal", question, ErrTooDeep)
		return true, "", nil
	}

	nsName := candidates[0].Target
	subQuestion := Question{Name: nsName, Type: dns.TypeA, Class: dns.ClassINET}

	r.log("resolving %s: no glue for %s, sub-resolving", question, nsName)

	subReply, err := r.resolveIteratively(ctx, subQuestion, depth+1)
	if err != nil {
		// A failed sub-resolution does not fail the outer walk: the
		// referral reply is surfaced as terminal instead.
		r.log("resolving %s: sub-resolution for %s failed: %v", question, nsName, err)
		return true, "", nil
	}

	addrs := answerAddrs(subReply)
	if len(addrs) == 0 {
		return true, "", nil
	}

	addr := addrs[r.rng().Intn(len(addrs))]
	return false, net.JoinHostPort(addr.String(), r.port()), nil
}

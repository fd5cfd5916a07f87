package rdns

import (
	"context"
	"fmt"

	"github.com/miekg/dns"
)

// Handler answers a single client datagram: decode it, resolve its
// question, and assemble a reply carrying the appropriate rcode.
type Handler struct {
	Resolver *Resolver

	// Log receives per-query failure lines (decode errors, resolver
	// failures). Optional.
	Log Logger
}

// NewHandler returns a Handler backed by resolver.
func NewHandler(resolver *Resolver) *Handler {
	return &Handler{Resolver: resolver}
}

func (h *Handler) log(format string, args ...interface{}) {
	if h.Log != nil {
		h.Log(format, args...)
	}
}

// Handle decodes requestBytes, resolves its question, and returns the
// packed reply to send back to the client. It only returns a non-nil error
// when it could not produce any reply bytes at all (pack failure); every
// other failure is represented as an rcode in the returned bytes.
func (h *Handler) Handle(ctx context.Context, requestBytes []byte) ([]byte, error) {
	request, err := decodeMessage(requestBytes)
	if err != nil {
		h.log("%v", &HandlerError{Kind: FormErr, Err: err})
		return formErrReplyForUndecodable(requestBytes).Pack()
	}

	q, ok := soleQuestion(request)
	if !ok {
		herr := &HandlerError{Kind: FormErr, Err: fmt.Errorf("request with %d questions, want 1", len(request.Question))}
		h.log("%v", herr)
		return buildReply(request, dns.RcodeFormatError, nil).Pack()
	}

	question := QuestionFromDNS(q)

	result, err := h.Resolver.Resolve(ctx, question, true)
	if err != nil {
		herr := &HandlerError{Kind: ServFail, Err: err}
		h.log("resolve %s failed: %v", question, herr)
		return buildReply(request, dns.RcodeServerFailure, nil).Pack()
	}

	reply := buildReply(request, result.Rcode, result)
	return reply.Pack()
}

package transport

import "context"

type seqKey struct{}

// withSeq attaches the exchange sequence number to ctx for Link.Write.
func withSeq(ctx context.Context, seq uint64) context.Context {
	return context.WithValue(ctx, seqKey{}, seq)
}

// SeqFrom returns the sequence number the Queue attached to a Write
// context, or zero outside an exchange. Links that can carry it should
// send it to the gateway and have it echoed in every reply.
func SeqFrom(ctx context.Context) uint64 {
	seq, _ := ctx.Value(seqKey{}).(uint64)
	return seq
}

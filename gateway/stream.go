package gateway

import "context"

// Token is one unit of streamed text, or a terminal error. A nil Err with
// Done set marks normal end of stream.
type Token struct {
	Text string
	Err  error
	Done bool
}

// TokenSource starts producing real answer tokens on a channel, closing it
// (after optionally sending a final Done token) when the answer is
// complete. Grounded on stream_orchestrator_response's use of an
// asyncio.Queue fed by a background task, with a sentinel marking
// end-of-stream.
type TokenSource func(ctx context.Context) (<-chan Token, error)

// AckThenStream is the ack-before-token orchestration the Gateway's
// streaming handlers use: source is started immediately so the
// orchestrator/LLM call is already in flight, then ack is emitted as the
// very first token before anything source produces is forwarded. This
// satisfies the invariant that the first textual chunk a client receives
// is always the acknowledgment, never a real answer token.
//
// Grounded on original_source/src/gateway/main.go's stream_responses_api:
// the orchestrator task is created with asyncio.create_task before the ack
// text is computed and sent, so the real work starts racing the ack.
func AckThenStream(ctx context.Context, ack string, source TokenSource) <-chan Token {
	out := make(chan Token, 1)

	upstream, err := source(ctx)
	if err != nil {
		go func() {
			defer close(out)
			out <- Token{Text: ack}
			out <- Token{Err: err}
		}()
		return out
	}

	go func() {
		defer close(out)
		select {
		case out <- Token{Text: ack}:
		case <-ctx.Done():
			return
		}
		for {
			var tok Token
			var ok bool
			select {
			case tok, ok = <-upstream:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
			select {
			case out <- tok:
			case <-ctx.Done():
				return
			}
			if tok.Err != nil || tok.Done {
				return
			}
		}
	}()

	return out
}

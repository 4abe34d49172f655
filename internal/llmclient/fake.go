package llmclient

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Call records one request seen by FakeClient.
type Call struct {
	Parts []Part
	Opts  Options
}

// Text joins the text parts of the call.
func (c Call) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if !p.IsBlob() {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

type Responder func(ctx context.Context, call Call) (string, error)

// FakeClient answers from a Responder, or from a scripted queue when no
// Responder is set.
type FakeClient struct {
	Respond Responder

	mu     sync.Mutex
	script []scripted
	calls  []Call
}

type scripted struct {
	out string
	err error
}

func NewFakeClient(respond Responder) *FakeClient {
	return &FakeClient{Respond: respond}
}

// Push queues a reply for the next unanswered call.
func (f *FakeClient) Push(out string, err error) *FakeClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.script = append(f.script, scripted{out: out, err: err})
	return f
}

func (f *FakeClient) Name() string { return "fake" }

func (f *FakeClient) Generate(ctx context.Context, parts []Part, opts Options) (string, error) {
	call := Call{Parts: append([]Part(nil), parts...), Opts: opts}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	var next *scripted
	if len(f.script) > 0 {
		next = &f.script[0]
		f.script = f.script[1:]
	}
	f.mu.Unlock()

	if next != nil {
		return next.out, next.err
	}
	if f.Respond != nil {
		return f.Respond(ctx, call)
	}
	return "", fmt.Errorf("fake llm: no response scripted for call %d", len(f.Calls()))
}

func (f *FakeClient) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"testing"
	"time"

	"spelgud/internal/checker"
	"spelgud/internal/diagnose"
	"spelgud/internal/dictionary"
	"spelgud/internal/docstore"
)

const testTimeout = 5 * time.Second

// testClient drives a Server over in-memory pipes the way an editor would.
type testClient struct {
	t      *testing.T
	server *Server
	dict   *dictionary.Store
	toSrv  *io.PipeWriter
	msgs   chan rpcMessage
	nextID int

	doneOnce sync.Once
	done     chan error
	result   error
}

func newTestClient(t *testing.T, c checker.Checker, tweak func(*ServerOptions)) *testClient {
	t.Helper()
	docs := docstore.New()
	dict := dictionary.New("")
	opts := ServerOptions{
		Docs:       docs,
		Dictionary: dict,
		Engine:     diagnose.NewEngine(docs, dict, c, nil),
		Version:    "test",
	}
	if tweak != nil {
		tweak(&opts)
	}

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	srv := NewServer(inR, outW, opts)
	client := &testClient{
		t:      t,
		server: srv,
		dict:   opts.Dictionary,
		toSrv:  inW,
		msgs:   make(chan rpcMessage, 64),
		done:   make(chan error, 1),
	}

	go func() {
		err := srv.Run(context.Background())
		_ = outW.Close()
		client.done <- err
	}()
	go func() {
		defer close(client.msgs)
		br := bufio.NewReader(outR)
		for {
			payload, err := readMessage(br)
			if err != nil {
				return
			}
			var msg rpcMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				t.Errorf("server sent invalid JSON: %v", err)
				return
			}
			client.msgs <- msg
		}
	}()

	t.Cleanup(func() {
		_ = inW.Close()
		client.wait()
	})
	return client
}

func (c *testClient) write(msg map[string]any) {
	c.t.Helper()
	msg["jsonrpc"] = "2.0"
	payload, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("marshal: %v", err)
	}
	if err := writeMessage(c.toSrv, payload); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testClient) notify(method string, params any) {
	c.t.Helper()
	c.write(map[string]any{"method": method, "params": params})
}

// request sends a request and returns the response, skipping notifications.
func (c *testClient) request(method string, params any) rpcMessage {
	c.t.Helper()
	c.nextID++
	id := strconv.Itoa(c.nextID)
	c.write(map[string]any{"id": c.nextID, "method": method, "params": params})
	return c.expect(func(m rpcMessage) bool { return m.Method == "" && string(m.ID) == id })
}

// expect returns the first message matching pred, dropping the others.
func (c *testClient) expect(pred func(rpcMessage) bool) rpcMessage {
	c.t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				c.t.Fatalf("server output closed")
			}
			if pred(msg) {
				return msg
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for message")
		}
	}
}

func (c *testClient) expectPublish(uri string) publishDiagnosticsParams {
	c.t.Helper()
	msg := c.expect(func(m rpcMessage) bool {
		if m.Method != "textDocument/publishDiagnostics" {
			return false
		}
		var p publishDiagnosticsParams
		return json.Unmarshal(m.Params, &p) == nil && p.URI == uri
	})
	var params publishDiagnosticsParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		c.t.Fatalf("decode publish: %v", err)
	}
	return params
}

// expectNone fails if a message matching pred arrives within wait.
func (c *testClient) expectNone(wait time.Duration, pred func(rpcMessage) bool) {
	c.t.Helper()
	deadline := time.After(wait)
	for {
		select {
		case msg, ok := <-c.msgs:
			if !ok {
				return
			}
			if pred(msg) {
				c.t.Fatalf("unexpected message %s %s", msg.Method, string(msg.Params))
			}
		case <-deadline:
			return
		}
	}
}

func (c *testClient) wait() error {
	c.doneOnce.Do(func() {
		select {
		case c.result = <-c.done:
		case <-time.After(testTimeout):
			c.t.Errorf("server did not stop")
		}
	})
	return c.result
}

func (c *testClient) initialize() {
	c.t.Helper()
	resp := c.request("initialize", map[string]any{"processId": nil, "rootUri": "file:///tmp"})
	if resp.Error != nil {
		c.t.Fatalf("initialize failed: %+v", resp.Error)
	}
	c.notify("initialized", map[string]any{})
}

func (c *testClient) open(uri, text string, version int) {
	c.t.Helper()
	c.notify("textDocument/didOpen", didOpenTextDocumentParams{
		TextDocument: textDocumentItem{URI: uri, LanguageID: "plaintext", Version: version, Text: text},
	})
}

func (c *testClient) change(uri, text string, version int) {
	c.t.Helper()
	c.notify("textDocument/didChange", didChangeTextDocumentParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: uri, Version: version},
		ContentChanges: []textDocumentContentChangeEvent{{Text: text}},
	})
}

func isMethod(method string) func(rpcMessage) bool {
	return func(m rpcMessage) bool { return m.Method == method }
}

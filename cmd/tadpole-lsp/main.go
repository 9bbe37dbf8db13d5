package main

import (
	"flag"
	"fmt"
	"os"

	"tadpole/internal/logging"
	"tadpole/internal/lsp"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const (
	lsName  = "tadpole-lsp"
	version = "0.1"
)

var store = lsp.NewStore()
var handler protocol.Handler

func main() {
	verbose := flag.Int("v", 0, "log verbosity")
	logFile := flag.String("log", "", "log to this file instead of stderr")
	debug := flag.Bool("debug", false, "log every protocol message")
	flag.Parse()

	logging.Configure(*verbose, *logFile)

	handler = protocol.Handler{
		Initialize:                     initialize,
		Initialized:                    initialized,
		Shutdown:                       shutdown,
		TextDocumentDidOpen:            textDocumentDidOpen,
		TextDocumentDidChange:          textDocumentDidChange,
		TextDocumentDidSave:            textDocumentDidSave,
		TextDocumentDidClose:           textDocumentDidClose,
		TextDocumentSemanticTokensFull: textDocumentSemanticTokensFull,
		TextDocumentDocumentSymbol:     textDocumentDocumentSymbol,
	}

	srv := server.NewServer(&handler, lsName, *debug)
	if err := srv.RunStdio(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func capabilities() protocol.ServerCapabilities {
	full := protocol.TextDocumentSyncKindFull
	return protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
			Save:      protocol.SaveOptions{IncludeText: &protocol.False},
		},
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: protocol.SemanticTokensLegend{
				TokenTypes:     lsp.TokenTypes,
				TokenModifiers: lsp.TokenModifiers,
			},
			Full:  true,
			Range: false,
		},
		DocumentSymbolProvider: true,
	}
}

func initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log := logging.Logger("lsp")
	if params.ClientInfo != nil {
		log.Infof("client %s connected", params.ClientInfo.Name)
	}
	return protocol.InitializeResult{
		Capabilities: capabilities(),
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: ptrString(version),
		},
	}, nil
}

func initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(ctx *glsp.Context) error {
	logging.Logger("lsp").Infof("shutting down with %d open documents", store.Len())
	return nil
}

func textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Set(uri, params.TextDocument.Text, params.TextDocument.Version)
	return publishDiagnostics(ctx, uri, params.TextDocument.Text)
}

func textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		logging.Logger("lsp").Warningf("ignoring incremental change to %s", uri)
		return nil
	}

	store.Set(uri, text, params.TextDocument.Version)
	return publishDiagnostics(ctx, uri, text)
}

func textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if doc, ok := store.Get(uri); ok {
		return publishDiagnostics(ctx, uri, doc.Text)
	}
	return nil
}

func textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Delete(uri)
	return publishDiagnostics(ctx, uri, "")
}

func textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := string(params.TextDocument.URI)
	doc, ok := store.Get(uri)
	if !ok || !lsp.IsSourceURI(uri) {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}

	sem := lsp.SemanticTokensForText(doc.Text)
	return &protocol.SemanticTokens{Data: lsp.EncodeSemanticTokens(sem)}, nil
}

func textDocumentDocumentSymbol(ctx *glsp.Context, params *protocol.DocumentSymbolParams) (any, error) {
	uri := string(params.TextDocument.URI)
	doc, ok := store.Get(uri)
	if !ok || !lsp.IsSourceURI(uri) {
		return []protocol.DocumentSymbol{}, nil
	}
	return lsp.DocumentSymbols(doc.Text), nil
}

// publishDiagnostics compiles text and replaces the client's diagnostics for
// uri. Closed and non-source documents get an empty list.
func publishDiagnostics(ctx *glsp.Context, uri string, text string) error {
	diags := []protocol.Diagnostic{}
	if lsp.IsSourceURI(uri) && text != "" {
		ds := lsp.Check(text)
		logging.Logger("lsp").Debugf("%s: %d diagnostics", lsp.DisplayName(uri), len(ds))
		diags = lsp.ToLspDiagnostics(text, ds)
	}

	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diags,
	})
	return nil
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		if typed.Range != nil {
			return "", false
		}
		return typed.Text, true
	default:
		return "", false
	}
}

func ptrString(s string) *string { return &s }

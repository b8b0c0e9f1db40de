package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spelgud/internal/diagnose"
	"spelgud/internal/docstore"
	"spelgud/internal/lsp"
	"spelgud/internal/trace"
	"spelgud/internal/version"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the spelling language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func runLSP(cmd *cobra.Command, _ []string) error {
	sess, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx := cmd.Context()
	span := trace.Begin(trace.FromContext(ctx), trace.ScopeSession, "lsp", 0).
		WithExtra("checker", sess.checker.Name())
	ctx = trace.WithSpan(ctx, span)

	docs := docstore.New()
	engine := diagnose.NewEngine(docs, sess.dict, sess.checker, sess.logger)
	engine.SetOptions(sess.engineOptions())

	server := lsp.NewServer(os.Stdin, os.Stdout, lsp.ServerOptions{
		Docs:       docs,
		Dictionary: sess.dict,
		Engine:     engine,
		Logger:     sess.logger,
		Debounce:   sess.cfg.LSP.Debounce,
		Version:    version.Version,
	})

	if sess.cfg.Dictionary.Watch && sess.dict.Path() != "" {
		watchCtx, stopWatch := context.WithCancel(ctx)
		defer stopWatch()
		err := sess.dict.Watch(watchCtx, func(added int) {
			sess.logger.Info("personal dictionary reloaded", "added", added)
			server.RecheckAll()
		})
		if err != nil {
			sess.logger.Warn("dictionary watch disabled", "error", err)
		}
	}

	sess.logger.Info("language server started", "checker", sess.checker.Name(), "version", version.Version)
	err = server.Run(ctx)
	span.End("")
	if err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}

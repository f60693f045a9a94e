package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domws "github.com/paperfinder/paperfinder/internal/domain/worksheet"
	worksheetuc "github.com/paperfinder/paperfinder/internal/usecase/worksheet"
)

type worksheetOptions struct {
	mode      string
	out       string
	session   string
	annotated bool
}

func newWorksheetCmd(root *rootOptions) *cobra.Command {
	opts := &worksheetOptions{}
	cmd := &cobra.Command{
		Use:   "worksheet [LABEL_ID...]",
		Short: "Render selected questions into an A4 PDF worksheet",
		Long: "Render questions into an A4 PDF worksheet. Questions are given as label ids,\n" +
			"or taken from the selection of a stored session with --session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorksheet(cmd, root, opts, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.mode, "mode", string(domws.ModeQuestions), "questions, answers or interleaved")
	f.StringVarP(&opts.out, "out", "o", "", "output file (default: selected-<mode>.pdf)")
	f.StringVar(&opts.session, "session", "", "export the selection of this session")
	f.BoolVar(&opts.annotated, "annotated", false, "burn the session's drawings into the images (needs --session)")
	return cmd
}

func runWorksheet(cmd *cobra.Command, root *rootOptions, opts *worksheetOptions, args []string) error {
	mode, err := domws.ParseMode(opts.mode)
	if err != nil {
		return err //nolint:wrapcheck // already describes the flag value
	}
	switch {
	case opts.session == "" && len(args) == 0:
		return errors.New("give at least one label id or --session")
	case opts.session != "" && len(args) > 0:
		return errors.New("label ids and --session are mutually exclusive")
	case opts.annotated && opts.session == "":
		return errors.New("--annotated needs --session")
	}

	cfg, logger, err := root.load()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var doc worksheetuc.Document
	if opts.session != "" {
		doc, err = a.services.Worksheets.FromSession(ctx, opts.session, mode, opts.annotated)
	} else {
		doc, err = a.services.Worksheets.Export(ctx, args, mode, nil)
	}
	if err != nil {
		return fmt.Errorf("export worksheet: %w", err)
	}

	out := opts.out
	if out == "" {
		out = doc.Name
	}
	if err := os.WriteFile(out, doc.Data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	logger.Info("Worksheet written",
		zap.String("path", out),
		zap.String("mode", string(mode)),
		zap.Int("pages", doc.Pages),
		zap.Int("bytes", len(doc.Data)),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d pages)\n", out, doc.Pages)
	return nil
}

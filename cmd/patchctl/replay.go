package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"

	patcher "github.com/goliatone/go-patcher"
	"github.com/goliatone/go-patcher/pkg/rules"
	"github.com/goliatone/go-patcher/pkg/store"
)

type replayOptions struct {
	Rules   rules.Set
	State   map[string]any
	Actions []patcher.Action
	Diff    bool
	Color   bool
	Logger  *slog.Logger
}

func replay(cfg *ReplayConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Replay.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: expected exactly one actions file", cli.ErrUsage)
	}
	logger, err := cfg.logger(os.Stderr)
	if err != nil {
		return err
	}
	opts := replayOptions{
		Diff:   cfg.Diff,
		Color:  cfg.useColor(cc.Out),
		Logger: logger,
	}
	if path := firstNonEmpty(cfg.Rules, cfg.Env.Rules); path != "" {
		if opts.Rules, err = loadRules(path, firstNonEmpty(cfg.Engine, cfg.Env.Engine)); err != nil {
			return err
		}
	}
	if cfg.State != "" {
		if err := readJSON(cfg.State, &opts.State); err != nil {
			return err
		}
	}
	if err := readJSON(args[0], &opts.Actions); err != nil {
		return err
	}
	return runReplay(cc.Out, opts)
}

func runReplay(w io.Writer, opts replayOptions) error {
	logger := patcher.NewSlogLogger(opts.Logger)
	global := patcher.NewRegistry[map[string]any](patcher.ScopeGlobal, patcher.WithRegistryLogger(logger))
	if _, err := rules.Install(global, opts.Rules); err != nil {
		return err
	}
	state := opts.State
	if state == nil {
		state = map[string]any{}
	}
	s := store.New(state, store.MergeReducer(), patcher.NewMiddleware(global, patcher.WithPatchLogger(logger)).Stage())

	p := newPrinter(w, opts.Color)
	for i, action := range opts.Actions {
		before := s.GetState()
		result, err := s.Dispatch(action)
		if err != nil {
			return fmt.Errorf("action %d (%s): %w", i, action.Type, err)
		}
		reduced, _ := result.(patcher.Action)
		p.action(i, action, reduced)
		if opts.Diff {
			p.diff(before, s.GetState())
			continue
		}
		p.state(s.GetState())
	}
	return nil
}

func readJSON(path string, target any) error {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("could not open %q: %w", path, err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(target); err != nil {
		return fmt.Errorf("error decoding %s: %w", path, err)
	}
	return nil
}

type printer struct {
	w      io.Writer
	header *color.Color
	insert *color.Color
	remove *color.Color
}

func newPrinter(w io.Writer, colored bool) *printer {
	return &printer{
		w:      w,
		header: paint(colored, color.Bold),
		insert: paint(colored, color.FgGreen),
		remove: paint(colored, color.FgRed),
	}
}

func (p *printer) action(i int, raw, patched patcher.Action) {
	fmt.Fprintf(p.w, "%s %s\n", p.header.Sprintf("#%d", i), raw.Type)
	fmt.Fprintf(p.w, "  in:    %s\n", compactJSON(raw.Payload))
	fmt.Fprintf(p.w, "  out:   %s\n", compactJSON(patched.Payload))
}

func (p *printer) state(state map[string]any) {
	fmt.Fprintf(p.w, "  state: %s\n", compactJSON(state))
}

func (p *printer) diff(before, after map[string]any) {
	dmp := diffpatch.New()
	from, to, lines := dmp.DiffLinesToChars(prettyJSON(before), prettyJSON(after))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(from, to, false), lines)
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			switch d.Type {
			case diffpatch.DiffInsert:
				p.insert.Fprintf(p.w, "+ %s\n", line)
			case diffpatch.DiffDelete:
				p.remove.Fprintf(p.w, "- %s\n", line)
			default:
				fmt.Fprintf(p.w, "  %s\n", line)
			}
		}
	}
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func prettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v\n", v)
	}
	return string(b) + "\n"
}

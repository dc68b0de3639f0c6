package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"

	patcher "github.com/goliatone/go-patcher"
	"github.com/goliatone/go-patcher/pkg/rules"
)

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		if cfg.Env.Rules == "" {
			return fmt.Errorf("%w: no rule files given and PATCHCTL_RULES is unset", cli.ErrUsage)
		}
		args = []string{cfg.Env.Rules}
	}
	logger, err := cfg.logger(os.Stderr)
	if err != nil {
		return err
	}
	return checkFiles(cc.Out, args, firstNonEmpty(cfg.Engine, cfg.Env.Engine), cfg.useColor(cc.Out), logger)
}

func checkFiles(w io.Writer, files []string, engine string, colored bool, logger *slog.Logger) error {
	pass := paint(colored, color.FgGreen)
	fail := paint(colored, color.FgRed)

	var errs []error
	for _, file := range files {
		set, err := loadRules(file, engine)
		if err == nil {
			registry := patcher.NewRegistry[map[string]any](file, patcher.WithRegistryLogger(patcher.NewSlogLogger(logger)))
			_, err = rules.Install(registry, set)
		}
		if err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", fail.Sprint("FAIL"), file, err)
			errs = append(errs, fmt.Errorf("%s: %w", file, err))
			continue
		}
		fmt.Fprintf(w, "%s %s (%d rules)\n", pass.Sprint("ok"), file, len(set.Rules))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, rule := range set.Rules {
			fmt.Fprintf(tw, "\t%s\t%s\t%s\n", rule.Type, set.EngineFor(rule), rule.Description)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

func loadRules(path, engine string) (rules.Set, error) {
	set, err := rules.LoadFile(path)
	if err != nil {
		return rules.Set{}, err
	}
	if set.Engine == "" {
		set.Engine = engine
	}
	return set, nil
}

func paint(colored bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if colored {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

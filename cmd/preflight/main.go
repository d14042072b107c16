// Package main provides the SimPO training-environment preflight CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/SeanYHan888/SimPO/internal/config"
	"github.com/SeanYHan888/SimPO/internal/envprobe"
	"github.com/SeanYHan888/SimPO/internal/wheel"
	"github.com/SeanYHan888/SimPO/preflight"
)

const version = "v0.1.0-dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := "diagnose"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "diagnose":
		return runDiagnose(args, stdout, stderr)
	case "resolve":
		return runResolve(args, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "SimPO preflight %s\n", version)
		return 0
	case "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "SimPO training-environment preflight")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  diagnose   Check flash-attn ABI compatibility with the installed torch runtime (default)")
	fmt.Fprintln(w, "  resolve    Resolve the prebuilt flash-attn wheel matching this runtime")
	fmt.Fprintln(w, "  version    Show version")
}

func loadConfig(path string, stderr io.Writer) (*config.Config, bool) {
	if path == "" {
		return config.Default(), true
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, false
	}
	return cfg, true
}

func runDiagnose(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("diagnose", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath = fs.String("config", "", "path to preflight.yaml")
		python  = fs.String("python", "", "interpreter of the training environment")
		timeout = fs.Duration("timeout", 0, "bound on the whole diagnostic pass")
		asJSON  = fs.Bool("json", false, "emit the report as JSON")
		noGPU   = fs.Bool("no-gpu", false, "skip the WebGPU adapter probe")
		verbose = fs.Bool("v", false, "log probe details to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ok := loadConfig(*cfgPath, stderr)
	if !ok {
		return 2
	}

	opts := preflight.Options{
		Python:          cfg.Preflight.Python,
		ExtensionModule: cfg.Preflight.ExtensionModule,
		Timeout:         cfg.Timeout(),
		SkipGPUProbe:    *noGPU,
	}
	if *python != "" {
		opts.Python = *python
	}
	if *timeout > 0 {
		opts.Timeout = *timeout
	}
	if *verbose {
		opts.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	result := preflight.Diagnose(context.Background(), opts)
	if *asJSON {
		if err := result.Report.RenderJSON(stdout); err != nil {
			fmt.Fprintln(stderr, "render report:", err)
			return 2
		}
	} else {
		result.Report.Render(stdout)
	}
	return result.Verdict.ExitCode()
}

func runResolve(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		cfgPath    = fs.String("config", "", "path to preflight.yaml")
		python     = fs.String("python", "", "interpreter of the training environment")
		releaseTag = fs.String("release-tag", "", "flash-attn release tag (default: latest, falling back to "+wheel.DefaultReleaseTag+")")
		printURL   = fs.Bool("print-url", false, "print only the resolved wheel URL")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, ok := loadConfig(*cfgPath, stderr)
	if !ok {
		return 2
	}
	if *python != "" {
		cfg.Preflight.Python = *python
	}
	if *releaseTag == "" {
		*releaseTag = cfg.Preflight.ReleaseTag
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()

	prober := &envprobe.Prober{Python: cfg.Preflight.Python}
	rt, probeErr := prober.ProbeRuntime(ctx)
	if probeErr != nil {
		fmt.Fprintln(stderr, "torch must be importable in this environment before resolving a wheel:", probeErr.Message)
		return 1
	}

	tags, err := wheel.TagsFor(rt)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	resolver := &wheel.Resolver{}
	tag := *releaseTag
	if tag == "" {
		var latestErr error
		tag, latestErr = resolver.ResolveTag(ctx, wheel.DefaultReleaseTag)
		if latestErr != nil {
			fmt.Fprintf(stderr, "could not resolve latest release tag (%v); falling back to %s\n", latestErr, tag)
		}
	}

	url := resolver.WheelURL(tag, tags)
	if !*printURL {
		fmt.Fprintf(stdout, "torch=%s cuda=%s python=%s\n", rt.Version, rt.Toolkit, rt.PythonTag)
		fmt.Fprintf(stdout, "resolved wheel: %s\n", url)
	}

	exists, err := resolver.Exists(ctx, url)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if !exists {
		fmt.Fprintln(stderr, "no matching prebuilt wheel found for this runtime")
		fmt.Fprintln(stderr, "try a different -release-tag, or align python/torch to a runtime with published flash-attn wheels")
		return 2
	}

	if *printURL {
		fmt.Fprintln(stdout, url)
	}
	return 0
}

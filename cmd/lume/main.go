package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/lumelang/lume/internal/config"
	"github.com/lumelang/lume/internal/evaluator"
	"github.com/lumelang/lume/internal/ident"
	"github.com/lumelang/lume/internal/instrument"
	"github.com/lumelang/lume/internal/session"
)

const usage = `Usage: lume [options] <file.lume>
       lume [options] -e '<expression>'

Options:
  -e <expr>            evaluate an expression and print its result
  -config <path>       explicit lume.yaml (default: discovered upward from cwd)
  -no-dispatch-cache   resolve every method call cold
  -no-cache            do not cache expression results
  -trace               print per-expression evaluation timings to stderr
  -no-color            disable colored diagnostics
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("lume", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	expr := fs.String("e", "", "")
	configPath := fs.String("config", "", "")
	noDispatchCache := fs.Bool("no-dispatch-cache", false, "")
	noCache := fs.Bool("no-cache", false, "")
	trace := fs.Bool("trace", false, "")
	noColor := fs.Bool("no-color", false, "")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	color := !*noColor && isatty.IsTerminal(os.Stderr.Fd())

	cfg, err := loadConfig(*configPath)
	if err != nil {
		printError(color, err)
		return 1
	}
	if *noDispatchCache {
		cfg.Dispatch.Disabled = true
	}

	sess := session.New(cfg)
	if !*noCache {
		sess.EnableCaching()
		if err := sess.LoadState(); err != nil {
			printError(color, err)
			return 1
		}
	}
	if *trace {
		defer bindTrace(sess).Dispose()
	}

	var result evaluator.Object
	switch {
	case *expr != "":
		result, err = sess.RunSource(context.Background(), *expr, "<eval>")
		if err == nil && result != nil && result != evaluator.NIL {
			fmt.Println(result.Inspect())
		}
	case fs.NArg() == 1:
		result, err = sess.RunFile(context.Background(), fs.Arg(0))
	default:
		fs.Usage()
		return 2
	}
	if err != nil {
		printError(color, err)
		return 1
	}

	if !*noCache {
		if err := sess.SaveState(); err != nil {
			printError(color, err)
			return 1
		}
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return config.Default(), nil
	}
	return config.Discover(cwd)
}

// bindTrace attaches an observer that reports each expression's evaluated
// result and elapsed time on stderr.
func bindTrace(sess *session.Session) *instrument.Handle {
	return sess.Bind(instrument.Binding[evaluator.Object]{
		OnReturn: func(id ident.ID, value evaluator.Object, elapsed time.Duration, isError bool) {
			status := "ok"
			if isError {
				status = "error"
			}
			fmt.Fprintf(os.Stderr, "trace %s %s %s %s\n", id, status, elapsed, value.Type())
			sess.OfferReturn(id, value, isError)
		},
		OnCachedResult: func(id ident.ID, value evaluator.Object) {
			fmt.Fprintf(os.Stderr, "trace %s cached %s\n", id, value.Type())
		},
	})
}

func printError(color bool, err error) {
	if color {
		fmt.Fprintf(os.Stderr, "\x1b[31m%s\x1b[0m\n", err)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

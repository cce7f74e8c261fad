// Command boron is the reference CLI for the embeddable Boron core:
// it tokenizes and (when an evaluator is wired in) runs scripts, but
// ships no evaluator or cfunc surface of its own -- those are an
// embedder's job, per the core's non-goals. Without one, the REPL
// simply parses and echoes back the unbound value tree, which is still
// useful for exercising the tokenizer/serializer from the command
// line. Grounded on the teacher's cmd/langlang/main.go flag-parsed
// options struct + REPL loop.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/boronlang/boron"
	"github.com/boronlang/boron/ascii"
)

const maxEchoLen = 156

type options struct {
	eval     string
	help     bool
	noPrompt bool
	secure   bool
	args     []string
}

func parseFlags(argv []string) options {
	fs := flag.NewFlagSet("boron", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.eval, "e", "", "evaluate EXPR and exit")
	fs.BoolVar(&o.help, "h", false, "print usage and exit")
	fs.BoolVar(&o.noPrompt, "p", false, "suppress the REPL prompt (pipe mode)")
	fs.BoolVar(&o.secure, "s", false, "run with all security checks enabled")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: boron [-e EXPR] [-h] [-p] [-s] [script [args...]]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		os.Exit(64)
	}
	o.args = fs.Args()
	return o
}

func main() {
	o := parseFlags(os.Args[1:])
	if o.help {
		fmt.Println("usage: boron [-e EXPR] [-h] [-p] [-s] [script [args...]]")
		os.Exit(0)
	}

	env := boron.NewEnv()
	env.Config.SetBool("security.allow_all", !o.secure)
	thread := boron.NewThread(env)
	bindArgs(env, thread, o.args)

	switch {
	case o.eval != "":
		runSource(env, thread, []byte(o.eval))
	case len(o.args) > 0:
		data, err := os.ReadFile(o.args[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, ascii.Color(ascii.Red, "cannot read %s: %v", o.args[0], err))
			os.Exit(70)
		}
		runSource(env, thread, data)
	default:
		repl(env, thread, o.noPrompt)
	}
}

func bindArgs(env *boron.Env, thread *boron.Thread, args []string) {
	_ = env
	_ = thread
	_ = args
	// The global "args" string block is populated by the embedder's
	// context layer once one exists; the core's context.go only
	// provides the add_word/lookup primitives it's built from.
}

func runSource(env *boron.Env, thread *boron.Thread, src []byte) {
	tz := boron.NewTokenizer(env, thread, src)
	blockID, err := tz.Tokenize()
	if err != nil {
		printError(err)
		os.Exit(exitCodeFor(err))
	}
	fmt.Println(echoString(env, thread, blockID))
}

func repl(env *boron.Env, thread *boron.Thread, noPrompt bool) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		if !noPrompt {
			fmt.Print(ascii.Color(ascii.Cyan, "%s", "boron> "))
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		tz := boron.NewTokenizer(env, thread, []byte(line))
		blockID, err := tz.Tokenize()
		if err != nil {
			printError(err)
			continue
		}
		fmt.Println(echoString(env, thread, blockID))
	}
}

func echoString(env *boron.Env, thread *boron.Thread, blockID int32) string {
	s := boron.ToDebugString(env, thread, boron.BlockCellForDisplay(blockID))
	if len(s) > maxEchoLen {
		return s[:maxEchoLen] + "..."
	}
	return s
}

func printError(err error) {
	fmt.Fprintln(os.Stderr, ascii.Color(ascii.Red, "%s", err.Error()))
}

func exitCodeFor(err error) int {
	be, ok := err.(*boron.BoronError)
	if !ok {
		return 1
	}
	switch be.Kind {
	case boron.ErrSyntax:
		return 64
	case boron.ErrInternal:
		return 70
	default:
		return 1
	}
}

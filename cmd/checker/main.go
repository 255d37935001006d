// Command checker is the §6 CLI surface: check runs a model to completion
// and reports pass/fail with a witness path; explore serves the browser
// JSON views over a live search; spawn runs the register protocol's
// actors on a real UDP transport.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/luxfi/log"

	"github.com/luxfi/checker/actor"
	"github.com/luxfi/checker/checker"
	"github.com/luxfi/checker/examples"
	"github.com/luxfi/checker/explorer"
	"github.com/luxfi/checker/model"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return 2
	}

	switch args[0] {
	case "check":
		return runCheck(args[1:])
	case "explore":
		return runExplore(args[1:])
	case "spawn":
		return runSpawn(args[1:])
	case "-h", "-help", "--help":
		usage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "checker: unknown command %q\n", args[0])
		usage()
		return 2
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  checker check [-n N] [-discipline ordered|unordered] <model>
  checker explore [-n N] [-discipline ordered|unordered] [-addr host:port] <model>
  checker spawn -n N -self INDEX -addrs host:port,host:port,... register

models: binaryclock, puzzle, twophase, paxos, register`)
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	n := fs.Int("n", 3, "protocol size parameter")
	discipline := fs.String("discipline", "ordered", "register network discipline: ordered|unordered")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		usage()
		return 2
	}

	result, err := check(fs.Arg(0), *n, *discipline)
	if err != nil {
		fmt.Fprintln(os.Stderr, "checker:", err)
		return 2
	}
	return result
}

func runExplore(args []string) int {
	fs := flag.NewFlagSet("explore", flag.ContinueOnError)
	n := fs.Int("n", 3, "protocol size parameter")
	discipline := fs.String("discipline", "ordered", "register network discipline: ordered|unordered")
	addr := fs.String("addr", "localhost:3000", "explorer listen address")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		usage()
		return 2
	}

	if err := explore(fs.Arg(0), *n, *discipline, *addr); err != nil {
		fmt.Fprintln(os.Stderr, "checker:", err)
		return 2
	}
	return 0
}

func runSpawn(args []string) int {
	fs := flag.NewFlagSet("spawn", flag.ContinueOnError)
	n := fs.Int("n", 3, "number of register clients")
	self := fs.Int("self", -1, "this process's ActorID (0 is the register, 1..n are clients)")
	addrs := fs.String("addrs", "", "comma-separated host:port list, one per actor, index 0 first")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		usage()
		return 2
	}
	if fs.Arg(0) != "register" {
		fmt.Fprintln(os.Stderr, "checker: spawn only supports the register protocol")
		return 2
	}
	if *self < 0 {
		fmt.Fprintln(os.Stderr, "checker: -self is required")
		return 2
	}

	addrList := strings.Split(*addrs, ",")
	if len(addrList) != *n+1 {
		fmt.Fprintf(os.Stderr, "checker: -addrs needs %d entries (1 register + %d clients), got %d\n", *n+1, *n, len(addrList))
		return 2
	}

	behaviors := examples.RegisterBehaviors(*n)
	if *self >= len(behaviors) {
		fmt.Fprintf(os.Stderr, "checker: -self %d out of range for n=%d\n", *self, *n)
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger := log.NewNoOpLogger()
	err := actor.RunUDP[examples.RegisterState, examples.RegisterMsg](
		ctx, actor.ActorID(*self), addrList, behaviors[*self], logger)
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "checker:", err)
		return 2
	}
	return 0
}

// check runs modelName to completion, prints the outcome, and returns the
// §6 exit code: 0 pass, 1 a discovery is a counterexample, 2 internal
// error.
func check(modelName string, n int, discipline string) (int, error) {
	opts := checker.ExhaustiveOptions()
	opts.MaxDepth = 16

	switch modelName {
	case "binaryclock":
		return runModel[int, string](examples.BinaryClock{Start: 0}, opts)
	case "puzzle":
		start := examples.Board{1, 4, 2, 3, 5, 8, 6, 7, 0}
		return runModel[examples.Board, string](examples.Puzzle{Start: start}, opts)
	case "twophase":
		return runModel[examples.TwoPhaseState, examples.TwoPhaseAction](examples.TwoPhaseCommit{N: n}, opts)
	case "paxos":
		return runModel[examples.PaxosState, examples.PaxosAction](examples.Paxos{MaxRound: n}, opts)
	case "register":
		m, err := registerModel(n, discipline)
		if err != nil {
			return 2, err
		}
		return runModel[actor.ActorModelState[examples.RegisterState, examples.RegisterMsg, examples.ABDHistory], actor.ActorAction](m, opts)
	default:
		return 2, fmt.Errorf("unknown model %q", modelName)
	}
}

func registerModel(n int, discipline string) (*actor.ActorModel[examples.RegisterState, examples.RegisterMsg, examples.ABDHistory], error) {
	switch discipline {
	case "ordered":
		return examples.NewLinearizableRegister(n)
	case "unordered":
		return examples.NewReorderingRegister(n)
	default:
		return nil, fmt.Errorf("unknown discipline %q", discipline)
	}
}

func runModel[S any, A any](m model.Model[S, A], opts checker.Options) (int, error) {
	c, err := checker.New[S, A](m, opts)
	if err != nil {
		return 2, err
	}

	outcome, err := c.Run(context.Background())
	if err != nil {
		return 2, err
	}

	for _, p := range outcome.Properties {
		status := "ok"
		if !p.Satisfied {
			status = "VIOLATED"
		}
		fmt.Printf("%s %s: %s\n", p.Kind, p.Name, status)
		if p.HasPath() {
			fmt.Println(formatWitness(c, p.Path))
		}
	}
	fmt.Printf("result: %s (generated=%d unique=%d pruned=%d)\n",
		outcome.Result, outcome.Counters.Generated, outcome.Counters.Unique, outcome.Counters.BoundaryPruned)

	switch outcome.Result {
	case checker.Pass:
		return 0, nil
	case checker.Fail:
		return 1, nil
	default:
		return 2, fmt.Errorf("incomplete: %s", outcome.IncompleteReason)
	}
}

// formatWitness renders a path as the §7 "action → state" pairs.
func formatWitness[S any, A any](c *checker.Checker[S, A], path []checker.PathStep[S, A]) string {
	var b strings.Builder
	for i, step := range path {
		if i == 0 {
			fmt.Fprintf(&b, "  %v\n", step.State)
			continue
		}
		fmt.Fprintf(&b, "  --%s--> %v\n", c.DisplayAction(*step.Action, path[i-1].State), step.State)
	}
	return b.String()
}

func explore(modelName string, n int, discipline string, addr string) error {
	switch modelName {
	case "binaryclock":
		return exploreModel[int, string](examples.BinaryClock{Start: 0}, addr)
	case "puzzle":
		start := examples.Board{1, 4, 2, 3, 5, 8, 6, 7, 0}
		return exploreModel[examples.Board, string](examples.Puzzle{Start: start}, addr)
	case "twophase":
		return exploreModel[examples.TwoPhaseState, examples.TwoPhaseAction](examples.TwoPhaseCommit{N: n}, addr)
	case "paxos":
		return exploreModel[examples.PaxosState, examples.PaxosAction](examples.Paxos{MaxRound: n}, addr)
	case "register":
		m, err := registerModel(n, discipline)
		if err != nil {
			return err
		}
		return exploreModel[actor.ActorModelState[examples.RegisterState, examples.RegisterMsg, examples.ABDHistory], actor.ActorAction](m, addr)
	default:
		return fmt.Errorf("unknown model %q", modelName)
	}
}

// exploreModel starts an exhaustive background search (so the visited set
// the explorer browses actually fills in) and serves the §6 JSON views
// over it until the process is interrupted.
func exploreModel[S any, A any](m model.Model[S, A], addr string) error {
	opts := checker.ExhaustiveOptions()
	opts.MaxDepth = 16

	c, err := checker.New[S, A](m, opts)
	if err != nil {
		return err
	}

	go func() {
		if _, err := c.Run(context.Background()); err != nil {
			fmt.Fprintln(os.Stderr, "checker: background run failed:", err)
		}
	}()

	mux := http.NewServeMux()
	explorer.New[S, A](c, nil).Register(mux)

	fmt.Printf("explorer listening on http://%s\n", addr)
	return http.ListenAndServe(addr, mux)
}

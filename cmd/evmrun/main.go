// Command evmrun is a standalone single-block state-transition runner for
// the execution core: it loads a genesis allocation, an environment
// (block header), and a list of transactions, executes them through
// core.BlockProcessor exactly as a full client's block import would, and
// prints the resulting receipts, gas usage and (Amsterdam+) Block Access
// List hash. It is this module's analogue of the teacher's cmd/evm t8n
// tool, trimmed to the inputs this package's block executor actually
// consumes (no ommers, no PoW sealing, no trie/snapshot I/O).
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethcore/execevm/common"
	"github.com/ethcore/execevm/core"
	"github.com/ethcore/execevm/core/state"
	"github.com/ethcore/execevm/core/vm"
	"github.com/ethcore/execevm/log"
	"github.com/ethcore/execevm/params"
	"github.com/urfave/cli/v2"
)

var (
	allocFlag = &cli.StringFlag{Name: "input.alloc", Usage: "Genesis allocation JSON file", Required: true}
	txsFlag   = &cli.StringFlag{Name: "input.txs", Usage: "Transactions JSON file", Required: true}
	envFlag   = &cli.StringFlag{Name: "input.env", Usage: "Environment (block header) JSON file", Required: true}
	forkFlag  = &cli.StringFlag{Name: "state.fork", Usage: "Fork rules to apply", Value: "Amsterdam"}
	chainFlag = &cli.Uint64Flag{Name: "state.chainid", Usage: "Chain id", Value: 1}
	outFlag   = &cli.StringFlag{Name: "output.result", Usage: "Where to write the result JSON ('stdout', 'stderr', or a path)", Value: "stdout"}
	verbosity = &cli.IntFlag{Name: "verbosity", Usage: "Log verbosity (0=crit..5=trace)", Value: 3}
)

func main() {
	app := &cli.App{
		Name:  "evmrun",
		Usage: "execute a single block against the core EVM interpreter",
		Commands: []*cli.Command{
			transitionCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "evmrun:", err)
		os.Exit(1)
	}
}

var transitionCommand = &cli.Command{
	Name:   "transition",
	Usage:  "apply a block's transactions to a genesis allocation and report the outcome",
	Flags:  []cli.Flag{allocFlag, txsFlag, envFlag, forkFlag, chainFlag, outFlag, verbosity},
	Action: runTransition,
}

func runTransition(c *cli.Context) error {
	log.SetDefault(log.NewAtLevel(log.Level(4 - c.Int(verbosity.Name))))

	view, err := loadAlloc(c.String(allocFlag.Name))
	if err != nil {
		return err
	}
	header, withdrawals, err := loadEnv(c.String(envFlag.Name))
	if err != nil {
		return err
	}
	chainID := c.Uint64(chainFlag.Name)
	cfg, err := chainConfigForFork(c.String(forkFlag.Name), chainID)
	if err != nil {
		return err
	}
	txs, err := loadTransactions(c.String(txsFlag.Name), chainID)
	if err != nil {
		return err
	}

	statedb := state.New(view, common.HexToAddress(params.SystemAddress))
	log.Info("executing block", "fork", c.String(forkFlag.Name), "txs", len(txs), "number", header.Number)

	processor := core.NewBlockProcessor(cfg, nil, vm.Config{})
	blk := &core.BlockInput{Header: header, Transactions: txs, Withdrawals: withdrawals}
	result, err := processor.Process(blk, statedb)
	if err != nil {
		return fmt.Errorf("evmrun: block execution failed: %w", err)
	}

	updates := statedb.GetStateTransitions()
	out, err := buildResult(result, updates)
	if err != nil {
		return err
	}
	return writeResult(c.String(outFlag.Name), out)
}

func writeResult(dest string, out *jsonResult) error {
	enc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	switch dest {
	case "stdout":
		_, err = os.Stdout.Write(append(enc, '\n'))
		return err
	case "stderr":
		_, err = os.Stderr.Write(append(enc, '\n'))
		return err
	case "":
		return nil
	default:
		return os.WriteFile(dest, enc, 0o644)
	}
}

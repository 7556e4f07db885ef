// Copyright 2024 by the Authors
// This file is part of the viewcore library.
//
// The viewcore library is free software: you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// The viewcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the viewcore library. If not, see <http://www.gnu.org/licenses/>.

// viewcore runs a single stateless view call against a configured
// versioned store and prints the result.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pborman/uuid"
	"gopkg.in/urfave/cli.v1"

	"github.com/core-coin/viewcore/config"
	"github.com/core-coin/viewcore/engine"
)

var gitCommit = "" // set via linker flags at release build time

var (
	app = cli.NewApp()

	ConfigFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the TOML configuration file",
		Value: "viewcore.toml",
	}
	ContractFlag = cli.StringFlag{
		Name:  "contract",
		Usage: "contract address to call",
	}
	MethodFlag = cli.StringFlag{
		Name:  "method",
		Usage: "exported method name to invoke",
	}
	InputFlag = cli.StringFlag{
		Name:  "input",
		Usage: "hex-encoded call input",
	}
	VerifyFlag = cli.BoolFlag{
		Name:  "verify",
		Usage: "after the call, verify the contract's stored code against its account code hash at the call's pinned height",
	}
)

func init() {
	app.Name = "viewcore"
	app.Usage = "execute a single view call against the versioned store"
	app.Version = gitCommit
	app.Flags = []cli.Flag{ConfigFlag}
	app.Commands = []cli.Command{callCommand}
}

var callCommand = cli.Command{
	Name:   "call",
	Usage:  "perform one view call",
	Action: callCmd,
	Flags: []cli.Flag{
		ContractFlag,
		MethodFlag,
		InputFlag,
		VerifyFlag,
	},
}

func callCmd(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.GlobalString(ConfigFlag.Name))
	if err != nil {
		return fmt.Errorf("viewcore: loading config: %w", err)
	}
	logger := cfg.Logger()

	contract := ctx.String(ContractFlag.Name)
	method := ctx.String(MethodFlag.Name)
	if contract == "" || method == "" {
		return cli.NewExitError("viewcore: --contract and --method are required", 2)
	}

	var input []byte
	if raw := ctx.String(InputFlag.Name); raw != "" {
		input, err = hex.DecodeString(raw)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("viewcore: decoding --input: %v", err), 2)
		}
	}

	callID := uuid.NewRandom().String()
	log := logger.New("call_id", callID, "contract", contract, "method", method)

	client := cfg.NewStoreClient()
	e := engine.New(client, cfg.Engine.PoolSize, cfg.Engine.ModuleCacheSize)
	defer e.Close()

	rctx := context.Background()

	result, logs, height, err := e.View(rctx, contract, method, input)
	if err != nil {
		log.Error("view call failed", "err", err)
		return cli.NewExitError(err.Error(), 1)
	}
	log.Info("view call succeeded", "height", height, "log_count", len(logs))

	if ctx.Bool(VerifyFlag.Name) {
		if err := e.VerifyCodeIntegrity(rctx, contract, height); err != nil {
			log.Error("code integrity check failed", "err", err)
			return cli.NewExitError(err.Error(), 1)
		}
		log.Info("code integrity verified", "height", height)
	}

	return printResult(os.Stdout, callID, height, result, logs)
}

type callOutput struct {
	CallID string   `json:"call_id"`
	Height uint64   `json:"height"`
	Result string   `json:"result"`
	Logs   []string `json:"logs"`
}

func printResult(w *os.File, callID string, height uint64, result []byte, logs []string) error {
	out := callOutput{
		CallID: callID,
		Height: height,
		Result: hex.EncodeToString(result),
		Logs:   logs,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	shop "github.com/km-arc/go-dicontainer/app"
	"github.com/km-arc/go-dicontainer/framework/app"
	"github.com/km-arc/go-dicontainer/framework/config"
)

const usage = `usage: dicontainer [flags] [serve|check]

  serve   build the container and serve HTTP until interrupted (default)
  check   build the container, list its components and exit

flags:
`

func main() {
	configFile := flag.String("config", "", "YAML configuration file; environment variables override it")
	envFile := flag.String("env", ".env", "dotenv file loaded before reading the environment")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(flag.Arg(0), *configFile, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(command, configFile, envFile string) error {
	cfg := config.Load(envFile)
	if configFile != "" {
		var err error
		if cfg, err = config.LoadFile(configFile, envFile); err != nil {
			return err
		}
	}

	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	if err := application.Register(&shop.ShopServiceProvider{}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "", "serve":
		return application.Run(ctx)
	case "check":
		defs, err := application.Check(ctx)
		if err != nil {
			return err
		}
		for _, d := range defs {
			fmt.Printf("%-36s %-10s %s\n", d.ID, d.Scope, d.Type)
		}
		fmt.Printf("%d components OK\n", len(defs))
		return nil
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

package main

import (
	"flag"
	"os"

	"github.com/louisbranch/ocfweb/internal/platform/config"
	"github.com/louisbranch/ocfweb/internal/tools/keypair"
)

func main() {
	cfg, err := keypair.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := keypair.Run(cfg, os.Stdout); err != nil {
		config.Exitf("generate key pair: %v", err)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// @title Warbler API
// @version 1.0
// @description Warbler 的 JSON 接口，使用 Bearer token 认证。
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	app := &cli.App{
		Name:  "warbler",
		Usage: "a small social network: users, messages, follows and likes",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			seedCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

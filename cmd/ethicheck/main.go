// Command ethicheck はEthiCheckのAPIサーバー、ワーカー、マイグレーションを起動する。
//
// 使い方:
//
//	ethicheck [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/ethicheck/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ethicheck: %v\n", err)
		os.Exit(1)
	}
}

// Command starfav はお気に入り台帳APIサーバーと参照データインポーターを起動する。
//
//	starfav [serve|worker|migrate [up|down [n]]|import|adduser <email> <password>|healthcheck]
package main

import (
	"log/slog"
	"os"

	"github.com/hitoshi/starfav/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

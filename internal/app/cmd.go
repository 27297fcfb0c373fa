package app

import (
	"fmt"
	"io"
)

// Command はstarfavのサブコマンドを表す。
type Command string

const (
	CommandServe       Command = "serve"
	CommandWorker      Command = "worker"
	CommandMigrate     Command = "migrate"
	CommandImport      Command = "import"
	CommandAddUser     Command = "adduser"
	CommandHealthcheck Command = "healthcheck"
	CommandHelp        Command = "help"
)

// commandEntry はサブコマンドの書式と説明。usageの表示順を兼ねる。
type commandEntry struct {
	cmd     Command
	args    string
	summary string
}

var commandTable = []commandEntry{
	{CommandServe, "", "APIサーバーを起動する（既定）"},
	{CommandWorker, "", "参照データを IMPORT_INTERVAL ごとに取り込む"},
	{CommandMigrate, "[up | down [n]]", "マイグレーションを適用またはn件ロールバックする"},
	{CommandImport, "", "参照データを1回だけ取り込む"},
	{CommandAddUser, "<email> <password>", "ユーザーを作成する"},
	{CommandHealthcheck, "", "ローカルのAPIサーバーの /health を確認する"},
	{CommandHelp, "", "この一覧を表示する"},
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 引数が空または未知のサブコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	for _, c := range commandTable {
		if string(c.cmd) == args[0] {
			return c.cmd
		}
	}
	switch args[0] {
	case "-h", "--help":
		return CommandHelp
	}
	return CommandServe
}

// commandArgs はサブコマンド名を除いた残りの引数を返す。
func commandArgs(args []string) []string {
	if len(args) <= 1 {
		return nil
	}
	return args[1:]
}

// writeUsage はサブコマンドの一覧を書き出す。
func writeUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: starfav <command> [args]")
	fmt.Fprintln(w)
	for _, c := range commandTable {
		fmt.Fprintf(w, "  %-12s %-20s %s\n", c.cmd, c.args, c.summary)
	}
}

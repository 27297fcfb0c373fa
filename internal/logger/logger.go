// Package logger はslogによるJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// level は全ロガー共通の出力レベル。SetLevelで実行中に変更できる。
var level = new(slog.LevelVar)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 出力レベルはSetLevelで設定した値に従う（初期値はInfo）。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", "starfav"))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// wがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer, l slog.Level) {
	if w == nil {
		w = os.Stdout
	}
	SetLevel(l)
	slog.SetDefault(Setup(w))
}

// SetLevel は出力レベルを変更する。
func SetLevel(l slog.Level) {
	level.Set(l)
}

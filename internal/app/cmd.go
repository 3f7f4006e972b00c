package app

import "errors"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はワーカーモードで起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベースマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
	// CommandSetPassword はアイテムの閲覧パスワードを登録することを示す。
	CommandSetPassword Command = "set-password"
)

// ErrSetPasswordUsage はset-passwordの引数が不足していることを表す。
var ErrSetPasswordUsage = errors.New("usage: set-password <slug> <password>")

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "worker":
		return CommandWorker
	case "serve":
		return CommandServe
	case "migrate":
		return CommandMigrate
	case "healthcheck":
		return CommandHealthcheck
	case "set-password":
		return CommandSetPassword
	default:
		return CommandServe
	}
}

// ParseSetPasswordArgs はset-passwordサブコマンドのslugとパスワードを取り出す。
func ParseSetPasswordArgs(args []string) (slug, password string, err error) {
	if len(args) < 3 || args[1] == "" || args[2] == "" {
		return "", "", ErrSetPasswordUsage
	}
	return args[1], args[2], nil
}

package session

import (
	"context"
	"log/slog"
)

// Level is the severity of a user-facing notification.
type Level int

const (
	// LevelInfo is a transient toast.
	LevelInfo Level = iota
	// LevelWarn is a toast the user should notice.
	LevelWarn
	// LevelError is an alert.
	LevelError
)

// Notifier shows messages to the user. Notify is never called while the
// Session holds its lock, so implementations may call back into it.
type Notifier interface {
	Notify(level Level, message string)
}

// LogNotifier writes notifications to a logger. It is the default when no
// Notifier is configured.
type LogNotifier struct {
	Log *slog.Logger
}

// Notify logs message at the slog level matching level.
func (n LogNotifier) Notify(level Level, message string) {
	lvl := slog.LevelInfo
	switch level {
	case LevelWarn:
		lvl = slog.LevelWarn
	case LevelError:
		lvl = slog.LevelError
	}
	n.Log.Log(context.Background(), lvl, "notify", "message", message)
}

// Notification texts.
const (
	msgLoaded         = "カルテを読み込みました"
	msgLoadFailed     = "カルテの読み込みに失敗しました"
	msgNotFound       = "カルテが見つかりません"
	msgSaved          = "カルテを保存しました"
	msgSaveFailed     = "保存に失敗しました: "
	msgDeleted        = "カルテを削除しました"
	msgDeleteFailed   = "削除に失敗しました: "
	msgListFailed     = "カルテ一覧の取得に失敗しました"
	msgRemoteApplied  = "他のユーザーによる変更が反映されました"
	msgRemoteDeleted  = "このカルテは他のユーザーによって削除されました。保存すると新しいカルテとして登録されます"
	msgPresenceFailed = "編集者情報の更新に失敗しました"
	msgExported       = "Excelファイルを出力しました"
	msgExportFailed   = "エクスポートに失敗しました: "
)

package postcodec

import (
	"fmt"
	"time"
)

// FormatRelative は投稿日時をフィード表示用の相対ラベルに変換する。
// 1時間未満は "Just now"、24時間未満は "{n}h"、7日未満は "{n}d"、それ以降は "M/D/YYYY"。
// 未来の日時は "Just now" とする。
func FormatRelative(created, now time.Time) string {
	d := now.Sub(created)
	switch {
	case d < time.Hour:
		return "Just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	default:
		return created.Format("1/2/2006")
	}
}

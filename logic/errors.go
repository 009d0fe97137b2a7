package logic

import "errors"

var (
	ErrNotStarted       = errors.New("ゲームが開始されていません")
	ErrAlreadyStarted   = errors.New("ゲームは既に開始されています")
	ErrGameEnded        = errors.New("ゲームは既に終了しています")
	ErrBusy             = errors.New("ターンの処理中です")
	ErrClosed           = errors.New("ゲームは既に破棄されています")
	ErrAwaitingVote     = errors.New("プレイヤーの投票を待っています")
	ErrInvalidAction    = errors.New("不正なアクションです")
	ErrOracle           = errors.New("ナレーターとの通信に失敗しました")
	ErrMalformedVerdict = errors.New("ナレーターの判定が不正です")
)

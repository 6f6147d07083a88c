package cache

import "time"

const (
	// idem:order:checkout:{user_id}:{key} -> order_id（処理中は "pending"）
	KeyIdemOrderCheckout = "idem:order:checkout:%d:%s"

	pendingValue = "pending"
)

var (
	TTLIdempotency = 24 * time.Hour
	// 処理中ロックの寿命。プロセスが落ちても残り続けないように
	TTLPending = 30 * time.Second
)

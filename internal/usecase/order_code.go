package usecase

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// 衝突時に作り直す回数
const maxOrderCodeAttempts = 5

// EC-<epochミリ秒の下8桁>-<10..99>
func newOrderCode(now time.Time) string {
	return fmt.Sprintf("EC-%08d-%d", now.UnixMilli()%100_000_000, 10+rand.IntN(90))
}

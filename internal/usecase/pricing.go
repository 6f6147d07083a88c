package usecase

import "market/internal/domain/model"

const (
	// これを超えたら送料無料
	freeShippingThreshold int64 = 250
	flatShippingFee       int64 = 12
)

// subtotal==0 は空カートで先に弾かれるが、0円なら送料も0
func computeShipping(subtotal int64) int64 {
	if subtotal > freeShippingThreshold || subtotal == 0 {
		return 0
	}
	return flatShippingFee
}

type totals struct {
	Subtotal int64
	Shipping int64
	Total    int64
}

func computeTotals(lines []model.OrderLine) totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.Amount()
	}
	shipping := computeShipping(subtotal)
	return totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}

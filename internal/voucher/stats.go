package voucher

import (
	"math"
	"time"
)

// ExpiringSoonWindow is how far ahead an active voucher counts as expiring soon.
const ExpiringSoonWindow = 7 * 24 * time.Hour

// Stats is a dashboard summary of the whole collection.
type Stats struct {
	Total           int
	Active          int
	Expired         int
	ExpiringSoon    int
	AverageDiscount int
}

// Summarize counts vouchers by status at now. AverageDiscount is rounded to
// the nearest whole percent and is zero for an empty collection.
func Summarize(vs []*Voucher, now time.Time) Stats {
	st := Stats{Total: len(vs)}
	if len(vs) == 0 {
		return st
	}

	soon := now.Add(ExpiringSoonWindow)
	sum := 0

	for _, v := range vs {
		sum += v.DiscountPercent

		if v.Status(now) == StatusExpired {
			st.Expired++
			continue
		}

		st.Active++

		if !v.ExpiryDate.After(soon) {
			st.ExpiringSoon++
		}
	}

	st.AverageDiscount = int(math.Round(float64(sum) / float64(len(vs))))

	return st
}

package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"medibill/internal/domain"
)

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name      string
		grand     string
		paid      string
		cancelled bool
		want      domain.BillStatus
	}{
		{"nothing paid", "900", "0", false, domain.BillStatusActive},
		{"partial", "900", "400", false, domain.BillStatusPartial},
		{"exact", "900", "900", false, domain.BillStatusPaid},
		{"within epsilon", "900.004", "900", false, domain.BillStatusPaid},
		{"just outside epsilon", "900.01", "900", false, domain.BillStatusPartial},
		{"overpaid", "900", "950", false, domain.BillStatusPaid},
		{"zero grand total", "0", "0", false, domain.BillStatusPaid},
		{"cancelled overrides paid", "900", "900", true, domain.BillStatusCancelled},
		{"cancelled overrides active", "900", "0", true, domain.BillStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveStatus(dec(tt.grand), dec(tt.paid), tt.cancelled))
		})
	}
}

func TestResolveStatus_Idempotent(t *testing.T) {
	for _, paid := range []string{"0", "1", "899.99", "900", "10000"} {
		for _, cancelled := range []bool{false, true} {
			first := ResolveStatus(dec("900"), dec(paid), cancelled)
			second := ResolveStatus(dec("900"), dec(paid), cancelled)
			assert.Equal(t, first, second)
		}
	}
}

package service

import (
	"testing"

	"copy_bot/internal/models"

	"github.com/stretchr/testify/assert"
)

func testSizer() *Sizer {
	return NewSizer(dec("5"), dec("10"), dec("100"), dec("10"))
}

func TestComputeOpenSize(t *testing.T) {
	cases := []struct {
		name     string
		equity   string
		price    string
		decimals int32
		size     string
		reason   models.SkipReason
	}{
		{"eth 5% of 1000", "1000", "2000", 4, "0.025", models.SkipNone},
		{"below min", "150", "2000", 4, "0", models.SkipBelowMin},
		{"clamped to max", "100000", "2000", 4, "0.05", models.SkipNone},
		{"rounded to zero", "300", "1000", 1, "0", models.SkipBelowExchangeMin},
		{"half up rounding", "1000", "3", 0, "17", models.SkipNone},
		{"invalid price", "1000", "0", 4, "0", models.SkipInvalidPrice},
		{"negative equity", "-50", "2000", 4, "0", models.SkipBelowMin},
	}

	s := testSizer()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := s.ComputeOpenSize(dec(tc.equity), dec(tc.price), tc.decimals)
			assert.Equal(t, tc.reason, d.SkipReason)
			assert.Equal(t, tc.reason != models.SkipNone, d.Skip)
			assert.True(t, d.Size.Equal(dec(tc.size)), "size %s", d.Size)
		})
	}
}

func TestComputeOpenSizeDeterministic(t *testing.T) {
	s := testSizer()
	a := s.ComputeOpenSize(dec("1234.56"), dec("46.53151"), 2)
	b := s.ComputeOpenSize(dec("1234.56"), dec("46.53151"), 2)
	assert.Equal(t, a, b)
}

func TestNotionalFloor(t *testing.T) {
	s := NewSizer(dec("5"), dec("0"), dec("100"), dec("10"))
	for _, equity := range []string{"50", "150", "199", "200", "201", "1000", "5000"} {
		for _, price := range []string{"0.0001", "0.5", "3", "46.53151", "2000", "65000"} {
			for decimals := int32(0); decimals <= 5; decimals++ {
				d := s.ComputeOpenSize(dec(equity), dec(price), decimals)
				if d.Skip {
					continue
				}
				assert.True(t, d.Size.Mul(dec(price)).GreaterThanOrEqual(dec("10")),
					"equity=%s price=%s decimals=%d size=%s", equity, price, decimals, d.Size)
			}
		}
	}
}

func TestGateCheckOpen(t *testing.T) {
	l := NewLedger()
	g := NewGate(2)
	assert.Equal(t, models.SkipNone, g.CheckOpen("ETH", l))

	l.Set("ETH", dec("1"))
	l.Set("BTC", dec("-0.1"))
	assert.Equal(t, models.SkipMaxPositions, g.CheckOpen("SOL", l))
	assert.Equal(t, models.SkipNone, g.CheckOpen("ETH", l))
}

func TestLimitPrice(t *testing.T) {
	x := NewExecutor(nil, NewLedger(), NewInstrumentCache(), "", dec("0.5"), true, 0)
	hype := models.InstrumentMeta{Symbol: "HYPE", TickSize: dec("0.001")}
	unknown := models.DefaultInstrument("XYZ")

	assert.Equal(t, "46.764", x.LimitPrice(dec("46.53151"), true, false, hype).String())
	assert.Equal(t, "46.299", x.LimitPrice(dec("46.53151"), false, false, hype).String())
	assert.Equal(t, "46.532", x.LimitPrice(dec("46.53151"), true, true, hype).String())
	assert.Equal(t, "46.53", x.LimitPrice(dec("46.53151"), false, true, unknown).String())
}

func TestClientIDStable(t *testing.T) {
	a := clientID("0xhash_1")
	assert.Equal(t, a, clientID("0xhash_1"))
	assert.NotEqual(t, a, clientID("0xhash_2"))
	assert.Len(t, a, 34)
}

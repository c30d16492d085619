package odds

import (
	"errors"
	"math"
	"testing"

	"github.com/propscope/oddsjobs/internal/domain"
)

func TestArbitrageReference(t *testing.T) {
	lb := book(
		"draftkings", q(140), q(100),
		"fanduel", q(150), q(-110),
		"betmgm", nil, q(120),
	)

	res, err := Arbitrage(lb)
	if err != nil {
		t.Fatalf("Arbitrage: %v", err)
	}
	if !res.Exists {
		t.Fatal("Exists = false, want true")
	}

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"total implied", res.TotalImplied, 0.8545454545},
		{"profit pct", res.ProfitPct, 17.0212765957},
		{"stake over", res.Over.StakePct, 46.8085106383},
		{"stake under", res.Under.StakePct, 53.1914893617},
		{"stakes sum", res.Over.StakePct + res.Under.StakePct, 100},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-6 {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if res.Over.Book != "fanduel" || res.Over.Odds != 150 {
		t.Errorf("Over = %+v, want fanduel +150", res.Over)
	}
	if res.Under.Book != "betmgm" || res.Under.Odds != 120 {
		t.Errorf("Under = %+v, want betmgm +120", res.Under)
	}
}

func TestArbitrageNone(t *testing.T) {
	lb := book(
		"draftkings", q(-110), q(-110),
		"fanduel", q(-105), q(-115),
	)
	res, err := Arbitrage(lb)
	if err != nil {
		t.Fatalf("Arbitrage: %v", err)
	}
	if res.Exists {
		t.Errorf("Exists = true for %v implied", res.TotalImplied)
	}
	if res.TotalImplied < 1 {
		t.Errorf("TotalImplied = %v, want >= 1", res.TotalImplied)
	}
	if res.Over.StakePct != 0 || res.ProfitPct != 0 {
		t.Errorf("stake/profit set without arbitrage: %+v", res)
	}
}

func TestArbitrageIncomplete(t *testing.T) {
	tests := []struct {
		name string
		lb   domain.LineBook
	}{
		{"over only", book("draftkings", q(300), nil, "fanduel", q(250), nil)},
		{"under zero", book("draftkings", q(300), q(0))},
		{"empty", book()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Arbitrage(tt.lb)
			if !errors.Is(err, ErrIncompleteTwoSided) {
				t.Errorf("err = %v, want ErrIncompleteTwoSided", err)
			}
		})
	}
}

func TestBestPriceTie(t *testing.T) {
	lb := book("caesars", q(-105), nil, "betmgm", q(-105), nil, "fanduel", q(-120), nil)
	best, ok := BestPrice(lb, domain.SideOver)
	if !ok || best.Book != "caesars" {
		t.Errorf("BestPrice = %+v, %v; want caesars", best, ok)
	}
}

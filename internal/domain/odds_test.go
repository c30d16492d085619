package domain

import (
	"encoding/json"
	"testing"
)

func TestQuotePriceDecoding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"integer", `{"price":-110}`, -110},
		{"float", `{"price":125.0}`, 125},
		{"numeric string", `{"price":"+150"}`, 150},
		{"garbage string", `{"price":"EVEN"}`, 0},
		{"null", `{"price":null}`, 0},
		{"missing", `{"sid":"abc"}`, 0},
		{"absurd", `{"price":1e12}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quote
			if err := json.Unmarshal([]byte(tt.raw), &q); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if q.Price != tt.want {
				t.Errorf("Price = %d, want %d", q.Price, tt.want)
			}
		})
	}
}

func TestMarketCellRoundTrip(t *testing.T) {
	var c MarketCell
	c.Kind = KindGame
	c.Market = "Moneyline"
	c.Outcomes = &OutcomeNames{Over: "New York Yankees", Under: "Boston Red Sox"}
	var lb LineBook
	lb.Set("draftkings", BookQuotes{Over: &Quote{Price: -130, Link: "https://dk/1"}, Under: &Quote{Price: 110}})
	c.Lines.Set(StandardLine, lb)
	c.PrimaryLine = StandardLine

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back MarketCell
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.SideLabel(SideOver) != "New York Yankees" || back.SideLabel(SideUnder) != "Boston Red Sox" {
		t.Errorf("labels = %q/%q", back.SideLabel(SideOver), back.SideLabel(SideUnder))
	}
	got, _ := back.Lines.Get(StandardLine)
	dk, _ := got.Get("draftkings")
	if dk.Over.Price != -130 || dk.Over.Link != "https://dk/1" || dk.Under.Price != 110 {
		t.Errorf("draftkings = %+v / %+v", dk.Over, dk.Under)
	}

	prop := MarketCell{}
	if prop.SideLabel(SideUnder) != "under" {
		t.Errorf("prop label = %q", prop.SideLabel(SideUnder))
	}
}

func TestSubjectIDWireName(t *testing.T) {
	raw := `{"kind":"prop","sport":"mlb","player_id":"660271","description":"Shohei Ohtani","market":"Hits","lines":{}}`
	var c MarketCell
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.SubjectID != "660271" {
		t.Errorf("SubjectID = %q, want 660271", c.SubjectID)
	}

	for name, v := range map[string]any{
		"cell":   c,
		"result": ConsensusResult{SubjectID: "660271"},
		"arb":    ArbOpportunity{SubjectID: "660271"},
	} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if m["player_id"] != "660271" {
			t.Errorf("%s: player_id = %v", name, m["player_id"])
		}
		if _, ok := m["subject_id"]; ok {
			t.Errorf("%s: unexpected subject_id field", name)
		}
	}
}

package pivot

import (
	"fmt"
	"math/rand"
)

var testVocab = Vocabulary{
	Brands:     []string{"A", "B", "C"},
	Categories: []string{"Affiliate/Network", "E-commerce/Cart", "Brand-Competitor", "Energy"},
	Intents:    []string{"Informational", "Commercial", "Navigational", "Transactional"},
}

func presence(brand string, clicks int64, spend float64) BrandPresence {
	return BrandPresence{
		Brand:          brand,
		Clicks:         clicks,
		EstimatedSpend: spend,
		DeviceShare:    DeviceShare{Desktop: 0.4, Mobile: 0.6},
	}
}

// fiveRecords is two brand-A keywords and three brand-B keywords.
func fiveRecords() []KeywordRecord {
	return []KeywordRecord{
		{
			Keyword: "affiliate network software", Volume: Int64(1000), CPC: Float64(1.0),
			Categories: []string{"Affiliate/Network"}, PrimaryCategory: "Affiliate/Network", Intent: "Commercial",
			BrandPresences: []BrandPresence{presence("A", 100, 300)},
		},
		{
			Keyword: "shopping cart plugin", Volume: Int64(500), CPC: Float64(2.0),
			Categories: []string{"E-commerce/Cart"}, PrimaryCategory: "E-commerce/Cart", Intent: "Transactional",
			BrandPresences: []BrandPresence{presence("A", 50, 120)},
		},
		{
			Keyword: "Solar Panels for home", Volume: Int64(2000), CPC: Float64(3.5),
			Categories: []string{"Energy"}, PrimaryCategory: "Energy", Intent: "Informational",
			BrandPresences: []BrandPresence{presence("B", 10, 40)},
		},
		{
			Keyword: "brand b login", Volume: nil, CPC: Float64(0.2),
			Categories: []string{"Brand-Competitor"}, PrimaryCategory: "Brand-Competitor", Intent: "Navigational",
			BrandPresences: []BrandPresence{presence("B", 900, 15)},
		},
		{
			Keyword: "cart abandonment emails", Volume: Int64(300), CPC: nil,
			Categories: []string{"E-commerce/Cart", "Affiliate/Network"}, PrimaryCategory: "E-commerce/Cart", Intent: "Informational",
			BrandPresences: []BrandPresence{presence("B", 5, 2.5)},
		},
	}
}

// syntheticRecords builds n deterministic records spread over the test
// vocabulary, including absent fields and unbranded rows.
func syntheticRecords(n int, seed int64) []KeywordRecord {
	rng := rand.New(rand.NewSource(seed))
	records := make([]KeywordRecord, n)
	for i := range records {
		cat := testVocab.Categories[rng.Intn(len(testVocab.Categories))]
		rec := KeywordRecord{
			Keyword:         fmt.Sprintf("keyword %d %s", i%(n/3+1), []string{"solar", "cart", "crm", "vpn"}[rng.Intn(4)]),
			Categories:      []string{cat},
			PrimaryCategory: cat,
			Intent:          testVocab.Intents[rng.Intn(len(testVocab.Intents))],
		}
		if rng.Intn(10) > 0 {
			rec.Volume = Int64(int64(rng.Intn(5000)))
		}
		if rng.Intn(10) > 0 {
			rec.CPC = Float64(float64(rng.Intn(800)) / 100)
		}
		if rng.Intn(3) == 0 {
			extra := testVocab.Categories[rng.Intn(len(testVocab.Categories))]
			if extra != cat {
				rec.Categories = append(rec.Categories, extra)
			}
		}
		for _, b := range testVocab.Brands {
			if rng.Intn(3) == 0 {
				rec.BrandPresences = append(rec.BrandPresences, presence(b, int64(rng.Intn(400)), float64(rng.Intn(10000))/10))
			}
		}
		records[i] = rec
	}
	return records
}

package catalog_test

import (
	"testing"

	"wanderbook/internal/catalog"
	"wanderbook/internal/domain"
)

func TestLoad_EmbeddedInventory(t *testing.T) {
	c, err := catalog.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.All()) < 5 {
		t.Fatalf("expected at least 5 hotels, got %d", len(c.All()))
	}
	h, ok := c.Get(1001)
	if !ok || h.Name != "Azure Bay Resort & Spa" || h.Currency != "INR" {
		t.Fatalf("unexpected hotel 1001: %+v", h)
	}
	for _, h := range c.All() {
		if h.Price < 0 || len(h.ImageURLs) > domain.MaxImages || len(h.Amenities) > domain.MaxAmenities {
			t.Fatalf("hotel %d out of bounds: %+v", h.ID, h)
		}
	}
}

func TestSearch_SubstringOnCityOrCountry(t *testing.T) {
	c := catalog.MustLoad()

	goa := c.Search("GOA")
	if len(goa) != 1 || goa[0].ID != 1002 {
		t.Fatalf("expected only Goa hotel, got %+v", goa)
	}

	india := c.Search("ind")
	if len(india) != len(c.All()) {
		t.Fatalf("country substring should match every hotel, got %d", len(india))
	}

	miami := c.Search("Miami")
	if len(miami) != len(c.All()) {
		t.Fatalf("no match should return whole catalog, got %d", len(miami))
	}
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := catalog.MustLoad()
	h, _ := c.Get(1001)
	h.Name = "mutated"
	h.Amenities[0] = "mutated"

	again, _ := c.Get(1001)
	if again.Name == "mutated" || again.Amenities[0] == "mutated" {
		t.Fatalf("catalog entry was mutated through a returned copy: %+v", again)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":     "hotels: []",
		"no id":     "hotels:\n  - name: X\n",
		"duplicate": "hotels:\n  - id: 1\n    name: A\n  - id: 1\n    name: B\n",
		"bad yaml":  "hotels: [",
	}
	for name, doc := range cases {
		if _, err := catalog.Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

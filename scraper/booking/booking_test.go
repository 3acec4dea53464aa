package booking

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"rental-scraper/browser/browsertest"
	"rental-scraper/models"
	"rental-scraper/utils"
)

func newTestExtractor() *Extractor {
	return NewExtractor(utils.NewLoggerTo(io.Discard, "error"))
}

func card(name, price, rating, beds *string) rawCard {
	f := func(s *string) rawField {
		if s == nil {
			return rawField{}
		}
		return rawField{Text: *s, Found: true}
	}
	return rawCard{Name: f(name), Price: f(price), Rating: f(rating), Beds: f(beds)}
}

func str(s string) *string { return &s }

func TestExtractFullCards(t *testing.T) {
	p := &browsertest.Page{EvalResult: []rawCard{
		card(str("Casa do Gerês"), str("€\u00a0120"), str("Scored 8.6\n8.6\nFabulous"), str("1 double bed")),
		card(str("Hotel Águas"), str("€\u00a095"), str("Scored 9.1\n 9.1 \nSuperb"), str("2 single beds")),
		card(str("Quinta Vale"), str("€\u00a01,210"), str("Scored 7.9\n7.9\nGood"), str("1 king bed")),
	}}

	records, err := newTestExtractor().Extract(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}

	first := records[0]
	if first.Name.Value != "Casa do Gerês" || !first.Name.Present {
		t.Errorf("name: got %+v", first.Name)
	}
	if first.Price.Value != "€120" {
		t.Errorf("price: got %q, want %q", first.Price.Value, "€120")
	}
	if first.Rating.Value != "8.6" {
		t.Errorf("rating: got %q, want %q", first.Rating.Value, "8.6")
	}
	if records[1].Rating.Value != "9.1" {
		t.Errorf("rating should be trimmed, got %q", records[1].Rating.Value)
	}
	if records[2].Price.Value != "€1,210" {
		t.Errorf("price: got %q", records[2].Price.Value)
	}
}

func TestExtractMissingFieldsUsePlaceholder(t *testing.T) {
	p := &browsertest.Page{EvalResult: []rawCard{
		card(str("Only a name"), nil, nil, nil),
		card(nil, nil, nil, nil),
	}}

	records, err := newTestExtractor().Extract(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	for i, r := range records {
		for name, f := range map[string]models.Field{
			"price": r.Price, "rating": r.Rating, "bed_configuration": r.BedConfiguration,
		} {
			if f.Present || f.Value != models.Placeholder {
				t.Errorf("record %d %s: got %+v, want placeholder", i, name, f)
			}
		}
	}
	if records[1].Name.Value != models.Placeholder {
		t.Errorf("all-missing card should still carry a placeholder name")
	}
}

func TestExtractNoCards(t *testing.T) {
	p := &browsertest.Page{EvalResult: []rawCard{}}
	records, err := newTestExtractor().Extract(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestExtractSingleLineRatingFails(t *testing.T) {
	p := &browsertest.Page{EvalResult: []rawCard{
		card(str("Hotel Ok"), str("€90"), str("Scored 8.6\n8.6\nFabulous"), nil),
		card(str("Odd card"), str("€80"), str("8.0"), nil),
	}}
	var logs bytes.Buffer
	e := NewExtractor(utils.NewLoggerTo(&logs, "warn"))

	_, err := e.Extract(context.Background(), p)
	if !errors.Is(err, ErrRatingFormat) {
		t.Errorf("expected ErrRatingFormat, got %v", err)
	}
	out := logs.String()
	if !strings.Contains(out, "Card 1") || !strings.Contains(out, "8.0") {
		t.Errorf("warning should name the card and its raw score, got %q", out)
	}
}

func TestCleanPrice(t *testing.T) {
	tests := []struct{ in, want string }{
		{"€\u00a0120", "€120"},
		{"US$\u00a01,200", "US$1,200"},
		{"€ 95", "€ 95"},
	}
	for _, tt := range tests {
		if got := CleanPrice(tt.in); got != tt.want {
			t.Errorf("CleanPrice(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

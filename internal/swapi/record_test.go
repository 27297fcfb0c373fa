package swapi

import "testing"

func TestParseCount(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"172", 172},
		{"1,000", 1000},
		{"1000000000000", 1000000000000},
		{"unknown", 0},
		{"n/a", 0},
		{"none", 0},
		{"", 0},
		{"30-165", 30},
		{" 6 ", 6},
		{"1.5", 1},
		{"99999999999999999999", 0},
	}

	for _, tt := range tests {
		if got := ParseCount(tt.input); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestIDFromURL(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"https://swapi.dev/api/people/4/", 4, false},
		{"https://swapi.dev/api/planets/61", 61, false},
		{"http://127.0.0.1:8080/people/12/", 12, false},
		{"https://swapi.dev/api/people/", 0, true},
		{"https://swapi.dev/api/people/0/", 0, true},
		{"https://swapi.dev/api/people/abc/", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := IDFromURL(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("IDFromURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("IDFromURL(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestConverter_Person(t *testing.T) {
	c := NewConverter()

	p, err := c.Person(PersonRecord{
		Name:      "Luke <b>Skywalker</b>",
		BirthYear: "19BBY",
		Height:    "172",
		URL:       "https://swapi.dev/api/people/1/",
	})
	if err != nil {
		t.Fatalf("Person がエラーを返した: %v", err)
	}
	if p.ID != 1 || p.Name != "Luke Skywalker" || p.BirthYear != "19BBY" || p.Height != 172 {
		t.Errorf("Person = %+v", p)
	}
}

func TestConverter_Person_Invalid(t *testing.T) {
	c := NewConverter()

	tests := []struct {
		name string
		rec  PersonRecord
	}{
		{"名前なし", PersonRecord{URL: "https://swapi.dev/api/people/1/"}},
		{"URLなし", PersonRecord{Name: "Leia"}},
		{"URLが不正", PersonRecord{Name: "Leia", URL: "not a url"}},
		{"IDなし", PersonRecord{Name: "Leia", URL: "https://swapi.dev/api/people/"}},
		{"タグのみの名前", PersonRecord{Name: "<script>x</script>", URL: "https://swapi.dev/api/people/5/"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := c.Person(tt.rec); err == nil {
				t.Error("エラーが返されるべき")
			}
		})
	}
}

func TestConverter_Planet(t *testing.T) {
	c := NewConverter()

	p, err := c.Planet(PlanetRecord{
		Name:       "Dagobah",
		Population: "unknown",
		URL:        "https://swapi.dev/api/planets/5/",
	})
	if err != nil {
		t.Fatalf("Planet がエラーを返した: %v", err)
	}
	if p.ID != 5 || p.Name != "Dagobah" || p.Population != 0 {
		t.Errorf("Planet = %+v", p)
	}
}

func TestConverter_Vehicle(t *testing.T) {
	c := NewConverter()

	v, err := c.Vehicle(VehicleRecord{
		Name:       "Sand Crawler",
		Crew:       "46",
		Passengers: "30",
		URL:        "https://swapi.dev/api/vehicles/4/",
	})
	if err != nil {
		t.Fatalf("Vehicle がエラーを返した: %v", err)
	}
	if v.ID != 4 || v.Name != "Sand Crawler" || v.Crew != 46 || v.Passengers != 30 {
		t.Errorf("Vehicle = %+v", v)
	}

	if _, err := c.Vehicle(VehicleRecord{Name: "AT-AT"}); err == nil {
		t.Error("URLのないレコードはエラーになるべき")
	}
}

package swapi

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/starfav/internal/model"
	"github.com/hitoshi/starfav/internal/security"
)

// PersonRecord はSWAPIの people リソースの1件。
type PersonRecord struct {
	Name      string `json:"name" validate:"required,max=250"`
	BirthYear string `json:"birth_year" validate:"max=250"`
	Height    string `json:"height"`
	URL       string `json:"url" validate:"required,url"`
}

// PlanetRecord はSWAPIの planets リソースの1件。
type PlanetRecord struct {
	Name       string `json:"name" validate:"required,max=250"`
	Population string `json:"population"`
	URL        string `json:"url" validate:"required,url"`
}

// VehicleRecord はSWAPIの vehicles リソースの1件。
type VehicleRecord struct {
	Name       string `json:"name" validate:"required,max=250"`
	Crew       string `json:"crew"`
	Passengers string `json:"passengers"`
	URL        string `json:"url" validate:"required,url"`
}

// Converter は取り込んだレコードを検証し、ドメインモデルに変換する。
type Converter struct {
	validate  *validator.Validate
	sanitizer *security.TextSanitizer
}

// NewConverter はConverterを生成する。
func NewConverter() *Converter {
	return &Converter{
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		sanitizer: security.NewTextSanitizer(),
	}
}

// Person はPersonRecordをmodel.Personに変換する。
func (c *Converter) Person(rec PersonRecord) (*model.Person, error) {
	if err := c.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid person record: %w", err)
	}
	id, err := IDFromURL(rec.URL)
	if err != nil {
		return nil, err
	}
	name, err := c.name(rec.Name)
	if err != nil {
		return nil, err
	}
	return &model.Person{
		ID:        id,
		Name:      name,
		BirthYear: c.sanitizer.SanitizeText(rec.BirthYear),
		Height:    int(ParseCount(rec.Height)),
	}, nil
}

// Planet はPlanetRecordをmodel.Planetに変換する。
func (c *Converter) Planet(rec PlanetRecord) (*model.Planet, error) {
	if err := c.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid planet record: %w", err)
	}
	id, err := IDFromURL(rec.URL)
	if err != nil {
		return nil, err
	}
	name, err := c.name(rec.Name)
	if err != nil {
		return nil, err
	}
	return &model.Planet{
		ID:         id,
		Name:       name,
		Population: ParseCount(rec.Population),
	}, nil
}

// Vehicle はVehicleRecordをmodel.Vehicleに変換する。
func (c *Converter) Vehicle(rec VehicleRecord) (*model.Vehicle, error) {
	if err := c.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("invalid vehicle record: %w", err)
	}
	id, err := IDFromURL(rec.URL)
	if err != nil {
		return nil, err
	}
	name, err := c.name(rec.Name)
	if err != nil {
		return nil, err
	}
	return &model.Vehicle{
		ID:         id,
		Name:       name,
		Crew:       int(ParseCount(rec.Crew)),
		Passengers: int(ParseCount(rec.Passengers)),
	}, nil
}

// name はタグを除去した名前を返す。除去後に空になる名前は不正とする。
func (c *Converter) name(raw string) (string, error) {
	name := c.sanitizer.SanitizeText(raw)
	if name == "" {
		return "", fmt.Errorf("name is empty after sanitizing: %q", raw)
	}
	return name, nil
}

// IDFromURL はリソースURLの末尾セグメントからIDを取り出す。
// 例: https://swapi.dev/api/people/4/ → 4
func IDFromURL(raw string) (int64, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid resource url %q: %w", raw, err)
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	id, err := strconv.ParseInt(last, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("resource url %q has no positive id", raw)
	}
	return id, nil
}

// ParseCount はSWAPIの数値文字列を整数に変換する。
// "unknown" や "n/a" など数値を含まない値は0、"1,000" の区切りは除去し、
// "30-165" のような範囲は下限を採用する。
func ParseCount(raw string) int64 {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}
